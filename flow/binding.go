package flow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nishant-bin/neuranet/logger"
	"github.com/oliveagle/jsonpath"
	"go.uber.org/zap"
)

type BindingKind int

const (
	BINDING_LITERAL BindingKind = iota
	BINDING_TEMPLATE
	BINDING_OBJECT
	BINDING_RAW
	BINDING_EXPRESSION
)

// Binding is a configuration value resolved against working memory at step
// execution time. The kind is decided once at flow parse time; expansion
// never re-inspects key suffixes.
type Binding struct {
	Kind       BindingKind
	Value      any
	Expression string
}

var templateTokenRegex = regexp.MustCompile(`\{\{(.*?)\}\}`)

// NewBinding classifies a raw configuration value. Strings containing
// {{...}} tokens become templates, maps and lists become template-rendered
// objects, everything else passes through as a literal.
func NewBinding(value any) Binding {
	switch v := value.(type) {
	case string:
		if templateTokenRegex.MatchString(v) {
			return Binding{Kind: BINDING_TEMPLATE, Value: v}
		}
		return Binding{Kind: BINDING_LITERAL, Value: v}
	case map[string]any, []any:
		return Binding{Kind: BINDING_OBJECT, Value: v}
	default:
		return Binding{Kind: BINDING_LITERAL, Value: value}
	}
}

func NewRawBinding(value any) Binding {
	return Binding{Kind: BINDING_RAW, Value: value}
}

func NewExpressionBinding(expression string) Binding {
	return Binding{Kind: BINDING_EXPRESSION, Expression: expression}
}

// Expand resolves the binding against the given working memory snapshot.
// Expansion precedence follows the kind decided at parse time: raw values
// are returned untouched, expressions run in the sandboxed evaluator,
// objects are stringified, rendered and re-parsed, template strings are
// rendered, other literals pass through.
func (b Binding) Expand(memory map[string]any, eval *Evaluator) (any, error) {
	switch b.Kind {
	case BINDING_RAW:
		return b.Value, nil
	case BINDING_EXPRESSION:
		return eval.Eval(b.Expression, memory)
	case BINDING_OBJECT:
		return expandObject(b.Value, memory)
	case BINDING_TEMPLATE:
		return renderTemplate(b.Value.(string), memory), nil
	default:
		return b.Value, nil
	}
}

func expandObject(value any, memory map[string]any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("error serializing object binding %w", err)
	}
	rendered := templateTokenRegex.ReplaceAllStringFunc(string(data), func(token string) string {
		resolved := lookupToken(token, memory)
		text := stringify(resolved)
		// keep the intermediate JSON parseable; drop only the outer
		// quotes of the marshaled string, escapes inside must survive
		escaped, _ := json.Marshal(text)
		return string(escaped[1 : len(escaped)-1])
	})
	var out any
	if err := json.Unmarshal([]byte(rendered), &out); err != nil {
		return nil, fmt.Errorf("error parsing rendered object binding %w", err)
	}
	return out, nil
}

// renderTemplate substitutes {{...}} tokens with values looked up in
// working memory. A template that is exactly one token returns the value
// unconverted so callers keep lists and maps intact.
func renderTemplate(template string, memory map[string]any) any {
	tokens := templateTokenRegex.FindAllString(template, -1)
	if len(tokens) == 0 {
		return template
	}
	if len(tokens) == 1 && strings.TrimSpace(template) == tokens[0] {
		return lookupToken(tokens[0], memory)
	}
	return templateTokenRegex.ReplaceAllStringFunc(template, func(token string) string {
		return stringify(lookupToken(token, memory))
	})
}

func lookupToken(token string, memory map[string]any) any {
	path := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, "{{"), "}}"))
	if len(path) == 0 {
		return nil
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	value, err := jsonpath.JsonPathLookup(memory, path)
	if err != nil {
		logger.Debug("template token did not resolve", zap.String("path", path), zap.Error(err))
		return nil
	}
	return value
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// RenderTemplate renders a template string against arbitrary data using
// the binding token syntax. Text without tokens passes through unchanged.
func RenderTemplate(template string, data map[string]any) string {
	return stringify(renderTemplate(template, data))
}

// IsFalsy reports whether an expanded condition value should skip a step.
func IsFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return len(v) == 0 || v == "false" || v == "0"
	case int:
		return v == 0
	case int64:
		return v == 0
	case float64:
		return v == 0
	default:
		return false
	}
}
