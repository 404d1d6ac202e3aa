package command

import (
	"fmt"

	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/llm"
	"github.com/nishant-bin/neuranet/retrieval"
)

// Deps carries the shared services the builtin command modules close over.
type Deps struct {
	Retrieval *retrieval.Engine
	Models    *llm.Registry
	Client    *llm.Client
	// DefaultModel answers for flow steps that name no model.
	DefaultModel string
	// CredentialKey decrypts model credentials stored in flow inputs.
	// When empty, credentials are passed through as-is.
	CredentialKey string
}

// RegisterBuiltins wires the builtin modules into the command registry.
// Application-supplied modules of the same name shadow these.
func RegisterBuiltins(registry *engine.Registry, deps Deps) {
	registry.Register("retrieve", retrieveModule(deps))
	registry.Register("llm", llmModule(deps))
	registry.Register("chat", chatModule(deps))
}

func paramString(params map[string]any, name string) string {
	if value, ok := params[name].(string); ok {
		return value
	}
	return ""
}

func paramBool(params map[string]any, name string) bool {
	switch v := params[name].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// paramInt tolerates the numeric types json and expression evaluation
// produce for the same flow input.
func paramInt(params map[string]any, name string) int {
	switch v := params[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func paramFloat(params map[string]any, name string) float64 {
	switch v := params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// paramStrings reads a list input that may arrive as a real string slice,
// a json array, or a single scalar.
func paramStrings(params map[string]any, name string) []string {
	return asStrings(params[name])
}

func asStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, fmt.Sprintf("%v", item))
		}
		return values
	case string:
		if len(v) == 0 {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func requestField(params map[string]any, name string) any {
	request, ok := params["request"].(map[string]any)
	if !ok {
		return nil
	}
	return request[name]
}
