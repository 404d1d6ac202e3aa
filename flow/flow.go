package flow

import (
	"encoding/json"
	"fmt"
	"strings"
)

const DEFAULT_FUNCTION = "run"
const DEFAULT_OUT_KEY = "lastStepOutput"

const SUFFIX_EXPRESSION = "js"
const SUFFIX_RAW = "raw"

// StepDef is the wire shape of one flow step as authored in application
// configuration. Input keys may carry a behavior suffix on their last
// underscore-delimited segment: _js marks an expression, _raw marks an
// un-interpolated literal.
type StepDef struct {
	Command     string         `json:"command"`
	In          map[string]any `json:"in"`
	Out         string         `json:"out"`
	Condition   any            `json:"condition,omitempty"`
	ConditionJs string         `json:"condition_js,omitempty"`
}

// Definition is the wire shape of a whole flow.
type Definition struct {
	Name  string    `json:"name,omitempty"`
	Steps []StepDef `json:"steps"`
}

// Step is the compiled form: command split into module and function, every
// input classified into a typed Binding under its de-suffixed key.
type Step struct {
	Module    string
	Function  string
	In        map[string]Binding
	InOrder   []string
	Out       string
	Condition *Binding
}

// Flow is an immutable compiled flow definition, safe to cache and share
// read-only across concurrent executions.
type Flow struct {
	Name  string
	Steps []Step
}

// Parse unmarshals and compiles a flow definition in one go.
func Parse(data []byte) (*Flow, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("error parsing flow definition %w", err)
	}
	return Compile(&def)
}

// Compile validates a definition and resolves every suffix marker into a
// typed Binding, so the execution hot path never looks at key names again.
func Compile(def *Definition) (*Flow, error) {
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("flow %s has no steps", def.Name)
	}
	fl := &Flow{Name: def.Name, Steps: make([]Step, 0, len(def.Steps))}
	for i, stepDef := range def.Steps {
		step, err := compileStep(stepDef)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		fl.Steps = append(fl.Steps, step)
	}
	return fl, nil
}

func compileStep(def StepDef) (Step, error) {
	if len(def.Command) == 0 {
		return Step{}, fmt.Errorf("step command can not be empty")
	}
	module, function := SplitCommand(def.Command)
	out := def.Out
	if len(out) == 0 {
		out = DEFAULT_OUT_KEY
	}
	step := Step{
		Module:   module,
		Function: function,
		In:       make(map[string]Binding, len(def.In)),
		Out:      out,
	}
	for key, value := range def.In {
		name, binding, err := compileInput(key, value)
		if err != nil {
			return Step{}, err
		}
		step.In[name] = binding
		step.InOrder = append(step.InOrder, name)
	}
	if len(def.ConditionJs) > 0 {
		cond := NewExpressionBinding(def.ConditionJs)
		step.Condition = &cond
	} else if def.Condition != nil {
		cond := NewBinding(def.Condition)
		step.Condition = &cond
	}
	return step, nil
}

// compileInput strips a recognized behavior suffix off the key and builds
// the matching binding. Underscores that do not form a recognized trailing
// segment are left alone.
func compileInput(key string, value any) (string, Binding, error) {
	idx := strings.LastIndex(key, "_")
	if idx > 0 {
		switch key[idx+1:] {
		case SUFFIX_EXPRESSION:
			expression, ok := value.(string)
			if !ok {
				return "", Binding{}, fmt.Errorf("input %s: expression must be a string", key)
			}
			return key[:idx], NewExpressionBinding(expression), nil
		case SUFFIX_RAW:
			return key[:idx], NewRawBinding(value), nil
		}
	}
	return key, NewBinding(value), nil
}

// SplitCommand splits "module.function" and fills in the default
// entry-point name when the function part is omitted.
func SplitCommand(command string) (string, string) {
	module, function, found := strings.Cut(command, ".")
	if !found || len(function) == 0 {
		return module, DEFAULT_FUNCTION
	}
	return module, function
}
