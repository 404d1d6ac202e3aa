package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlow(t *testing.T) {
	data := []byte(`{
		"name": "answer",
		"steps": [
			{"command": "retrieve.search", "in": {"query": "{{query}}"}, "out": "docs"},
			{"command": "llm.answer", "in": {"context_js": "working_memory.docs"}, "out": "airesponse"}
		]
	}`)
	fl, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "answer", fl.Name)
	require.Len(t, fl.Steps, 2)

	first := fl.Steps[0]
	require.Equal(t, "retrieve", first.Module)
	require.Equal(t, "search", first.Function)
	require.Equal(t, "docs", first.Out)
	require.Equal(t, BINDING_TEMPLATE, first.In["query"].Kind)

	second := fl.Steps[1]
	require.Equal(t, "llm", second.Module)
	require.Equal(t, "answer", second.Function)
	require.Equal(t, BINDING_EXPRESSION, second.In["context"].Kind)
	require.Equal(t, "working_memory.docs", second.In["context"].Expression)
}

func TestCompileSuffixStripping(t *testing.T) {
	step, err := compileStepForTest(map[string]any{
		"prompt_template_raw": "{{keep me}}",
		"score_js":            "1 + 1",
		"plain_key":           "value",
		"tpl":                 "{{query}}",
	})
	require.NoError(t, err)

	require.Equal(t, BINDING_RAW, step.In["prompt_template"].Kind)
	require.Equal(t, BINDING_EXPRESSION, step.In["score"].Kind)
	// a non-suffix underscore segment stays part of the key
	require.Equal(t, BINDING_LITERAL, step.In["plain_key"].Kind)
	require.Equal(t, BINDING_TEMPLATE, step.In["tpl"].Kind)
}

func TestCompileExpressionMustBeString(t *testing.T) {
	_, err := compileStepForTest(map[string]any{"value_js": 12})
	require.Error(t, err)
}

func TestCompileDefaults(t *testing.T) {
	fl, err := Compile(&Definition{Steps: []StepDef{{Command: "llm"}}})
	require.NoError(t, err)
	require.Equal(t, "llm", fl.Steps[0].Module)
	require.Equal(t, DEFAULT_FUNCTION, fl.Steps[0].Function)
	require.Equal(t, DEFAULT_OUT_KEY, fl.Steps[0].Out)
	require.Nil(t, fl.Steps[0].Condition)
}

func TestCompileCondition(t *testing.T) {
	fl, err := Compile(&Definition{Steps: []StepDef{
		{Command: "llm.answer", Condition: "{{request.verbose}}"},
		{Command: "llm.answer", ConditionJs: "$.docs.length > 0"},
	}})
	require.NoError(t, err)
	require.Equal(t, BINDING_TEMPLATE, fl.Steps[0].Condition.Kind)
	require.Equal(t, BINDING_EXPRESSION, fl.Steps[1].Condition.Kind)
}

func TestCompileEmptyFlow(t *testing.T) {
	_, err := Compile(&Definition{})
	require.Error(t, err)
	_, err = Compile(&Definition{Steps: []StepDef{{Command: ""}}})
	require.Error(t, err)
}

func compileStepForTest(in map[string]any) (Step, error) {
	return compileStep(StepDef{Command: "test.run", In: in})
}
