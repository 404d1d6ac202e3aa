package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/metadata"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/quota"
	"github.com/nishant-bin/neuranet/session"
	"github.com/stretchr/testify/require"
)

type testHarness struct {
	engine   *Engine
	flows    metadata.Service
	executed []string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		flows: metadata.NewService(metadata.NewMemoryStorage()),
	}
	registry := NewRegistry()
	registry.Register("test", Module{
		"echo": func(ctx context.Context, call *Call) (any, error) {
			h.executed = append(h.executed, call.Step.Module+"."+call.Step.Function)
			return call.Params["value"], nil
		},
		"fail": func(ctx context.Context, call *Call) (any, error) {
			h.executed = append(h.executed, "test.fail")
			return nil, errors.New("downstream unavailable")
		},
		"boom": func(ctx context.Context, call *Call) (any, error) {
			panic("unexpected state")
		},
		"signal": func(ctx context.Context, call *Call) (any, error) {
			h.executed = append(h.executed, "test.signal")
			call.Signal("no knowledge found", model.REASON_NOKNOWLEDGE)
			return nil, nil
		},
	})
	h.engine = NewEngine(h.flows, registry, flow.NewEvaluator(), quota.NewAllowAllChecker(),
		session.NewManager(session.NewMemoryKVStore()))
	return h
}

func (h *testHarness) save(t *testing.T, def flow.Definition) {
	t.Helper()
	require.NoError(t, h.flows.SaveFlow(context.Background(), "user1", "org1", "app1", def))
}

func request(flowName string) model.ExecutionRequest {
	return model.ExecutionRequest{
		Query:         "what is the refund policy",
		Identity:      "user1",
		Org:           "org1",
		ApplicationId: "app1",
		FlowName:      flowName,
	}
}

func TestExecuteStepOutputsFlowThroughMemory(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "pipeline",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "{{query}}"}, Out: "first"},
			{Command: "test.echo", In: map[string]any{"value": "answer: {{first}}"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("pipeline"))
	require.True(t, result.Ok)
	require.Equal(t, "answer: what is the refund policy", result.Response)
}

func TestExecuteDefaultOutKeyIsResponseFallback(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "single",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "plain output"}},
		},
	})

	result := h.engine.Execute(context.Background(), request("single"))
	require.True(t, result.Ok)
	require.Equal(t, "plain output", result.Response)
}

func TestExecuteFailedStepStopsTheFlow(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "failing",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "a"}, Out: "a"},
			{Command: "test.fail"},
			{Command: "test.echo", In: map[string]any{"value": "c"}, Out: "c"},
		},
	})

	result := h.engine.Execute(context.Background(), request("failing"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_INTERNAL, result.Reason)
	require.Equal(t, "downstream unavailable", result.Error)
	require.Equal(t, []string{"test.echo", "test.fail"}, h.executed)
}

func TestExecuteSignalCarriesCommandReason(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "signalling",
		Steps: []flow.StepDef{
			{Command: "test.signal"},
			{Command: "test.echo", In: map[string]any{"value": "never"}, Out: "never"},
		},
	})

	result := h.engine.Execute(context.Background(), request("signalling"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_NOKNOWLEDGE, result.Reason)
	require.Equal(t, "no knowledge found", result.Error)
	require.Equal(t, []string{"test.signal"}, h.executed)
}

func TestExecutePanicBecomesInternalFailure(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "panicking",
		Steps: []flow.StepDef{
			{Command: "test.boom"},
		},
	})

	result := h.engine.Execute(context.Background(), request("panicking"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_INTERNAL, result.Reason)
	require.Contains(t, result.Error, "unexpected state")
}

func TestExecuteUnknownCommandFails(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "unknown",
		Steps: []flow.StepDef{
			{Command: "nosuch.run"},
		},
	})

	result := h.engine.Execute(context.Background(), request("unknown"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_INTERNAL, result.Reason)
}

func TestExecuteMissingFlowFails(t *testing.T) {
	h := newTestHarness(t)
	result := h.engine.Execute(context.Background(), request("ghost"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_INTERNAL, result.Reason)
}

func TestExecuteConditionSkipsStep(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "conditional",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": ""}, Out: "empty"},
			{Command: "test.echo", In: map[string]any{"value": "skipped"}, Out: "airesponse", Condition: "{{empty}}"},
			{Command: "test.echo", In: map[string]any{"value": "ran"}, Out: "airesponse", Condition: "{{query}}"},
		},
	})

	result := h.engine.Execute(context.Background(), request("conditional"))
	require.True(t, result.Ok)
	require.Equal(t, "ran", result.Response)
}

func TestExecuteConditionExpressionErrorSkipsNotFails(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "badcond",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "guarded"}, Out: "guarded", ConditionJs: "this is not javascript ((("},
			{Command: "test.echo", In: map[string]any{"value": "final"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("badcond"))
	require.True(t, result.Ok)
	require.Equal(t, "final", result.Response)
	require.Len(t, h.executed, 1)
}

func TestExecuteRawInputIsNotExpanded(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "rawkeep",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value_raw": "Answer using {{context}}"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("rawkeep"))
	require.True(t, result.Ok)
	require.Equal(t, "Answer using {{context}}", result.Response)
}

func TestExecuteDottedOutKey(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "dotted",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "deep"}, Out: "results.inner"},
			{Command: "test.echo", In: map[string]any{"value": "{{results.inner}}"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("dotted"))
	require.True(t, result.Ok)
	require.Equal(t, "deep", result.Response)
}

func TestExecuteExpressionInputSeesMemory(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "expr",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value_js": "$.query.toUpperCase()"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("expr"))
	require.True(t, result.Ok)
	require.Equal(t, "WHAT IS THE REFUND POLICY", result.Response)
}

type denyAllChecker struct{}

func (denyAllChecker) CheckQuota(ctx context.Context, userId string, org string) (bool, error) {
	return false, nil
}

func TestAnswerQuotaDenied(t *testing.T) {
	h := newTestHarness(t)
	h.engine.quota = denyAllChecker{}

	result := h.engine.Answer(context.Background(), request("pipeline"))
	require.False(t, result.Ok)
	require.Equal(t, model.REASON_LIMIT, result.Reason)
}

func TestAnswerChatHistoryVisibleAndAppended(t *testing.T) {
	h := newTestHarness(t)
	h.save(t, flow.Definition{
		Name: "chatty",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value_js": "$.request.chat_history.length"}, Out: "airesponse"},
		},
	})

	ctx := context.Background()
	first := h.engine.AnswerChat(ctx, request("chatty"), "")
	require.True(t, first.Ok)
	require.NotEmpty(t, first.SessionId)
	require.Equal(t, int64(0), first.Response)

	second := h.engine.AnswerChat(ctx, request("chatty"), first.SessionId)
	require.True(t, second.Ok)
	require.Equal(t, first.SessionId, second.SessionId)
	require.Equal(t, int64(2), second.Response)
}

type stubAppModules struct{}

func (stubAppModules) GetCommandModule(ctx context.Context, identity string, org string, applicationId string, module string) (Module, bool) {
	if module != "test" {
		return nil, false
	}
	return Module{
		"echo": func(ctx context.Context, call *Call) (any, error) {
			return "overridden", nil
		},
	}, true
}

func TestApplicationModulesShadowBuiltins(t *testing.T) {
	h := newTestHarness(t)
	h.engine.SetModuleResolver(stubAppModules{})
	h.save(t, flow.Definition{
		Name: "shadow",
		Steps: []flow.StepDef{
			{Command: "test.echo", In: map[string]any{"value": "builtin"}, Out: "airesponse"},
		},
	})

	result := h.engine.Execute(context.Background(), request("shadow"))
	require.True(t, result.Ok)
	require.Equal(t, "overridden", result.Response)
}
