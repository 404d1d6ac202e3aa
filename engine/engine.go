package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nishant-bin/neuranet/analytics"
	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/metadata"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/quota"
	"github.com/nishant-bin/neuranet/session"
	"go.uber.org/zap"
)

// Engine executes declarative flows. Steps run strictly in order within
// one request; independent requests share nothing but the read-only flow
// cache and the session store.
type Engine struct {
	flows      metadata.Service
	registry   *Registry
	evaluator  *flow.Evaluator
	quota      quota.Checker
	appModules ModuleResolver
	sessions   *session.Manager
}

func NewEngine(flows metadata.Service, registry *Registry, evaluator *flow.Evaluator, checker quota.Checker, sessions *session.Manager) *Engine {
	return &Engine{
		flows:     flows,
		registry:  registry,
		evaluator: evaluator,
		quota:     checker,
		sessions:  sessions,
	}
}

// SetModuleResolver wires the loader for application-supplied command
// modules. Application modules shadow built-ins of the same name.
func (e *Engine) SetModuleResolver(resolver ModuleResolver) {
	e.appModules = resolver
}

func (e *Engine) Evaluator() *flow.Evaluator {
	return e.evaluator
}

// Answer is the public entry point: quota gate, flow execution,
// structured result. It never panics and never returns an error value.
func (e *Engine) Answer(ctx context.Context, req model.ExecutionRequest) model.Result {
	allowed, err := e.quota.CheckQuota(ctx, req.Identity, req.Org)
	if err != nil {
		logger.Error("quota check failed", zap.String("identity", req.Identity), zap.Error(err))
		return model.FailedResult("quota check failed", model.REASON_INTERNAL)
	}
	if !allowed {
		return model.FailedResult("quota exceeded", model.REASON_LIMIT)
	}
	result := e.Execute(ctx, req)
	analytics.RecordFlowOutcome(req.ApplicationId, req.FlowName, result.Ok, string(result.Reason))
	return result
}

// AnswerChat runs the flow with conversation history in scope and
// appends the exchange to the session on success.
func (e *Engine) AnswerChat(ctx context.Context, req model.ExecutionRequest, sessionId string) model.Result {
	chatSession, key, err := e.sessions.GetSession(ctx, req.Identity, sessionId)
	if err != nil {
		logger.Error("error loading chat session", zap.String("identity", req.Identity), zap.Error(err))
		return model.FailedResult("error loading chat session", model.REASON_INTERNAL)
	}

	request := make(map[string]any, len(req.Request)+2)
	for k, v := range req.Request {
		request[k] = v
	}
	request["sessionId"] = chatSession.SessionId
	request["chat_history"] = historyAsData(chatSession.Messages)
	req.Request = request

	result := e.Answer(ctx, req)
	result.SessionId = chatSession.SessionId
	if !result.Ok {
		return result
	}
	responseText := fmt.Sprintf("%v", result.Response)
	if err := e.sessions.Append(ctx, key, chatSession, req.Query, responseText); err != nil {
		logger.Error("error persisting chat session", zap.String("sessionId", chatSession.SessionId), zap.Error(err))
	}
	return result
}

// Execute runs every step of the flow against a fresh working memory.
// Once an error is recorded no further step runs.
func (e *Engine) Execute(ctx context.Context, req model.ExecutionRequest) model.Result {
	requestId := uuid.NewString()
	memory := NewMemory(req)

	fl, err := e.flows.GetFlow(ctx, req.Identity, req.Org, req.ApplicationId, req.FlowName)
	if err != nil {
		logger.Error("error loading flow", zap.String("flow", req.FlowName),
			zap.String("applicationId", req.ApplicationId), zap.Error(err))
		return model.FailedResult(fmt.Sprintf("error loading flow %s", req.FlowName), model.REASON_INTERNAL)
	}

	for i := range fl.Steps {
		step := &fl.Steps[i]
		if !e.shouldRun(step, memory, requestId) {
			continue
		}
		command, ok := e.resolveCommand(ctx, req, step)
		if !ok {
			memory.SignalError(fmt.Sprintf("unknown command %s.%s", step.Module, step.Function), model.REASON_INTERNAL)
			break
		}
		params, err := e.buildParams(req, step, memory)
		if err != nil {
			logger.Error("error expanding step inputs", zap.String("requestId", requestId),
				zap.String("command", step.Module+"."+step.Function), zap.Error(err))
			memory.SignalError("error expanding step inputs", model.REASON_INTERNAL)
			break
		}
		output, err := e.invoke(ctx, command, &Call{
			Params: params,
			Step:   step,
			Memory: memory,
			Signal: memory.SignalError,
		})
		if err != nil {
			logger.Error("step execution failed", zap.String("requestId", requestId),
				zap.String("command", step.Module+"."+step.Function), zap.Error(err))
			memory.SignalError(err.Error(), model.REASON_INTERNAL)
			break
		}
		if memory.HasError() {
			break
		}
		if err := memory.Set(step.Out, output); err != nil {
			memory.SignalError(fmt.Sprintf("error storing step output at %s", step.Out), model.REASON_INTERNAL)
			break
		}
	}

	if memory.HasError() {
		return model.FailedResult(memory.ErrorMessage(), memory.ErrorReason())
	}
	return model.SuccessResult(memory.Response())
}

// shouldRun expands the step condition. A condition that fails to
// evaluate skips the step rather than failing the flow.
func (e *Engine) shouldRun(step *flow.Step, memory *Memory, requestId string) bool {
	if step.Condition == nil {
		return true
	}
	value, err := step.Condition.Expand(memory.Data(), e.evaluator)
	if err != nil {
		logger.Warn("step condition failed to evaluate, skipping step",
			zap.String("requestId", requestId), zap.Error(err))
		return false
	}
	return !flow.IsFalsy(value)
}

func (e *Engine) resolveCommand(ctx context.Context, req model.ExecutionRequest, step *flow.Step) (Command, bool) {
	if e.appModules != nil {
		if module, ok := e.appModules.GetCommandModule(ctx, req.Identity, req.Org, req.ApplicationId, step.Module); ok {
			if command, ok := module[step.Function]; ok {
				return command, true
			}
		}
	}
	return e.registry.Resolve(step.Module, step.Function)
}

func (e *Engine) buildParams(req model.ExecutionRequest, step *flow.Step, memory *Memory) (map[string]any, error) {
	params := map[string]any{
		"identity":      req.Identity,
		"org":           req.Org,
		"query":         req.Query,
		"applicationId": req.ApplicationId,
		"request":       req.Request,
	}
	for _, name := range step.InOrder {
		binding := step.In[name]
		value, err := binding.Expand(memory.Data(), e.evaluator)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", name, err)
		}
		params[name] = value
	}
	return params, nil
}

// invoke shields the engine from a panicking command.
func (e *Engine) invoke(ctx context.Context, command Command, call *Call) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return command(ctx, call)
}

func historyAsData(messages []model.ChatMessage) []any {
	history := make([]any, 0, len(messages))
	for _, message := range messages {
		history = append(history, map[string]any{
			"role":    message.Role,
			"content": message.Content,
		})
	}
	return history
}
