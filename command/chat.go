package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/llm"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/session"
)

// chatModule is llm.answer with conversation history folded into the
// prompt. History comes from request.chat_history and is trimmed newest
// first to fit the model's context budget.
//
// chat.answer inputs are the llm.answer inputs plus:
//
//	history_tokens  token budget for history, defaults to half the
//	                model's context window
func chatModule(deps Deps) engine.Module {
	return engine.Module{
		"answer": func(ctx context.Context, call *engine.Call) (any, error) {
			modelName := paramString(call.Params, "model")
			if len(modelName) == 0 {
				modelName = deps.DefaultModel
			}
			conf, found := deps.Models.Get(modelName)
			if !found {
				call.Signal(fmt.Sprintf("model %s is not configured", modelName), model.REASON_BAD_MODEL)
				return nil, nil
			}

			history := chatHistory(call.Params)
			budget := paramInt(call.Params, "history_tokens")
			if budget == 0 && conf.MaxContextTokens > 0 {
				budget = conf.MaxContextTokens / 2
			}
			if budget > 0 {
				history = session.Trim(budget, history, llm.NewEstimator(conf))
			}

			promptData := make(map[string]any, len(call.Params)+1)
			for k, v := range call.Params {
				promptData[k] = v
			}
			promptData["chat_history"] = renderHistory(history)

			result, ok := invokeModel(ctx, deps, call, promptData)
			if !ok {
				return nil, nil
			}
			return result.ResponseText, nil
		},
	}
}

func chatHistory(params map[string]any) []model.ChatMessage {
	raw, ok := requestField(params, "chat_history").([]any)
	if !ok {
		return nil
	}
	messages := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		messages = append(messages, model.ChatMessage{
			Role:    fmt.Sprintf("%v", entry["role"]),
			Content: fmt.Sprintf("%v", entry["content"]),
		})
	}
	return messages
}

func renderHistory(messages []model.ChatMessage) string {
	var b strings.Builder
	for _, message := range messages {
		b.WriteString(message.Role)
		b.WriteString(": ")
		b.WriteString(message.Content)
		b.WriteString("\n")
	}
	return b.String()
}
