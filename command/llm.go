package command

import (
	"context"
	"fmt"

	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/quota"
)

// DEFAULT_PROMPT_TEMPLATE is used when a flow step supplies no
// prompt_template of its own. It expects a context input and the query.
const DEFAULT_PROMPT_TEMPLATE = "Use the following context to answer the question.\n\nContext:\n{{context}}\n\nQuestion: {{query}}\nAnswer:"

// llmModule exposes single-shot model invocation to flows.
//
// llm.answer inputs:
//
//	model            registered model name, falls back to the configured
//	                 default model
//	prompt_template  prompt with {{...}} placeholders resolved against
//	                 the step inputs, usually authored with a _raw suffix
//	credential       api credential, encrypted when a credential key is
//	                 configured
func llmModule(deps Deps) engine.Module {
	return engine.Module{
		"answer": func(ctx context.Context, call *engine.Call) (any, error) {
			result, ok := invokeModel(ctx, deps, call, call.Params)
			if !ok {
				return nil, nil
			}
			return result.ResponseText, nil
		},
	}
}

// invokeModel resolves the model, decrypts the credential and calls the
// model endpoint. A false return means an error was already signalled.
func invokeModel(ctx context.Context, deps Deps, call *engine.Call, promptData map[string]any) (*model.ModelCallResult, bool) {
	modelName := paramString(call.Params, "model")
	if len(modelName) == 0 {
		modelName = deps.DefaultModel
	}
	conf, found := deps.Models.Get(modelName)
	if !found {
		call.Signal(fmt.Sprintf("model %s is not configured", modelName), model.REASON_BAD_MODEL)
		return nil, false
	}

	promptTemplate := paramString(call.Params, "prompt_template")
	if len(promptTemplate) == 0 {
		promptTemplate = DEFAULT_PROMPT_TEMPLATE
	}

	credential, ok := resolveCredential(deps, call)
	if !ok {
		return nil, false
	}

	result := deps.Client.Invoke(ctx, promptData, promptTemplate, credential, conf)
	if result == nil {
		call.Signal(fmt.Sprintf("model %s invocation failed", modelName), model.REASON_INTERNAL)
		return nil, false
	}
	return result, true
}

func resolveCredential(deps Deps, call *engine.Call) (string, bool) {
	credential := paramString(call.Params, "credential")
	if len(credential) == 0 || len(deps.CredentialKey) == 0 {
		return credential, true
	}
	plain, err := quota.Decrypt(credential, deps.CredentialKey)
	if err != nil {
		call.Signal("error decrypting model credential", model.REASON_VALIDATION)
		return "", false
	}
	return plain, true
}
