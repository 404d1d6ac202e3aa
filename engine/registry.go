package engine

import (
	"context"
	"sync"

	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/model"
)

// Call is everything a command receives for one step invocation: the
// expanded parameters, the step definition, the working memory and the
// failure-signal callback.
type Call struct {
	Params map[string]any
	Step   *flow.Step
	Memory *Memory
	Signal func(message string, reason model.Reason)
}

// Command is the uniform contract every flow step resolves to. A returned
// error is mapped to INTERNAL by the engine; commands signal more
// specific reasons through Call.Signal.
type Command func(ctx context.Context, call *Call) (any, error)

// Module groups the functions of one command module.
type Module map[string]Command

// ModuleResolver serves application-supplied command modules. They take
// precedence over the built-in registry.
type ModuleResolver interface {
	GetCommandModule(ctx context.Context, identity string, org string, applicationId string, module string) (Module, bool)
}

// Registry holds the built-in command modules. Populated at startup,
// read-only afterwards; resolution is a map lookup, never reflection.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

func (r *Registry) Register(module string, functions Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module] = functions
}

func (r *Registry) Resolve(module string, function string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	functions, ok := r.modules[module]
	if !ok {
		return nil, false
	}
	command, ok := functions[function]
	return command, ok
}
