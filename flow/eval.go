package flow

import (
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/nishant-bin/neuranet/logger"
	"go.uber.org/zap"
)

// Evaluator runs flow-configuration expressions against a working memory
// snapshot. The goja vm has no host access; the only capability handed in
// beyond the snapshot is use(name), which resolves pre-registered helper
// modules. A fresh vm is built per evaluation so state never leaks between
// steps or requests.
type Evaluator struct {
	mu      sync.RWMutex
	modules map[string]map[string]any
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		modules: make(map[string]map[string]any),
	}
}

// RegisterModule whitelists a helper module for use(name) inside
// expressions. Values should be plain funcs or data goja can bridge.
func (e *Evaluator) RegisterModule(name string, exports map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modules[name] = exports
}

func (e *Evaluator) Eval(expression string, memory map[string]any) (any, error) {
	vm := goja.New()
	if err := vm.Set("$", memory); err != nil {
		return nil, err
	}
	if err := vm.Set("working_memory", memory); err != nil {
		return nil, err
	}
	if err := vm.Set("use", func(name string) map[string]any {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return e.modules[name]
	}); err != nil {
		return nil, err
	}
	value, err := vm.RunString(expression)
	if err != nil {
		return nil, fmt.Errorf("error evaluating expression %w", err)
	}
	return value.Export(), nil
}

// EvalCondition runs an expression for a condition check. Errors are
// swallowed and logged so a broken condition skips the step instead of
// failing the flow.
func (e *Evaluator) EvalCondition(expression string, memory map[string]any) any {
	value, err := e.Eval(expression, memory)
	if err != nil {
		logger.Warn("condition expression failed, treating as false", zap.Error(err))
		return nil
	}
	return value
}
