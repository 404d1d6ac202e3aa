package engine

import (
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/util"
)

const KEY_IS_ERROR = "is_error"
const KEY_ERROR_MESSAGE = "error_message"
const KEY_ERROR_REASON = "error_reason"
const KEY_RESPONSE = "airesponse"

// Memory is the working memory of one flow execution: a mutable scope
// seeded with the request fields, grown by step outputs, destroyed with
// the request. It is owned by a single execution and never shared.
type Memory struct {
	data map[string]any
}

func NewMemory(req model.ExecutionRequest) *Memory {
	request := req.Request
	if request == nil {
		request = map[string]any{}
	}
	return &Memory{data: map[string]any{
		"query":           req.Query,
		"identity":        req.Identity,
		"org":             req.Org,
		"applicationId":   req.ApplicationId,
		"request":         request,
		KEY_IS_ERROR:      false,
		KEY_ERROR_MESSAGE: "",
		KEY_ERROR_REASON:  "",
	}}
}

// Data exposes the raw scope for binding expansion and expression
// evaluation. Expressions get read/write access through this map.
func (m *Memory) Data() map[string]any {
	return m.data
}

func (m *Memory) Get(key string) (any, bool) {
	return util.GetValueAtPath(m.data, key)
}

// Set writes a step output, supporting dotted key paths.
func (m *Memory) Set(path string, value any) error {
	return util.SetValueAtPath(m.data, path, value)
}

// SignalError records a failure. The first signal wins; later ones keep
// the original message and reason.
func (m *Memory) SignalError(message string, reason model.Reason) {
	if m.HasError() {
		return
	}
	m.data[KEY_IS_ERROR] = true
	m.data[KEY_ERROR_MESSAGE] = message
	m.data[KEY_ERROR_REASON] = string(reason)
}

func (m *Memory) HasError() bool {
	flagged, _ := m.data[KEY_IS_ERROR].(bool)
	return flagged
}

func (m *Memory) ErrorMessage() string {
	message, _ := m.data[KEY_ERROR_MESSAGE].(string)
	return message
}

func (m *Memory) ErrorReason() model.Reason {
	reason, _ := m.data[KEY_ERROR_REASON].(string)
	return model.Reason(reason)
}

// Response picks the conventional response value the flow accumulated.
func (m *Memory) Response() any {
	if value, ok := m.data[KEY_RESPONSE]; ok {
		return value
	}
	return m.data["lastStepOutput"]
}
