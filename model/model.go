package model

type Reason string

const REASON_VALIDATION Reason = "VALIDATION"
const REASON_BAD_MODEL Reason = "BAD_MODEL"
const REASON_INTERNAL Reason = "INTERNAL"
const REASON_LIMIT Reason = "LIMIT"
const REASON_NOKNOWLEDGE Reason = "NOKNOWLEDGE"

// Result is the only shape the engine ever hands back to a caller.
// Failures carry a Reason; the engine never lets an error escape as a panic.
type Result struct {
	Ok        bool   `json:"ok"`
	Response  any    `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	Reason    Reason `json:"reason,omitempty"`
	SessionId string `json:"sessionId,omitempty"`
}

func SuccessResult(response any) Result {
	return Result{Ok: true, Response: response}
}

func FailedResult(message string, reason Reason) Result {
	return Result{Ok: false, Error: message, Reason: reason}
}

// ExecutionRequest is the input of one flow execution.
type ExecutionRequest struct {
	Query         string         `json:"query"`
	Identity      string         `json:"identity"`
	Org           string         `json:"org"`
	ApplicationId string         `json:"applicationId"`
	FlowName      string         `json:"flowName"`
	Request       map[string]any `json:"request,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatSession struct {
	SessionId  string        `json:"sessionId"`
	Messages   []ChatMessage `json:"messages"`
	LastUpdate int64         `json:"lastUpdate"`
}

// RetrievalResult is one ranked chunk of knowledge. Ephemeral, never stored.
type RetrievalResult struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// ModelCallResult holds a successful model invocation. Absence (a nil
// pointer) is the failure channel of the invocation client; a present result
// with empty text is a legitimate answer.
type ModelCallResult struct {
	ResponseText string  `json:"responseText"`
	Cost         float64 `json:"cost"`
}
