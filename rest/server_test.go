package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nishant-bin/neuranet/command"
	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/flow"
	"github.com/nishant-bin/neuranet/lang"
	"github.com/nishant-bin/neuranet/llm"
	"github.com/nishant-bin/neuranet/metadata"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/quota"
	"github.com/nishant-bin/neuranet/retrieval"
	"github.com/nishant-bin/neuranet/session"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the full stack behind the router, with a stub
// model endpoint that always answers.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	modelServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": [{"message": {"content": "the policy allows returns"}}]}`)
	}))
	t.Cleanup(modelServer.Close)

	models := llm.NewRegistry()
	models.Register(llm.ModelConfig{
		Name:     "default",
		Endpoint: modelServer.URL,
		RequestShape: map[string]any{
			"messages": []any{map[string]any{"role": "user", "content": ""}},
		},
		PromptPath:       "messages.0.content",
		ResponseTextPath: "$.choices[0].message.content",
		BackoffBaseMs:    1,
	})

	knowledge := retrieval.NewMemoryStore()
	flows := metadata.NewService(metadata.NewMemoryStorage())
	registry := engine.NewRegistry()
	command.RegisterBuiltins(registry, command.Deps{
		Retrieval:    retrieval.NewEngine(knowledge, knowledge, lang.NewDetector()),
		Models:       models,
		Client:       llm.NewClient(),
		DefaultModel: "default",
	})
	eng := engine.NewEngine(flows, registry, flow.NewEvaluator(), quota.NewAllowAllChecker(),
		session.NewManager(session.NewMemoryKVStore()))

	server, err := NewServer(0, eng, flows, knowledge)
	require.NoError(t, err)
	return server
}

func doJson(t *testing.T, server *Server, method string, path string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	server.Handler.ServeHTTP(recorder, req)
	var payload map[string]any
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	}
	return recorder, payload
}

func TestStartReportsServerClosedAfterStop(t *testing.T) {
	server := newTestServer(t)
	server.Addr = "127.0.0.1:0"

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, server.Stop())
	require.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)
	recorder, payload := doJson(t, server, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "up", payload["status"])
}

func TestAnswerEndToEnd(t *testing.T) {
	server := newTestServer(t)

	recorder, payload := doJson(t, server, http.MethodPost, "/knowledge/brain-1/documents",
		`{"org": "org-1", "text": "Our refund policy allows returns within 30 days."}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, payload["docId"])

	recorder, _ = doJson(t, server, http.MethodPost, "/metadata/flow", `{
		"identity": "user-1", "org": "org-1", "applicationId": "app-1",
		"definition": {
			"name": "answer",
			"steps": [
				{"command": "retrieve.search", "in": {"query": "{{query}}"}, "out": "docs"},
				{"command": "llm.answer", "in": {"context_js": "working_memory.docs"}, "out": "airesponse"}
			]
		}
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, payload = doJson(t, server, http.MethodPost, "/answer", `{
		"query": "refund policy", "identity": "user-1", "org": "org-1",
		"applicationId": "app-1", "flowName": "answer",
		"request": {"brains": ["brain-1"]}
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, true, payload["ok"])
	require.Equal(t, "the policy allows returns", payload["response"])
}

func TestAnswerValidation(t *testing.T) {
	server := newTestServer(t)
	recorder, payload := doJson(t, server, http.MethodPost, "/answer", `{"query": "q"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NotEmpty(t, payload["error"])
}

func TestChatAssignsAndKeepsSessionId(t *testing.T) {
	server := newTestServer(t)

	_, _ = doJson(t, server, http.MethodPost, "/metadata/flow", `{
		"identity": "user-1", "org": "org-1", "applicationId": "app-1",
		"definition": {
			"name": "chatty",
			"steps": [{"command": "llm.answer", "in": {"context": "none"}, "out": "airesponse"}]
		}
	}`)

	body := `{"query": "hello", "identity": "user-1", "org": "org-1", "applicationId": "app-1", "flowName": "chatty"}`
	recorder, payload := doJson(t, server, http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, true, payload["ok"])
	sessionId, _ := payload["sessionId"].(string)
	require.NotEmpty(t, sessionId)

	withSession := fmt.Sprintf(`{"query": "again", "identity": "user-1", "org": "org-1", "applicationId": "app-1", "flowName": "chatty", "sessionId": %q}`, sessionId)
	recorder, payload = doJson(t, server, http.MethodPost, "/chat", withSession)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, sessionId, payload["sessionId"])
}

func TestSaveFlowRejectsBrokenDefinition(t *testing.T) {
	server := newTestServer(t)
	recorder, payload := doJson(t, server, http.MethodPost, "/metadata/flow", `{
		"identity": "user-1", "org": "org-1", "applicationId": "app-1",
		"definition": {"name": "broken", "steps": []}
	}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.NotEmpty(t, payload["error"])
}

func TestGetFlowNotFound(t *testing.T) {
	server := newTestServer(t)
	recorder, _ := doJson(t, server, http.MethodGet, "/metadata/flow/ghost?identity=user-1&org=org-1&applicationId=app-1", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestNoKnowledgeReason(t *testing.T) {
	server := newTestServer(t)

	_, _ = doJson(t, server, http.MethodPost, "/knowledge/brain-1/documents",
		`{"org": "org-1", "text": "unrelated shipping text"}`)
	_, _ = doJson(t, server, http.MethodPost, "/metadata/flow", `{
		"identity": "user-1", "org": "org-1", "applicationId": "app-1",
		"definition": {
			"name": "answer",
			"steps": [{"command": "retrieve.search", "in": {"query": "{{query}}"}, "out": "docs"}]
		}
	}`)

	recorder, payload := doJson(t, server, http.MethodPost, "/answer", `{
		"query": "quantum chromodynamics", "identity": "user-1", "org": "org-1",
		"applicationId": "app-1", "flowName": "answer",
		"request": {"brains": ["brain-1"]}
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, false, payload["ok"])
	require.Equal(t, string(model.REASON_NOKNOWLEDGE), payload["reason"])
}
