package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nishant-bin/neuranet/llm"
	"github.com/nishant-bin/neuranet/model"
)

// Manager owns per-user conversation history. Sessions are append-only:
// the only mutation is adding one user/assistant exchange and writing the
// whole object back. Concurrent executions on the same session resolve
// last-writer-wins at the store.
type Manager struct {
	store KVStore
}

func NewManager(store KVStore) *Manager {
	return &Manager{store: store}
}

// GetSession loads the history for (userId, sessionId). An empty
// sessionId starts a new conversation keyed by the current timestamp. The
// returned storage key is what Append expects back.
func (m *Manager) GetSession(ctx context.Context, userId string, sessionId string) (*model.ChatSession, string, error) {
	if len(sessionId) == 0 {
		sessionId = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	key := SessionKey(userId, sessionId)
	session := &model.ChatSession{SessionId: sessionId}
	if _, err := m.store.Get(ctx, key, session); err != nil {
		return nil, "", err
	}
	session.SessionId = sessionId
	return session, key, nil
}

// Append records one successful exchange and persists the whole session.
func (m *Manager) Append(ctx context.Context, key string, session *model.ChatSession, userMessage string, assistantMessage string) error {
	session.Messages = append(session.Messages,
		model.ChatMessage{Role: "user", Content: userMessage},
		model.ChatMessage{Role: "assistant", Content: assistantMessage})
	session.LastUpdate = time.Now().UnixMilli()
	return m.store.Set(ctx, key, session)
}

// Trim drops the oldest messages until the estimated token total fits
// maxTokens, preserving chronological order. If not even the newest
// message fits, that single message is kept anyway so a request never
// goes out with empty context.
func Trim(maxTokens int, messages []model.ChatMessage, estimator llm.Estimator) []model.ChatMessage {
	if len(messages) == 0 {
		return messages
	}
	total := 0
	kept := 0
	for i := len(messages) - 1; i >= 0; i-- {
		cost := estimator.Estimate(messages[i].Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		kept++
	}
	if kept == 0 {
		return messages[len(messages)-1:]
	}
	return messages[len(messages)-kept:]
}

func SessionKey(userId string, sessionId string) string {
	return fmt.Sprintf("session:%s:%s", userId, sessionId)
}
