package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process knowledge store: one MemIndex per brain
// plus the raw document texts backing them. It serves both provider
// contracts of the search engine and is the default store when no
// external index is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*MemIndex
	texts   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		indexes: make(map[string]*MemIndex),
		texts:   make(map[string]string),
	}
}

var _ IndexProvider = new(MemoryStore)
var _ DocumentProvider = new(MemoryStore)

func (s *MemoryStore) GetIndex(ctx context.Context, identity string, org string, brainId string) (Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	index, ok := s.indexes[s.brainKey(org, brainId)]
	if !ok {
		return nil, fmt.Errorf("no index for brain %s", brainId)
	}
	return index, nil
}

func (s *MemoryStore) GetText(ctx context.Context, identity string, org string, docId string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[s.docKey(org, docId)]
	if !ok {
		return "", fmt.Errorf("document %s not found", docId)
	}
	return text, nil
}

// AddDocument indexes a document under the given brain, creating the
// brain on first use. An empty docId gets a generated one. Returns the
// document id.
func (s *MemoryStore) AddDocument(ctx context.Context, org string, brainId string, docId string, text string, metadata map[string]any) (string, error) {
	if len(docId) == 0 {
		docId = uuid.NewString()
	}
	s.mu.Lock()
	index, ok := s.indexes[s.brainKey(org, brainId)]
	if !ok {
		index = NewMemIndex()
		s.indexes[s.brainKey(org, brainId)] = index
	}
	s.texts[s.docKey(org, docId)] = text
	s.mu.Unlock()

	withId := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		withId[k] = v
	}
	withId["docId"] = docId
	if err := index.Update(ctx, docId, text, withId); err != nil {
		return "", err
	}
	return docId, nil
}

func (s *MemoryStore) DeleteDocument(ctx context.Context, org string, brainId string, docId string) error {
	s.mu.Lock()
	index, ok := s.indexes[s.brainKey(org, brainId)]
	delete(s.texts, s.docKey(org, docId))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no index for brain %s", brainId)
	}
	return index.Delete(ctx, docId)
}

func (s *MemoryStore) brainKey(org string, brainId string) string {
	return fmt.Sprintf("%s:%s", org, brainId)
}

func (s *MemoryStore) docKey(org string, docId string) string {
	return fmt.Sprintf("%s:%s", org, docId)
}
