package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeIndexProvider struct {
	indexes map[string]Index
}

func (f *fakeIndexProvider) GetIndex(ctx context.Context, identity string, org string, brainId string) (Index, error) {
	index, ok := f.indexes[brainId]
	if !ok {
		return nil, fmt.Errorf("no index for brain %s", brainId)
	}
	return index, nil
}

type fakeDocumentProvider struct {
	texts map[string]string
}

func (f *fakeDocumentProvider) GetText(ctx context.Context, identity string, org string, docId string) (string, error) {
	text, ok := f.texts[docId]
	if !ok {
		return "", fmt.Errorf("document %s not found", docId)
	}
	return text, nil
}

type fakeDetector struct{}

func (fakeDetector) Detect(text string) string { return "en" }

func setupEngine(t *testing.T, texts map[string]string) *Engine {
	t.Helper()
	ctx := context.Background()
	index := NewMemIndex()
	for docId, text := range texts {
		require.NoError(t, index.Create(ctx, text, map[string]any{"docId": docId}))
	}
	provider := &fakeIndexProvider{indexes: map[string]Index{"brain-1": index}}
	documents := &fakeDocumentProvider{texts: texts}
	return NewEngine(provider, documents, fakeDetector{})
}

func TestSearchReturnsRankedChunks(t *testing.T) {
	texts := map[string]string{
		"doc-1": "Our refund policy allows returns within 30 days. Refunds are processed weekly.\n\nShipping is a separate topic entirely.",
		"doc-2": "This page only talks about shipping times and carriers.",
	}
	engine := setupEngine(t, texts)

	results, err := engine.Search(context.Background(), "user-1", "org-1", "refund policy", []string{"brain-1"}, Options{TopK: 2, ChunkSize: 60})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.LessOrEqual(t, len(results), 2)
	require.Contains(t, strings.ToLower(results[0].Text), "refund")
	// every chunk must be a contiguous piece of a stage-1 document
	for _, result := range results {
		docId := result.Metadata["sourceDocId"].(string)
		require.Contains(t, texts[docId], result.Text)
	}
}

func TestSearchEmptyKnowledgeBase(t *testing.T) {
	engine := setupEngine(t, map[string]string{})
	results, err := engine.Search(context.Background(), "user-1", "org-1", "refund policy", []string{"brain-1"}, Options{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchSkipsUnloadableDocuments(t *testing.T) {
	ctx := context.Background()
	index := NewMemIndex()
	require.NoError(t, index.Create(ctx, "refund policy details", map[string]any{"docId": "doc-gone"}))
	require.NoError(t, index.Create(ctx, "refund policy summary", map[string]any{"docId": "doc-ok"}))
	engine := NewEngine(
		&fakeIndexProvider{indexes: map[string]Index{"brain-1": index}},
		&fakeDocumentProvider{texts: map[string]string{"doc-ok": "refund policy summary text"}},
		fakeDetector{},
	)

	results, err := engine.Search(ctx, "user-1", "org-1", "refund policy", []string{"brain-1"}, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc-ok", results[0].Metadata["sourceDocId"])
}

func TestSearchJoined(t *testing.T) {
	engine := setupEngine(t, map[string]string{
		"doc-1": "refund policy part one.\n\nrefund policy part two.",
	})
	joined, err := engine.SearchJoined(context.Background(), "user-1", "org-1", "refund policy", []string{"brain-1"}, Options{TopK: 2, ChunkSize: 30})
	require.NoError(t, err)
	require.Contains(t, joined, "refund policy")
	require.Contains(t, joined, CHUNK_JOIN_SEPARATOR)
}

func TestSearchUnknownBrainFails(t *testing.T) {
	engine := setupEngine(t, map[string]string{"doc-1": "anything"})
	_, err := engine.Search(context.Background(), "user-1", "org-1", "query", []string{"missing"}, Options{})
	require.Error(t, err)
}
