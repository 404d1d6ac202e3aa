package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemIndexQuery(t *testing.T) {
	ctx := context.Background()
	index := NewMemIndex()
	require.NoError(t, index.Create(ctx, "our refund policy allows returns within 30 days", map[string]any{"docId": "doc-1"}))
	require.NoError(t, index.Create(ctx, "shipping usually takes five business days", map[string]any{"docId": "doc-2"}))
	require.NoError(t, index.Create(ctx, "the refund is issued to the original payment method", map[string]any{"docId": "doc-3"}))

	hits, err := index.Query(ctx, "refund policy", 10, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "doc-1", hits[0].Metadata["docId"])
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemIndexTopKAndCutoff(t *testing.T) {
	ctx := context.Background()
	index := NewMemIndex()
	for _, text := range []string{"alpha one", "alpha two", "alpha three"} {
		require.NoError(t, index.Create(ctx, text, nil))
	}
	hits, err := index.Query(ctx, "alpha", 2, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = index.Query(ctx, "alpha", 10, QueryOptions{ScoreCutoff: 1e9})
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestMemIndexFilter(t *testing.T) {
	ctx := context.Background()
	index := NewMemIndex()
	require.NoError(t, index.Create(ctx, "alpha", map[string]any{"brain": "a"}))
	require.NoError(t, index.Create(ctx, "alpha", map[string]any{"brain": "b"}))

	hits, err := index.Query(ctx, "alpha", 10, QueryOptions{
		Filter: func(metadata map[string]any) bool { return metadata["brain"] == "b" },
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "b", hits[0].Metadata["brain"])
}

func TestMemIndexUpdateDelete(t *testing.T) {
	ctx := context.Background()
	index := NewMemIndex()
	require.NoError(t, index.Create(ctx, "alpha", map[string]any{"docId": "doc-1"}))
	require.NoError(t, index.Update(ctx, "doc-1", "beta", map[string]any{"docId": "doc-1"}))

	hits, err := index.Query(ctx, "alpha", 10, QueryOptions{})
	require.NoError(t, err)
	require.Empty(t, hits)

	hits, err = index.Query(ctx, "beta", 10, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, index.Delete(ctx, "doc-1"))
	require.Equal(t, 0, index.Size())
}

func TestTransientIndexNoIdf(t *testing.T) {
	ctx := context.Background()
	index := NewTransientIndex()
	// "common" appears in both docs; without IDF it still scores by raw tf
	require.NoError(t, index.Create(ctx, "common common common", nil))
	require.NoError(t, index.Create(ctx, "common rare", nil))

	hits, err := index.Query(ctx, "common", 10, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, 3.0, hits[0].Score)
	require.Equal(t, 1.0, hits[1].Score)

	index.Release()
	require.Equal(t, 0, index.Size())
}

func TestTokenizeIdeographic(t *testing.T) {
	terms := Tokenize("退款政策 refund")
	require.Equal(t, []string{"退", "款", "政", "策", "refund"}, terms)
}
