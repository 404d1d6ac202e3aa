package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/nishant-bin/neuranet/lang"
	"github.com/nishant-bin/neuranet/logger"
	"github.com/nishant-bin/neuranet/model"
	"go.uber.org/zap"
)

const DEFAULT_TOP_K = 5
const DEFAULT_WIDEN_FACTOR = 10
const CHUNK_JOIN_SEPARATOR = "\n\n"

// Options tunes one search call. Zero values fall back to defaults.
type Options struct {
	TopK        int
	WidenFactor int
	ScoreCutoff float64
	ChunkSize   int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DEFAULT_TOP_K
	}
	if o.WidenFactor <= 0 {
		o.WidenFactor = DEFAULT_WIDEN_FACTOR
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DEFAULT_CHUNK_SIZE
	}
	return o
}

// Engine runs the two-stage search: document-level ranking over the brain
// indices, then chunk-level re-ranking in a transient index owned by the
// single call that built it.
type Engine struct {
	indexes     IndexProvider
	documents   DocumentProvider
	detector    lang.Detector
	newReRanker func() TransientIndex
}

func NewEngine(indexes IndexProvider, documents DocumentProvider, detector lang.Detector) *Engine {
	return &Engine{
		indexes:     indexes,
		documents:   documents,
		detector:    detector,
		newReRanker: func() TransientIndex { return NewTransientIndex() },
	}
}

// Search returns the topK best chunks across the given brains, ordered by
// the re-ranker's score. No matching documents is a legitimate empty
// result, not an error.
func (e *Engine) Search(ctx context.Context, identity string, org string, query string, brainIds []string, opts Options) ([]model.RetrievalResult, error) {
	opts = opts.withDefaults()

	documents, err := e.rankDocuments(ctx, identity, org, query, brainIds, opts)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		logger.Debug("no documents matched query", zap.String("identity", identity), zap.Strings("brains", brainIds))
		return nil, nil
	}
	return e.rerankChunks(ctx, identity, org, query, documents, opts)
}

// SearchJoined formats the results as one prompt-ready text blob.
func (e *Engine) SearchJoined(ctx context.Context, identity string, org string, query string, brainIds []string, opts Options) (string, error) {
	results, err := e.Search(ctx, identity, org, query, brainIds, opts)
	if err != nil {
		return "", err
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return strings.Join(texts, CHUNK_JOIN_SEPARATOR), nil
}

// rankDocuments is stage 1: query every brain index for topK*widen
// documents and merge the hits.
func (e *Engine) rankDocuments(ctx context.Context, identity string, org string, query string, brainIds []string, opts Options) ([]SearchHit, error) {
	wideK := opts.TopK * opts.WidenFactor
	var merged []SearchHit
	for _, brainId := range brainIds {
		index, err := e.indexes.GetIndex(ctx, identity, org, brainId)
		if err != nil {
			return nil, fmt.Errorf("error resolving index for brain %s %w", brainId, err)
		}
		hits, err := index.Query(ctx, query, wideK, QueryOptions{ScoreCutoff: opts.ScoreCutoff})
		if err != nil {
			return nil, fmt.Errorf("error querying brain %s %w", brainId, err)
		}
		merged = append(merged, hits...)
	}
	return merged, nil
}

// rerankChunks is stage 2: load each document's full text, split it on
// language-aware separators and score the chunks against the query in a
// transient term-frequency index.
func (e *Engine) rerankChunks(ctx context.Context, identity string, org string, query string, documents []SearchHit, opts Options) ([]model.RetrievalResult, error) {
	reRanker := e.newReRanker()
	defer reRanker.Release()

	seen := make(map[string]bool)
	for _, doc := range documents {
		docId := documentId(doc.Metadata)
		if len(docId) == 0 || seen[docId] {
			continue
		}
		seen[docId] = true

		text, err := e.documents.GetText(ctx, identity, org, docId)
		if err != nil {
			logger.Warn("skipping document, text could not be loaded", zap.String("docId", docId), zap.Error(err))
			continue
		}
		language := e.detector.Detect(text)
		chunks := SplitText(text, opts.ChunkSize, SeparatorsForLanguage(language))
		for _, chunk := range chunks {
			metadata := map[string]any{"docId": docId, "language": language}
			for k, v := range doc.Metadata {
				if _, exists := metadata[k]; !exists {
					metadata[k] = v
				}
			}
			// transient ids must not collide with docId-keyed entries
			delete(metadata, "docId")
			metadata["sourceDocId"] = docId
			if err := reRanker.Create(ctx, chunk, metadata); err != nil {
				return nil, fmt.Errorf("error indexing chunk %w", err)
			}
		}
	}

	hits, err := reRanker.Query(ctx, query, opts.TopK, QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("error querying rerank index %w", err)
	}
	results := make([]model.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, model.RetrievalResult{
			Text:     hit.Text,
			Metadata: hit.Metadata,
			Score:    hit.Score,
		})
	}
	return results, nil
}

func documentId(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata["docId"].(string); ok {
		return v
	}
	if v, ok := metadata["fullPath"].(string); ok {
		return v
	}
	return ""
}
