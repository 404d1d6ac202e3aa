package retrieval

import "context"

// SearchHit is one ranked entry out of a keyword index.
type SearchHit struct {
	Text     string
	Metadata map[string]any
	Score    float64
}

// QueryOptions narrows an index query. A nil Filter matches everything;
// a zero ScoreCutoff keeps every hit.
type QueryOptions struct {
	Filter      func(metadata map[string]any) bool
	ScoreCutoff float64
}

// Index is the contract of one knowledge-base ("brain") keyword index.
// Production deployments back this with an external store; the in-memory
// implementation in this package serves tests and the stage-2 re-ranker.
type Index interface {
	Query(ctx context.Context, text string, topK int, opts QueryOptions) ([]SearchHit, error)
	Create(ctx context.Context, text string, metadata map[string]any) error
	Update(ctx context.Context, docId string, text string, metadata map[string]any) error
	Delete(ctx context.Context, docId string) error
}

// TransientIndex is a short-lived index owned by exactly one retrieval
// call. Release must be called when the call is done with it.
type TransientIndex interface {
	Index
	Release()
}

// IndexProvider resolves the index backing one knowledge base.
type IndexProvider interface {
	GetIndex(ctx context.Context, identity string, org string, brainId string) (Index, error)
}

// DocumentProvider loads the full text of a matched document.
type DocumentProvider interface {
	GetText(ctx context.Context, identity string, org string, docId string) (string, error)
}
