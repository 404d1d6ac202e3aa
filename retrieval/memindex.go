package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
)

// MemIndex is an in-memory term-frequency index. With IDF enabled it
// behaves like a small document store for tests and single-process
// deployments; with IDF disabled it is the stage-2 transient re-ranker,
// where document-frequency statistics over a handful of chunks would be
// unrepresentative.
type MemIndex struct {
	mu     sync.RWMutex
	useIdf bool
	docs   map[string]*memDoc
}

type memDoc struct {
	id       string
	text     string
	metadata map[string]any
	terms    map[string]int
}

func NewMemIndex() *MemIndex {
	return &MemIndex{useIdf: true, docs: make(map[string]*memDoc)}
}

// NewTransientIndex builds the re-ranking index: raw term frequency only.
func NewTransientIndex() *MemIndex {
	return &MemIndex{useIdf: false, docs: make(map[string]*memDoc)}
}

var _ TransientIndex = new(MemIndex)

func (m *MemIndex) Create(ctx context.Context, text string, metadata map[string]any) error {
	id := uuid.NewString()
	if metadata != nil {
		if v, ok := metadata["docId"].(string); ok && len(v) > 0 {
			id = v
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = &memDoc{
		id:       id,
		text:     text,
		metadata: metadata,
		terms:    termFrequencies(text),
	}
	return nil
}

func (m *MemIndex) Update(ctx context.Context, docId string, text string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docId] = &memDoc{
		id:       docId,
		text:     text,
		metadata: metadata,
		terms:    termFrequencies(text),
	}
	return nil
}

func (m *MemIndex) Delete(ctx context.Context, docId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, docId)
	return nil
}

func (m *MemIndex) Query(ctx context.Context, text string, topK int, opts QueryOptions) ([]SearchHit, error) {
	queryTerms := Tokenize(text)
	if len(queryTerms) == 0 || topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docFreq := make(map[string]int)
	if m.useIdf {
		for _, term := range queryTerms {
			for _, doc := range m.docs {
				if doc.terms[term] > 0 {
					docFreq[term]++
				}
			}
		}
	}

	hits := make([]SearchHit, 0, len(m.docs))
	for _, doc := range m.docs {
		if opts.Filter != nil && !opts.Filter(doc.metadata) {
			continue
		}
		score := 0.0
		for _, term := range queryTerms {
			tf := doc.terms[term]
			if tf == 0 {
				continue
			}
			weight := 1.0
			if m.useIdf {
				weight = math.Log(1 + float64(len(m.docs))/float64(docFreq[term]))
			}
			score += float64(tf) * weight
		}
		if score <= 0 || score < opts.ScoreCutoff {
			continue
		}
		hits = append(hits, SearchHit{Text: doc.text, Metadata: doc.metadata, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Release drops all indexed content. The transient re-ranker must not
// outlive the retrieval call that built it.
func (m *MemIndex) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]*memDoc)
}

func (m *MemIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range Tokenize(text) {
		freq[term]++
	}
	return freq
}

// Tokenize lowercases and splits text into index terms. Alphabetic runs
// form one term; ideographic scripts have no word boundaries, so each CJK
// rune stands alone as a term.
func Tokenize(text string) []string {
	var terms []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			terms = append(terms, current.String())
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case isIdeographic(r):
			flush()
			terms = append(terms, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return terms
}

func isIdeographic(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
