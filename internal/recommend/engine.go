// Package recommend runs the two recommendation pipelines: free-text
// queries over the embedding index, and profile-driven ranking over the
// whole catalog.
package recommend

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"animerec/internal/embed"
	"animerec/internal/model"
	"animerec/internal/rerank"
	"animerec/internal/vindex"
)

var (
	// ErrEmbedding means the query could not be embedded; there is no
	// fallback for it.
	ErrEmbedding = errors.New("query embedding failed")
	// ErrNoCorpus means no catalog or index has been loaded.
	ErrNoCorpus = errors.New("no corpus loaded")
)

// Options tunes the pipelines. Zero values take defaults.
type Options struct {
	TopN          int
	Oversample    int
	EmbedTimeout  time.Duration
	RerankTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.Oversample <= 0 {
		o.Oversample = 5
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = 20 * time.Second
	}
	if o.RerankTimeout <= 0 {
		o.RerankTimeout = 8 * time.Second
	}
	return o
}

// Corpus is the read-only catalog snapshot shared by all requests.
type Corpus struct {
	Index *vindex.Index
	Items map[int]model.Item
}

// NewCorpus indexes vectors alongside the catalog. An empty vector set
// yields a corpus that serves profile recommendations only.
func NewCorpus(items map[int]model.Item, vectors map[int][]float32) (*Corpus, error) {
	c := &Corpus{Items: items}
	if c.Items == nil {
		c.Items = map[int]model.Item{}
	}
	if len(vectors) == 0 {
		return c, nil
	}
	idx, err := vindex.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	c.Index = idx
	return c, nil
}

// Candidate is a request-scoped scored item.
type Candidate struct {
	Item     model.Item
	RawScore float64
	Distance float64
	Title    string
}

// Recommendation is the caller-facing result.
type Recommendation struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Confidence float64 `json:"confidence"`
}

// Engine holds the current corpus and the external collaborators.
type Engine struct {
	embedder embed.Embedder
	reranker rerank.Reranker
	opts     Options
	corpus   atomic.Pointer[Corpus]
}

// NewEngine wires an engine. reranker may be nil, in which case queries use
// local quality ordering.
func NewEngine(e embed.Embedder, r rerank.Reranker, opts Options) *Engine {
	return &Engine{embedder: e, reranker: r, opts: opts.withDefaults()}
}

// Reload publishes a new corpus. Requests already running keep the corpus
// they started with.
func (e *Engine) Reload(c *Corpus) { e.corpus.Store(c) }

// Corpus returns the current corpus, or nil before the first Reload.
func (e *Engine) Corpus() *Corpus { return e.corpus.Load() }

// rankByRaw sorts by raw score descending, ties by ascending id.
func rankByRaw(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].RawScore != cands[j].RawScore {
			return cands[i].RawScore > cands[j].RawScore
		}
		return cands[i].Item.ID < cands[j].Item.ID
	})
}

// finish normalizes over the whole ranked list and only then truncates.
func finish(cands []Candidate, topN int) []Recommendation {
	raw := make([]float64, len(cands))
	for i, c := range cands {
		raw[i] = c.RawScore
	}
	conf := Normalize(raw)
	if len(cands) > topN {
		cands = cands[:topN]
	}
	out := make([]Recommendation, len(cands))
	for i, c := range cands {
		out[i] = Recommendation{ID: c.Item.ID, Title: c.Title, Confidence: conf[i]}
	}
	return out
}
