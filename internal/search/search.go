// Package search provides typo-tolerant title lookup over the catalog.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"animerec/internal/model"
)

// Hit is one title match, best first.
type Hit struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type titleDoc struct {
	Title string `json:"title"`
	Alt   string `json:"alt"`
}

// TitleIndex is an in-memory bleve index of resolved titles.
type TitleIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Store = true
	doc.AddFieldMappingsAt("title", title)

	alt := bleve.NewTextFieldMapping()
	alt.Store = false
	doc.AddFieldMappingsAt("alt", alt)

	im.DefaultMapping = doc
	return im
}

// Build indexes every item under its resolved title plus romaji and native
// names.
func Build(items map[int]model.Item) (*TitleIndex, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create title index: %w", err)
	}
	batch := idx.NewBatch()
	for id, it := range items {
		d := titleDoc{
			Title: model.ResolveTitle(it),
			Alt:   strings.TrimSpace(it.Titles.Romaji + " " + it.Titles.Native),
		}
		if err := batch.Index(strconv.Itoa(id), d); err != nil {
			return nil, fmt.Errorf("index item %d: %w", id, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("commit title index: %w", err)
	}
	return &TitleIndex{index: idx}, nil
}

func buildQuery(q string) query.Query {
	var parts []query.Query

	titleMatch := bleve.NewMatchQuery(q)
	titleMatch.SetField("title")
	titleMatch.SetBoost(3.0)
	parts = append(parts, titleMatch)

	altMatch := bleve.NewMatchQuery(q)
	altMatch.SetField("alt")
	altMatch.SetBoost(1.5)
	parts = append(parts, altMatch)

	for _, tok := range strings.Fields(strings.ToLower(q)) {
		fz := bleve.NewFuzzyQuery(tok)
		fz.SetFuzziness(1)
		fz.SetField("title")
		fz.SetBoost(0.8)
		parts = append(parts, fz)
		if len(tok) >= 2 {
			px := bleve.NewPrefixQuery(tok)
			px.SetField("title")
			px.SetBoost(0.5)
			parts = append(parts, px)
		}
	}
	return bleve.NewDisjunctionQuery(parts...)
}

// Search returns up to limit titles matching q.
func (t *TitleIndex) Search(ctx context.Context, q string, limit int) ([]Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" || limit <= 0 {
		return nil, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(q), limit, 0, false)
	req.Fields = []string{"title"}
	res, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.Atoi(h.ID)
		if err != nil {
			continue
		}
		title, _ := h.Fields["title"].(string)
		out = append(out, Hit{ID: id, Title: title, Score: h.Score})
	}
	return out, nil
}

// Len reports the number of indexed titles.
func (t *TitleIndex) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, err := t.index.DocCount()
	if err != nil {
		return 0
	}
	return int(n)
}

func (t *TitleIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Close()
}
