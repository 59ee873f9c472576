package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"animerec/internal/logging"
	"animerec/internal/metrics"
	"animerec/internal/model"
	"animerec/internal/rerank"
	"animerec/internal/util"
)

// QueryRequest asks for recommendations matching free text.
type QueryRequest struct {
	Text string
	TopN int
	// Keyword optionally restricts candidates to a genre or tag label.
	Keyword string
	Planned model.IDSet
	Engaged model.IDSet
}

// Query retrieves the nearest items to the query text, optionally filters
// them by keyword, and orders them by the reranker or, when it is missing
// or unusable, by boosted quality score.
func (e *Engine) Query(ctx context.Context, req QueryRequest) ([]Recommendation, error) {
	start := time.Now()
	reqID := uuid.NewString()
	metrics.Requests.WithLabelValues("query").Inc()
	defer metrics.ObservePipeline("query", start)

	out, stats, err := e.query(ctx, req)
	if err != nil {
		metrics.RequestErrors.WithLabelValues("query").Inc()
		logging.Error("query_error", map[string]any{"request_id": reqID, "error": err.Error()})
		return nil, err
	}
	logging.Info("query_done", map[string]any{
		"request_id": reqID,
		"pool":       stats.pool,
		"excluded":   stats.excluded,
		"relaxed":    stats.relaxed,
		"ranked_by":  stats.rankedBy,
		"returned":   len(out),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return out, nil
}

type queryStats struct {
	pool     int
	excluded int
	relaxed  bool
	rankedBy string
}

func (e *Engine) query(ctx context.Context, req QueryRequest) ([]Recommendation, queryStats, error) {
	var st queryStats
	c := e.corpus.Load()
	if c == nil || c.Index == nil {
		return nil, st, ErrNoCorpus
	}
	topN := req.TopN
	if topN <= 0 {
		topN = e.opts.TopN
	}

	vec, err := e.embedQuery(ctx, req.Text)
	if err != nil {
		return nil, st, err
	}
	// Engaged items never take a slot in the oversampled pool.
	hits, err := c.Index.SearchFunc(vec, topN*e.opts.Oversample, func(id int) bool {
		if req.Engaged.Has(id) {
			st.excluded++
			return false
		}
		return true
	})
	if err != nil {
		return nil, st, fmt.Errorf("retrieve: %w", err)
	}
	st.pool = len(hits)

	cands := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		it, ok := c.Items[h.ID]
		if !ok {
			it = model.Item{ID: h.ID}
		}
		cands = append(cands, Candidate{Item: it, Distance: h.Distance, Title: model.ResolveTitle(it)})
	}
	if len(cands) == 0 {
		st.rankedBy = "none"
		return []Recommendation{}, st, nil
	}

	cands, st.relaxed = filterByKeyword(cands, req.Keyword)
	if st.relaxed {
		metrics.FilterRelaxed.Inc()
		logging.Debug("filter_relaxed", map[string]any{"keyword": req.Keyword})
	}

	for i := range cands {
		it := cands[i].Item
		cands[i].RawScore = model.QualityScore(it) * boost(it, req.Keyword, req.Planned.Has(it.ID))
	}
	fallback := make([]Candidate, len(cands))
	copy(fallback, cands)
	rankByRaw(fallback)

	ranked, reason := e.rerank(ctx, req.Text, fallback)
	if reason == "" {
		st.rankedBy = "reranker"
	} else {
		st.rankedBy = "quality"
		if reason != "disabled" {
			metrics.IncRerankFallback(reason)
			logging.Warn("rerank_fallback", map[string]any{"reason": reason})
		}
	}
	return finish(ranked, topN), st, nil
}

func (e *Engine) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbedding)
	}
	ectx, cancel := context.WithTimeout(ctx, e.opts.EmbedTimeout)
	defer cancel()
	vec, err := e.embedder.Embed(ectx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}
	return vec, nil
}

// filterByKeyword keeps candidates carrying keyword as a genre or tag. When
// nothing matches the pool is returned unchanged and relaxed is true.
func filterByKeyword(cands []Candidate, keyword string) (out []Candidate, relaxed bool) {
	if keyword == "" {
		return cands, false
	}
	for _, c := range cands {
		if util.EqualFoldAny(keyword, c.Item.Genres) || util.EqualFoldAny(keyword, tagNames(c.Item.Tags)) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return cands, true
	}
	return out, false
}

// rerank asks the reranker to order fallback. It returns fallback itself
// with a non-empty reason whenever the reranker cannot be used.
func (e *Engine) rerank(ctx context.Context, query string, fallback []Candidate) ([]Candidate, string) {
	if e.reranker == nil {
		return fallback, "disabled"
	}
	rc := make([]rerank.Candidate, len(fallback))
	for i, c := range fallback {
		rc[i] = rerank.Candidate{
			ID:           c.Item.ID,
			Title:        c.Title,
			Format:       string(c.Item.Format),
			AverageScore: deref(c.Item.AverageScore),
			Popularity:   deref(c.Item.Popularity),
			Genres:       c.Item.Genres,
		}
	}
	rctx, cancel := context.WithTimeout(ctx, e.opts.RerankTimeout)
	defer cancel()
	ids, err := e.reranker.Rerank(rctx, query, rc)
	if err != nil {
		return fallback, fallbackReason(err)
	}
	ordered := applyOrder(fallback, ids)
	if ordered == nil {
		return fallback, "unusable"
	}
	return ordered, ""
}

// applyOrder arranges cands in the order of ids. Unknown and repeated ids
// are ignored; candidates the ids omit follow in their existing order.
// It returns nil when no id names a candidate.
func applyOrder(cands []Candidate, ids []int) []Candidate {
	pos := make(map[int]int, len(cands))
	for i, c := range cands {
		pos[c.Item.ID] = i
	}
	used := make([]bool, len(cands))
	out := make([]Candidate, 0, len(cands))
	for _, id := range ids {
		i, ok := pos[id]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, cands[i])
	}
	if len(out) == 0 {
		return nil
	}
	for i, c := range cands {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, rerank.ErrUnusable):
		return "unusable"
	default:
		return "error"
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
