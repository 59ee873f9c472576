package recommend

import (
	"context"
	"time"

	"github.com/google/uuid"

	"animerec/internal/logging"
	"animerec/internal/metrics"
	"animerec/internal/model"
	"animerec/internal/util"
)

const (
	genreBoost   = 1.2
	tagBoost     = 1.1
	plannedBoost = 1.5
)

// RecommendRequest asks for profile-driven recommendations.
type RecommendRequest struct {
	Profile      model.Profile
	DesiredGenre string
	TopN         int
	Planned      model.IDSet
	Engaged      model.IDSet
}

// boost is the multiplicative factor for an item: a genre match on desired
// wins over a tag match, and planned items get an extra factor on top.
func boost(it model.Item, desired string, planned bool) float64 {
	f := 1.0
	if desired != "" {
		switch {
		case util.EqualFoldAny(desired, it.Genres):
			f *= genreBoost
		case util.EqualFoldAny(desired, tagNames(it.Tags)):
			f *= tagBoost
		}
	}
	if planned {
		f *= plannedBoost
	}
	return f
}

func tagNames(tags []model.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

// Recommend ranks every unengaged catalog item against the profile.
func (e *Engine) Recommend(ctx context.Context, req RecommendRequest) ([]Recommendation, error) {
	start := time.Now()
	reqID := uuid.NewString()
	metrics.Requests.WithLabelValues("recommend").Inc()
	defer metrics.ObservePipeline("recommend", start)

	c := e.corpus.Load()
	if c == nil {
		metrics.RequestErrors.WithLabelValues("recommend").Inc()
		return nil, ErrNoCorpus
	}
	if err := ctx.Err(); err != nil {
		metrics.RequestErrors.WithLabelValues("recommend").Inc()
		return nil, err
	}
	topN := req.TopN
	if topN <= 0 {
		topN = e.opts.TopN
	}

	cands := make([]Candidate, 0, len(c.Items))
	for id, it := range c.Items {
		if req.Engaged.Has(id) {
			continue
		}
		raw := model.Score(it, req.Profile) * boost(it, req.DesiredGenre, req.Planned.Has(id))
		cands = append(cands, Candidate{Item: it, RawScore: raw, Title: model.ResolveTitle(it)})
	}
	rankByRaw(cands)
	out := finish(cands, topN)

	logging.Info("recommend_done", map[string]any{
		"request_id":    reqID,
		"profile_size":  len(req.Profile),
		"desired_genre": req.DesiredGenre,
		"scored":        len(cands),
		"returned":      len(out),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return out, nil
}
