// Package rerank asks an external language model to reorder retrieval
// candidates. Results are advisory: callers fall back to local ordering when
// the reranker errors, times out, or answers with nothing usable.
package rerank

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"animerec/internal/util"
)

// ErrUnusable marks a reply that parsed but carried no candidate ids.
var ErrUnusable = errors.New("reranker reply unusable")

// Candidate is the summary of one retrieval hit sent to the reranker.
type Candidate struct {
	ID           int
	Title        string
	Format       string
	AverageScore int
	Popularity   int
	Genres       []string
}

// Reranker returns candidate ids in preferred order.
type Reranker interface {
	Rerank(ctx context.Context, query string, cands []Candidate) ([]int, error)
}

// Func adapts a plain function to Reranker.
type Func func(ctx context.Context, query string, cands []Candidate) ([]int, error)

func (f Func) Rerank(ctx context.Context, query string, cands []Candidate) ([]int, error) {
	return f(ctx, query, cands)
}

func buildPrompt(query string, cands []Candidate) string {
	var b strings.Builder
	b.WriteString("You are an expert anime recommender. Given the candidate anime below and the user query, ")
	b.WriteString("re-rank the candidates so that high-quality TV series with strong average scores and popularity come first, ")
	b.WriteString("and penalize TV_SHORT, OVA, ONA and SPECIAL formats.\n\n")
	b.WriteString("User Query: ")
	b.WriteString(query)
	b.WriteString("\n\nCandidates:\n")
	for _, c := range cands {
		b.WriteString("ID: ")
		b.WriteString(strconv.Itoa(c.ID))
		b.WriteString(", Title: ")
		b.WriteString(c.Title)
		b.WriteString(", Format: ")
		b.WriteString(c.Format)
		b.WriteString(", Score: ")
		b.WriteString(strconv.Itoa(c.AverageScore))
		b.WriteString(", Popularity: ")
		b.WriteString(strconv.Itoa(c.Popularity))
		b.WriteString(", Genres: ")
		if len(c.Genres) == 0 {
			b.WriteString("none")
		} else {
			b.WriteString(strings.Join(c.Genres, " / "))
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nReturn valid JSON with a single key \"candidate_ids\" mapping to an array of anime IDs in the desired order.")
	return b.String()
}

// parseIDs decodes {"candidate_ids": [...]} where ids may be numbers or
// numeric strings. Entries that are neither are skipped.
func parseIDs(text string) ([]int, error) {
	var reply struct {
		CandidateIDs []json.RawMessage `json:"candidate_ids"`
	}
	if err := json.Unmarshal([]byte(util.StripCodeFence(text)), &reply); err != nil {
		return nil, errors.Join(ErrUnusable, err)
	}
	ids := make([]int, 0, len(reply.CandidateIDs))
	for _, raw := range reply.CandidateIDs {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			if id, err := strconv.Atoi(n.String()); err == nil {
				ids = append(ids, id)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if id, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, ErrUnusable
	}
	return ids, nil
}
