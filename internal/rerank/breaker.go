package rerank

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"animerec/internal/logging"
)

// Breaker short-circuits a failing reranker so requests skip straight to
// the local fallback instead of waiting out the timeout each time.
type Breaker struct {
	next Reranker
	cb   *gobreaker.CircuitBreaker[[]int]
}

// WithBreaker trips after failures consecutive errors and tries again
// after cooldown.
func WithBreaker(next Reranker, failures uint32, cooldown time.Duration) *Breaker {
	if failures == 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[[]int](gobreaker.Settings{
		Name:        "reranker",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("circuit_state", map[string]any{"breaker": name, "from": from.String(), "to": to.String()})
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Rerank(ctx context.Context, query string, cands []Candidate) ([]int, error) {
	return b.cb.Execute(func() ([]int, error) {
		return b.next.Rerank(ctx, query, cands)
	})
}

// State reports the breaker state name.
func (b *Breaker) State() string { return b.cb.State().String() }
