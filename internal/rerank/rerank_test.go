package rerank

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestParseIDsMixedTypes(t *testing.T) {
	ids, err := parseIDs("```json\n{\"candidate_ids\": [3, \"7\", \"x\", 1]}\n```")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{3, 7, 1}
	if len(ids) != len(want) {
		t.Fatalf("got %v want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v want %v", ids, want)
		}
	}
}

func TestParseIDsUnusable(t *testing.T) {
	for _, in := range []string{"not json", `{"candidate_ids": []}`, `{"other": [1]}`} {
		if _, err := parseIDs(in); !errors.Is(err, ErrUnusable) {
			t.Fatalf("%q: expected ErrUnusable, got %v", in, err)
		}
	}
}

func TestPromptListsCandidates(t *testing.T) {
	p := buildPrompt("space pirates", []Candidate{
		{ID: 42, Title: "Outlaw Star", Format: "TV", AverageScore: 77, Popularity: 90000, Genres: []string{"Action", "Sci-Fi"}},
		{ID: 7, Title: "Untagged", Format: "OVA"},
	})
	for _, want := range []string{
		"User Query: space pirates",
		"ID: 42, Title: Outlaw Star, Format: TV, Score: 77, Popularity: 90000, Genres: Action / Sci-Fi\n",
		"ID: 7, Title: Untagged, Format: OVA, Score: 0, Popularity: 0, Genres: none\n",
		"candidate_ids",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestGeminiRerank(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-test:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("missing key")
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), "application/json") {
			t.Errorf("expected json mime type in body: %s", b)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"candidate_ids\":[2,1]}"}]}}]}`))
	}))
	defer ts.Close()

	g := newGeminiWithURL("secret", "gemini-test", ts.URL, time.Second)
	g.http.WithHTTPClient(ts.Client())
	ids, err := g.Rerank(context.Background(), "q", []Candidate{{ID: 1}, {ID: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestGeminiSingleAttemptOnError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	g := newGeminiWithURL("k", "m", ts.URL, time.Second)
	g.http.WithHTTPClient(ts.Client())
	if _, err := g.Rerank(context.Background(), "q", []Candidate{{ID: 1}}); err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	calls := 0
	failing := Func(func(ctx context.Context, q string, c []Candidate) ([]int, error) {
		calls++
		return nil, errors.New("boom")
	})
	b := WithBreaker(failing, 2, time.Minute)
	for i := 0; i < 2; i++ {
		_, _ = b.Rerank(context.Background(), "q", nil)
	}
	if _, err := b.Rerank(context.Background(), "q", nil); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected wrapped reranker skipped once open, calls=%d", calls)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s", b.State())
	}
}
