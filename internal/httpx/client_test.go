package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(attempts int) *Client {
	return New(Options{Name: "TEST", MaxAttempts: attempts, BaseBackoff: 10 * time.Millisecond, RPS: 1000, Burst: 100})
}

func TestDoRetriesOn429AndReplaysBody(t *testing.T) {
	attempts := 0
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := newTestClient(3).WithHTTPClient(ts.Client())
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.URL+"/embeddings", bytes.NewReader([]byte(`{"input":"x"}`)))
	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	for _, b := range bodies {
		if b != `{"input":"x"}` {
			t.Fatalf("body not replayed: %q", bodies)
		}
	}
}

func TestDoSingleAttemptReturnsErrorStatus(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := newTestClient(1).WithHTTPClient(ts.Client())
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	resp, err := c.Do(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if attempts != 1 || resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected one attempt surfacing 503, got %d attempts status %d", attempts, resp.StatusCode)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := New(Options{Name: "TEST", MaxAttempts: 5, BaseBackoff: time.Second, RPS: 1000, Burst: 100}).WithHTTPClient(ts.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
	if _, err := c.Do(ctx, req); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
