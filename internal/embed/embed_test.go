package embed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"animerec/internal/httpx"
)

func testClient(ts *httptest.Server) *Client {
	h := httpx.New(httpx.Options{Name: "EMBEDTEST", MaxAttempts: 2, BaseBackoff: 5 * time.Millisecond, RPS: 1000, Burst: 100}).WithHTTPClient(ts.Client())
	return New(Config{BaseURL: ts.URL, Model: "text-embedding-3-small", APIKey: "k"}).WithHTTP(h)
}

func TestEmbedParsesVector(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("missing auth header: %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `"input":"space opera"`) {
			t.Errorf("unexpected body %s", b)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.5,-1,2]}]}`))
	}))
	defer ts.Close()

	v, err := testClient(ts).Embed(context.Background(), "space opera")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 || v[0] != 0.5 || v[1] != -1 || v[2] != 2 {
		t.Fatalf("unexpected vector %v", v)
	}
}

func TestEmbedEmptyVectorIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	if _, err := testClient(ts).Embed(context.Background(), "x"); !errors.Is(err, ErrEmptyVector) {
		t.Fatalf("expected ErrEmptyVector, got %v", err)
	}
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer ts.Close()

	if _, err := testClient(ts).Embed(context.Background(), "x"); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestEmbedClientErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer ts.Close()

	_, err := testClient(ts).Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
}
