// Package embed turns text into vectors through an OpenAI-compatible
// /embeddings endpoint.
package embed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"animerec/internal/httpx"
)

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyVector is returned when the endpoint answers without a vector.
var ErrEmptyVector = errors.New("embedding response carried no vector")

const defaultBaseURL = "https://api.openai.com/v1"

// Config describes the embedding endpoint.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is an HTTP Embedder.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *httpx.Client
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL: base,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		http:    httpx.New(httpx.Options{Name: "EMBED", Timeout: cfg.Timeout}),
	}
}

// WithHTTP replaces the transport client.
func (c *Client) WithHTTP(h *httpx.Client) *Client {
	c.http = h
	return c
}

// Model reports the embedding model name stored alongside vectors.
func (c *Client) Model() string { return c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embed status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	var out embedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return nil, fmt.Errorf("embed api error: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, ErrEmptyVector
	}
	return out.Data[0].Embedding, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
