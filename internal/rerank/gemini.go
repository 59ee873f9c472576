package rerank

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"animerec/internal/httpx"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini reranks through the generateContent endpoint.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	http    *httpx.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// NewGemini builds a single-attempt client; the caller owns the deadline.
func NewGemini(apiKey, model string, timeout time.Duration) *Gemini {
	return newGeminiWithURL(apiKey, model, defaultGeminiURL, timeout)
}

func newGeminiWithURL(apiKey, model, baseURL string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpx.New(httpx.Options{Name: "RERANK", Timeout: timeout, MaxAttempts: 1}),
	}
}

func (g *Gemini) Rerank(ctx context.Context, query string, cands []Candidate) ([]int, error) {
	if len(cands) == 0 {
		return nil, ErrUnusable
	}
	var body geminiRequest
	body.Contents = []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(query, cands)}}}}
	body.GenerationConfig.ResponseMimeType = "application/json"
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, ErrUnusable
	}
	return parseIDs(out.Candidates[0].Content.Parts[0].Text)
}
