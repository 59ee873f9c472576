// Package httpx is the shared outbound HTTP layer: per-upstream rate
// limiting plus retry with exponential backoff on transport errors, 429 and
// 5xx responses.
package httpx

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"animerec/internal/metrics"
)

// Options configures a Client. Zero values take defaults.
type Options struct {
	// Name labels retry metrics and prefixes env overrides, e.g. "EMBED".
	Name string
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts of 1 disables retries.
	MaxAttempts int
	BaseBackoff time.Duration
	RPS         float64
	Burst       int
}

// Client wraps http.Client with rate limiting and retries.
type Client struct {
	name        string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func New(opts Options) *Client {
	if opts.Name == "" {
		opts.Name = "HTTP"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = getEnvInt(opts.Name+"_MAX_ATTEMPTS", 5)
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = time.Duration(getEnvInt(opts.Name+"_BASE_BACKOFF_MS", 500)) * time.Millisecond
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	return &Client{
		name:        opts.Name,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		limiter:     newLimiter(opts.Name, opts.RPS, opts.Burst),
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
	}
}

// WithHTTPClient swaps the underlying client, e.g. for httptest servers.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Do sends req, retrying retryable failures. Requests with a body must be
// built with http.NewRequestWithContext so the body can be replayed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(c.name + " " + req.URL.Path)
		}
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			if !retryable(resp.StatusCode) || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%s status %d", c.name, resp.StatusCode)
			if err := sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return fallback
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
