package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"promptpulse/internal/metrics"
	"promptpulse/internal/model"
)

// Client defines what the refresh job needs from a remote registry.
type Client interface {
	FetchIndex(ctx context.Context) ([]model.Prompt, error)
}

// HTTPClient fetches a registry index over HTTP with bearer auth,
// rate limiting, and bounded retry.
type HTTPClient struct {
	url         string
	token       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(url, token string) *HTTPClient {
	return &HTTPClient{
		url:         url,
		token:       token,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("REGISTRY_MAX_ATTEMPTS", 5),
		baseBackoff: time.Duration(getEnvInt("REGISTRY_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// index is the registry wire format: a plain list of prompts with stats.
type index struct {
	Prompts []model.Prompt `json:"prompts"`
}

// FetchIndex downloads and decodes the full registry index.
func (c *HTTPClient) FetchIndex(ctx context.Context) ([]model.Prompt, error) {
	if c.url == "" {
		return nil, errors.New("registry url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("registry status %d", resp.StatusCode)
	}
	var raw index
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Prompts, nil
}

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err == nil {
			if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
				ra := resp.Header.Get("Retry-After")
				_ = resp.Body.Close()
				wait := backoff
				if ra != "" {
					if secs, err := strconv.Atoi(ra); err == nil {
						wait = time.Duration(secs) * time.Second
					} else if t, err := http.ParseTime(ra); err == nil {
						if d := time.Until(t); d > 0 {
							wait = d
						}
					}
				}
				metrics.IncRegistryRetry()
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				backoff *= 2
				continue
			}
			return resp, nil
		}
		lastErr = err
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("retryable status from registry")
	}
	return nil, fmt.Errorf("registry: giving up after %d attempts: %w", c.maxAttempts, lastErr)
}
