// Package fetch wraps the outbound HTTP client used to pull ranking and
// book payloads from the source site. Politeness (delay, timeout, retries)
// is configuration on the client, not logic in the callers.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lien-Gu/bookrank/internal/metrics"
)

// Config controls client behavior.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	Retries       int
	RetryWait     time.Duration
	RetryMaxWait  time.Duration
	RatePerSecond float64
	RateBurst     int
}

// Payload is the result of a successful fetch.
type Payload struct {
	URL        string
	Body       []byte
	StatusCode int
	Duration   time.Duration
	FetchedAt  time.Time
}

// StatusError reports a non-2xx response that survived retries.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// Client fetches source-site payloads with a process-global rate limit.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a Client from config. A non-positive rate disables the
// limiter.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetHeader("User-Agent", cfg.UserAgent).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			// Retry server-side failures and throttling, never client errors.
			return r.StatusCode() >= http.StatusInternalServerError ||
				r.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:    rc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// Get fetches one URL. It blocks on the rate limiter first, so the global
// delay applies across scheduled and manual crawls alike.
func (c *Client) Get(ctx context.Context, rawURL string) (Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Payload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.http.R().SetContext(ctx).Get(rawURL)
	host := hostOf(rawURL)
	if err != nil {
		metrics.ObserveFetch(host, 0, 0, 0)
		return Payload{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	metrics.ObserveFetch(host, resp.StatusCode(), len(resp.Body()), resp.Time())
	if !resp.IsSuccess() {
		return Payload{}, &StatusError{URL: rawURL, Code: resp.StatusCode()}
	}

	c.logger.Debug("fetched page",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(resp.Body())),
		zap.Duration("duration", resp.Time()),
	)
	return Payload{
		URL:        rawURL,
		Body:       resp.Body(),
		StatusCode: resp.StatusCode(),
		Duration:   resp.Time(),
		FetchedAt:  time.Now().UTC(),
	}, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
