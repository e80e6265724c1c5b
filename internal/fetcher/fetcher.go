// Package fetcher issues rate-limited, retrying HTTP fetches on behalf
// of all source adapters and enforces robots.txt politeness before an
// adapter's first content fetch.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"HackathonScanner/internal/domain"
)

// maxBodyBytes limits how much of a response we are willing to read.
const maxBodyBytes = 10 * 1024 * 1024

// Config carries the global crawl knobs. They are process-wide, not
// per-adapter, so total outbound load stays bounded no matter how many
// adapters a run visits.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	MaxConcurrency int
	MinInterval    time.Duration
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "hackscanner/1.0 (+https://github.com/hackscanner/hackscanner)"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
	if c.MinInterval <= 0 {
		c.MinInterval = time.Second
	}
	return c
}

// FetchError reports a fetch that failed after exhausting retries. It
// is scoped to one URL on one source and is always surfaced to the
// calling adapter.
type FetchError struct {
	Source   domain.Source
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s) failed after %d attempts: %v", e.URL, e.Source, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PolitenessError reports that robots.txt forbids a path the adapter
// requires; the adapter's whole run must abort before any content
// fetch.
type PolitenessError struct {
	Source domain.Source
	Path   string
}

func (e *PolitenessError) Error() string {
	return fmt.Sprintf("robots.txt for %s disallows %s", e.Source, e.Path)
}

// Fetcher serializes all adapters' page fetches through one shared
// limiter pair: a weighted semaphore bounds concurrency and a token
// bucket enforces the minimum inter-request interval.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	slots   *semaphore.Weighted
	logger  *slog.Logger
}

// New builds a fetcher from config, applying defaults for any unset knob.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		logger:  logger,
	}
}

// UserAgent returns the crawl identity sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.cfg.UserAgent
}

// Fetch retrieves the body at url, retrying non-2xx responses and
// transport errors with exponential backoff. After the last attempt it
// returns a *FetchError carrying source, URL, attempt count, and cause.
func (f *Fetcher) Fetch(ctx context.Context, url string, source domain.Source) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		body, err := f.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == f.cfg.MaxRetries || ctx.Err() != nil {
			break
		}

		backoff := f.cfg.RetryDelay << (attempt - 1)
		f.debug("fetch retry", "url", url, "source", source, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", &FetchError{Source: source, URL: url, Attempts: attempt, Err: lastErr}
		}
	}

	return "", &FetchError{Source: source, URL: url, Attempts: f.cfg.MaxRetries, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (string, error) {
	if err := f.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer f.slots.Release(1)

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(raw), nil
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
