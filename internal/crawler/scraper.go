// Package crawler provides the fetch capability used by dealer adapters.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bulliondeals/internal/config"
	"bulliondeals/internal/logger"
	"bulliondeals/pkg/utils"
)

// Fetch errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrFetchFailed          = errors.New("fetch failed")
	ErrBodyTooLarge         = errors.New("response body exceeds buffer size")
)

// Fetcher retrieves the body of url. headers override the fetcher defaults.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string, headers http.Header) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	return f(ctx, url, headers)
}

// Scraper handles HTTP fetches with config-driven retry logic.
type Scraper struct {
	client       *http.Client
	retryPolicy  *config.RetryPolicy
	headers      *utils.HTTPHelper
	bufferSizeKb int
}

// NewScraperWithConfig creates a new scraper with the crawler's retry policy and limits.
func NewScraperWithConfig(cfg *config.CrawlerConfig, log *logger.Logger) *Scraper {
	retry := cfg.Retry

	bufferSizeKb := cfg.BufferSizeKb
	if bufferSizeKb <= 0 {
		bufferSizeKb = 1024
	}

	return &Scraper{
		client: &http.Client{
			Timeout:   retry.GetTimeout(),
			Transport: NewLoggingTransport(nil, log),
		},
		retryPolicy:  &retry,
		headers:      utils.NewHTTPHelper(cfg.UserAgent),
		bufferSizeKb: bufferSizeKb,
	}
}

// Fetch implements Fetcher. Every failure is wrapped in ErrFetchFailed.
func (s *Scraper) Fetch(ctx context.Context, url string, headers http.Header) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, url, headers)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}

	return content, nil
}

// ScrapeWithMetrics returns (content, statusCode, duration, error).
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string, headers http.Header) (string, int, time.Duration, error) {
	var (
		lastErr        error
		lastStatusCode int
		totalDuration  time.Duration
	)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.retryPolicy.GetRetryDelay(attempt)); err != nil {
				return "", lastStatusCode, totalDuration, err
			}
		}

		startTime := time.Now()
		body, status, err := s.do(ctx, url, headers)
		totalDuration += time.Since(startTime)
		lastStatusCode = status

		if err == nil {
			return body, status, totalDuration, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, s.retryPolicy.MaxAttempts, err)

		if ctx.Err() != nil {
			return "", lastStatusCode, totalDuration, lastErr
		}

		// Only retry transport errors and temporary statuses
		if status != 0 && !isRetryableStatus(status) {
			break
		}
	}

	return "", lastStatusCode, totalDuration, lastErr
}

func (s *Scraper) do(ctx context.Context, url string, headers http.Header) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.BuildHeaders("", nil)
	for key, values := range headers {
		req.Header[key] = values
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// bufferSizeKb is in KB, convert to bytes
	limit := int64(s.bufferSizeKb) * 1024

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > limit {
		return "", resp.StatusCode, fmt.Errorf("%w: more than %d KB", ErrBodyTooLarge, s.bufferSizeKb)
	}

	return string(body), resp.StatusCode, nil
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout:
		return true
	}

	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
