package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bulliondeals/internal/config"
	"bulliondeals/internal/logger"
)

// Page is one fetched page of a multi-page dealer.
type Page struct {
	URL   string
	Label string
	Body  string
	Err   error
}

// Client walks the pages of one dealer sequentially, pausing between requests.
type Client struct {
	fetcher Fetcher
	delay   time.Duration
}

// NewClient creates a new crawler client over fetcher.
func NewClient(fetcher Fetcher, delay time.Duration) *Client {
	return &Client{
		fetcher: fetcher,
		delay:   delay,
	}
}

// FetchPages fetches pages in order. A failing page keeps its error in the
// result and the walk continues; only ctx cancellation stops it early.
func (c *Client) FetchPages(ctx context.Context, pages []config.PageConfig, headers http.Header) ([]Page, error) {
	log := logger.FromContext(ctx)
	out := make([]Page, 0, len(pages))

	for i, p := range pages {
		if i > 0 {
			if err := sleep(ctx, c.delay); err != nil {
				return out, fmt.Errorf("page walk interrupted: %w", err)
			}
		}

		body, err := c.fetcher.Fetch(ctx, p.URL, headers)
		if err != nil {
			log.Warn("page fetch failed", "url", p.URL, "label", p.Label, logger.Err(err))
		}

		out = append(out, Page{URL: p.URL, Label: p.Label, Body: body, Err: err})
	}

	return out, nil
}

// FirstError returns the first page error when every page failed, and nil
// when at least one page succeeded.
func FirstError(pages []Page) error {
	if len(pages) == 0 {
		return fmt.Errorf("%w: no pages", ErrFetchFailed)
	}

	var first error

	for _, p := range pages {
		if p.Err == nil {
			return nil
		}

		if first == nil {
			first = p.Err
		}
	}

	return fmt.Errorf("%w: all %d pages failed: %w", ErrFetchFailed, len(pages), first)
}
