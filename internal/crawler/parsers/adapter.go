// Package parsers turns raw dealer pages into candidate listings.
package parsers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"bulliondeals/internal/config"
	"bulliondeals/internal/crawler"
	"bulliondeals/internal/models"
	"bulliondeals/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// ErrUnknownFormat is returned by New for a dealer format with no adapter.
var ErrUnknownFormat = errors.New("unknown dealer format")

// Adapter collects candidate listings from one dealer.
// Collect never fails on malformed content; it returns an error wrapping
// crawler.ErrFetchFailed only when the dealer could not be fetched at all.
type Adapter interface {
	Dealer() models.DealerInfo
	Collect(ctx context.Context, fetch crawler.Fetcher) ([]models.Candidate, error)
}

// New selects the adapter for the dealer's format.
func New(dealer config.DealerConfig, delay time.Duration) (Adapter, error) {
	switch dealer.Format {
	case config.FormatTable:
		return NewTableAdapter(dealer, delay), nil
	case config.FormatGrid:
		return NewGridAdapter(dealer, delay), nil
	case config.FormatAPI:
		return NewAPIAdapter(dealer, delay), nil
	}

	return nil, fmt.Errorf("%w: %q (dealer %s)", ErrUnknownFormat, dealer.Format, dealer.ID)
}

// NewAll builds the adapters of every enabled dealer, in configuration order.
func NewAll(cfg *config.Config) ([]Adapter, error) {
	dealers := cfg.EnabledDealers()
	adapters := make([]Adapter, 0, len(dealers))

	for _, d := range dealers {
		a, err := New(d, cfg.Crawler.PolitenessDelay())
		if err != nil {
			return nil, err
		}

		adapters = append(adapters, a)
	}

	return adapters, nil
}

// base holds what every adapter variant shares.
type base struct {
	dealer config.DealerConfig
	delay  time.Duration
}

func (b *base) Dealer() models.DealerInfo {
	return b.dealer.Info()
}

// productURL returns link when it is an absolute http(s) URL, else fallback.
func (b *base) productURL(link, fallback string) string {
	if utils.NewHTTPHelper("").IsValidURL(strings.TrimSpace(link)) {
		return strings.TrimSpace(link)
	}

	return fallback
}

func (b *base) fetchPages(ctx context.Context, fetch crawler.Fetcher, accept string) ([]crawler.Page, error) {
	headers := http.Header{}
	if accept != "" {
		headers.Set("Accept", accept)
	}

	pages, err := crawler.NewClient(fetch, b.delay).FetchPages(ctx, b.dealer.Pages, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", crawler.ErrFetchFailed, b.dealer.ID, err)
	}

	if err := crawler.FirstError(pages); err != nil {
		return nil, fmt.Errorf("%s: %w", b.dealer.ID, err)
	}

	return pages, nil
}
