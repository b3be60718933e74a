package parsers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"bulliondeals/internal/config"
	"bulliondeals/internal/crawler"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/models"
	"bulliondeals/pkg/utils"
)

// bullionType marks investment items in the search API; everything else is a collectible.
const bullionType = "Bullion"

// ErrMalformedResponse is returned by ParseResponse for undecodable JSON.
var ErrMalformedResponse = errors.New("malformed search response")

// APIAdapter reads one JSON search response per product category.
type APIAdapter struct {
	base
	strings *utils.StringHelper
}

// NewAPIAdapter creates a new search API adapter for dealer.
func NewAPIAdapter(dealer config.DealerConfig, delay time.Duration) *APIAdapter {
	return &APIAdapter{
		base:    base{dealer: dealer, delay: delay},
		strings: utils.NewStringHelper(),
	}
}

type searchResponse struct {
	Result struct {
		Products []jsoniter.RawMessage `json:"products"`
	} `json:"result"`
}

type searchPrice struct {
	Price jsoniter.RawMessage `json:"price"`
}

// value accepts 3150.25 and "3150.25". Zero and unparseable prices count as absent.
func (p *searchPrice) value() (decimal.Decimal, bool) {
	if p == nil {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(strings.Trim(strings.TrimSpace(string(p.Price)), `"`))
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}

type searchItem struct {
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	IsArchived          bool        `json:"isArchived"`
	IsNoLongerAvailable bool        `json:"isNoLongerAvailable"`
	SKU                 looseString `json:"skuItemNumber"`
	Type                string      `json:"type"`
	Category            string      `json:"category"`
	Link                string      `json:"link"`
	CanAddToCart        bool        `json:"canAddToCart"`
	IsOutOfStock        bool        `json:"isOutOfStock"`
	Prices              *struct {
		Adjusted *searchPrice `json:"adjustedPrice"`
		Base     *searchPrice `json:"basePrice"`
	} `json:"prices"`
}

// price returns the adjusted price, else the base price.
func (it *searchItem) price() (decimal.Decimal, bool) {
	if it.Prices == nil {
		return decimal.Zero, false
	}

	for _, p := range []*searchPrice{it.Prices.Adjusted, it.Prices.Base} {
		if d, ok := p.value(); ok {
			return d, true
		}
	}

	return decimal.Zero, false
}

func (it *searchItem) title() string {
	if strings.TrimSpace(it.Title) != "" {
		return it.Title
	}

	return it.Description
}

// Collect implements Adapter. A category call that fails or returns malformed
// JSON is skipped; the adapter fails only when no call could be decoded.
func (a *APIAdapter) Collect(ctx context.Context, fetch crawler.Fetcher) ([]models.Candidate, error) {
	pages, err := a.fetchPages(ctx, fetch, "application/json")
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	var (
		all     []models.Candidate
		decoded int
		lastErr error
	)

	for _, p := range pages {
		if p.Err != nil {
			continue
		}

		items, malformed, err := a.parseResponse(p.Body)
		if err != nil {
			log.Warn("search response rejected", "url", p.URL, "category", p.Label, logger.Err(err))
			lastErr = err

			continue
		}

		decoded++

		log.Debug("search response parsed", "category", p.Label, "candidates", len(items), "malformed", malformed)

		all = append(all, items...)
	}

	if decoded == 0 {
		return nil, fmt.Errorf("%w: %s: %w", crawler.ErrFetchFailed, a.dealer.ID, lastErr)
	}

	return DedupeSKU(all), nil
}

// ParseResponse decodes one search response into candidates. Archived,
// unavailable, unpriced, untitled and non-bullion items are skipped, as is
// any item that does not decode on its own.
func (a *APIAdapter) ParseResponse(body string) ([]models.Candidate, error) {
	out, _, err := a.parseResponse(body)

	return out, err
}

func (a *APIAdapter) parseResponse(body string) ([]models.Candidate, int, error) {
	var resp searchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var (
		out       = make([]models.Candidate, 0, len(resp.Result.Products))
		malformed int
	)

	for _, raw := range resp.Result.Products {
		var it searchItem
		if err := json.Unmarshal(raw, &it); err != nil {
			malformed++

			continue
		}

		if strings.TrimSpace(it.title()) == "" || it.IsArchived || it.IsNoLongerAvailable || it.Type != bullionType {
			continue
		}

		price, ok := it.price()
		if !ok {
			continue
		}

		title := a.strings.NormalizeWhitespace(it.title())

		out = append(out, models.Candidate{
			Name:         title,
			MetalHint:    strings.TrimSpace(title + " " + it.Category),
			CategoryHint: it.Category,
			PriceText:    price.String(),
			URL:          a.productURL(it.Link, a.dealer.URL),
			InStock:      it.CanAddToCart && !it.IsOutOfStock,
			SKU:          string(it.SKU),
		})
	}

	return out, malformed, nil
}

// looseString accepts "25K01AAA" and 12345.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)

	switch {
	case len(raw) == 0 || string(raw) == "null":
		return nil
	case raw[0] == '"':
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}

		*s = looseString(v)
	default:
		*s = looseString(raw)
	}

	return nil
}

// DedupeSKU drops candidates whose SKU was already seen; the first occurrence
// wins. Candidates without a SKU are all kept.
func DedupeSKU(candidates []models.Candidate) []models.Candidate {
	seen := make(map[string]struct{}, len(candidates))

	return lo.Filter(candidates, func(c models.Candidate, _ int) bool {
		if c.SKU == "" {
			return true
		}

		if _, dup := seen[c.SKU]; dup {
			return false
		}

		seen[c.SKU] = struct{}{}

		return true
	})
}
