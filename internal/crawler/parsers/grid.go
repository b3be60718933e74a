package parsers

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"bulliondeals/internal/config"
	"bulliondeals/internal/crawler"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/models"
	"bulliondeals/internal/normalizer"
	"bulliondeals/pkg/utils"
)

// GridAdapter reads one store page per metal. Each page is a grid of item
// blocks; items may carry a volume tier table in an inline script.
type GridAdapter struct {
	base
	itemSplit     *regexp.Regexp
	namePattern   *regexp.Regexp
	anchorPattern *regexp.Regexp
	pricePattern  *regexp.Regexp
	linkPattern   *regexp.Regexp
	idPattern     *regexp.Regexp
	strings       *utils.StringHelper
}

// NewGridAdapter creates a new grid adapter for dealer.
func NewGridAdapter(dealer config.DealerConfig, delay time.Duration) *GridAdapter {
	storeURL := strings.TrimSuffix(dealer.URL, "/") + "/store/"

	return &GridAdapter{
		base:          base{dealer: dealer, delay: delay},
		itemSplit:     regexp.MustCompile(`<div\s+class="item\s+item-infi\s+col-`),
		namePattern:   regexp.MustCompile(`itemprop="name"[^>]*title="([^"]+)"`),
		anchorPattern: regexp.MustCompile(`<a[^>]*title="([^"]+)"`),
		pricePattern:  regexp.MustCompile(`class="price"[^>]*>\s*([\d,. ]+)\s*<`),
		linkPattern:   regexp.MustCompile(`href="(` + regexp.QuoteMeta(storeURL) + `[^"]+)"`),
		idPattern:     regexp.MustCompile(`id="item_(\d+)"`),
		strings:       utils.NewStringHelper(),
	}
}

// Collect implements Adapter. Pages that fail are skipped.
func (a *GridAdapter) Collect(ctx context.Context, fetch crawler.Fetcher) ([]models.Candidate, error) {
	pages, err := a.fetchPages(ctx, fetch, "")
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)

	var out []models.Candidate

	for _, p := range pages {
		if p.Err != nil {
			continue
		}

		items := a.Parse(p.Body, p.URL, models.Metal(p.Label))
		log.Debug("store page parsed", "url", p.URL, "metal", p.Label, "candidates", len(items))

		out = append(out, items...)
	}

	return out, nil
}

// Parse extracts candidates from one store page listing metal.
func (a *GridAdapter) Parse(content, pageURL string, metal models.Metal) []models.Candidate {
	blocks := a.itemSplit.Split(content, -1)
	if len(blocks) < 2 {
		return nil
	}

	out := make([]models.Candidate, 0, len(blocks)-1)

	for _, block := range blocks[1:] {
		c, ok := a.parseItem(block, content, pageURL)
		if !ok {
			continue
		}

		c.MetalHint = string(metal)
		out = append(out, c)
	}

	return out
}

func (a *GridAdapter) parseItem(block, page, pageURL string) (models.Candidate, bool) {
	m := a.namePattern.FindStringSubmatch(block)
	if m == nil {
		m = a.anchorPattern.FindStringSubmatch(block)
	}

	if m == nil {
		return models.Candidate{}, false
	}

	name := a.strings.CleanText(m[1])

	pm := a.pricePattern.FindStringSubmatch(block)
	if pm == nil {
		return models.Candidate{}, false
	}

	price := strings.TrimSpace(pm[1])
	if _, ok := normalizer.ParsePrice(price); !ok {
		return models.Candidate{}, false
	}

	link := pageURL
	if lm := a.linkPattern.FindStringSubmatch(block); lm != nil {
		link = a.productURL(lm[1], pageURL)
	}

	c := models.Candidate{
		Name:      name,
		PriceText: price,
		URL:       link,
		InStock:   true,
	}

	if idm := a.idPattern.FindStringSubmatch(block); idm != nil {
		// Tier scripts may sit anywhere in the page, not just inside the block.
		if tiers := a.tiers(page, idm[1]); len(tiers) > 1 {
			c.PriceText = tiers[0].Price.String()
			c.VolumeTiers = tiers
		}
	}

	return c, true
}

// tiers decodes the inline tier table of item id, ordered by numeric key.
// Tiers whose price does not parse are dropped.
func (a *GridAdapter) tiers(page, id string) []models.VolumeTier {
	pattern := regexp.MustCompile(`item_` + id + `\s*=\s*JSON\.parse\('(\{[^']*\})'\)`)

	m := pattern.FindStringSubmatch(page)
	if m == nil {
		return nil
	}

	var raw map[string]tierJSON
	if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
		return nil
	}

	keys := lo.Keys(raw)
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := tierKey(keys[i]), tierKey(keys[j])
		if ki != kj {
			return ki < kj
		}

		return keys[i] < keys[j]
	})

	out := make([]models.VolumeTier, 0, len(keys))

	for _, k := range keys {
		t := raw[k]

		price, ok := normalizer.ParsePrice(t.priceText())
		if !ok || !price.IsPositive() {
			continue
		}

		tier := models.VolumeTier{MinQty: 1, Price: price}
		if t.Min != nil {
			tier.MinQty = int(*t.Min)
		}

		if t.Max != nil {
			maxQty := int(*t.Max)
			tier.MaxQty = &maxQty
		}

		out = append(out, tier)
	}

	return out
}

func tierKey(k string) int {
	n, err := strconv.Atoi(k)
	if err != nil {
		return 999
	}

	return n
}

type tierJSON struct {
	Min   *looseInt           `json:"min"`
	Max   *looseInt           `json:"max"`
	Price jsoniter.RawMessage `json:"price"`
}

func (t tierJSON) priceText() string {
	raw := bytes.TrimSpace(t.Price)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}

		return s
	}

	return string(raw)
}

// looseInt accepts 5, 5.0 and "5".
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}

	*n = looseInt(f)

	return nil
}
