package parsers

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"bulliondeals/internal/config"
	"bulliondeals/internal/crawler"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/models"
	"bulliondeals/internal/normalizer"
	"bulliondeals/pkg/utils"
)

// tableSection is a metal section of a price sheet, located by its header text.
type tableSection struct {
	header string
	metal  models.Metal
}

// TableAdapter reads a single price sheet split into metal sections, each
// listing rows of name, sell-back price and buy price.
type TableAdapter struct {
	base
	sections   []tableSection
	rowPattern *regexp.Regexp
	strings    *utils.StringHelper
}

// NewTableAdapter creates a new table adapter for dealer.
func NewTableAdapter(dealer config.DealerConfig, delay time.Duration) *TableAdapter {
	return &TableAdapter{
		base: base{dealer: dealer, delay: delay},
		sections: []tableSection{
			{header: "Gold Products", metal: models.MetalGold},
			{header: "Silver Products", metal: models.MetalSilver},
			{header: "Platinum Products", metal: models.MetalPlatinum},
		},
		rowPattern: regexp.MustCompile(`(?s)title="([^"]+)"[^>]*class="col-6 col-md-8 text-truncate".*?` +
			`class="col-3 col-md-2 text-end">([\d.]+)</div>.*?` +
			`class="col-3 col-md-2 text-end">([\d.]+)</div>`),
		strings: utils.NewStringHelper(),
	}
}

// Collect implements Adapter. Only the first configured page is read.
func (a *TableAdapter) Collect(ctx context.Context, fetch crawler.Fetcher) ([]models.Candidate, error) {
	pages, err := a.fetchPages(ctx, fetch, "")
	if err != nil {
		return nil, err
	}

	// fetchPages guarantees at least one page without an error.
	sheet, _ := lo.Find(pages, func(p crawler.Page) bool { return p.Err == nil })
	out := a.Parse(sheet.Body, sheet.URL)

	logger.FromContext(ctx).Debug("price sheet parsed", "url", sheet.URL, "candidates", len(out))

	return out, nil
}

// Parse extracts candidates from a price sheet fetched from pageURL.
func (a *TableAdapter) Parse(content, pageURL string) []models.Candidate {
	var out []models.Candidate

	for _, sec := range a.split(content) {
		for _, m := range a.rowPattern.FindAllStringSubmatch(sec.body, -1) {
			name, sell, buy := m[1], m[2], m[3]

			if _, ok := normalizer.ParsePrice(buy); !ok {
				continue
			}

			out = append(out, models.Candidate{
				Name:          a.strings.CleanText(name),
				MetalHint:     string(sec.metal),
				PriceText:     buy,
				SellPriceText: sell,
				URL:           pageURL,
				InStock:       true,
			})
		}
	}

	return out
}

type sectionBody struct {
	metal models.Metal
	body  string
}

// split cuts content at each section header found, in document order.
// Each section runs to the next found header or the end of content.
func (a *TableAdapter) split(content string) []sectionBody {
	type found struct {
		metal models.Metal
		start int
	}

	var starts []found

	for _, sec := range a.sections {
		if idx := strings.Index(content, sec.header); idx >= 0 {
			starts = append(starts, found{metal: sec.metal, start: idx})
		}
	}

	sort.SliceStable(starts, func(i, j int) bool { return starts[i].start < starts[j].start })

	out := make([]sectionBody, 0, len(starts))

	for i, s := range starts {
		end := len(content)
		if i+1 < len(starts) {
			end = starts[i+1].start
		}

		out = append(out, sectionBody{metal: s.metal, body: content[s.start:end]})
	}

	return out
}
