package formatter

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"bulliondeals/internal/models"
	"bulliondeals/internal/optimizer"
	"bulliondeals/pkg/metadata"
)

const noValue = "-"

var metalTitles = map[models.Metal]string{ //nolint:gochecknoglobals // skip
	models.MetalGold:      "Gold",
	models.MetalSilver:    "Silver",
	models.MetalPlatinum:  "Platinum",
	models.MetalPalladium: "Palladium",
}

// Report renders the catalog and its best-of summaries as a signed markdown document.
func Report(catalog *models.Catalog, bestOf []models.BestOf) string {
	var sb strings.Builder

	sb.WriteString("# Bullion Prices\n\n")
	writeSummary(&sb, catalog)

	if len(bestOf) > 0 {
		sb.WriteString("## Best Deals\n\n")

		for _, b := range bestOf {
			writeBestOf(&sb, b)
		}
	}

	for _, metal := range models.Metals() {
		products := catalog.ByMetal(metal)
		if len(products) == 0 {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n\n", metalTitles[metal])
		writeProducts(&sb, products)
	}

	return metadata.Sign(AlignTables(sb.String()), metadata.Metadata{
		RunID:     catalog.RunID,
		ScrapedAt: catalog.ScrapedAt,
		Products:  catalog.TotalProducts,
	})
}

func writeSummary(sb *strings.Builder, catalog *models.Catalog) {
	fmt.Fprintf(sb, "Scraped %s. %d products from %s.\n\n",
		catalog.ScrapedAt.UTC().Format("2 Jan 2006 15:04 MST"),
		catalog.TotalProducts,
		joinDealers(catalog.DealersOK))

	if len(catalog.DealersFailed) > 0 {
		fmt.Fprintf(sb, "Unavailable this run: %s.\n\n", joinDealers(catalog.DealersFailed))
	}
}

func joinDealers(ids []models.DealerID) string {
	if len(ids) == 0 {
		return "no dealers"
	}

	return strings.Join(lo.Map(ids, func(id models.DealerID, _ int) string { return string(id) }), ", ")
}

func writeBestOf(sb *strings.Builder, b models.BestOf) {
	fmt.Fprintf(sb, "### %s\n\n", b.Label)
	sb.WriteString("| # | Buy | Product | Dealer | Total | Per oz |\n")
	sb.WriteString("| --- | --- | --- | --- | ---: | ---: |\n")

	for i, d := range b.Deals {
		fmt.Fprintf(sb, "| %d | %s | %s | %s | %s | %s |\n",
			i+1,
			escapeCell(d.Description),
			link(d.Product.Name, d.Product.URL),
			escapeCell(d.Product.Dealer),
			Money(d.TotalCost),
			Money(d.CostPerOz))
	}

	if saved, ok := optimizer.Savings(b); ok && saved > 0 {
		fmt.Fprintf(sb, "\nThe best option saves %s over the next cheapest.\n",
			Money(decimal.NewFromFloat(saved)))
	}

	sb.WriteString("\n")
}

func writeProducts(sb *strings.Builder, products []models.Product) {
	slices.SortStableFunc(products, byPricePerOz)

	best := cheapestPerOz(products)

	sb.WriteString("| Product | Dealer | Type | Weight | Price | Per oz | Stock |\n")
	sb.WriteString("| --- | --- | --- | --- | ---: | ---: | --- |\n")

	for _, p := range products {
		fmt.Fprintf(sb, "| %s | %s | %s | %s | %s | %s | %s |\n",
			link(p.Name, p.URL),
			escapeCell(p.Dealer),
			p.Type.Label(),
			optimizer.FormatWeight(p.WeightOz),
			nullMoney(p.BuyPrice),
			perOzCell(p, best),
			lo.Ternary(p.InStock, "yes", "no"))
	}

	sb.WriteString("\n")
}

type offerGroup struct {
	kind     models.ProductType
	weightOz float64
}

type groupBest struct {
	pricePerOz decimal.Decimal
	size       int
}

// cheapestPerOz finds the lowest price per ounce of each type and weight among products of one metal.
func cheapestPerOz(products []models.Product) map[offerGroup]groupBest {
	best := make(map[offerGroup]groupBest)

	for _, p := range products {
		key := offerGroup{kind: p.Type, weightOz: p.WeightOz}
		g := best[key]
		g.size++

		if p.PricePerOz.Valid && (g.pricePerOz.IsZero() || p.PricePerOz.Decimal.LessThan(g.pricePerOz)) {
			g.pricePerOz = p.PricePerOz.Decimal
		}

		best[key] = g
	}

	return best
}

// perOzCell bolds the cheapest price per ounce of a group with more than one product.
func perOzCell(p models.Product, best map[offerGroup]groupBest) string {
	g := best[offerGroup{kind: p.Type, weightOz: p.WeightOz}]
	if p.PricePerOz.Valid && g.size > 1 && p.PricePerOz.Decimal.Equal(g.pricePerOz) {
		return "**" + Money(p.PricePerOz.Decimal) + "**"
	}

	return nullMoney(p.PricePerOz)
}

// byPricePerOz orders priced products first, cheapest per ounce first.
func byPricePerOz(a, b models.Product) int {
	switch {
	case a.PricePerOz.Valid && b.PricePerOz.Valid:
		return a.PricePerOz.Decimal.Cmp(b.PricePerOz.Decimal)
	case a.PricePerOz.Valid:
		return -1
	case b.PricePerOz.Valid:
		return 1
	}

	return cmp.Compare(a.Name, b.Name)
}

// Money renders an amount as dollars with thousands separators, e.g. "$3,000.00".
func Money(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + "$" + whole + "." + frac
	}

	return sign + "$" + groupThousands(n) + "." + frac
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var sb strings.Builder

	head := len(s) % 3
	if head > 0 {
		sb.WriteString(s[:head])
	}

	for i := head; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(",")
		}

		sb.WriteString(s[i : i+3])
	}

	return sb.String()
}

func nullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return noValue
	}

	return Money(d.Decimal)
}

// escapeCell keeps a pipe inside a value from splitting the table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}

func link(name, url string) string {
	if url == "" {
		return escapeCell(name)
	}

	return "[" + escapeCell(name) + "](" + url + ")"
}
