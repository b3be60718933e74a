// Package optimizer ranks the ways of buying a target weight of metal from a catalog.
package optimizer

import (
	"math"
	"slices"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"bulliondeals/internal/models"
)

// Tolerance is the largest relative gap between achieved and target weight.
const Tolerance = 0.01

// FindBestDeals returns every whole-unit purchase of a single product that
// lands within Tolerance of targetOz, cheapest total first. Ties keep catalog
// order. Only in-stock products with a buy price are considered. The result
// is not truncated.
func FindBestDeals(catalog *models.Catalog, metal models.Metal, targetOz float64) []models.DealOption {
	if catalog == nil || targetOz <= 0 || math.IsNaN(targetOz) || math.IsInf(targetOz, 0) {
		return nil
	}

	options := lo.FilterMap(catalog.Products, func(p models.Product, i int) (models.DealOption, bool) {
		if p.Metal != metal || !p.HasBuyPrice() || !p.InStock || p.WeightOz <= 0 {
			return models.DealOption{}, false
		}

		return option(&catalog.Products[i], targetOz)
	})

	slices.SortStableFunc(options, func(a, b models.DealOption) int {
		return a.TotalCost.Cmp(b.TotalCost)
	})

	return options
}

func option(p *models.Product, targetOz float64) (models.DealOption, bool) {
	qty := int(math.RoundToEven(targetOz / p.WeightOz))
	if qty < 1 {
		return models.DealOption{}, false
	}

	achieved := float64(qty) * p.WeightOz
	if math.Abs(achieved-targetOz)/targetOz > Tolerance {
		return models.DealOption{}, false
	}

	unit := p.BuyPrice.Decimal
	total := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	return models.DealOption{
		Product:      p,
		Qty:          qty,
		UnitWeightOz: p.WeightOz,
		UnitPrice:    unit,
		TotalCost:    total,
		AchievedOz:   models.RoundWeight(achieved),
		CostPerOz:    total.Div(decimal.NewFromFloat(achieved)).Round(2),
		Description:  Describe(qty, p.WeightOz),
	}, true
}

// Describe renders a purchase such as "2 × 1/2oz", or just the weight for one unit.
func Describe(qty int, unitOz float64) string {
	if qty > 1 {
		return strconv.Itoa(qty) + " × " + FormatWeight(unitOz)
	}

	return FormatWeight(unitOz)
}
