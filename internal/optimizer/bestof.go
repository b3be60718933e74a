package optimizer

import (
	"github.com/samber/lo"

	"bulliondeals/internal/models"
	"bulliondeals/internal/normalizer"
)

// DefaultLimit is the number of options kept per best-of target.
const DefaultLimit = 5

// DefaultTargets returns the standard best-of queries.
func DefaultTargets() []models.DealTarget {
	return []models.DealTarget{
		{Label: "1oz Gold", Metal: models.MetalGold, TargetOz: 1},
		{Label: "1kg Gold", Metal: models.MetalGold, TargetOz: normalizer.TroyOzPerKg},
		{Label: "1oz Silver", Metal: models.MetalSilver, TargetOz: 1},
		{Label: "10oz Silver", Metal: models.MetalSilver, TargetOz: 10},
		{Label: "1kg Silver", Metal: models.MetalSilver, TargetOz: normalizer.TroyOzPerKg},
		{Label: "1oz Platinum", Metal: models.MetalPlatinum, TargetOz: 1},
	}
}

// BestOf runs FindBestDeals for each target and keeps the first limit options.
// Targets without any option are left out. A limit below 1 selects DefaultLimit.
func BestOf(catalog *models.Catalog, targets []models.DealTarget, limit int) []models.BestOf {
	if limit < 1 {
		limit = DefaultLimit
	}

	return lo.FilterMap(targets, func(t models.DealTarget, _ int) (models.BestOf, bool) {
		deals := FindBestDeals(catalog, t.Metal, t.TargetOz)
		if len(deals) == 0 {
			return models.BestOf{}, false
		}

		return models.BestOf{
			DealTarget:  t,
			TargetLabel: FormatWeight(t.TargetOz),
			Deals:       deals[:min(limit, len(deals))],
		}, true
	})
}

// Savings is how much cheaper the best option is than the runner-up, and
// false when there is no runner-up.
func Savings(b models.BestOf) (float64, bool) {
	if len(b.Deals) < 2 {
		return 0, false
	}

	return b.Deals[1].TotalCost.Sub(b.Deals[0].TotalCost).InexactFloat64(), true
}
