package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunMetadata describes one catalog build.
type RunMetadata struct {
	RunID                  string     `json:"run_id"`
	ScrapedAt              time.Time  `json:"scraped_at"`
	TotalProducts          int        `json:"total_products"`
	DealersOK              []DealerID `json:"dealers"`
	DealersFailed          []DealerID `json:"dealers_failed"`
	Rejected               int        `json:"rejected"`
	ClassificationDefaults int        `json:"classification_defaults"`
}

// Catalog is the ordered, read-only product list of one run.
type Catalog struct {
	RunMetadata

	Products []Product `json:"products"`
}

// ByMetal returns the catalog products of the given metal, in catalog order.
func (c *Catalog) ByMetal(metal Metal) []Product {
	var out []Product

	for _, p := range c.Products {
		if p.Metal == metal {
			out = append(out, p)
		}
	}

	return out
}

// DealOption is one way of acquiring a target weight: Qty units of a single product.
type DealOption struct {
	Product      *Product        `json:"product"`
	Qty          int             `json:"qty"`
	UnitWeightOz float64         `json:"unit_weight_oz"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	AchievedOz   float64         `json:"achieved_oz"`
	CostPerOz    decimal.Decimal `json:"cost_per_oz"`
	Description  string          `json:"description"`
}

// DealTarget is a (metal, weight) query with a display label.
type DealTarget struct {
	Label    string  `json:"label"`
	Metal    Metal   `json:"metal"`
	TargetOz float64 `json:"target_oz"`
}

// BestOf holds the top options for one standard target.
// TargetLabel is the display form of TargetOz ("1oz", "1kg").
type BestOf struct {
	DealTarget

	TargetLabel string       `json:"target_label"`
	Deals       []DealOption `json:"deals"`
}
