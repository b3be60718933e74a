// Package models defines the catalog, candidate, and deal types shared by the pipeline.
package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// Metal is a precious metal tracked by the catalog.
type Metal string

// Supported metals.
const (
	MetalGold      Metal = "gold"
	MetalSilver    Metal = "silver"
	MetalPlatinum  Metal = "platinum"
	MetalPalladium Metal = "palladium"
)

// Metals lists every supported metal in display order.
func Metals() []Metal {
	return []Metal{MetalGold, MetalSilver, MetalPlatinum, MetalPalladium}
}

// IsValid reports whether m is one of the supported metals.
func (m Metal) IsValid() bool {
	switch m {
	case MetalGold, MetalSilver, MetalPlatinum, MetalPalladium:
		return true
	}

	return false
}

// ProductType is the physical form of a listing.
type ProductType string

// Supported product types.
const (
	TypeBar         ProductType = "bar"
	TypeCoin        ProductType = "coin"
	TypeRound       ProductType = "round"
	TypeMintedBar   ProductType = "minted_bar"
	TypeUnallocated ProductType = "unallocated"
)

// IsValid reports whether t is one of the supported product types.
func (t ProductType) IsValid() bool {
	switch t {
	case TypeBar, TypeCoin, TypeRound, TypeMintedBar, TypeUnallocated:
		return true
	}

	return false
}

// Label returns the human-readable name of the product type.
func (t ProductType) Label() string {
	switch t {
	case TypeBar:
		return "Bar"
	case TypeCoin:
		return "Coin"
	case TypeRound:
		return "Round"
	case TypeMintedBar:
		return "Minted Bar"
	case TypeUnallocated:
		return "Unallocated"
	}

	return string(t)
}

// VolumeTier is one quantity band of a dealer's volume pricing table.
// MaxQty is nil for the open-ended top tier.
type VolumeTier struct {
	MinQty int             `json:"min_qty"`
	MaxQty *int            `json:"max_qty"`
	Price  decimal.Decimal `json:"price"`
}

// Product is one normalized listing. Products are built once per run and never mutated.
type Product struct {
	DealerID      DealerID            `json:"dealer_id" validate:"required"`
	Dealer        string              `json:"dealer"`
	Name          string              `json:"name" validate:"required"`
	Metal         Metal               `json:"metal" validate:"required,oneof=gold silver platinum palladium"`
	Type          ProductType         `json:"type" validate:"required,oneof=bar coin round minted_bar unallocated"`
	WeightOz      float64             `json:"weight_oz" validate:"gt=0"`
	BuyPrice      decimal.NullDecimal `json:"buy_price"`
	SellBackPrice decimal.NullDecimal `json:"sell_back_price"`
	PricePerOz    decimal.NullDecimal `json:"price_per_oz"`
	URL           string              `json:"url"`
	InStock       bool                `json:"in_stock"`
	VolumeTiers   []VolumeTier        `json:"volume_tiers,omitempty"`
	SKU           string              `json:"sku,omitempty"`
}

// HasBuyPrice reports whether the product carries a buy price.
func (p *Product) HasBuyPrice() bool {
	return p.BuyPrice.Valid
}

// RecomputePricePerOz derives PricePerOz from BuyPrice and WeightOz, rounded to cents.
func (p *Product) RecomputePricePerOz() {
	if !p.BuyPrice.Valid || p.WeightOz <= 0 {
		p.PricePerOz = decimal.NullDecimal{}

		return
	}

	perOz := p.BuyPrice.Decimal.Div(decimal.NewFromFloat(p.WeightOz)).Round(2)
	p.PricePerOz = decimal.NewNullDecimal(perOz)
}

// RoundWeight rounds a troy-ounce weight to the 4 decimals stored on a Product.
func RoundWeight(oz float64) float64 {
	return math.Round(oz*10000) / 10000
}
