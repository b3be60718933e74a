package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"bulliondeals/internal/models"
	"bulliondeals/pkg/utils"
)

// Transformer converts adapter candidates into products.
type Transformer struct {
	rules   Rules
	strings *utils.StringHelper
}

// Transformed is a product built from one candidate together with the
// classification decisions that fell back to a default.
type Transformed struct {
	Product        models.Product
	MetalDefaulted bool
	TypeDefaulted  bool
}

// NewTransformer creates a transformer using rules.
func NewTransformer(rules Rules) *Transformer {
	return &Transformer{
		rules:   rules,
		strings: utils.NewStringHelper(),
	}
}

// Transform normalizes c into a product of dealer. It returns a validation
// error when the weight or buy price is missing or not positive.
func (t *Transformer) Transform(dealer models.DealerInfo, c models.Candidate) (Transformed, error) {
	name := t.strings.NormalizeWhitespace(c.Name)

	weight, ok := t.rules.ParseWeight(name)
	if !ok {
		return Transformed{}, ErrMissingWeight
	}

	if weight <= 0 {
		return Transformed{}, ErrNonPositiveWeight
	}

	buy, ok := ParsePrice(c.PriceText)
	if !ok {
		return Transformed{}, ErrMissingBuyPrice
	}

	if !buy.IsPositive() {
		return Transformed{}, ErrNonPositivePrice
	}

	metal, metalDefaulted := t.metal(name, c.MetalHint)
	productType, typeDefaulted := t.rules.ClassifyType(name, c.CategoryHint)

	p := models.Product{
		DealerID:    dealer.ID,
		Dealer:      dealer.Name,
		Name:        name,
		Metal:       metal,
		Type:        productType,
		WeightOz:    models.RoundWeight(weight),
		BuyPrice:    decimal.NewNullDecimal(buy),
		URL:         c.URL,
		InStock:     c.InStock,
		VolumeTiers: c.VolumeTiers,
		SKU:         c.SKU,
	}

	if sell, ok := ParsePrice(c.SellPriceText); ok {
		p.SellBackPrice = decimal.NewNullDecimal(sell)
	}

	p.RecomputePricePerOz()

	return Transformed{
		Product:        p,
		MetalDefaulted: metalDefaulted,
		TypeDefaulted:  typeDefaulted,
	}, nil
}

// metal resolves the metal from an exact hint ("gold"), a free-text hint, or the name.
func (t *Transformer) metal(name, hint string) (models.Metal, bool) {
	hint = strings.TrimSpace(hint)

	if m := models.Metal(strings.ToLower(hint)); m.IsValid() {
		return m, false
	}

	if hint != "" {
		return t.rules.ClassifyMetal(hint)
	}

	return t.rules.ClassifyMetal(name)
}
