package normalizer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulliondeals/internal/logger"
	"bulliondeals/internal/models"
)

var testDealer = models.DealerInfo{ID: models.DealerABC, Name: "ABC Bullion", URL: "https://www.abcbullion.com.au"}

type recordingObserver struct {
	rejects  map[string]int
	defaults map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{rejects: map[string]int{}, defaults: map[string]int{}}
}

func (o *recordingObserver) ObserveReject(_, reason string) { o.rejects[reason]++ }
func (o *recordingObserver) ObserveDefault(_, kind string)  { o.defaults[kind]++ }

func TestTransformer_Transform(t *testing.T) {
	tr := NewTransformer(DefaultRules())

	out, err := tr.Transform(testDealer, models.Candidate{
		Name:          "  1oz   Silver\nKookaburra ",
		PriceText:     "$55.20",
		SellPriceText: "48.10",
		URL:           "https://www.abcbullion.com.au/store/kookaburra",
		InStock:       true,
		SKU:           "KOOK1",
	})
	require.NoError(t, err)

	p := out.Product
	assert.Equal(t, "1oz Silver Kookaburra", p.Name)
	assert.Equal(t, models.MetalSilver, p.Metal)
	assert.Equal(t, models.TypeCoin, p.Type)
	assert.InDelta(t, 1.0, p.WeightOz, 0)
	assert.Equal(t, "55.2", p.BuyPrice.Decimal.String())
	assert.Equal(t, "48.1", p.SellBackPrice.Decimal.String())
	assert.Equal(t, "55.2", p.PricePerOz.Decimal.String())
	assert.Equal(t, models.DealerABC, p.DealerID)
	assert.Equal(t, "ABC Bullion", p.Dealer)
	assert.False(t, out.MetalDefaulted)
	assert.False(t, out.TypeDefaulted)
}

func TestTransformer_RoundsWeightAndPricePerOz(t *testing.T) {
	tr := NewTransformer(DefaultRules())

	out, err := tr.Transform(testDealer, models.Candidate{Name: "100g Gold Cast Bar", PriceText: "14,000"})
	require.NoError(t, err)

	assert.InDelta(t, 3.2151, out.Product.WeightOz, 0)

	want := decimal.NewFromInt(14000).Div(decimal.NewFromFloat(3.2151)).Round(2)
	assert.True(t, want.Equal(out.Product.PricePerOz.Decimal), out.Product.PricePerOz.Decimal.String())
	assert.False(t, out.Product.SellBackPrice.Valid)
}

func TestTransformer_MetalHint(t *testing.T) {
	tr := NewTransformer(DefaultRules())

	out, err := tr.Transform(testDealer, models.Candidate{Name: "1oz Kangaroo", MetalHint: "silver", PriceText: "60"})
	require.NoError(t, err)
	assert.Equal(t, models.MetalSilver, out.Product.Metal)
	assert.False(t, out.MetalDefaulted)

	out, err = tr.Transform(testDealer, models.Candidate{Name: "1oz Kangaroo", MetalHint: "Platinum Coins", PriceText: "1600"})
	require.NoError(t, err)
	assert.Equal(t, models.MetalPlatinum, out.Product.Metal)

	out, err = tr.Transform(testDealer, models.Candidate{Name: "1oz Kangaroo", PriceText: "3000"})
	require.NoError(t, err)
	assert.Equal(t, models.MetalGold, out.Product.Metal)
	assert.True(t, out.MetalDefaulted)
}

func TestTransformer_Rejects(t *testing.T) {
	tr := NewTransformer(DefaultRules())

	tests := []struct {
		name string
		c    models.Candidate
		want error
	}{
		{"no weight", models.Candidate{Name: "Gold Bar", PriceText: "100"}, ErrMissingWeight},
		{"zero weight", models.Candidate{Name: "0oz Gold Bar", PriceText: "100"}, ErrNonPositiveWeight},
		{"no price", models.Candidate{Name: "1oz Gold Bar", PriceText: ""}, ErrMissingBuyPrice},
		{"bad price", models.Candidate{Name: "1oz Gold Bar", PriceText: "call"}, ErrMissingBuyPrice},
		{"zero price", models.Candidate{Name: "1oz Gold Bar", PriceText: "0.00"}, ErrNonPositivePrice},
		{"negative price", models.Candidate{Name: "1oz Gold Bar", PriceText: "-5"}, ErrNonPositivePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Transform(testDealer, tt.c)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator()

	p := models.Product{
		DealerID: models.DealerAinslie,
		Name:     "1oz Gold Bar",
		Metal:    models.MetalGold,
		Type:     models.TypeBar,
		WeightOz: 1,
		BuyPrice: decimal.NewNullDecimal(decimal.NewFromInt(3000)),
	}
	require.NoError(t, v.Validate(&p))

	bad := p
	bad.Metal = "copper"
	err := v.Validate(&bad)
	require.ErrorIs(t, err, ErrInvalidProduct)
	assert.Equal(t, "invalid_product", RejectReason(err))

	bad = p
	bad.WeightOz = 0
	require.ErrorIs(t, v.Validate(&bad), ErrInvalidProduct)

	bad = p
	bad.BuyPrice = decimal.NullDecimal{}
	require.ErrorIs(t, v.Validate(&bad), ErrMissingBuyPrice)
}

func TestProcessor_Process(t *testing.T) {
	obs := newRecordingObserver()
	p := NewProcessor(DefaultRules(), obs, nil)

	candidates := []models.Candidate{
		{Name: "1oz Gold Kangaroo", PriceText: "3,100.00", InStock: true},
		{Name: "Gold Bar", PriceText: "3,000.00"},
		{Name: "1oz Gold Ainslie", PriceText: "3,050.00"},
		{Name: "1kg Silver Cast Bar", PriceText: ""},
		{Name: "10oz Silver Bar", MetalHint: "silver", PriceText: "520"},
	}

	products, stats := p.Process(testDealer, candidates)

	require.Len(t, products, 3)
	assert.Equal(t, "1oz Gold Kangaroo", products[0].Name)
	assert.Equal(t, "1oz Gold Ainslie", products[1].Name)
	assert.Equal(t, "10oz Silver Bar", products[2].Name)

	assert.Equal(t, Stats{Accepted: 3, Rejected: 2, TypeDefaults: 1}, stats)
	assert.Equal(t, 1, stats.Defaults())
	assert.Equal(t, map[string]int{"missing_weight": 1, "missing_price": 1}, obs.rejects)
	assert.Equal(t, map[string]int{"type": 1}, obs.defaults)
}

func TestProcessor_TruncatesLoggedNames(t *testing.T) {
	var buf bytes.Buffer

	p := NewProcessor(DefaultRules(), nil, logger.New("debug", logger.FormatJSON, &buf))

	long := "Gold " + strings.Repeat("x", 200)
	_, stats := p.Process(testDealer, []models.Candidate{{Name: long, PriceText: "3000"}})

	assert.Equal(t, 1, stats.Rejected)
	assert.Contains(t, buf.String(), `"reason":"missing_weight"`)
	assert.Contains(t, buf.String(), long[:maxLoggedName]+"...")
	assert.NotContains(t, buf.String(), long)
}

func TestProcessor_Deterministic(t *testing.T) {
	p := NewProcessor(DefaultRules(), nil, nil)

	candidates := []models.Candidate{
		{Name: "37.5g Gold Bar", PriceText: "3,612.40"},
		{Name: "1/4oz Gold Lunar", PriceText: "812.77"},
	}

	first, _ := p.Process(testDealer, candidates)
	second, _ := p.Process(testDealer, candidates)

	assert.Equal(t, first, second)
}

func TestStats_Add(t *testing.T) {
	total := Stats{Accepted: 1}
	total.Add(Stats{Accepted: 2, Rejected: 3, MetalDefaults: 1, TypeDefaults: 4})

	assert.Equal(t, Stats{Accepted: 3, Rejected: 3, MetalDefaults: 1, TypeDefaults: 4}, total)
}
