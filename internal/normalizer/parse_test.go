package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulliondeals/internal/models"
)

func TestParseWeight(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"fractional ounce", "1/2oz Gold Kangaroo", 0.5},
		{"tenth ounce", "1/10 oz Lunar Coin", 0.1},
		{"whole ounce", "1oz Gold Bar", 1.0},
		{"decimal ounce", "2.5 oz Silver Round", 2.5},
		{"kilogram", "1kg Cast Bar", 32.150723},
		{"grams", "100g Minted Bar", 3.215072},
		{"gram word", "5 gram tablet", 0.160754},
		{"tael as grams", "37.5g Gold Bar", 1.205652},
		{"tael unit", "1 tael Gold Bar", 1.205652},
		{"upper case", "10OZ SILVER BAR", 10},
		{"named weight", "Maplegram25 Gold", 25 / GramsPerTroyOz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rules.ParseWeight(tt.text)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestParseWeight_NoMatch(t *testing.T) {
	rules := DefaultRules()

	for _, text := range []string{"", "Gold Bar", "Silver Kookaburra", "1.2.3oz bar"} {
		_, ok := rules.ParseWeight(text)
		assert.False(t, ok, text)
	}
}

func TestParseWeight_FirstUnitWins(t *testing.T) {
	rules := DefaultRules()

	// "oz" precedes "g", so the ounce figure decides.
	got, ok := rules.ParseWeight("1oz (31.1g) Gold Bar")
	require.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestParseWeight_CustomRules(t *testing.T) {
	rules := DefaultRules()
	rules.NamedWeights = []NamedWeight{{Substring: "mystery", WeightOz: 7}}

	got, ok := rules.ParseWeight("Mystery Box")
	require.True(t, ok)
	assert.InDelta(t, 7.0, got, 1e-9)

	_, ok = DefaultRules().ParseWeight("Mystery Box")
	assert.False(t, ok)
}

func TestClassifyMetal(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		text      string
		want      models.Metal
		defaulted bool
	}{
		{"1oz Platinum Bar", models.MetalPlatinum, false},
		{"1kg Silver Bar", models.MetalSilver, false},
		{"1oz Palladium Maple", models.MetalPalladium, false},
		{"1oz Kangaroo", models.MetalGold, true},
		{"Australian Kangaroo 2025 1oz Gold Bullion Coin", models.MetalGold, false},
		{"Gold and Silver Set", models.MetalSilver, false},
		{"Silver Platinum Pair", models.MetalPlatinum, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, defaulted := rules.ClassifyMetal(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.defaulted, defaulted)
		})
	}
}

func TestClassifyType(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name     string
		category string
		want     models.ProductType
		rule     string
	}{
		{"1oz Kangaroo Coin", "", models.TypeCoin, "coin"},
		{"1kg Cast Bar", "", models.TypeBar, "bar"},
		{"10oz Minted Bar", "", models.TypeMintedBar, "minted"},
		{"1oz Kangaroo Bar", "", models.TypeCoin, "coin"},
		{"Unallocated Gold Coin Pool", "", models.TypeUnallocated, "unallocated"},
		{"1oz Silver Round", "", models.TypeRound, "round"},
		{"5g Gold Tablet", "", models.TypeMintedBar, "minted"},
		{"1oz Perth Mint Gold", "coins", models.TypeCoin, "coin"},
		{"1oz Perth Mint Gold", "cast_bars", models.TypeBar, "category_cast"},
		{"1oz Perth Mint Gold", "minted_bars", models.TypeMintedBar, "category_minted"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.category, func(t *testing.T) {
			got, defaulted := rules.ClassifyType(tt.name, tt.category)
			assert.Equal(t, tt.want, got)
			assert.False(t, defaulted)
			assert.Equal(t, tt.rule, rules.MatchTypeRule(tt.name, tt.category))
		})
	}
}

func TestClassifyType_Default(t *testing.T) {
	rules := DefaultRules()

	got, defaulted := rules.ClassifyType("1oz Gold Ainslie", "")
	assert.Equal(t, models.TypeBar, got)
	assert.True(t, defaulted)
	assert.Empty(t, rules.MatchTypeRule("1oz Gold Ainslie", ""))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"$3,045.50", "3045.5", true},
		{" 52.10 ", "52.1", true},
		{"1 234.00", "1234", true},
		{" $99", "99", true},
		{"", "0", false},
		{"$", "0", false},
		{".", "0", false},
		{"POA", "0", false},
		{"12.3.4", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParsePrice(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
