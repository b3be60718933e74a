// Package normalizer turns scraped listing text into canonical metal, weight, type and price values.
package normalizer

import (
	"regexp"
	"strconv"
	"strings"

	"bulliondeals/internal/models"
)

// Weight conversion constants.
const (
	GramsPerTroyOz = 31.1035
	GramsPerTael   = 37.5
	TroyOzPerGram  = 1 / GramsPerTroyOz
	TroyOzPerKg    = 1000 / GramsPerTroyOz
)

// UnitRule converts the first regexp match of a weight expression into troy ounces.
// Convert returns false when the captured text is not a usable number.
type UnitRule struct {
	Name    string
	Pattern *regexp.Regexp
	Convert func(match []string) (float64, bool)
}

// NamedWeight maps a literal product-name substring to a fixed weight.
type NamedWeight struct {
	Substring string
	WeightOz  float64
}

// TypeRule assigns Outcome when Match accepts the lower-cased name and category hint.
type TypeRule struct {
	Name    string
	Match   func(name, category string) bool
	Outcome models.ProductType
}

// MetalRule assigns Metal when Keyword appears in the lower-cased text.
type MetalRule struct {
	Keyword string
	Metal   models.Metal
}

// Rules is the immutable rule set used by the normalizer functions.
// Order inside each table is precedence: the first matching rule wins.
type Rules struct {
	Units        []UnitRule
	NamedWeights []NamedWeight
	Metals       []MetalRule
	DefaultMetal models.Metal
	Types        []TypeRule
	DefaultType  models.ProductType
}

// DefaultRules returns the production rule set. Each call builds a fresh value.
func DefaultRules() Rules {
	coins := []string{
		"coin", "kangaroo", "kookaburra", "koala", "lunar", "britannia",
		"eagle", "maple", "philharmonic", "buffalo", "krugerrand", "sovereign",
		"nugget", "dragon", "snake", "horse", "emu", "swan", "phoenix",
		"guardian", "proclamation", "olympics", "rectangular coin",
	}

	return Rules{
		Units: []UnitRule{
			{
				Name:    "fractional_oz",
				Pattern: regexp.MustCompile(`(\d+)/(\d+)\s*oz`),
				Convert: convertFraction,
			},
			{
				Name:    "oz",
				Pattern: regexp.MustCompile(`([\d.]+)\s*oz`),
				Convert: scaled(1),
			},
			{
				Name:    "kg",
				Pattern: regexp.MustCompile(`([\d.]+)\s*kg`),
				Convert: scaled(TroyOzPerKg),
			},
			{
				Name:    "gram",
				Pattern: regexp.MustCompile(`([\d.]+)\s*(?:gram|g\b)`),
				Convert: scaled(TroyOzPerGram),
			},
			{
				Name:    "tael",
				Pattern: regexp.MustCompile(`([\d.]+)\s*tael`),
				Convert: scaled(GramsPerTael * TroyOzPerGram),
			},
		},
		NamedWeights: []NamedWeight{
			{Substring: "maplegram25", WeightOz: 25 * TroyOzPerGram},
			{Substring: "maplegram 25", WeightOz: 25 * TroyOzPerGram},
		},
		Metals: []MetalRule{
			{Keyword: "platinum", Metal: models.MetalPlatinum},
			{Keyword: "silver", Metal: models.MetalSilver},
			{Keyword: "palladium", Metal: models.MetalPalladium},
			{Keyword: "gold", Metal: models.MetalGold},
		},
		DefaultMetal: models.MetalGold,
		Types: []TypeRule{
			{
				Name:    "unallocated",
				Match:   nameContainsAny("unalloc", "pool"),
				Outcome: models.TypeUnallocated,
			},
			{
				Name: "coin",
				Match: func(name, category string) bool {
					return containsAny(name, coins...) || strings.Contains(category, "coin")
				},
				Outcome: models.TypeCoin,
			},
			{
				Name:    "minted",
				Match:   nameContainsAny("minted", "tablet"),
				Outcome: models.TypeMintedBar,
			},
			{
				Name:    "round",
				Match:   nameContainsAny("round"),
				Outcome: models.TypeRound,
			},
			{
				Name:    "bar",
				Match:   nameContainsAny("bar", "bullion", "cast", "ingot"),
				Outcome: models.TypeBar,
			},
			{
				Name:    "category_cast",
				Match:   categoryContains("cast"),
				Outcome: models.TypeBar,
			},
			{
				Name:    "category_minted",
				Match:   categoryContains("minted"),
				Outcome: models.TypeMintedBar,
			},
		},
		DefaultType: models.TypeBar,
	}
}

func convertFraction(match []string) (float64, bool) {
	if len(match) < 3 {
		return 0, false
	}

	num, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	den, err := strconv.ParseFloat(match[2], 64)
	if err != nil || den == 0 {
		return 0, false
	}

	return num / den, true
}

func scaled(factor float64) func([]string) (float64, bool) {
	return func(match []string) (float64, bool) {
		if len(match) < 2 {
			return 0, false
		}

		val, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, false
		}

		return val * factor, true
	}
}

func nameContainsAny(keywords ...string) func(string, string) bool {
	return func(name, _ string) bool {
		return containsAny(name, keywords...)
	}
}

func categoryContains(keyword string) func(string, string) bool {
	return func(_, category string) bool {
		return strings.Contains(category, keyword)
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}

	return false
}
