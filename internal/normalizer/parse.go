package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"bulliondeals/internal/models"
)

// ParseWeight extracts a weight in troy ounces from free text.
// Unit rules are tried in order and the first pattern that matches decides the
// result. Named weights are only consulted when no unit pattern matches.
func (r Rules) ParseWeight(text string) (float64, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, rule := range r.Units {
		match := rule.Pattern.FindStringSubmatch(lower)
		if match == nil {
			continue
		}

		return rule.Convert(match)
	}

	for _, nw := range r.NamedWeights {
		if strings.Contains(lower, nw.Substring) {
			return nw.WeightOz, true
		}
	}

	return 0, false
}

// ClassifyMetal picks the metal named in the given texts.
// The second result is true when no keyword matched and the default was used.
func (r Rules) ClassifyMetal(texts ...string) (models.Metal, bool) {
	lower := strings.ToLower(strings.Join(texts, " "))

	for _, rule := range r.Metals {
		if strings.Contains(lower, rule.Keyword) {
			return rule.Metal, false
		}
	}

	return r.DefaultMetal, true
}

// ClassifyType picks the product type of a listing from its name and dealer category.
// The second result is true when no rule matched and the default was used.
func (r Rules) ClassifyType(name, categoryHint string) (models.ProductType, bool) {
	lowerName := strings.ToLower(name)
	lowerCategory := strings.ToLower(categoryHint)

	for _, rule := range r.Types {
		if rule.Match(lowerName, lowerCategory) {
			return rule.Outcome, false
		}
	}

	return r.DefaultType, true
}

// MatchTypeRule returns the name of the type rule that decides the listing, or "" for the default.
func (r Rules) MatchTypeRule(name, categoryHint string) string {
	lowerName := strings.ToLower(name)
	lowerCategory := strings.ToLower(categoryHint)

	for _, rule := range r.Types {
		if rule.Match(lowerName, lowerCategory) {
			return rule.Name
		}
	}

	return ""
}

var priceStripper = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\n", "", "\u00a0", "") //nolint:gochecknoglobals

// ParsePrice parses a dealer price such as "$3,045.50".
// Malformed or empty text yields false.
func ParsePrice(text string) (decimal.Decimal, bool) {
	cleaned := priceStripper.Replace(strings.TrimSpace(text))
	if !strings.ContainsAny(cleaned, "0123456789") {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}

	return amount, true
}
