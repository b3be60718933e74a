package optimizer

import (
	"fmt"
	"math"

	"bulliondeals/internal/normalizer"
)

type fraction struct {
	oz    float64
	label string
}

type gramMark struct {
	grams, tolerance float64
	label            string
}

// FormatWeight renders a troy-ounce weight the way dealers name it:
// whole ounces, common fractions, then gram and kilogram sizes.
func FormatWeight(oz float64) string {
	if oz >= 1 && math.Abs(oz-math.Round(oz)) < 0.001 {
		return fmt.Sprintf("%doz", int(math.Round(oz)))
	}

	for _, f := range []fraction{
		{0.5, "1/2oz"},
		{0.25, "1/4oz"},
		{0.1, "1/10oz"},
		{0.01, "1/100oz"},
	} {
		if math.Abs(oz-f.oz) < 0.001 {
			return f.label
		}
	}

	grams := oz * normalizer.GramsPerTroyOz
	if grams < 31 && math.Abs(grams-math.Round(grams)) < 0.1 {
		return fmt.Sprintf("%dg", int(math.Round(grams)))
	}

	for _, m := range []gramMark{
		{37.5, 0.5, "37.5g (tael)"},
		{100, 1, "100g"},
		{250, 1, "250g"},
		{500, 1, "500g"},
		{1000, 5, "1kg"},
		{5000, 10, "5kg"},
		{15000, 50, "15kg"},
	} {
		if math.Abs(grams-m.grams) < m.tolerance {
			return m.label
		}
	}

	return fmt.Sprintf("%.2foz", oz)
}
