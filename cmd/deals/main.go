// Package main provides the deals command that queries a catalog file for the cheapest way to buy a weight.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/formatter"
	"bulliondeals/internal/models"
	"bulliondeals/internal/optimizer"
)

func main() {
	input := flag.String("input", "data/prices.json", "Catalog JSON path")
	metal := flag.String("metal", "gold", "Metal to buy (gold, silver, platinum, palladium)")
	target := flag.Float64("target", 1, "Target weight in troy ounces")
	limit := flag.Int("limit", optimizer.DefaultLimit, "Maximum options to print, 0 for all")
	bestOf := flag.Bool("best-of", false, "Print the standard best-of summaries instead of a single query")
	asJSON := flag.Bool("json", false, "Print JSON instead of a table")

	flag.Parse()

	cat, err := catalog.LoadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if *bestOf {
		summaries := optimizer.BestOf(cat, optimizer.DefaultTargets(), *limit)
		if *asJSON {
			exitOnErr(catalog.Encode(os.Stdout, summaries, true))

			return
		}

		for _, b := range summaries {
			fmt.Printf("%s\n\n%s\n\n", b.Label, table(b.Deals))
		}

		return
	}

	m := models.Metal(strings.ToLower(*metal))
	if !m.IsValid() {
		fmt.Fprintf(os.Stderr, "❌ Unknown metal %q\n", *metal)
		os.Exit(1)
	}

	deals := optimizer.FindBestDeals(cat, m, *target)
	if *limit > 0 && len(deals) > *limit {
		deals = deals[:*limit]
	}

	if *asJSON {
		exitOnErr(catalog.Encode(os.Stdout, deals, true))

		return
	}

	if len(deals) == 0 {
		fmt.Printf("No %s option within %.0f%% of %s.\n", m, optimizer.Tolerance*100, optimizer.FormatWeight(*target))

		return
	}

	fmt.Printf("%s %s (run %s)\n\n%s\n", optimizer.FormatWeight(*target), m, cat.RunID, table(deals))
}

func table(deals []models.DealOption) string {
	var sb strings.Builder

	sb.WriteString("| # | Buy | Product | Dealer | Total | Per oz |\n")
	sb.WriteString("| --- | --- | --- | --- | ---: | ---: |\n")

	for i, d := range deals {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s | %s |\n",
			i+1, d.Description, d.Product.Name, d.Product.Dealer,
			formatter.Money(d.TotalCost), formatter.Money(d.CostPerOz))
	}

	return formatter.AlignTables(strings.TrimRight(sb.String(), "\n"))
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
