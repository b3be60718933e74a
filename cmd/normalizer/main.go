// Package main provides the normalizer command that rebuilds a catalog from raw adapter results.
package main

import (
	"flag"
	"fmt"
	"os"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/config"
	"bulliondeals/internal/logger"
)

func main() {
	input := flag.String("input", "", "Adapter results JSON written by crawler -dump")
	output := flag.String("output", "-", "Output catalog JSON path, - for stdout")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	level := flag.String("log-level", "info", "Log level")

	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: normalizer -input <results.json> [-output <catalog.json>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logger.NewLogger(*level)

	f, err := os.Open(*input)
	if err != nil {
		log.Error("❌ Failed to open input", logger.Err(err))
		os.Exit(1)
	}

	results, err := catalog.ReadResults(f)
	_ = f.Close()

	if err != nil {
		log.Error("❌ Failed to read adapter results", logger.Err(err))
		os.Exit(1)
	}

	cat := catalog.NewBuilder(nil, nil, config.Default().Crawler.AdapterTimeout(), catalog.WithLogger(log)).
		BuildFrom(results)

	if err := catalog.WriteFile(*output, cat, *pretty); err != nil {
		log.Error("❌ Failed to write catalog", logger.Err(err))
		os.Exit(1)
	}

	log.Info("✅ Normalized", "products", cat.TotalProducts, "rejected", cat.Rejected,
		"classification_defaults", cat.ClassificationDefaults)
}
