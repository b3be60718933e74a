// Package main provides the crawler command that scrapes every enabled dealer into a catalog file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/config"
	"bulliondeals/internal/logger"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (defaults apply when empty)")
	output := flag.String("output", "", "Output catalog JSON path, - for stdout (overrides config)")
	dealers := flag.String("dealer", "", "Comma-separated dealer ids to scrape (default: all enabled)")
	pretty := flag.Bool("pretty", false, "Indent the JSON output")
	dump := flag.String("dump", "", "Also write the raw adapter results to this path")
	saveConfig := flag.String("save-config", "", "Write the effective configuration to this YAML path and exit")

	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	cfg, err = cfg.Select(config.ParseIDs(*dealers)...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if *saveConfig != "" {
		if err := cfg.SaveConfig(*saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("✅ Configuration written to %s\n", *saveConfig)

		return
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if *output == "" {
		*output = cfg.Output.CatalogPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := catalog.NewBuilderFromConfig(cfg, catalog.WithLogger(log))
	if err != nil {
		log.Error("❌ Failed to set up dealers", logger.Err(err))
		os.Exit(1)
	}

	log.Info("🚀 Scraping dealers", "dealers", len(cfg.EnabledDealers()))

	results := builder.Collect(ctx)
	if ctx.Err() != nil {
		log.Error("❌ Scrape cancelled", logger.Err(ctx.Err()))
		os.Exit(1)
	}

	if *dump != "" {
		if err := catalog.WriteFile(*dump, results, true); err != nil {
			log.Error("❌ Failed to write adapter dump", logger.Err(err))
			os.Exit(1)
		}
	}

	cat := builder.BuildFrom(results)

	if err := catalog.WriteFile(*output, cat, *pretty || cfg.Output.PrettyPrint); err != nil {
		log.Error("❌ Failed to write catalog", logger.Err(err))
		os.Exit(1)
	}

	log.Info("✅ Catalog written",
		"path", *output,
		"products", cat.TotalProducts,
		"dealers", cat.DealersOK,
		"failed", cat.DealersFailed)

	if cat.TotalProducts == 0 {
		log.Error("❌ No products were collected")
		os.Exit(1)
	}
}
