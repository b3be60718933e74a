// Package main provides the worker command that scrapes, writes the catalog, and renders the report in one pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/config"
	"bulliondeals/internal/formatter"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/optimizer"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (defaults apply when empty)")
	dealers := flag.String("dealer", "", "Comma-separated dealer ids to scrape (default: all enabled)")
	output := flag.String("output", "", "Catalog JSON path (overrides config)")
	report := flag.String("report", "", "Markdown report path (overrides config)")

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

	if *output != "" {
		cfg.Output.CatalogPath = *output
	}

	if *report != "" {
		cfg.Output.ReportPath = *report
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("❌ Worker failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	start := time.Now()

	log.Info("🚀 Starting bullion worker", "dealers", len(cfg.EnabledDealers()))

	// Phase 1: scrape and normalize
	builder, err := catalog.NewBuilderFromConfig(cfg, catalog.WithLogger(log))
	if err != nil {
		return err
	}

	cat, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	if cat.TotalProducts == 0 {
		return fmt.Errorf("no products collected (failed dealers: %v)", cat.DealersFailed)
	}

	// Phase 2: catalog
	if err := catalog.WriteFile(cfg.Output.CatalogPath, cat, cfg.Output.PrettyPrint); err != nil {
		return err
	}

	// Phase 3: report
	bestOf := optimizer.BestOf(cat, optimizer.DefaultTargets(), cfg.Optimizer.BestOfLimit)

	if err := os.MkdirAll(filepath.Dir(cfg.Output.ReportPath), 0o755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}

	if err := os.WriteFile(cfg.Output.ReportPath, []byte(formatter.Report(cat, bestOf)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	log.Info("✨ Pipeline complete",
		"run_id", cat.RunID,
		"products", cat.TotalProducts,
		"dealers", cat.DealersOK,
		"failed", cat.DealersFailed,
		"rejected", cat.Rejected,
		"catalog", cfg.Output.CatalogPath,
		"report", cfg.Output.ReportPath,
		"duration", time.Since(start))

	return nil
}
