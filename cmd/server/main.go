// Package main provides the HTTP API server over a periodically rebuilt catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bulliondeals/internal/catalog"
	"bulliondeals/internal/config"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/metrics"
	"bulliondeals/internal/server"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file (defaults apply when empty)")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	seed := flag.String("catalog", "", "Serve this catalog JSON until the first rebuild")

	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder, err := catalog.NewBuilderFromConfig(cfg,
		catalog.WithLogger(log),
		catalog.WithMetrics(metrics.NewRecorder(reg)))
	if err != nil {
		log.Error("❌ Failed to set up dealers", logger.Err(err))
		os.Exit(1)
	}

	snapshots := server.NewSnapshots(builder, cfg.Server.SnapshotTTL())

	if *seed != "" {
		cat, err := catalog.LoadFile(*seed)
		if err != nil {
			log.Error("❌ Failed to load seed catalog", logger.Err(err))
			os.Exit(1)
		}

		snapshots.Store(cat)
		log.Info("Seeded snapshot", "run_id", cat.RunID, "products", cat.TotalProducts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(snapshots, reg, cfg.Optimizer.BestOfLimit, log)
	if err := srv.Run(ctx, cfg.Server.Addr); err != nil {
		log.Error("❌ Server stopped", logger.Err(err))
		os.Exit(1)
	}
}
