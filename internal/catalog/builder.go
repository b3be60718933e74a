// Package catalog runs the dealer adapters and merges their output into one catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"bulliondeals/internal/config"
	"bulliondeals/internal/crawler"
	"bulliondeals/internal/crawler/parsers"
	"bulliondeals/internal/logger"
	"bulliondeals/internal/metrics"
	"bulliondeals/internal/models"
	"bulliondeals/internal/normalizer"
)

// ErrAdapterTimeout marks an adapter that did not finish within its deadline.
var ErrAdapterTimeout = errors.New("adapter timed out")

// Builder produces catalogs from a fixed set of adapters.
type Builder struct {
	adapters []parsers.Adapter
	fetch    crawler.Fetcher
	timeout  time.Duration
	rules    normalizer.Rules
	metrics  *metrics.Recorder
	logger   *logger.Logger
	now      func() time.Time
	newRunID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithMetrics records adapter and normalization metrics on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = rec }
}

// WithLogger sets the builder logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRules replaces the default normalizer rules.
func WithRules(r normalizer.Rules) Option {
	return func(b *Builder) { b.rules = r }
}

// WithClock sets the time source for ScrapedAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithRunID sets the run id generator.
func WithRunID(gen func() string) Option {
	return func(b *Builder) { b.newRunID = gen }
}

// NewBuilder creates a builder running adapters through fetch, each bounded by timeout.
func NewBuilder(adapters []parsers.Adapter, fetch crawler.Fetcher, timeout time.Duration, opts ...Option) *Builder {
	b := &Builder{
		adapters: adapters,
		fetch:    fetch,
		timeout:  timeout,
		rules:    normalizer.DefaultRules(),
		logger:   logger.Nop(),
		now:      time.Now,
		newRunID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewBuilderFromConfig wires the enabled dealers of cfg to a retrying scraper.
func NewBuilderFromConfig(cfg *config.Config, opts ...Option) (*Builder, error) {
	adapters, err := parsers.NewAll(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}

	b := NewBuilder(adapters, nil, cfg.Crawler.AdapterTimeout(), opts...)
	if b.fetch == nil {
		b.fetch = crawler.NewScraperWithConfig(&cfg.Crawler, b.logger)
	}

	return b, nil
}

// WithFetcher replaces the fetcher chosen by NewBuilderFromConfig.
func WithFetcher(f crawler.Fetcher) Option {
	return func(b *Builder) { b.fetch = f }
}

// Build runs every adapter concurrently and merges the results. Adapter
// failures never fail the build; only cancellation of ctx does.
func (b *Builder) Build(ctx context.Context) (*models.Catalog, error) {
	results := b.Collect(ctx)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("catalog build cancelled: %w", err)
	}

	return b.BuildFrom(results), nil
}

// Collect runs every adapter concurrently and returns one result per adapter,
// in adapter order, once all have finished or timed out.
func (b *Builder) Collect(ctx context.Context) []models.SourceResult {
	results := make([]models.SourceResult, len(b.adapters))

	var g errgroup.Group

	for i, a := range b.adapters {
		i, a := i, a

		g.Go(func() error {
			results[i] = b.run(ctx, a)

			return nil
		})
	}

	_ = g.Wait()

	return results
}

type collected struct {
	candidates []models.Candidate
	err        error
}

func (b *Builder) run(ctx context.Context, a parsers.Adapter) models.SourceResult {
	dealer := a.Dealer()
	log := b.logger.With("dealer", dealer.ID)

	actx, cancel := context.WithTimeout(logger.WithContext(ctx, log), b.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan collected, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- collected{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()

		c, err := a.Collect(actx, b.fetch)
		done <- collected{candidates: c, err: err}
	}()

	var res collected

	select {
	case res = <-done:
	case <-actx.Done():
		res.err = fmt.Errorf("%w after %s: %w", ErrAdapterTimeout, b.timeout, actx.Err())
	}

	duration := time.Since(start)
	b.metrics.ObserveAdapter(string(dealer.ID), duration, res.err != nil)

	if res.err != nil {
		log.Error("adapter failed", "duration", duration, logger.Err(res.err))

		return models.SourceResult{Dealer: dealer, Err: res.err, Error: res.err.Error()}
	}

	log.Info("adapter finished", "candidates", len(res.candidates), "duration", duration)

	return models.SourceResult{Dealer: dealer, Candidates: res.candidates}
}

// BuildFrom normalizes adapter results into a catalog. Products keep result
// order, then candidate order; identical input yields identical products.
func (b *Builder) BuildFrom(results []models.SourceResult) *models.Catalog {
	proc := normalizer.NewProcessor(b.rules, b.metrics, b.logger)

	var (
		products = []models.Product{}
		failed   = []models.DealerID{}
		stats    normalizer.Stats
	)

	for _, r := range results {
		if r.Failed() {
			failed = append(failed, r.Dealer.ID)
			b.metrics.SetProducts(string(r.Dealer.ID), 0)

			continue
		}

		ps, st := proc.Process(r.Dealer, r.Candidates)
		stats.Add(st)
		b.metrics.SetProducts(string(r.Dealer.ID), len(ps))

		products = append(products, ps...)
	}

	contributing := lo.Uniq(lo.Map(products, func(p models.Product, _ int) models.DealerID {
		return p.DealerID
	}))

	cat := &models.Catalog{
		RunMetadata: models.RunMetadata{
			RunID:                  b.newRunID(),
			ScrapedAt:              b.now().UTC(),
			TotalProducts:          len(products),
			DealersOK:              contributing,
			DealersFailed:          failed,
			Rejected:               stats.Rejected,
			ClassificationDefaults: stats.Defaults(),
		},
		Products: products,
	}

	b.logger.Info("catalog built",
		"run_id", cat.RunID,
		"products", cat.TotalProducts,
		"dealers", cat.DealersOK,
		"failed", cat.DealersFailed,
		"rejected", stats.Rejected,
		"metal_defaults", stats.MetalDefaults,
		"type_defaults", stats.TypeDefaults,
	)

	return cat
}
