// Package config provides configuration management for the bullion crawler.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bulliondeals/internal/models"
)

// Configuration validation errors.
var (
	ErrNoDealers                = errors.New("at least one dealer is required")
	ErrNoEnabledDealers         = errors.New("at least one dealer must be enabled")
	ErrDuplicateDealer          = errors.New("dealer id is configured twice")
	ErrUnknownDealer            = errors.New("unknown dealer")
	ErrInvalidDealer            = errors.New("invalid dealer config")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidAdapterTimeout    = errors.New("crawler.adapter_timeout must be positive")
	ErrInvalidPolitenessDelay   = errors.New("crawler.politeness_delay must be non-negative")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidBestOfLimit       = errors.New("optimizer.best_of_limit must be at least 1")
	ErrInvalidSnapshotTTL       = errors.New("server.snapshot_ttl_sec must be at least 1")
)

// Adapter formats.
const (
	FormatTable = "table"
	FormatGrid  = "grid"
	FormatAPI   = "api"
)

// Config represents the complete configuration.
type Config struct {
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// CrawlerConfig contains crawler-specific settings.
type CrawlerConfig struct {
	Dealers           []DealerConfig `yaml:"dealers"`
	Retry             RetryPolicy    `yaml:"retry"`
	AdapterTimeoutSec int            `yaml:"adapter_timeout_sec"`
	PolitenessDelayMs int            `yaml:"politeness_delay_ms"`
	BufferSizeKb      int            `yaml:"buffer_size_kb"`
	UserAgent         string         `yaml:"user_agent"`
}

// DealerConfig describes one upstream dealer and how to scrape it.
type DealerConfig struct {
	ID      models.DealerID `yaml:"id" validate:"required"`
	Name    string          `yaml:"name" validate:"required"`
	Format  string          `yaml:"format" validate:"oneof=table grid api"`
	URL     string          `yaml:"url" validate:"required,url"`
	Pages   []PageConfig    `yaml:"pages" validate:"min=1,dive"`
	Enabled bool            `yaml:"enabled"`
}

// PageConfig is one page fetched by a dealer adapter. Label carries the
// metal (grid) or category (api) the page lists.
type PageConfig struct {
	URL   string `yaml:"url" validate:"required,url"`
	Label string `yaml:"label"`
}

// Info returns the dealer identity carried into products.
func (d *DealerConfig) Info() models.DealerInfo {
	return models.DealerInfo{ID: d.ID, Name: d.Name, URL: d.URL}
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where catalog and report files are written.
type OutputConfig struct {
	CatalogPath string `yaml:"catalog_path"`
	ReportPath  string `yaml:"report_path"`
	PrettyPrint bool   `yaml:"pretty_print"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig defines the HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	SnapshotTTLSec int    `yaml:"snapshot_ttl_sec"`
}

// OptimizerConfig tunes deal presentation.
type OptimizerConfig struct {
	BestOfLimit int `yaml:"best_of_limit"`
}

// envOverrides are read from the process environment (and .env) after the YAML file.
type envOverrides struct {
	LogLevel        string        `env:"BULLION_LOG_LEVEL"`
	LogFormat       string        `env:"BULLION_LOG_FORMAT"`
	HTTPAddr        string        `env:"BULLION_HTTP_ADDR"`
	AdapterTimeout  time.Duration `env:"BULLION_ADAPTER_TIMEOUT"`
	PolitenessDelay time.Duration `env:"BULLION_POLITENESS_DELAY"`
	SnapshotTTL     time.Duration `env:"BULLION_SNAPSHOT_TTL"`
}

// Default returns the production configuration for the three supported dealers.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			Dealers: []DealerConfig{
				{
					ID:     models.DealerAinslie,
					Name:   "Ainslie Bullion",
					Format: FormatTable,
					URL:    "https://ainsliebullion.com.au",
					Pages: []PageConfig{
						{URL: "https://ainsliebullion.com.au/Charts"},
					},
					Enabled: true,
				},
				{
					ID:     models.DealerABC,
					Name:   "ABC Bullion",
					Format: FormatGrid,
					URL:    "https://www.abcbullion.com.au",
					Pages: []PageConfig{
						{URL: "https://www.abcbullion.com.au/store/gold", Label: string(models.MetalGold)},
						{URL: "https://www.abcbullion.com.au/store/silver", Label: string(models.MetalSilver)},
						{URL: "https://www.abcbullion.com.au/store/platinum", Label: string(models.MetalPlatinum)},
					},
					Enabled: true,
				},
				{
					ID:     models.DealerPerthMint,
					Name:   "Perth Mint",
					Format: FormatAPI,
					URL:    "https://www.perthmint.com/shop/bullion/",
					Pages: []PageConfig{
						{URL: "https://www.perthmint.com/api/search/product/node/1073746517?pageSize=200", Label: "cast_bars"},
						{URL: "https://www.perthmint.com/api/search/product/node/1073746518?pageSize=200", Label: "coins"},
						{URL: "https://www.perthmint.com/api/search/product/node/1073746519?pageSize=200", Label: "minted_bars"},
					},
					Enabled: true,
				},
			},
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
			AdapterTimeoutSec: 120,
			PolitenessDelayMs: 1000,
			BufferSizeKb:      8192,
		},
		Output: OutputConfig{
			CatalogPath: "data/prices.json",
			ReportPath:  "data/report.md",
			PrettyPrint: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			SnapshotTTLSec: 900,
		},
		Optimizer: OptimizerConfig{
			BestOfLimit: 5,
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over Default, then
// applies environment overrides. An empty path skips the file.
func LoadConfig(filepath string) (*Config, error) {
	cfg := Default()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("env.Parse: %w", err)
	}

	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}

	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}

	if o.HTTPAddr != "" {
		c.Server.Addr = o.HTTPAddr
	}

	if o.AdapterTimeout > 0 {
		c.Crawler.AdapterTimeoutSec = int(o.AdapterTimeout / time.Second)
	}

	if o.PolitenessDelay > 0 {
		c.Crawler.PolitenessDelayMs = int(o.PolitenessDelay / time.Millisecond)
	}

	if o.SnapshotTTL > 0 {
		c.Server.SnapshotTTLSec = int(o.SnapshotTTL / time.Second)
	}

	return nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Crawler.Dealers) == 0 {
		return ErrNoDealers
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	seen := make(map[models.DealerID]bool, len(c.Crawler.Dealers))
	enabledCount := 0

	for i := range c.Crawler.Dealers {
		d := &c.Crawler.Dealers[i]

		if err := validate.Struct(d); err != nil {
			return fmt.Errorf("%w: dealers[%d]: %w", ErrInvalidDealer, i, err)
		}

		if seen[d.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateDealer, d.ID)
		}

		seen[d.ID] = true

		if d.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledDealers
	}

	// Validate retry policy
	if c.Crawler.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Crawler.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Crawler.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Crawler.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Crawler.AdapterTimeoutSec < 1 {
		return ErrInvalidAdapterTimeout
	}

	if c.Crawler.PolitenessDelayMs < 0 {
		return ErrInvalidPolitenessDelay
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	if c.Optimizer.BestOfLimit < 1 {
		return ErrInvalidBestOfLimit
	}

	if c.Server.SnapshotTTLSec < 1 {
		return ErrInvalidSnapshotTTL
	}

	return nil
}

// EnabledDealers returns only enabled dealers, in configuration order.
func (c *Config) EnabledDealers() []DealerConfig {
	var enabled []DealerConfig

	for _, d := range c.Crawler.Dealers {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}

	return enabled
}

// Select returns a copy of c with only the named dealers enabled.
// An empty ids list returns c unchanged.
func (c *Config) Select(ids ...string) (*Config, error) {
	if len(ids) == 0 {
		return c, nil
	}

	known := make(map[string]bool, len(c.Crawler.Dealers))
	for _, d := range c.Crawler.Dealers {
		known[string(d.ID)] = true
	}

	for _, id := range ids {
		if !known[id] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDealer, id)
		}
	}

	out := *c
	out.Crawler.Dealers = make([]DealerConfig, len(c.Crawler.Dealers))

	for i, d := range c.Crawler.Dealers {
		d.Enabled = slices.Contains(ids, string(d.ID))
		out.Crawler.Dealers[i] = d
	}

	return &out, nil
}

// ParseIDs splits a comma-separated dealer list, dropping blanks.
func ParseIDs(list string) []string {
	var ids []string

	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// AdapterTimeout is the deadline of one dealer adapter run.
func (c *CrawlerConfig) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutSec) * time.Second
}

// PolitenessDelay is the pause between page fetches of one dealer.
func (c *CrawlerConfig) PolitenessDelay() time.Duration {
	return time.Duration(c.PolitenessDelayMs) * time.Millisecond
}

// SnapshotTTL is how long the server keeps a built catalog.
func (s *ServerConfig) SnapshotTTL() time.Duration {
	return time.Duration(s.SnapshotTTLSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Dealers: %d, Enabled: %d, MaxAttempts: %d, AdapterTimeout: %s}",
		len(c.Crawler.Dealers),
		len(c.EnabledDealers()),
		c.Crawler.Retry.MaxAttempts,
		c.Crawler.AdapterTimeout(),
	)
}
