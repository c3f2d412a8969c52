// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/avelkov/newsreel/internal/fetcher"
	"github.com/avelkov/newsreel/internal/fetcher/headless"
	"github.com/avelkov/newsreel/internal/scrape"
	"github.com/avelkov/newsreel/internal/scraper"
)

// Archive backends.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Auth     AuthConfig       `mapstructure:"auth"`
	Logging  LoggingConfig    `mapstructure:"logging"`
	Scrape   ScrapeConfig     `mapstructure:"scrape"`
	Fetch    FetchConfig      `mapstructure:"fetch"`
	Headless HeadlessConfig   `mapstructure:"headless"`
	Archive  ArchiveConfig    `mapstructure:"archive"`
	DB       DBConfig         `mapstructure:"db"`
	PubSub   PubSubConfig     `mapstructure:"pubsub"`
	Extract  ExtractConfig    `mapstructure:"extract"`
	Selector SelectorConfig   `mapstructure:"selector"`
	Sources  []scraper.Source `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int `mapstructure:"port"`
	RequestTimeoutSec int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScrapeConfig governs run pacing and per-source limits.
type ScrapeConfig struct {
	MaxHeadlines       int `mapstructure:"max_headlines"`
	InterSourceDelayMs int `mapstructure:"inter_source_delay_ms"`
}

// FetchConfig configures fetch timeouts, retries, and pacing.
type FetchConfig struct {
	StandardTimeoutSec   int     `mapstructure:"standard_timeout_seconds"`
	HardenedTimeoutSec   int     `mapstructure:"hardened_timeout_seconds"`
	MaxAttempts          int     `mapstructure:"max_attempts"`
	PreRequestDelayMs    int     `mapstructure:"pre_request_delay_ms"`
	BlockedWaitMs        int     `mapstructure:"blocked_wait_ms"`
	RetryWaitMs          int     `mapstructure:"retry_wait_ms"`
	TransportRetryWaitMs int     `mapstructure:"transport_retry_wait_ms"`
	RateLimitRPS         float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst       int     `mapstructure:"rate_limit_burst"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	SettleDelayMs int  `mapstructure:"settle_delay_ms"`
}

// ArchiveConfig selects where raw fetched markup is retained.
type ArchiveConfig struct {
	Backend     string `mapstructure:"backend"`
	BaseDir     string `mapstructure:"base_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	ContentType string `mapstructure:"content_type"`
}

// DBConfig controls the headline persistence sink.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for run summary notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ExtractConfig tunes headline extraction.
type ExtractConfig struct {
	ChromeTerms []string `mapstructure:"chrome_terms"`
}

// SelectorConfig overrides the generic fallback selectors.
type SelectorConfig struct {
	Fallbacks []string `mapstructure:"fallbacks"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEWSREEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("scrape.max_headlines", 10)
	v.SetDefault("scrape.inter_source_delay_ms", 0)
	v.SetDefault("fetch.standard_timeout_seconds", 10)
	v.SetDefault("fetch.hardened_timeout_seconds", 15)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.pre_request_delay_ms", 2000)
	v.SetDefault("fetch.blocked_wait_ms", 3000)
	v.SetDefault("fetch.retry_wait_ms", 1000)
	v.SetDefault("fetch.transport_retry_wait_ms", 2000)
	v.SetDefault("fetch.rate_limit_rps", 1.0)
	v.SetDefault("fetch.rate_limit_burst", 1)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_delay_ms", 500)
	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("db.table", "headlines")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	switch c.Archive.Backend {
	case ArchiveNone:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be one of none, local, gcs")
	}
	if c.DB.Enabled && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db is enabled")
	}
	if c.PubSub.Enabled {
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
		}
	}
	return nil
}

// FetcherConfig maps the loaded knobs onto the fetch client's config.
func (c Config) FetcherConfig() fetcher.Config {
	return fetcher.Config{
		StandardTimeout:    time.Duration(c.Fetch.StandardTimeoutSec) * time.Second,
		HardenedTimeout:    time.Duration(c.Fetch.HardenedTimeoutSec) * time.Second,
		MaxAttempts:        c.Fetch.MaxAttempts,
		PreRequestDelay:    time.Duration(c.Fetch.PreRequestDelayMs) * time.Millisecond,
		BlockedWait:        time.Duration(c.Fetch.BlockedWaitMs) * time.Millisecond,
		RetryWait:          time.Duration(c.Fetch.RetryWaitMs) * time.Millisecond,
		TransportRetryWait: time.Duration(c.Fetch.TransportRetryWaitMs) * time.Millisecond,
		RateLimitRPS:       c.Fetch.RateLimitRPS,
		RateLimitBurst:     c.Fetch.RateLimitBurst,
	}
}

// ScrapeOptions maps the loaded knobs onto the orchestrator's config.
func (c Config) ScrapeOptions() scrape.Config {
	return scrape.Config{
		InterSourceDelay:   time.Duration(c.Scrape.InterSourceDelayMs) * time.Millisecond,
		MaxHeadlines:       c.Scrape.MaxHeadlines,
		ArchiveContentType: c.Archive.ContentType,
	}
}

// HeadlessOptions maps the loaded knobs onto the renderer's config.
func (c Config) HeadlessOptions() headless.Config {
	return headless.Config{
		NavigationTimeout: time.Duration(c.Headless.NavTimeoutSec) * time.Second,
		SettleDelay:       time.Duration(c.Headless.SettleDelayMs) * time.Millisecond,
	}
}

// Catalog builds the source catalog, preferring configured sources over the
// built-in defaults.
func (c Config) Catalog() (*scraper.Catalog, error) {
	if len(c.Sources) == 0 {
		return scraper.DefaultCatalog(), nil
	}
	return scraper.NewCatalog(c.Sources)
}
