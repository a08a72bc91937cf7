// Package config defines the fundybot configuration and its validation.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by FUNDY_* environment variables.
type Config struct {
	Exchanges   map[string]ExchangeConfig `toml:"exchanges"`
	Cache       CacheConfig               `toml:"cache"`
	Scanner     ScannerConfig             `toml:"scanner"`
	FundingTime FundingTimeConfig         `toml:"funding_time"`
	Alert       AlertConfig               `toml:"alert"`
	Feed        FeedConfig                `toml:"feed"`
	Server      ServerConfig              `toml:"server"`
	Redis       RedisConfig               `toml:"redis"`
	Postgres    PostgresConfig            `toml:"postgres"`
	S3          S3Config                  `toml:"s3"`
	Notify      NotifyConfig              `toml:"notify"`
	LogFile     LogFileConfig             `toml:"log_file"`
	Mode        string                    `toml:"mode"`
	LogLevel    string                    `toml:"log_level"`
}

// ExchangeConfig configures one exchange adapter. Tables are keyed by the
// lower-case exchange name, e.g. [exchanges.gateio]. Unset fields take the
// defaults after loading.
type ExchangeConfig struct {
	Enabled    *bool    `toml:"enabled"`
	BaseURL    string   `toml:"base_url"`
	Timeout    duration `toml:"timeout"`
	RatePerSec float64  `toml:"rate_per_sec"`
	Burst      int      `toml:"burst"`
	// Settle is the Gate.io settlement currency.
	Settle string `toml:"settle"`
	// ProductType is the Bitget v1 product type.
	ProductType string `toml:"product_type"`
}

// CacheConfig holds per-kind TTLs of the in-process market data cache.
type CacheConfig struct {
	Instruments duration `toml:"instruments_ttl"`
	Tickers     duration `toml:"tickers_ttl"`
	Funding     duration `toml:"funding_ttl"`
	Universe    duration `toml:"universe_ttl"`
}

// ScannerConfig bounds cross-exchange scans.
type ScannerConfig struct {
	OverallTimeout     duration `toml:"overall_timeout"`
	PerSourceTimeout   duration `toml:"per_source_timeout"`
	FundingConcurrency int      `toml:"funding_concurrency"`
}

// FundingTimeConfig tunes next-funding reconciliation.
type FundingTimeConfig struct {
	ReconcileTolerance duration `toml:"reconcile_tolerance"`
	SnapEpsilon        duration `toml:"snap_epsilon"`
}

// AlertConfig controls the funding alert loop.
type AlertConfig struct {
	Enabled             bool                     `toml:"enabled"`
	ScanInterval        duration                 `toml:"scan_interval"`
	SnapshotRefresh     duration                 `toml:"snapshot_refresh"`
	SnapshotStaleAfter  duration                 `toml:"snapshot_stale_after"`
	ForceRefreshTimeout duration                 `toml:"force_refresh_timeout"`
	LockTTL             duration                 `toml:"lock_ttl"`
	MinDelta            decimal.Decimal          `toml:"min_delta"`
	SentTTL             duration                 `toml:"sent_ttl"`
	CleanupInterval     duration                 `toml:"cleanup_interval"`
	Defaults            SubscriberDefaultsConfig `toml:"defaults"`
}

// SubscriberDefaultsConfig seeds subscribers created without explicit
// settings.
type SubscriberDefaultsConfig struct {
	MinAbsRate   decimal.Decimal `toml:"min_abs_rate"`
	NotifyBefore duration        `toml:"notify_before"`
	TimeZone     string          `toml:"time_zone"`
	BucketWidth  duration        `toml:"bucket_width"`
}

// FeedConfig controls the websocket scan feed.
type FeedConfig struct {
	Enabled          bool            `toml:"enabled"`
	Interval         duration        `toml:"interval"`
	ArbitrageLimit   int             `toml:"arbitrage_limit"`
	FundingLimit     int             `toml:"funding_limit"`
	MinFundingSpread decimal.Decimal `toml:"min_funding_spread"`
	MinPriceSpread   decimal.Decimal `toml:"min_price_spread"`
	MinRate          decimal.Decimal `toml:"min_rate"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	Namespace  string `toml:"namespace"`
}

// PostgresConfig holds the subscriber database parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds the universe archive bucket parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	UniversePath   string `toml:"universe_path"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramOpsChatID string   `toml:"telegram_ops_chat_id"`
	TelegramAPIURL    string   `toml:"telegram_api_url"`
	TelegramRate      float64  `toml:"telegram_rate_per_sec"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// LogFileConfig enables a rotating log file next to stdout.
type LogFileConfig struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// duration is a time.Duration decoded from TOML strings such as "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsEnabled reports the enabled flag; unset means enabled.
func (e ExchangeConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Exchange names accepted under [exchanges.*], in display order.
var exchangeNames = []string{"bybit", "mexc", "kucoin", "bitget", "htx", "okx", "gateio", "coinex", "bingx"}

func defaultExchange(name string) ExchangeConfig {
	ex := ExchangeConfig{
		Timeout:    duration{10 * time.Second},
		RatePerSec: 10,
		Burst:      5,
	}
	switch name {
	case "gateio":
		ex.Settle = "usdt"
	case "bitget":
		ex.ProductType = "umcbl"
	}
	return ex
}

// fillExchangeDefaults adds missing exchanges and completes partial tables.
func (c *Config) fillExchangeDefaults() {
	if c.Exchanges == nil {
		c.Exchanges = make(map[string]ExchangeConfig, len(exchangeNames))
	}
	for _, name := range exchangeNames {
		def := defaultExchange(name)
		ex, ok := c.Exchanges[name]
		if !ok {
			c.Exchanges[name] = def
			continue
		}
		if ex.Timeout.Duration == 0 {
			ex.Timeout = def.Timeout
		}
		if ex.RatePerSec == 0 {
			ex.RatePerSec = def.RatePerSec
		}
		if ex.Burst == 0 {
			ex.Burst = def.Burst
		}
		if ex.Settle == "" {
			ex.Settle = def.Settle
		}
		if ex.ProductType == "" {
			ex.ProductType = def.ProductType
		}
		c.Exchanges[name] = ex
	}
}

// Defaults returns a Config populated with production defaults. Every
// exchange is enabled; the alert loop, Redis, Postgres and S3 are off.
func Defaults() Config {
	exchanges := make(map[string]ExchangeConfig, len(exchangeNames))
	for _, name := range exchangeNames {
		exchanges[name] = defaultExchange(name)
	}

	return Config{
		Exchanges: exchanges,
		Cache: CacheConfig{
			Instruments: duration{30 * time.Minute},
			Tickers:     duration{2 * time.Second},
			Funding:     duration{90 * time.Second},
			Universe:    duration{24 * time.Hour},
		},
		Scanner: ScannerConfig{
			OverallTimeout:     duration{20 * time.Second},
			PerSourceTimeout:   duration{15 * time.Second},
			FundingConcurrency: 10,
		},
		FundingTime: FundingTimeConfig{
			ReconcileTolerance: duration{20 * time.Minute},
			SnapEpsilon:        duration{2 * time.Minute},
		},
		Alert: AlertConfig{
			Enabled:             false,
			ScanInterval:        duration{2 * time.Minute},
			SnapshotRefresh:     duration{2 * time.Minute},
			SnapshotStaleAfter:  duration{5 * time.Minute},
			ForceRefreshTimeout: duration{20 * time.Second},
			LockTTL:             duration{90 * time.Second},
			MinDelta:            decimal.RequireFromString("0.001"),
			SentTTL:             duration{12 * time.Hour},
			CleanupInterval:     duration{time.Hour},
			Defaults: SubscriberDefaultsConfig{
				MinAbsRate:   decimal.RequireFromString("0.005"),
				NotifyBefore: duration{30 * time.Minute},
				BucketWidth:  duration{time.Hour},
			},
		},
		Feed: FeedConfig{
			Enabled:        true,
			Interval:       duration{30 * time.Second},
			ArbitrageLimit: 50,
			FundingLimit:   50,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			Namespace:  "fundy",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fundybot",
			ForcePathStyle: true,
			UniversePath:   "universe/latest.json",
		},
		Notify: NotifyConfig{
			TelegramRate: 25,
			Events:       []string{"startup", "alert_cycle_failed"},
		},
		LogFile: LogFileConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"server":   true,
	"notifier": true,
	"full":     true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// RunsServer reports whether the mode starts the HTTP API.
func (c *Config) RunsServer() bool {
	m := strings.ToLower(c.Mode)
	return (m == "server" || m == "full") && c.Server.Enabled
}

// RunsNotifier reports whether the mode starts the alert loop.
func (c *Config) RunsNotifier() bool {
	m := strings.ToLower(c.Mode)
	return (m == "notifier" || m == "full") && c.Alert.Enabled
}

// Validate checks Config for invalid values and returns one error listing
// every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, notifier, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	for name, ex := range c.Exchanges {
		if !slices.Contains(exchangeNames, name) {
			errs = append(errs, fmt.Sprintf("exchanges: unknown exchange %q", name))
			continue
		}
		if ex.RatePerSec < 0 {
			errs = append(errs, fmt.Sprintf("exchanges.%s: rate_per_sec must be >= 0", name))
		}
		if ex.Timeout.Duration < 0 {
			errs = append(errs, fmt.Sprintf("exchanges.%s: timeout must be >= 0", name))
		}
	}

	if c.Scanner.OverallTimeout.Duration <= 0 {
		errs = append(errs, "scanner: overall_timeout must be > 0")
	}
	if c.Scanner.PerSourceTimeout.Duration > c.Scanner.OverallTimeout.Duration {
		errs = append(errs, "scanner: per_source_timeout must not exceed overall_timeout")
	}
	if c.Scanner.FundingConcurrency < 1 {
		errs = append(errs, "scanner: funding_concurrency must be >= 1")
	}

	if c.Alert.Enabled {
		if c.Alert.ScanInterval.Duration <= 0 {
			errs = append(errs, "alert: scan_interval must be > 0")
		}
		if c.Alert.SnapshotRefresh.Duration <= 0 {
			errs = append(errs, "alert: snapshot_refresh must be > 0")
		}
		if c.Alert.MinDelta.IsNegative() {
			errs = append(errs, "alert: min_delta must be >= 0")
		}
		if c.Alert.SentTTL.Duration <= 0 {
			errs = append(errs, "alert: sent_ttl must be > 0")
		}
		if c.Alert.Defaults.MinAbsRate.IsNegative() {
			errs = append(errs, "alert.defaults: min_abs_rate must be >= 0")
		}
		if tz := c.Alert.Defaults.TimeZone; tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				errs = append(errs, fmt.Sprintf("alert.defaults: unknown time_zone %q", tz))
			}
		}
	}

	if c.Feed.Enabled && c.Feed.Interval.Duration <= 0 {
		errs = append(errs, "feed: interval must be > 0")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
