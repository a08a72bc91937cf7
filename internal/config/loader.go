package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load merges the TOML file at path over Defaults, then applies FUNDY_*
// environment overrides, reading a .env file first when present. An empty
// path skips the file. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.fillExchangeDefaults()
	return &cfg, nil
}

// applyEnvOverrides reads FUNDY_* variables and overwrites the matching
// fields when a variable is set and parses.
func applyEnvOverrides(cfg *Config) {
	// exchanges
	for _, name := range exchangeNames {
		prefix := "FUNDY_EXCHANGES_" + strings.ToUpper(name) + "_"
		ex := cfg.Exchanges[name]
		if v, ok := lookupBool(prefix + "ENABLED"); ok {
			ex.Enabled = &v
		}
		setStr(&ex.BaseURL, prefix+"BASE_URL")
		setDuration(&ex.Timeout, prefix+"TIMEOUT")
		setFloat64(&ex.RatePerSec, prefix+"RATE_PER_SEC")
		setInt(&ex.Burst, prefix+"BURST")
		if cfg.Exchanges == nil {
			cfg.Exchanges = make(map[string]ExchangeConfig)
		}
		cfg.Exchanges[name] = ex
	}

	// scanner
	setDuration(&cfg.Scanner.OverallTimeout, "FUNDY_SCANNER_OVERALL_TIMEOUT")
	setDuration(&cfg.Scanner.PerSourceTimeout, "FUNDY_SCANNER_PER_SOURCE_TIMEOUT")
	setInt(&cfg.Scanner.FundingConcurrency, "FUNDY_SCANNER_FUNDING_CONCURRENCY")

	// alert
	setBool(&cfg.Alert.Enabled, "FUNDY_ALERT_ENABLED")
	setDuration(&cfg.Alert.ScanInterval, "FUNDY_ALERT_SCAN_INTERVAL")
	setDuration(&cfg.Alert.SnapshotRefresh, "FUNDY_ALERT_SNAPSHOT_REFRESH")
	setDecimal(&cfg.Alert.MinDelta, "FUNDY_ALERT_MIN_DELTA")
	setDuration(&cfg.Alert.SentTTL, "FUNDY_ALERT_SENT_TTL")
	setDecimal(&cfg.Alert.Defaults.MinAbsRate, "FUNDY_ALERT_DEFAULT_MIN_ABS_RATE")
	setStr(&cfg.Alert.Defaults.TimeZone, "FUNDY_ALERT_DEFAULT_TIME_ZONE")

	// feed
	setBool(&cfg.Feed.Enabled, "FUNDY_FEED_ENABLED")
	setDuration(&cfg.Feed.Interval, "FUNDY_FEED_INTERVAL")

	// server
	setBool(&cfg.Server.Enabled, "FUNDY_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FUNDY_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FUNDY_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FUNDY_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "FUNDY_SERVER_RATE_LIMIT")

	// redis
	setBool(&cfg.Redis.Enabled, "FUNDY_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "FUNDY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FUNDY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FUNDY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FUNDY_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "FUNDY_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.Namespace, "FUNDY_REDIS_NAMESPACE")

	// postgres
	setBool(&cfg.Postgres.Enabled, "FUNDY_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FUNDY_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL")
	setStr(&cfg.Postgres.Host, "FUNDY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FUNDY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FUNDY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FUNDY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FUNDY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FUNDY_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "FUNDY_POSTGRES_RUN_MIGRATIONS")

	// s3
	setBool(&cfg.S3.Enabled, "FUNDY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FUNDY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FUNDY_S3_REGION")
	setStr(&cfg.S3.Bucket, "FUNDY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FUNDY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FUNDY_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "FUNDY_S3_FORCE_PATH_STYLE")

	// notify
	setStr(&cfg.Notify.TelegramToken, "FUNDY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramOpsChatID, "FUNDY_NOTIFY_TELEGRAM_OPS_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FUNDY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FUNDY_NOTIFY_EVENTS")

	// log file
	setStr(&cfg.LogFile.Path, "FUNDY_LOG_FILE_PATH")

	// top level
	setStr(&cfg.Mode, "FUNDY_MODE")
	setStr(&cfg.LogLevel, "FUNDY_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func lookupBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func setBool(dst *bool, key string) {
	if b, ok := lookupBool(key); ok {
		*dst = b
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
