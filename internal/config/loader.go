package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration from the TOML file at path, then applies
// environment variable overrides. A missing file is not an error; defaults
// plus environment variables are used instead.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	// Load .env if present so overrides work in local development.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides mutates cfg with values from SPREADSCAN_* environment
// variables. Only variables that are set and non-empty take effect.
func applyEnvOverrides(cfg *Config) {
	setStr("SPREADSCAN_MODE", &cfg.Mode)
	setStr("SPREADSCAN_LOG_LEVEL", &cfg.LogLevel)

	setBool("SPREADSCAN_BINANCE_ENABLED", &cfg.Venues.Binance.Enabled)
	setStr("SPREADSCAN_BINANCE_BASE_URL", &cfg.Venues.Binance.BaseURL)
	setStr("SPREADSCAN_BINANCE_API_KEY", &cfg.Venues.Binance.ApiKey)
	setStr("SPREADSCAN_BINANCE_API_SECRET", &cfg.Venues.Binance.ApiSecret)
	setFloat64("SPREADSCAN_BINANCE_TAKER_FEE_RATE", &cfg.Venues.Binance.TakerFeeRate)
	setInt("SPREADSCAN_BINANCE_RATE_CEILING", &cfg.Venues.Binance.RequestRateCeiling)

	setBool("SPREADSCAN_KUCOIN_ENABLED", &cfg.Venues.KuCoin.Enabled)
	setStr("SPREADSCAN_KUCOIN_BASE_URL", &cfg.Venues.KuCoin.BaseURL)
	setStr("SPREADSCAN_KUCOIN_API_KEY", &cfg.Venues.KuCoin.ApiKey)
	setStr("SPREADSCAN_KUCOIN_API_SECRET", &cfg.Venues.KuCoin.ApiSecret)
	setStr("SPREADSCAN_KUCOIN_API_PASSPHRASE", &cfg.Venues.KuCoin.ApiPassphrase)
	setFloat64("SPREADSCAN_KUCOIN_TAKER_FEE_RATE", &cfg.Venues.KuCoin.TakerFeeRate)
	setInt("SPREADSCAN_KUCOIN_RATE_CEILING", &cfg.Venues.KuCoin.RequestRateCeiling)

	setStr("SPREADSCAN_CMARKET_API_KEY", &cfg.Cmarket.ApiKey)
	setStr("SPREADSCAN_CMARKET_BASE_URL", &cfg.Cmarket.BaseURL)

	setStringSlice("SPREADSCAN_UNIVERSE_PAIRS", &cfg.Universe.Pairs)
	setStr("SPREADSCAN_UNIVERSE_QUOTE_ASSET", &cfg.Universe.QuoteAsset)
	setInt("SPREADSCAN_UNIVERSE_START_RANK", &cfg.Universe.StartRank)
	setInt("SPREADSCAN_UNIVERSE_END_RANK", &cfg.Universe.EndRank)
	setDuration("SPREADSCAN_UNIVERSE_REFRESH_INTERVAL", &cfg.Universe.RefreshInterval)

	setFloat64("SPREADSCAN_MIN_PROFIT_PCT", &cfg.Scanner.MinProfitPct)
	setFloat64("SPREADSCAN_MAX_PROFIT_PCT", &cfg.Scanner.MaxProfitPct)
	setFloat64("SPREADSCAN_MAX_SLIPPAGE_PCT", &cfg.Scanner.MaxSlippagePct)
	setFloat64("SPREADSCAN_INITIAL_CAPITAL", &cfg.Scanner.InitialCapital)
	setDuration("SPREADSCAN_SCAN_INTERVAL", &cfg.Scanner.ScanInterval)

	setDuration("SPREADSCAN_CYCLE_TIMEOUT", &cfg.Orchestrator.CycleTimeout)
	setDuration("SPREADSCAN_REQUEST_TIMEOUT", &cfg.Orchestrator.RequestTimeout)
	setDuration("SPREADSCAN_DEFAULT_COOLDOWN", &cfg.Orchestrator.DefaultCooldown)

	setBool("SPREADSCAN_DB_ENABLED", &cfg.Database.Enabled)
	setStr("SPREADSCAN_DB_DSN", &cfg.Database.DSN)
	setStr("SPREADSCAN_DB_HOST", &cfg.Database.Host)
	setInt("SPREADSCAN_DB_PORT", &cfg.Database.Port)
	setStr("SPREADSCAN_DB_NAME", &cfg.Database.Database)
	setStr("SPREADSCAN_DB_USER", &cfg.Database.User)
	setStr("SPREADSCAN_DB_PASSWORD", &cfg.Database.Password)
	setStr("SPREADSCAN_DB_SSL_MODE", &cfg.Database.SSLMode)
	setBool("SPREADSCAN_DB_RUN_MIGRATIONS", &cfg.Database.RunMigrations)

	setBool("SPREADSCAN_REDIS_ENABLED", &cfg.Redis.Enabled)
	setStr("SPREADSCAN_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("SPREADSCAN_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("SPREADSCAN_REDIS_DB", &cfg.Redis.DB)
	setBool("SPREADSCAN_REDIS_TLS", &cfg.Redis.TLSEnabled)

	setStr("SPREADSCAN_S3_ENDPOINT", &cfg.S3.Endpoint)
	setStr("SPREADSCAN_S3_REGION", &cfg.S3.Region)
	setStr("SPREADSCAN_S3_BUCKET", &cfg.S3.Bucket)
	setStr("SPREADSCAN_S3_ACCESS_KEY", &cfg.S3.AccessKey)
	setStr("SPREADSCAN_S3_SECRET_KEY", &cfg.S3.SecretKey)

	setBool("SPREADSCAN_FEED_ENABLED", &cfg.Feed.Enabled)
	setStr("SPREADSCAN_FEED_WS_URL", &cfg.Feed.WsURL)
	setDuration("SPREADSCAN_FEED_CACHE_TTL", &cfg.Feed.CacheTTL)

	setBool("SPREADSCAN_ARCHIVE_ENABLED", &cfg.Archive.Enabled)
	setDuration("SPREADSCAN_ARCHIVE_INTERVAL", &cfg.Archive.Interval)
	setInt("SPREADSCAN_ARCHIVE_RETENTION_DAYS", &cfg.Archive.RetentionDays)

	setBool("SPREADSCAN_SERVER_ENABLED", &cfg.Server.Enabled)
	setInt("SPREADSCAN_SERVER_PORT", &cfg.Server.Port)
	setStringSlice("SPREADSCAN_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	setStr("SPREADSCAN_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("SPREADSCAN_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("SPREADSCAN_DISCORD_WEBHOOK_URL", &cfg.Notify.DiscordWebhookURL)
	setStringSlice("SPREADSCAN_NOTIFY_EVENTS", &cfg.Notify.Events)
}

func setStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(key string, dst *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
