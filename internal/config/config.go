// Package config defines the top-level configuration for the spread scanner
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SPREADSCAN_* environment
// variables.
type Config struct {
	Venues       VenuesConfig       `toml:"venues"`
	Cmarket      CmarketConfig      `toml:"cmarket"`
	Universe     UniverseConfig     `toml:"universe"`
	Scanner      ScannerConfig      `toml:"scanner"`
	Orchestrator OrchestratorConfig `toml:"orchestrator"`
	Database     DatabaseConfig     `toml:"database"`
	Redis        RedisConfig        `toml:"redis"`
	S3           S3Config           `toml:"s3"`
	Feed         FeedConfig         `toml:"feed"`
	Archive      ArchiveConfig      `toml:"archive"`
	Server       ServerConfig       `toml:"server"`
	Notify       NotifyConfig       `toml:"notify"`
	Mode         string             `toml:"mode"`
	LogLevel     string             `toml:"log_level"`
}

// VenuesConfig enumerates the exchanges to poll.
type VenuesConfig struct {
	// FeeRefreshInterval controls how often signed fee-schedule endpoints are
	// re-polled for venues with credentials.
	FeeRefreshInterval duration `toml:"fee_refresh_interval"`

	Binance BinanceConfig        `toml:"binance"`
	KuCoin  KuCoinConfig         `toml:"kucoin"`
	Generic []GenericVenueConfig `toml:"generic"`
}

// BinanceConfig holds the Binance spot connector parameters. Credentials are
// only needed for the signed fee endpoint.
type BinanceConfig struct {
	Enabled            bool     `toml:"enabled"`
	BaseURL            string   `toml:"base_url"`
	ApiKey             string   `toml:"api_key"`
	ApiSecret          string   `toml:"api_secret"`
	MakerFeeRate       float64  `toml:"maker_fee_rate"`
	TakerFeeRate       float64  `toml:"taker_fee_rate"`
	RequestRateCeiling int      `toml:"request_rate_ceiling"`
	HTTPTimeout        duration `toml:"http_timeout"`
}

// KuCoinConfig holds the KuCoin spot connector parameters.
type KuCoinConfig struct {
	Enabled            bool     `toml:"enabled"`
	BaseURL            string   `toml:"base_url"`
	ApiKey             string   `toml:"api_key"`
	ApiSecret          string   `toml:"api_secret"`
	ApiPassphrase      string   `toml:"api_passphrase"`
	MakerFeeRate       float64  `toml:"maker_fee_rate"`
	TakerFeeRate       float64  `toml:"taker_fee_rate"`
	RequestRateCeiling int      `toml:"request_rate_ceiling"`
	HTTPTimeout        duration `toml:"http_timeout"`
}

// GenericVenueConfig declares a descriptor-driven venue entirely in config.
// Field references are dot paths into the venue's JSON responses.
type GenericVenueConfig struct {
	Name               string   `toml:"name"`
	BaseURL            string   `toml:"base_url"`
	SymbolTemplate     string   `toml:"symbol_template"`
	TickerPath         string   `toml:"ticker_path"`
	BidPriceField      string   `toml:"bid_price_field"`
	BidSizeField       string   `toml:"bid_size_field"`
	AskPriceField      string   `toml:"ask_price_field"`
	AskSizeField       string   `toml:"ask_size_field"`
	SizesInQuote       bool     `toml:"sizes_in_quote"`
	UniversePath       string   `toml:"universe_path"`
	UniverseListField  string   `toml:"universe_list_field"`
	UniverseBaseField  string   `toml:"universe_base_field"`
	UniverseQuoteField string   `toml:"universe_quote_field"`
	MakerFeeRate       float64  `toml:"maker_fee_rate"`
	TakerFeeRate       float64  `toml:"taker_fee_rate"`
	RequestRateCeiling int      `toml:"request_rate_ceiling"`
	HTTPTimeout        duration `toml:"http_timeout"`
}

// CmarketConfig holds the market-cap ranking service parameters.
type CmarketConfig struct {
	BaseURL     string   `toml:"base_url"`
	ApiKey      string   `toml:"api_key"`
	HTTPTimeout duration `toml:"http_timeout"`
}

// UniverseConfig controls which trading pairs are monitored. When Pairs is
// set it is used verbatim; otherwise the ranking service supplies base assets
// for the configured rank window.
type UniverseConfig struct {
	Pairs           []string `toml:"pairs"`
	QuoteAsset      string   `toml:"quote_asset"`
	StartRank       int      `toml:"start_rank"`
	EndRank         int      `toml:"end_rank"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// ScannerConfig holds the profitability model parameters. Percentages are in
// percent units (0.5 = 0.5%).
type ScannerConfig struct {
	MinProfitPct   float64  `toml:"min_profit_pct"`
	MaxProfitPct   float64  `toml:"max_profit_pct"`
	MaxSlippagePct float64  `toml:"max_slippage_pct"`
	InitialCapital float64  `toml:"initial_capital"`
	ScanInterval   duration `toml:"scan_interval"`
}

// OrchestratorConfig holds the per-cycle collection parameters.
type OrchestratorConfig struct {
	CycleTimeout    duration `toml:"cycle_timeout"`
	RequestTimeout  duration `toml:"request_timeout"`
	DefaultCooldown duration `toml:"default_cooldown"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig controls the optional live price feed.
type FeedConfig struct {
	Enabled  bool     `toml:"enabled"`
	WsURL    string   `toml:"ws_url"`
	CacheTTL duration `toml:"cache_ttl"`
}

// ArchiveConfig controls cold-storage archival of aged opportunity rows.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	Interval      duration `toml:"interval"`
	RetentionDays int      `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: VenuesConfig{
			FeeRefreshInterval: duration{time.Hour},
			Binance: BinanceConfig{
				Enabled:            true,
				BaseURL:            "https://api.binance.com",
				MakerFeeRate:       0.001,
				TakerFeeRate:       0.001,
				RequestRateCeiling: 20,
				HTTPTimeout:        duration{10 * time.Second},
			},
			KuCoin: KuCoinConfig{
				Enabled:            true,
				BaseURL:            "https://api.kucoin.com",
				MakerFeeRate:       0.001,
				TakerFeeRate:       0.001,
				RequestRateCeiling: 10,
				HTTPTimeout:        duration{10 * time.Second},
			},
		},
		Cmarket: CmarketConfig{
			BaseURL:     "https://pro-api.coinmarketcap.com",
			HTTPTimeout: duration{15 * time.Second},
		},
		Universe: UniverseConfig{
			QuoteAsset:      "USDT",
			StartRank:       1,
			EndRank:         20,
			RefreshInterval: duration{time.Hour},
		},
		Scanner: ScannerConfig{
			MinProfitPct:   0.5,
			MaxProfitPct:   100,
			MaxSlippagePct: 0.2,
			InitialCapital: 1000,
			ScanInterval:   duration{10 * time.Second},
		},
		Orchestrator: OrchestratorConfig{
			CycleTimeout:    duration{8 * time.Second},
			RequestTimeout:  duration{5 * time.Second},
			DefaultCooldown: duration{time.Minute},
		},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "spreadscan",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spreadscan-archive",
			ForcePathStyle: true,
		},
		Feed: FeedConfig{
			Enabled:  false,
			WsURL:    "wss://stream.binance.com:9443",
			CacheTTL: duration{30 * time.Second},
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{6 * time.Hour},
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"once":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, once)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Venues: at least two enabled venues, or spreads cannot exist.
	venueCount := 0
	if c.Venues.Binance.Enabled {
		venueCount++
	}
	if c.Venues.KuCoin.Enabled {
		venueCount++
	}
	venueCount += len(c.Venues.Generic)
	if venueCount < 2 {
		errs = append(errs, fmt.Sprintf("venues: at least 2 venues must be enabled, got %d", venueCount))
	}
	if c.Venues.Binance.Enabled && c.Venues.Binance.RequestRateCeiling < 1 {
		errs = append(errs, "venues.binance: request_rate_ceiling must be >= 1")
	}
	if c.Venues.KuCoin.Enabled && c.Venues.KuCoin.RequestRateCeiling < 1 {
		errs = append(errs, "venues.kucoin: request_rate_ceiling must be >= 1")
	}
	seen := map[string]bool{}
	for i, g := range c.Venues.Generic {
		if g.Name == "" {
			errs = append(errs, fmt.Sprintf("venues.generic[%d]: name must not be empty", i))
			continue
		}
		if seen[g.Name] || g.Name == "binance" || g.Name == "kucoin" {
			errs = append(errs, fmt.Sprintf("venues.generic[%d]: duplicate venue name %q", i, g.Name))
		}
		seen[g.Name] = true
	}

	// Universe: a static pair list or a usable rank window.
	if len(c.Universe.Pairs) == 0 {
		if c.Universe.StartRank < 1 {
			errs = append(errs, "universe: start_rank must be >= 1")
		}
		if c.Universe.EndRank < c.Universe.StartRank {
			errs = append(errs, "universe: end_rank must be >= start_rank")
		}
		if c.Cmarket.ApiKey == "" {
			errs = append(errs, "cmarket: api_key is required when universe.pairs is not set")
		}
	}
	for i, p := range c.Universe.Pairs {
		if !strings.Contains(p, "/") {
			errs = append(errs, fmt.Sprintf("universe.pairs[%d]: %q is not BASE/QUOTE", i, p))
		}
	}

	// Scanner
	if c.Scanner.MinProfitPct < 0 {
		errs = append(errs, "scanner: min_profit_pct must be >= 0")
	}
	if c.Scanner.MaxProfitPct > 0 && c.Scanner.MaxProfitPct <= c.Scanner.MinProfitPct {
		errs = append(errs, "scanner: max_profit_pct must exceed min_profit_pct")
	}
	if c.Scanner.MaxSlippagePct < 0 {
		errs = append(errs, "scanner: max_slippage_pct must be >= 0")
	}
	if c.Scanner.InitialCapital < 0 {
		errs = append(errs, "scanner: initial_capital must be >= 0")
	}
	if c.Scanner.ScanInterval.Duration <= 0 {
		errs = append(errs, "scanner: scan_interval must be positive")
	}

	// Orchestrator
	if c.Orchestrator.CycleTimeout.Duration <= 0 {
		errs = append(errs, "orchestrator: cycle_timeout must be positive")
	}
	if c.Orchestrator.RequestTimeout.Duration > c.Orchestrator.CycleTimeout.Duration {
		errs = append(errs, "orchestrator: request_timeout must not exceed cycle_timeout")
	}

	// Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive needs both stores.
	if c.Archive.Enabled {
		if !c.Database.Enabled {
			errs = append(errs, "archive: database must be enabled for archival")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "archive: s3.bucket must not be empty")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Feed mirrors into the Redis quote cache.
	if c.Feed.Enabled && !c.Redis.Enabled {
		errs = append(errs, "feed: redis must be enabled for the live feed")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
