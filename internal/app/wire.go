package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantrino/spreadscan/internal/blob/s3"
	"github.com/quantrino/spreadscan/internal/cache/redis"
	"github.com/quantrino/spreadscan/internal/config"
	"github.com/quantrino/spreadscan/internal/domain"
	"github.com/quantrino/spreadscan/internal/notify"
	"github.com/quantrino/spreadscan/internal/platform/cmarket"
	"github.com/quantrino/spreadscan/internal/store/postgres"
	"github.com/quantrino/spreadscan/internal/universe"
	"github.com/quantrino/spreadscan/internal/venue"
	"github.com/quantrino/spreadscan/internal/venue/binance"
	"github.com/quantrino/spreadscan/internal/venue/generic"
	"github.com/quantrino/spreadscan/internal/venue/kucoin"
)

// Dependencies bundles every dependency the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Venue connectors
	Venues        []venue.Exchange
	FeeRefreshers []venue.FeeRefresher

	// Ranking service; nil when no API key is configured
	Ranker universe.Ranker

	// Redis-backed components; nil when Redis is disabled
	QuoteCache    domain.QuoteCache
	UniverseCache domain.UniverseCache
	RateLimiter   domain.RateLimiter
	SignalBus     domain.SignalBus

	// Persistence; nil when the database is disabled
	Store domain.OpportunityStore

	// Cold storage; nil unless archival is enabled
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue connectors ---
	if cfg.Venues.Binance.Enabled {
		bn := binance.New(binance.ClientConfig{
			BaseURL:            cfg.Venues.Binance.BaseURL,
			APIKey:             cfg.Venues.Binance.ApiKey,
			APISecret:          cfg.Venues.Binance.ApiSecret,
			MakerFeeRate:       cfg.Venues.Binance.MakerFeeRate,
			TakerFeeRate:       cfg.Venues.Binance.TakerFeeRate,
			RequestRateCeiling: cfg.Venues.Binance.RequestRateCeiling,
			HTTPTimeout:        cfg.Venues.Binance.HTTPTimeout.Duration,
		})
		deps.Venues = append(deps.Venues, bn)
		if cfg.Venues.Binance.ApiKey != "" && cfg.Venues.Binance.ApiSecret != "" {
			deps.FeeRefreshers = append(deps.FeeRefreshers, bn)
		}
	}
	if cfg.Venues.KuCoin.Enabled {
		kc := kucoin.New(kucoin.ClientConfig{
			BaseURL:            cfg.Venues.KuCoin.BaseURL,
			APIKey:             cfg.Venues.KuCoin.ApiKey,
			APISecret:          cfg.Venues.KuCoin.ApiSecret,
			APIPassphrase:      cfg.Venues.KuCoin.ApiPassphrase,
			MakerFeeRate:       cfg.Venues.KuCoin.MakerFeeRate,
			TakerFeeRate:       cfg.Venues.KuCoin.TakerFeeRate,
			RequestRateCeiling: cfg.Venues.KuCoin.RequestRateCeiling,
			HTTPTimeout:        cfg.Venues.KuCoin.HTTPTimeout.Duration,
		})
		deps.Venues = append(deps.Venues, kc)
		if cfg.Venues.KuCoin.ApiKey != "" && cfg.Venues.KuCoin.ApiSecret != "" {
			deps.FeeRefreshers = append(deps.FeeRefreshers, kc)
		}
	}
	for _, g := range cfg.Venues.Generic {
		client, err := generic.New(generic.Descriptor{
			Name:               g.Name,
			BaseURL:            g.BaseURL,
			SymbolTemplate:     g.SymbolTemplate,
			TickerPath:         g.TickerPath,
			BidPriceField:      g.BidPriceField,
			BidSizeField:       g.BidSizeField,
			AskPriceField:      g.AskPriceField,
			AskSizeField:       g.AskSizeField,
			SizesInQuote:       g.SizesInQuote,
			UniversePath:       g.UniversePath,
			UniverseListField:  g.UniverseListField,
			UniverseBaseField:  g.UniverseBaseField,
			UniverseQuoteField: g.UniverseQuoteField,
			MakerFeeRate:       g.MakerFeeRate,
			TakerFeeRate:       g.TakerFeeRate,
			RequestRateCeiling: g.RequestRateCeiling,
			HTTPTimeout:        g.HTTPTimeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %q: %w", g.Name, err)
		}
		deps.Venues = append(deps.Venues, client)
	}

	// --- Market-cap ranking service ---
	if cfg.Cmarket.ApiKey != "" {
		deps.Ranker = cmarket.New(cmarket.ClientConfig{
			BaseURL:     cfg.Cmarket.BaseURL,
			APIKey:      cfg.Cmarket.ApiKey,
			HTTPTimeout: cfg.Cmarket.HTTPTimeout.Duration,
		})
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.UniverseCache = redis.NewUniverseCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- PostgreSQL ---
	if cfg.Database.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Store = postgres.NewOpportunityStore(pgClient.Pool())
	}

	// --- S3 cold storage (only when archival is on) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.Store, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
