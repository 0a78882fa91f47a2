package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/emmatheo/polyscop/internal/blob/s3"
	"github.com/emmatheo/polyscop/internal/cache/memory"
	"github.com/emmatheo/polyscop/internal/cache/redis"
	"github.com/emmatheo/polyscop/internal/config"
	"github.com/emmatheo/polyscop/internal/domain"
	"github.com/emmatheo/polyscop/internal/notify"
	"github.com/emmatheo/polyscop/internal/server/handler"
	"github.com/emmatheo/polyscop/internal/store/postgres"
)

// Dependencies bundles the backends the modes run on. Optional backends that
// are not configured are nil or replaced by in-process fallbacks.
type Dependencies struct {
	// Stores (nil without postgres)
	TradeStore    domain.TradeStore
	PositionStore domain.PositionStore

	// Caches (in-process without redis)
	PriceCache  domain.PriceCache
	TradeCache  domain.TradeCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	// SignalBus is nil without redis.
	SignalBus domain.SignalBus

	// Archive is nil without an S3 bucket.
	Archive *s3blob.TradeArchive

	Notifier *notify.Notifier

	// Checks are the readiness checks of every connected backend.
	Checks map[string]handler.Checker
}

func needsPostgres(mode string) bool {
	return mode == ModeServe || mode == ModeIngest || mode == ModeAll
}

func needsS3(mode string) bool {
	return mode == ModeIngest || mode == ModeAll
}

// Wire constructs the configured backends and returns them together with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, mode string, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Checks: make(map[string]handler.Checker)}

	// --- PostgreSQL ---
	if needsPostgres(mode) && cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.Checks["postgres"] = pgClient.Ping
	} else if needsPostgres(mode) {
		logger.Info("postgres not configured, trades are not persisted")
	}

	// --- Redis ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Mode:       mode,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		streamMaxLen := int64(10000)
		if cfg.Redis.StreamMaxLen > 0 {
			streamMaxLen = int64(cfg.Redis.StreamMaxLen)
		}

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.TradeCache = redis.NewTradeCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBusWithMaxLen(redisClient, streamMaxLen)
		deps.Checks["redis"] = redisClient.Ping
	} else {
		logger.Info("redis not configured, using in-process caches")
		deps.PriceCache = memory.NewPriceCache()
		deps.TradeCache = memory.NewTradeCache()
		deps.RateLimiter = memory.NewRateLimiter()
		deps.LockManager = memory.NewLockManager()
	}

	// --- S3 archive ---
	if needsS3(mode) && cfg.Archive.Enabled && cfg.S3.Bucket != "" {
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
		deps.Archive = s3blob.NewTradeArchive(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client), cfg.Archive.Prefix)
		deps.Checks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordBotToken != "" && cfg.Notify.DiscordChannelID != "" {
		discord, err := notify.NewDiscordSender(cfg.Notify.DiscordBotToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: discord: %w", err)
		}
		senders = append(senders, discord)
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
