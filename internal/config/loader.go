package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYSCOP_* environment variable overrides, and
// returns the final Config. A missing file is not an error; the defaults are
// used instead. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYSCOP_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "POLYSCOP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYSCOP_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "POLYSCOP_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "POLYSCOP_SERVER_RATE_WINDOW")

	// ── Upstream ──
	setStr(&cfg.Upstream.DataAPIURL, "POLYSCOP_UPSTREAM_DATA_API_URL")
	setStr(&cfg.Upstream.GammaURL, "POLYSCOP_UPSTREAM_GAMMA_URL")
	setDuration(&cfg.Upstream.Timeout, "POLYSCOP_UPSTREAM_TIMEOUT")
	setInt(&cfg.Upstream.FetchLimit, "POLYSCOP_UPSTREAM_FETCH_LIMIT")
	setFloat64(&cfg.Upstream.MinAmount, "POLYSCOP_UPSTREAM_MIN_AMOUNT")
	setDuration(&cfg.Upstream.PollInterval, "POLYSCOP_UPSTREAM_POLL_INTERVAL")
	setBool(&cfg.Upstream.ResolveOutcome, "POLYSCOP_UPSTREAM_RESOLVE_OUTCOME")
	setDuration(&cfg.Upstream.SnapshotTTL, "POLYSCOP_UPSTREAM_SNAPSHOT_TTL")

	// ── Engine ──
	setFloat64(&cfg.Engine.WhaleThreshold, "POLYSCOP_ENGINE_WHALE_THRESHOLD")
	setFloat64(&cfg.Engine.HugeWhaleThreshold, "POLYSCOP_ENGINE_HUGE_WHALE_THRESHOLD")
	setDuration(&cfg.Engine.Window, "POLYSCOP_ENGINE_WINDOW")
	setFloat64(&cfg.Engine.MinProfit, "POLYSCOP_ENGINE_MIN_PROFIT")
	setInt(&cfg.Engine.MinWhaleTrades, "POLYSCOP_ENGINE_MIN_WHALE_TRADES")
	setFloat64(&cfg.Engine.MinVolume, "POLYSCOP_ENGINE_MIN_VOLUME")
	setInt(&cfg.Engine.TopTraders, "POLYSCOP_ENGINE_TOP_TRADERS")
	setInt(&cfg.Engine.TopMarkets, "POLYSCOP_ENGINE_TOP_MARKETS")
	setStr(&cfg.Engine.RankBy, "POLYSCOP_ENGINE_RANK_BY")
	setStr(&cfg.Engine.UnrealizedEstimator, "POLYSCOP_ENGINE_UNREALIZED_ESTIMATOR")
	setFloat64(&cfg.Engine.UnrealizedMarkup, "POLYSCOP_ENGINE_UNREALIZED_MARKUP")
	setInt(&cfg.Engine.MomentumWindow, "POLYSCOP_ENGINE_MOMENTUM_WINDOW")
	setInt(&cfg.Engine.WalletScanLimit, "POLYSCOP_ENGINE_WALLET_SCAN_LIMIT")

	// ── Realtime ──
	setDuration(&cfg.Realtime.Interval, "POLYSCOP_REALTIME_INTERVAL")
	setInt(&cfg.Realtime.HistoryPoints, "POLYSCOP_REALTIME_HISTORY_POINTS")
	setInt(&cfg.Realtime.TrackedMarkets, "POLYSCOP_REALTIME_TRACKED_MARKETS")
	setInt(&cfg.Realtime.FetchLimit, "POLYSCOP_REALTIME_FETCH_LIMIT")

	// ── Reconnect ──
	setStr(&cfg.Reconnect.StreamURL, "POLYSCOP_RECONNECT_STREAM_URL")
	setDuration(&cfg.Reconnect.BaseDelay, "POLYSCOP_RECONNECT_BASE_DELAY")
	setDuration(&cfg.Reconnect.MaxDelay, "POLYSCOP_RECONNECT_MAX_DELAY")
	setFloat64(&cfg.Reconnect.Jitter, "POLYSCOP_RECONNECT_JITTER")
	setInt(&cfg.Reconnect.MaxRetries, "POLYSCOP_RECONNECT_MAX_RETRIES")
	setInt(&cfg.Reconnect.History, "POLYSCOP_RECONNECT_HISTORY")
	setStringSlice(&cfg.Reconnect.Categories, "POLYSCOP_RECONNECT_CATEGORIES")
	setFloat64(&cfg.Reconnect.MinAmount, "POLYSCOP_RECONNECT_MIN_AMOUNT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POLYSCOP_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POLYSCOP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYSCOP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYSCOP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYSCOP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYSCOP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYSCOP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYSCOP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYSCOP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYSCOP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "POLYSCOP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYSCOP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYSCOP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYSCOP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYSCOP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYSCOP_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PriceTTL, "POLYSCOP_REDIS_PRICE_TTL")
	setInt(&cfg.Redis.StreamMaxLen, "POLYSCOP_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "POLYSCOP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYSCOP_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYSCOP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYSCOP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYSCOP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYSCOP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYSCOP_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "POLYSCOP_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "POLYSCOP_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Prefix, "POLYSCOP_ARCHIVE_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYSCOP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYSCOP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordBotToken, "POLYSCOP_NOTIFY_DISCORD_BOT_TOKEN")
	setStr(&cfg.Notify.DiscordChannelID, "POLYSCOP_NOTIFY_DISCORD_CHANNEL_ID")
	setStringSlice(&cfg.Notify.Events, "POLYSCOP_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYSCOP_MODE")
	setStr(&cfg.LogLevel, "POLYSCOP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
