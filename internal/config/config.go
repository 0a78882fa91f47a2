// Package config defines the top-level configuration for the polyscop engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYSCOP_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	Engine    EngineConfig    `toml:"engine"`
	Realtime  RealtimeConfig  `toml:"realtime"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the number of requests allowed per client per RateWindow.
	// Zero disables the limiter.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// UpstreamConfig holds the Polymarket endpoints the ingestor reads from.
type UpstreamConfig struct {
	DataAPIURL     string   `toml:"data_api_url"`
	GammaURL       string   `toml:"gamma_url"`
	Timeout        duration `toml:"timeout"`
	FetchLimit     int      `toml:"fetch_limit"`
	MinAmount      float64  `toml:"min_amount"`
	PollInterval   duration `toml:"poll_interval"`
	ResolveOutcome bool     `toml:"resolve_outcome"`
	// SnapshotTTL is how long a fetched batch is shared between request
	// handlers before the upstream is hit again.
	SnapshotTTL duration `toml:"snapshot_ttl"`
}

// EngineConfig holds the aggregation thresholds.
type EngineConfig struct {
	WhaleThreshold      float64  `toml:"whale_threshold"`
	HugeWhaleThreshold  float64  `toml:"huge_whale_threshold"`
	Window              duration `toml:"window"`
	MinProfit           float64  `toml:"min_profit"`
	MinWhaleTrades      int      `toml:"min_whale_trades"`
	MinVolume           float64  `toml:"min_volume"`
	TopTraders          int      `toml:"top_traders"`
	TopMarkets          int      `toml:"top_markets"`
	RankBy              string   `toml:"rank_by"`
	UnrealizedEstimator string   `toml:"unrealized_estimator"`
	UnrealizedMarkup    float64  `toml:"unrealized_markup"`
	MomentumWindow      int      `toml:"momentum_window"`
	WalletScanLimit     int      `toml:"wallet_scan_limit"`
}

// RealtimeConfig holds the per-connection distributor parameters.
type RealtimeConfig struct {
	Interval       duration `toml:"interval"`
	HistoryPoints  int      `toml:"history_points"`
	TrackedMarkets int      `toml:"tracked_markets"`
	FetchLimit     int      `toml:"fetch_limit"`
}

// ReconnectConfig holds the consumer-side reconnect policy.
type ReconnectConfig struct {
	StreamURL  string   `toml:"stream_url"`
	BaseDelay  duration `toml:"base_delay"`
	MaxDelay   duration `toml:"max_delay"`
	Jitter     float64  `toml:"jitter"`
	MaxRetries int      `toml:"max_retries"`
	History    int      `toml:"history"`
	Categories []string `toml:"categories"`
	MinAmount  float64  `toml:"min_amount"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty DSN and Host
// disables persistence.
type PostgresConfig struct {
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

// Enabled reports whether a database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.DSN != "" || p.Host != ""
}

// RedisConfig holds Redis connection parameters. An empty Addr disables Redis.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	PriceTTL     duration `toml:"price_ttl"`
	StreamMaxLen int      `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters. An empty Bucket
// disables archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the CSV trade archiver.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	Prefix   string   `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken    string   `toml:"telegram_token"`
	TelegramChatID   string   `toml:"telegram_chat_id"`
	DiscordBotToken  string   `toml:"discord_bot_token"`
	DiscordChannelID string   `toml:"discord_channel_id"`
	Events           []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Upstream: UpstreamConfig{
			DataAPIURL:     "https://data-api.polymarket.com",
			GammaURL:       "https://gamma-api.polymarket.com",
			Timeout:        duration{10 * time.Second},
			FetchLimit:     500,
			MinAmount:      1000,
			PollInterval:   duration{30 * time.Second},
			ResolveOutcome: true,
			SnapshotTTL:    duration{15 * time.Second},
		},
		Engine: EngineConfig{
			WhaleThreshold:      5000,
			HugeWhaleThreshold:  100000,
			Window:              duration{30 * 24 * time.Hour},
			MinProfit:           0,
			MinWhaleTrades:      3,
			MinVolume:           15000,
			TopTraders:          20,
			TopMarkets:          10,
			RankBy:              "profit",
			UnrealizedEstimator: "flat",
			UnrealizedMarkup:    0.10,
			MomentumWindow:      20,
			WalletScanLimit:     1000,
		},
		Realtime: RealtimeConfig{
			Interval:       duration{10 * time.Second},
			HistoryPoints:  50,
			TrackedMarkets: 10,
			FetchLimit:     50,
		},
		Reconnect: ReconnectConfig{
			StreamURL:  "ws://localhost:8000/ws",
			BaseDelay:  duration{5 * time.Second},
			MaxDelay:   duration{60 * time.Second},
			Jitter:     0.2,
			MaxRetries: 0,
			History:    100,
			MinAmount:  5000,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "polyscop",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			PriceTTL:     duration{time.Hour},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: duration{time.Hour},
			Prefix:   "trades",
		},
		Notify: NotifyConfig{
			Events: []string{"huge_whale", "error"},
		},
		Mode:     "all",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":  true,
	"ingest": true,
	"all":    true,
	"watch":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validEstimators = map[string]bool{
	"flat": true,
	"mark": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, ingest, all, watch)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be positive when rate_limit is set")
	}

	// Upstream
	if c.Upstream.DataAPIURL == "" {
		errs = append(errs, "upstream: data_api_url is required")
	}
	if c.Upstream.FetchLimit <= 0 {
		errs = append(errs, "upstream: fetch_limit must be positive")
	}
	if c.Upstream.MinAmount < 0 {
		errs = append(errs, "upstream: min_amount must be >= 0")
	}
	if c.Upstream.Timeout.Duration <= 0 {
		errs = append(errs, "upstream: timeout must be positive")
	}
	if c.Upstream.PollInterval.Duration <= 0 {
		errs = append(errs, "upstream: poll_interval must be positive")
	}
	if c.Upstream.ResolveOutcome && c.Upstream.GammaURL == "" {
		errs = append(errs, "upstream: gamma_url is required when resolve_outcome is true")
	}

	// Engine
	if c.Engine.WhaleThreshold <= 0 {
		errs = append(errs, "engine: whale_threshold must be positive")
	}
	if c.Engine.HugeWhaleThreshold < c.Engine.WhaleThreshold {
		errs = append(errs, "engine: huge_whale_threshold must be >= whale_threshold")
	}
	if c.Engine.Window.Duration <= 0 {
		errs = append(errs, "engine: window must be positive")
	}
	if c.Engine.MinWhaleTrades < 0 {
		errs = append(errs, "engine: min_whale_trades must be >= 0")
	}
	if c.Engine.TopTraders <= 0 || c.Engine.TopMarkets <= 0 {
		errs = append(errs, "engine: top_traders and top_markets must be positive")
	}
	if c.Engine.RankBy != "profit" && c.Engine.RankBy != "volume" {
		errs = append(errs, fmt.Sprintf("engine: unknown rank_by %q (valid: profit, volume)", c.Engine.RankBy))
	}
	if !validEstimators[c.Engine.UnrealizedEstimator] {
		errs = append(errs, fmt.Sprintf("engine: unknown unrealized_estimator %q (valid: flat, mark)", c.Engine.UnrealizedEstimator))
	}
	if c.Engine.UnrealizedEstimator == "mark" && c.Redis.Addr == "" {
		errs = append(errs, "engine: unrealized_estimator \"mark\" requires redis.addr")
	}
	if c.Engine.MomentumWindow <= 0 {
		errs = append(errs, "engine: momentum_window must be positive")
	}

	// Realtime
	if c.Realtime.Interval.Duration <= 0 {
		errs = append(errs, "realtime: interval must be positive")
	}
	if c.Realtime.HistoryPoints <= 0 {
		errs = append(errs, "realtime: history_points must be positive")
	}
	if c.Realtime.TrackedMarkets <= 0 {
		errs = append(errs, "realtime: tracked_markets must be positive")
	}

	// Reconnect
	if c.Reconnect.BaseDelay.Duration <= 0 {
		errs = append(errs, "reconnect: base_delay must be positive")
	}
	if c.Reconnect.MaxDelay.Duration < c.Reconnect.BaseDelay.Duration {
		errs = append(errs, "reconnect: max_delay must be >= base_delay")
	}
	if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1 {
		errs = append(errs, "reconnect: jitter must be within [0,1]")
	}
	if c.Reconnect.MaxRetries < 0 {
		errs = append(errs, "reconnect: max_retries must be >= 0")
	}
	if strings.ToLower(c.Mode) == "watch" && c.Reconnect.StreamURL == "" {
		errs = append(errs, "reconnect: stream_url is required for mode watch")
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "archive: s3.bucket is required when archive is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if (c.Notify.DiscordBotToken == "") != (c.Notify.DiscordChannelID == "") {
		errs = append(errs, "notify: discord_bot_token and discord_channel_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
