package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.Engine.WhaleThreshold != 5000 {
		t.Errorf("expected whale threshold 5000, got %v", cfg.Engine.WhaleThreshold)
	}
	if cfg.Realtime.Interval.Duration != 10*time.Second {
		t.Errorf("expected realtime interval 10s, got %v", cfg.Realtime.Interval.Duration)
	}
	if cfg.Reconnect.BaseDelay.Duration != 5*time.Second {
		t.Errorf("expected reconnect base delay 5s, got %v", cfg.Reconnect.BaseDelay.Duration)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Engine.RankBy = "luck"
	cfg.Reconnect.Jitter = 2

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "rank_by", "jitter"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestValidateMarkEstimatorNeedsRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.UnrealizedEstimator = "mark"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for mark estimator without redis")
	}
	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polyscop.toml")
	body := `
mode = "serve"

[engine]
whale_threshold = 7500
window = "72h"

[realtime]
interval = "3s"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLYSCOP_ENGINE_MIN_VOLUME", "20000")
	t.Setenv("POLYSCOP_RECONNECT_CATEGORIES", "Sports, Crypto ,")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != "serve" {
		t.Errorf("expected mode serve, got %q", cfg.Mode)
	}
	if cfg.Engine.WhaleThreshold != 7500 {
		t.Errorf("expected whale threshold 7500, got %v", cfg.Engine.WhaleThreshold)
	}
	if cfg.Engine.Window.Duration != 72*time.Hour {
		t.Errorf("expected window 72h, got %v", cfg.Engine.Window.Duration)
	}
	if cfg.Realtime.Interval.Duration != 3*time.Second {
		t.Errorf("expected interval 3s, got %v", cfg.Realtime.Interval.Duration)
	}
	if cfg.Engine.MinVolume != 20000 {
		t.Errorf("expected env min volume 20000, got %v", cfg.Engine.MinVolume)
	}
	if len(cfg.Reconnect.Categories) != 2 || cfg.Reconnect.Categories[1] != "Crypto" {
		t.Errorf("unexpected categories %v", cfg.Reconnect.Categories)
	}
	// Untouched sections keep their defaults.
	if cfg.Engine.TopTraders != 20 {
		t.Errorf("expected default top traders 20, got %d", cfg.Engine.TopTraders)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://u:secret@db/polyscop"
	cfg.Notify.DiscordBotToken = "token"
	cfg.Notify.DiscordChannelID = "123"

	out := RedactedConfig(&cfg)
	if out.Postgres.DSN != redacted {
		t.Errorf("expected DSN redacted, got %q", out.Postgres.DSN)
	}
	if out.Notify.DiscordBotToken != redacted {
		t.Errorf("expected discord token redacted, got %q", out.Notify.DiscordBotToken)
	}
	if out.Notify.DiscordChannelID != "123" {
		t.Errorf("expected channel id kept, got %q", out.Notify.DiscordChannelID)
	}
	if cfg.Postgres.DSN == redacted {
		t.Error("original config must not be mutated")
	}
	out.Server.CORSOrigins[0] = "changed"
	if cfg.Server.CORSOrigins[0] == "changed" {
		t.Error("redacted copy shares CORS slice with original")
	}
}
