package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/High-Blood-Pressure/telegram-clickup-bot/internal/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("CLICKUP_API_TOKEN", "cu-token")
	t.Setenv("ADMIN_IDS", " 1, 2 ,,3 ")
	t.Setenv("FLUSH_INTERVAL", "30s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TelegramToken != "tg-token" || cfg.ClickUpToken != "cu-token" {
		t.Fatalf("tokens not loaded: %+v", cfg)
	}
	if len(cfg.AdminIDs) != 3 || cfg.AdminIDs[0] != "1" || cfg.AdminIDs[2] != "3" {
		t.Fatalf("admin ids not parsed: %v", cfg.AdminIDs)
	}
	if cfg.FlushInterval != 30*time.Second {
		t.Fatalf("flush interval not parsed: %v", cfg.FlushInterval)
	}
	if cfg.DBPath != "timelogger.db" {
		t.Fatalf("default db path missing: %q", cfg.DBPath)
	}
}

func TestLoadRequiresTokens(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("CLICKUP_API_TOKEN", "cu-token")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error without telegram token")
	}
}

func TestYAMLOverlayAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("telegram_token: from-file\nclickup_token: from-file\ndb_path: file.db\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BOT_CONFIG_FILE", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("CLICKUP_API_TOKEN", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TelegramToken != "from-env" {
		t.Fatalf("env should win over file, got %q", cfg.TelegramToken)
	}
	if cfg.ClickUpToken != "from-file" {
		t.Fatalf("file value should apply, got %q", cfg.ClickUpToken)
	}
	if cfg.DBPath != "file.db" || cfg.LogLevel != "debug" {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("file log level not mapped: %v", cfg.SlogLevel())
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		cfg := &config.Config{LogLevel: tc.level}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.level, got, tc.want)
		}
	}
}
