package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramToken  string        `yaml:"telegram_token"`
	ClickUpToken   string        `yaml:"clickup_token"`
	ClickUpBaseURL string        `yaml:"clickup_base_url"`
	AdminSalt      string        `yaml:"admin_salt"`
	AdminIDs       []string      `yaml:"admin_ids"`
	DBPath         string        `yaml:"db_path"`
	SessionFile    string        `yaml:"session_file"`
	FlushInterval  time.Duration `yaml:"flush_interval"`
	// Ops HTTP surface
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	// Logging
	LogLevel string `yaml:"log_level"`
}

// Load builds the config from defaults, then the optional YAML file named by
// BOT_CONFIG_FILE, then environment variables. Env always wins.
func Load() (*Config, error) {
	cfg := &Config{
		ClickUpBaseURL: "https://api.clickup.com/api/v2",
		AdminSalt:      "default_secret_salt",
		DBPath:         "timelogger.db",
		SessionFile:    "user_contexts.json",
		FlushInterval:  5 * time.Minute,
		Port:           8080,
		LogLevel:       "info",
	}

	if path := os.Getenv("BOT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.TelegramToken = envStr("TELEGRAM_BOT_TOKEN", cfg.TelegramToken)
	cfg.ClickUpToken = envStr("CLICKUP_API_TOKEN", cfg.ClickUpToken)
	cfg.ClickUpBaseURL = envStr("CLICKUP_BASE_URL", cfg.ClickUpBaseURL)
	cfg.AdminSalt = envStr("ADMIN_SALT", cfg.AdminSalt)
	cfg.AdminIDs = envList("ADMIN_IDS", cfg.AdminIDs)
	cfg.DBPath = envStr("DB_FILE", cfg.DBPath)
	cfg.SessionFile = envStr("DATA_FILE", cfg.SessionFile)
	cfg.FlushInterval = envDuration("FLUSH_INTERVAL", cfg.FlushInterval)
	cfg.Port = envInt("PORT", cfg.Port)
	cfg.APIKey = envStr("API_KEY", cfg.APIKey)
	cfg.LogLevel = envStr("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if c.ClickUpToken == "" {
		return fmt.Errorf("CLICKUP_API_TOKEN must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_FILE must not be empty")
	}
	if c.SessionFile == "" {
		return fmt.Errorf("DATA_FILE must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("FLUSH_INTERVAL must be positive, got %s", c.FlushInterval)
	}
	return nil
}

// SlogLevel maps the configured log level to a slog.Level. Unknown values
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var items []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
