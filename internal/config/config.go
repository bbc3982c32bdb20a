package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries all runtime settings, loaded from the environment.
type Config struct {
	AppEnv           string
	LogLevel         string
	HTTPListenAddr   string
	PublicBasePath   string
	MetricsNamespace string

	// DatabaseURL selects Postgres; when empty, SQLitePath is used as
	// a local fallback (no change-feed triggers there).
	DatabaseURL    string
	DatabaseSchema string
	SQLitePath     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	// MessagingBaseURL has no default on purpose: a missing value is a
	// startup error rather than a silently wrong host.
	MessagingBaseURL            string
	MessagingTimeout            time.Duration
	MessagingWebhookUsernameMD5 string
	MessagingWebhookPasswordMD5 string

	AutosaveQuietPeriod time.Duration
	NotificationLimit   int
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getenv("APP_ENV", "development"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		HTTPListenAddr:   getenv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBasePath:   getenv("PUBLIC_BASE_PATH", ""),
		MetricsNamespace: getenv("METRICS_NAMESPACE", "printdesk"),

		DatabaseURL:    getenv("DATABASE_URL", ""),
		DatabaseSchema: getenv("DATABASE_SCHEMA", "public"),
		SQLitePath:     getenv("SQLITE_PATH", "printdesk.db"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		MessagingBaseURL:            getenv("MESSAGING_BASE_URL", ""),
		MessagingWebhookUsernameMD5: getenv("MESSAGING_WEBHOOK_USERNAME_MD5", ""),
		MessagingWebhookPasswordMD5: getenv("MESSAGING_WEBHOOK_PASSWORD_MD5", ""),
	}

	var err error
	if cfg.RedisDB, err = getenvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = getenvBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.MessagingTimeout, err = getenvDuration("MESSAGING_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.AutosaveQuietPeriod, err = getenvDuration("AUTOSAVE_QUIET_PERIOD", time.Second); err != nil {
		return nil, err
	}
	if cfg.NotificationLimit, err = getenvInt("NOTIFICATION_LIMIT", 20); err != nil {
		return nil, err
	}

	if cfg.MessagingBaseURL == "" {
		return nil, fmt.Errorf("MESSAGING_BASE_URL is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}
