package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (if path is not empty) on top of the
// built-in defaults, applies COLLECTIBLES_* environment overrides, and returns
// the result. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from COLLECTIBLES_* variables
// that are set and non-empty.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "COLLECTIBLES_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform alias
	setStringSlice(&cfg.Server.CORSOrigins, "COLLECTIBLES_SERVER_CORS_ORIGINS")
	setDuration(&cfg.Server.ShutdownTimeout, "COLLECTIBLES_SERVER_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Server.RateLimit, "COLLECTIBLES_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Catalog ──
	setStr(&cfg.Catalog.Backend, "COLLECTIBLES_CATALOG_BACKEND")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COLLECTIBLES_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "COLLECTIBLES_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COLLECTIBLES_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COLLECTIBLES_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COLLECTIBLES_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COLLECTIBLES_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COLLECTIBLES_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.Audit, "COLLECTIBLES_POSTGRES_AUDIT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "COLLECTIBLES_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "COLLECTIBLES_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COLLECTIBLES_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COLLECTIBLES_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "COLLECTIBLES_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "COLLECTIBLES_REDIS_KEY_PREFIX")
	setDuration(&cfg.Redis.PriceTTL, "COLLECTIBLES_REDIS_PRICE_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "COLLECTIBLES_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "COLLECTIBLES_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COLLECTIBLES_S3_REGION")
	setStr(&cfg.S3.Bucket, "COLLECTIBLES_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COLLECTIBLES_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COLLECTIBLES_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COLLECTIBLES_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COLLECTIBLES_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "COLLECTIBLES_S3_PREFIX")
	setStr(&cfg.S3.BackupKey, "COLLECTIBLES_S3_BACKUP_KEY")
	setBool(&cfg.S3.Restore, "COLLECTIBLES_S3_RESTORE")

	// ── Ledger ──
	setStr(&cfg.Ledger.Path, "COLLECTIBLES_LEDGER_PATH")
	setStr(&cfg.Ledger.LegacyPath, "COLLECTIBLES_LEDGER_LEGACY_PATH")

	// ── Broadcast ──
	setInt(&cfg.Broadcast.Workers, "COLLECTIBLES_BROADCAST_WORKERS")
	setInt(&cfg.Broadcast.SendBuffer, "COLLECTIBLES_BROADCAST_SEND_BUFFER")
	setDuration(&cfg.Broadcast.UpdateTimeout, "COLLECTIBLES_BROADCAST_UPDATE_TIMEOUT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "COLLECTIBLES_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "COLLECTIBLES_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "COLLECTIBLES_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "COLLECTIBLES_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "COLLECTIBLES_METRICS_ENABLED")
	setStr(&cfg.Metrics.Path, "COLLECTIBLES_METRICS_PATH")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "COLLECTIBLES_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and parses.

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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
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
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
