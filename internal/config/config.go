// Package config defines the configuration of the collectibles service and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by COLLECTIBLES_* environment variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Broadcast BroadcastConfig `toml:"broadcast"`
	Notify    NotifyConfig    `toml:"notify"`
	Metrics   MetricsConfig   `toml:"metrics"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// RateLimit caps offer submissions and price updates per client IP per
	// minute. Needs Redis; 0 disables it.
	RateLimit int `toml:"rate_limit_per_minute"`
}

// CatalogConfig selects where items and prices live.
type CatalogConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `toml:"backend"`
	// Items seeds the memory backend. Empty means the built-in demo catalog.
	Items []ItemConfig `toml:"items"`
}

// ItemConfig is one seeded catalog entry. Price is a decimal string.
type ItemConfig struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Price       string `toml:"price"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"ssl_mode"`
	// Audit records accepted offers and price updates in audit_log.
	Audit bool `toml:"audit"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	PriceTTL   Duration `toml:"price_ttl"`
}

// S3Config holds object storage parameters for ledger backups.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	BackupKey      string `toml:"backup_key"`
	// Restore seeds a missing ledger file from the backup on startup.
	Restore bool `toml:"restore"`
}

// LedgerConfig holds offer ledger file locations.
type LedgerConfig struct {
	Path       string `toml:"path"`
	LegacyPath string `toml:"legacy_path"`
}

// BroadcastConfig tunes price fan-out.
type BroadcastConfig struct {
	Workers       int      `toml:"workers"`
	SendBuffer    int      `toml:"send_buffer"`
	UpdateTimeout Duration `toml:"update_timeout"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Duration wraps time.Duration so TOML strings like "5s" decode directly.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with values that run the service
// standalone: memory catalog, local ledger file, no external services.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            4567,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{30 * time.Second},
			IdleTimeout:     Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			RateLimit:       30,
		},
		Catalog: CatalogConfig{
			Backend: "memory",
		},
		Postgres: PostgresConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "collectibles",
			User:     "postgres",
			SSLMode:  "disable",
			Audit:    true,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "collectibles:",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "collectibles",
			ForcePathStyle: true,
			BackupKey:      "ledger/offers.json",
			Restore:        true,
		},
		Ledger: LedgerConfig{
			Path:       "data/ofertas.json",
			LegacyPath: "src/main/resources/ofertas.json",
		},
		Broadcast: BroadcastConfig{
			Workers:       16,
			SendBuffer:    256,
			UpdateTimeout: Duration{5 * time.Second},
		},
		Notify: NotifyConfig{
			Events: []string{"offer_submitted", "price_updated"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		LogLevel: "info",
	}
}

var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit_per_minute must be >= 0")
	}

	backend := strings.ToLower(c.Catalog.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("catalog: unknown backend %q (valid: memory, postgres)", c.Catalog.Backend))
	}
	seen := make(map[string]bool, len(c.Catalog.Items))
	for i, it := range c.Catalog.Items {
		if strings.TrimSpace(it.ID) == "" {
			errs = append(errs, fmt.Sprintf("catalog: items[%d]: id must not be empty", i))
			continue
		}
		if seen[it.ID] {
			errs = append(errs, fmt.Sprintf("catalog: duplicate item id %q", it.ID))
		}
		seen[it.ID] = true
		p, err := decimal.NewFromString(it.Price)
		if err != nil || !p.IsPositive() {
			errs = append(errs, fmt.Sprintf("catalog: item %q: price must be a positive decimal, got %q", it.ID, it.Price))
		}
	}

	if backend == "postgres" && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if strings.TrimSpace(c.Ledger.Path) == "" {
		errs = append(errs, "ledger: path must not be empty")
	}

	if c.Broadcast.Workers < 1 {
		errs = append(errs, "broadcast: workers must be >= 1")
	}
	if c.Broadcast.SendBuffer < 1 {
		errs = append(errs, "broadcast: send_buffer must be >= 1")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("metrics: path must start with /, got %q", c.Metrics.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
