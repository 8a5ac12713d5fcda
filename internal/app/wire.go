package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/collectibles/internal/blob/s3"
	"github.com/alanyoungcy/collectibles/internal/cache/redis"
	"github.com/alanyoungcy/collectibles/internal/config"
	"github.com/alanyoungcy/collectibles/internal/domain"
	"github.com/alanyoungcy/collectibles/internal/notify"
	"github.com/alanyoungcy/collectibles/internal/server/handler"
	"github.com/alanyoungcy/collectibles/internal/store/memory"
	"github.com/alanyoungcy/collectibles/internal/store/postgres"
	"github.com/shopspring/decimal"
)

// Dependencies bundles the infrastructure the application runs on. Optional
// pieces are nil when their backend is not configured.
type Dependencies struct {
	// Catalog and prices.
	Items domain.ItemStore
	Audit domain.AuditStore

	// Redis.
	PriceCache  domain.PriceCache
	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	// Ledger backup.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader

	Notifier *notify.Notifier

	// Checks probes every external backend for /api/health.
	Checks map[string]handler.Checker
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

	deps := &Dependencies{Checks: make(map[string]handler.Checker)}

	// --- Catalog ---
	switch strings.ToLower(cfg.Catalog.Backend) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		deps.Checks["postgres"] = pgClient.Ping

		pool := pgClient.Pool()
		deps.Items = postgres.NewItemStore(pool)
		if cfg.Postgres.Audit {
			deps.Audit = postgres.NewAuditStore(pool)
		}
	default:
		items, err := seedItems(cfg.Catalog.Items)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: catalog: %w", err)
		}
		deps.Items = memory.NewItemStore(items)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Checks["redis"] = redisClient.Ping

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- S3 ledger backup ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Checks["s3"] = s3Client.Health

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		if cfg.S3.Restore {
			deps.BlobReader = s3blob.NewReader(s3Client)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("",
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

// seedItems converts configured catalog entries into items. With no entries
// the built-in demo catalog is used.
func seedItems(cfg []config.ItemConfig) ([]domain.Item, error) {
	if len(cfg) == 0 {
		return memory.DefaultItems(), nil
	}
	items := make([]domain.Item, 0, len(cfg))
	for _, c := range cfg {
		price, err := decimal.NewFromString(c.Price)
		if err != nil {
			return nil, fmt.Errorf("item %q: parse price %q: %w", c.ID, c.Price, err)
		}
		name := c.Name
		if name == "" {
			name = c.ID
		}
		items = append(items, domain.Item{
			ID:          c.ID,
			Name:        name,
			Description: c.Description,
			Price:       price,
		})
	}
	return items, nil
}
