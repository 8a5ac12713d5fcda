// Package app provides the top-level application lifecycle of the
// collectibles service. It wires stores, caches, blob storage, the offer
// ledger, the price broadcast path and the HTTP server, and runs them until
// the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/collectibles/internal/config"
	"github.com/alanyoungcy/collectibles/internal/ledger"
	"github.com/alanyoungcy/collectibles/internal/metrics"
	"github.com/alanyoungcy/collectibles/internal/server"
	"github.com/alanyoungcy/collectibles/internal/server/handler"
	"github.com/alanyoungcy/collectibles/internal/server/ws"
	"github.com/alanyoungcy/collectibles/internal/service"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, loads the offer ledger, and serves HTTP and
// WebSocket traffic until ctx is cancelled. On a clean shutdown the returned
// error wraps context.Canceled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("catalog_backend", a.cfg.Catalog.Backend),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	m := metrics.New()
	instanceID := uuid.NewString()

	// --- Offer ledger ---
	fileStore := ledger.NewFileStore(a.cfg.Ledger.Path, ledger.FileStoreOptions{
		LegacyPath: a.cfg.Ledger.LegacyPath,
		Backup:     deps.BlobWriter,
		Restore:    deps.BlobReader,
		BackupKey:  a.cfg.S3.BackupKey,
	}, a.logger)
	offerLedger := ledger.New(deps.Items, fileStore, a.logger)
	if err := offerLedger.Load(ctx); err != nil {
		return fmt.Errorf("app: load ledger: %w", err)
	}

	// --- Services ---
	var (
		priceNotifier service.PriceNotifier
		offerNotifier service.OfferNotifier
	)
	if deps.Notifier != nil {
		priceNotifier = deps.Notifier
		offerNotifier = deps.Notifier
	}

	registry := ws.NewRegistry()
	broadcaster := ws.NewBroadcaster(registry, a.cfg.Broadcast.Workers, a.logger, m)
	priceSvc := service.NewPriceService(deps.Items, broadcaster, service.PriceServiceOptions{
		Cache:      deps.PriceCache,
		Bus:        deps.SignalBus,
		Audit:      deps.Audit,
		Notifier:   priceNotifier,
		Metrics:    m,
		InstanceID: instanceID,
	}, a.logger)
	offerSvc := service.NewOfferService(offerLedger, deps.Audit, offerNotifier, m, a.logger)
	catalogSvc := service.NewCatalogService(deps.Items)

	hub := ws.NewHub(registry, priceSvc, a.logger.With(slog.String("component", "ws")), ws.Config{
		SendBuffer:    a.cfg.Broadcast.SendBuffer,
		UpdateTimeout: a.cfg.Broadcast.UpdateTimeout.Duration,
	}, m)

	// --- HTTP ---
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Status: handler.NewStatusHandler(hub, offerLedger, a.cfg.Catalog.Backend, time.Now()),
		Offers: handler.NewOfferHandler(offerSvc, a.logger),
		Items:  handler.NewItemHandler(catalogSvc, priceSvc, offerSvc, a.logger),
		Prices: hub.HandleWS,
	}
	if deps.Audit != nil {
		handlers.Audit = handler.NewAuditHandler(deps.Audit, a.logger)
	}
	if a.cfg.Metrics.Enabled {
		handlers.Metrics = m.Handler()
	}

	srv := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  a.cfg.Server.IdleTimeout.Duration,
		MetricsPath:  a.cfg.Metrics.Path,
		Limiter:      deps.RateLimiter,
		RateLimit:    a.cfg.Server.RateLimit,
	}, handlers, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	if deps.SignalBus != nil {
		relay := service.NewPriceRelay(deps.SignalBus, broadcaster, instanceID, a.logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("addr", srv.Addr()),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
			slog.Int("offers", offerLedger.Len()),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
