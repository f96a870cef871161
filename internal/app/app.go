// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lien-Gu/bookrank/internal/archive"
	"github.com/lien-Gu/bookrank/internal/catalog"
	clocksys "github.com/lien-Gu/bookrank/internal/clock/system"
	"github.com/lien-Gu/bookrank/internal/config"
	"github.com/lien-Gu/bookrank/internal/crawl"
	"github.com/lien-Gu/bookrank/internal/events"
	"github.com/lien-Gu/bookrank/internal/fetch"
	iduuid "github.com/lien-Gu/bookrank/internal/id/uuid"
	"github.com/lien-Gu/bookrank/internal/logging"
	"github.com/lien-Gu/bookrank/internal/metrics"
	"github.com/lien-Gu/bookrank/internal/store"
	"github.com/lien-Gu/bookrank/internal/store/memory"
	"github.com/lien-Gu/bookrank/internal/store/postgres"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   *catalog.Catalog
	stores    store.Provider
	archive   archive.Store
	publisher events.Publisher
	runner    *crawl.Runner
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Catalog returns the site catalog.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Stores exposes the configured persistence provider.
func (a *App) Stores() store.Provider { return a.stores }

// Runner returns the crawl pipeline runner.
func (a *App) Runner() *crawl.Runner { return a.runner }

// NewApp creates and initializes an App from the configuration. It is the
// central point for service initialization and fails fast if any critical
// service cannot be brought up.
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	l := logging.L
	l.Info("initializing application services")
	metrics.Init()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	l.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("pages", len(cat.Pages)),
	)

	stores, err := newStores(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	arch, err := newArchive(ctx, cfg, l)
	if err != nil {
		stores.Close()
		return nil, err
	}
	publisher, err := newPublisher(ctx, cfg, l)
	if err != nil {
		stores.Close()
		return nil, err
	}

	fetchCfg := fetch.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		Timeout:       cfg.Fetch.Timeout,
		Retries:       cfg.Fetch.Retries,
		RetryWait:     cfg.Fetch.RetryWait,
		RetryMaxWait:  cfg.Fetch.RetryMaxWait,
		RatePerSecond: cfg.Fetch.RatePerSecond,
		RateBurst:     cfg.Fetch.RateBurst,
	}
	if cat.UserAgent != "" {
		fetchCfg.UserAgent = cat.UserAgent
	}
	fetcher := fetch.NewClient(fetchCfg, l)

	runner := crawl.NewRunner(
		fetcher,
		stores,
		arch,
		publisher,
		clocksys.New(),
		iduuid.NewUUIDGenerator(),
		l,
	)

	l.Info("application services initialized")
	return &App{
		cfg:       cfg,
		logger:    l,
		catalog:   cat,
		stores:    stores,
		archive:   arch,
		publisher: publisher,
		runner:    runner,
	}, nil
}

func newStores(ctx context.Context, cfg config.Config, l *zap.Logger) (store.Provider, error) {
	switch cfg.Database.Provider {
	case "postgres":
		l.Info("connecting to PostgreSQL")
		provider, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		if err := provider.EnsureSchema(ctx); err != nil {
			provider.Close()
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		return provider, nil
	case "memory":
		l.Info("using in-memory database provider, data is not persisted")
		return memory.NewProvider(), nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}
}

func newArchive(ctx context.Context, cfg config.Config, l *zap.Logger) (archive.Store, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		l.Info("using GCS archive provider", zap.String("bucket", cfg.Archive.GCS.BucketName))
		arch, err := archive.NewGCSStore(ctx, cfg.Archive.GCS.BucketName, l)
		if err != nil {
			return nil, fmt.Errorf("initialize archive: %w", err)
		}
		return arch, nil
	case "local":
		l.Info("using local archive provider", zap.String("dir", cfg.Archive.Local.Dir))
		arch, err := archive.NewLocalStore(cfg.Archive.Local.Dir)
		if err != nil {
			return nil, fmt.Errorf("initialize archive: %w", err)
		}
		return arch, nil
	case "noop":
		l.Info("using no-op archive provider, raw payloads are discarded")
		return archive.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown archive provider: %s", cfg.Archive.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config, l *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		l.Info("connecting to GCP Pub/Sub", zap.String("topic", cfg.Events.GCP.TopicID))
		pub, err := events.NewPubSub(ctx, cfg.Events.GCP.ProjectID, cfg.Events.GCP.TopicID)
		if err != nil {
			return nil, fmt.Errorf("initialize events: %w", err)
		}
		return pub, nil
	case "memory":
		return events.NewMemory(), nil
	case "noop":
		l.Info("using no-op events provider, no messages will be sent")
		return events.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.stores.Close()
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("error closing event publisher", zap.Error(err))
	}
	// Best effort, stdout sync commonly fails on some platforms.
	_ = a.logger.Sync()
}
