// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mkraev/alkoteka-crawler/internal/archive"
	"github.com/mkraev/alkoteka-crawler/internal/catalog"
	"github.com/mkraev/alkoteka-crawler/internal/config"
	"github.com/mkraev/alkoteka-crawler/internal/crawler"
	"github.com/mkraev/alkoteka-crawler/internal/logging"
	"github.com/mkraev/alkoteka-crawler/internal/publisher/pubsub"
	"github.com/mkraev/alkoteka-crawler/internal/sink/jsonl"
	sinkpg "github.com/mkraev/alkoteka-crawler/internal/sink/postgres"
)

// App holds the shared, long-lived services for one invocation: the logger,
// the record sink, and the optional publisher and archive. It is initialized
// once at startup and handed to the command that needs it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	sink      crawler.RecordSink
	publisher crawler.Publisher
	archive   archive.Provider
	closers   []io.Closer
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Sink exposes the configured record sink.
func (a *App) Sink() crawler.RecordSink {
	return a.sink
}

// Publisher returns the record publisher, or nil when disabled.
func (a *App) Publisher() crawler.Publisher {
	return a.publisher
}

// Archive returns the raw payload archive, or nil when disabled.
func (a *App) Archive() archive.Provider {
	return a.archive
}

// Source returns the upstream endpoint configuration in domain form.
func (a *App) Source() catalog.SourceConfig {
	return catalog.SourceConfig{
		BaseURL:      a.cfg.Source.BaseURL,
		CityUUID:     a.cfg.Source.CityUUID,
		CategoryConf: a.cfg.Source.CategoryConf,
	}
}

// New creates and initializes an App from configuration. It is the central
// point for service initialization and fails fast if any service cannot be
// built.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{cfg: cfg, logger: logger}

	if err := a.initSink(ctx); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("sink", cfg.Sink.Provider),
		zap.String("publisher", cfg.Publisher.Provider),
		zap.String("archive", cfg.Archive.Provider),
	)
	return a, nil
}

func (a *App) initSink(ctx context.Context) error {
	switch a.cfg.Sink.Provider {
	case "jsonl":
		a.logger.Info("using jsonl sink", zap.String("path", a.cfg.Sink.Path))
		sink, err := jsonl.New(a.cfg.Sink.Path, a.logger)
		if err != nil {
			return fmt.Errorf("init jsonl sink: %w", err)
		}
		a.sink = sink
	case "postgres":
		a.logger.Info("using postgres sink", zap.String("table", a.cfg.Sink.Table))
		sink, err := sinkpg.New(ctx, sinkpg.Config{
			DSN:   a.cfg.Sink.DSN,
			Table: a.cfg.Sink.Table,
		})
		if err != nil {
			return fmt.Errorf("init postgres sink: %w", err)
		}
		a.sink = sink
	case "noop":
		a.logger.Info("using no-op sink, records will be discarded")
		a.sink = noopSink{}
	default:
		return fmt.Errorf("unknown sink provider %q", a.cfg.Sink.Provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context) error {
	switch a.cfg.Publisher.Provider {
	case "pubsub":
		a.logger.Info("using pubsub publisher", zap.String("topic", a.cfg.Publisher.TopicID))
		pub, err := pubsub.New(ctx, a.cfg.Publisher.ProjectID, a.cfg.Publisher.TopicID, a.logger)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		a.publisher = pub
		a.closers = append(a.closers, pub)
	case "none":
		a.publisher = nil
	default:
		return fmt.Errorf("unknown publisher provider %q", a.cfg.Publisher.Provider)
	}
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	switch a.cfg.Archive.Provider {
	case "gcs":
		a.logger.Info("using gcs archive", zap.String("bucket", a.cfg.Archive.Bucket))
		provider, err := archive.NewGCSProvider(ctx, a.cfg.Archive.Bucket, a.logger)
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		a.archive = provider
		a.closers = append(a.closers, provider)
	case "fs":
		a.logger.Info("using filesystem archive", zap.String("dir", a.cfg.Archive.Dir))
		provider, err := archive.NewFSProvider(a.cfg.Archive.Dir)
		if err != nil {
			return fmt.Errorf("init fs archive: %w", err)
		}
		a.archive = provider
	case "none":
		a.archive = nil
	default:
		return fmt.Errorf("unknown archive provider %q", a.cfg.Archive.Provider)
	}
	return nil
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	ctx := context.Background()
	if a.sink != nil {
		if err := a.sink.Close(ctx); err != nil {
			a.logger.Warn("close sink", zap.Error(err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close service", zap.Error(err))
		}
	}
	// Flush buffered log entries; stderr sync errors are expected on some
	// platforms and safe to ignore.
	_ = a.logger.Sync()
}

type noopSink struct{}

func (noopSink) Emit(context.Context, catalog.ProductRecord) error { return nil }
func (noopSink) Close(context.Context) error                       { return nil }
