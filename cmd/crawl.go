package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkraev/alkoteka-crawler/internal/api"
	"github.com/mkraev/alkoteka-crawler/internal/app"
	"github.com/mkraev/alkoteka-crawler/internal/catalog"
	clocksys "github.com/mkraev/alkoteka-crawler/internal/clock/system"
	"github.com/mkraev/alkoteka-crawler/internal/crawler"
	collyfetcher "github.com/mkraev/alkoteka-crawler/internal/fetcher/colly"
	retryfetcher "github.com/mkraev/alkoteka-crawler/internal/fetcher/retry"
	"github.com/mkraev/alkoteka-crawler/internal/id/uuid"
	"github.com/mkraev/alkoteka-crawler/internal/policy/ratelimit"
	"github.com/mkraev/alkoteka-crawler/internal/progress"
	"github.com/mkraev/alkoteka-crawler/internal/progress/sinks"
	queuemem "github.com/mkraev/alkoteka-crawler/internal/queue/memory"
)

// newCrawlCmd creates and configures the 'crawl' subcommand, which walks
// every configured category to exhaustion and emits product records.
func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Starts the catalog crawl",
		Long: `Walks the configured category listings page by page, fetches every
discovered product detail endpoint, and writes one normalized record
per product to the configured sink.`,

		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()
	cfg := appInstance.Config()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeds := resolveSeeds(cfg.Source.SeedsFile, logger)

	runID, err := uuid.NewGenerator().NewRawID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}

	hub, stats, err := buildProgress(logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := hub.Close(context.Background()); cerr != nil {
			logger.Warn("close progress hub", zap.Error(cerr))
		}
	}()

	if cfg.Server.Enabled {
		server := api.NewServer(stats, prometheus.DefaultGatherer, logger)
		go func() {
			if serr := server.Serve(ctx, cfg.Server.Port); serr != nil {
				logger.Error("status server stopped", zap.Error(serr))
			}
		}()
	}

	engine := buildEngine(appInstance, hub, progress.UUIDToBytes(runID))

	logger.Info("starting crawl",
		zap.String("run_id", runID.String()),
		zap.Strings("categories", seeds),
		zap.Int("concurrency", cfg.Crawler.Concurrency),
	)
	if err := engine.Run(ctx, seeds); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl finished")
	return nil
}

// resolveSeeds loads the category list, falling back to the fixed defaults
// when the seed file is unavailable. The fallback is a warning, not an
// error: the defaults cover the main catalog sections.
func resolveSeeds(path string, logger *zap.Logger) []string {
	seeds, err := catalog.LoadSeedsFile(path)
	if err != nil {
		logger.Warn("seed file unavailable, using default categories",
			zap.String("path", path),
			zap.Error(err),
		)
		return catalog.DefaultSeeds()
	}
	if len(seeds) == 0 {
		logger.Warn("seed file is empty, using default categories", zap.String("path", path))
		return catalog.DefaultSeeds()
	}
	return seeds
}

func buildProgress(logger *zap.Logger) (*progress.Hub, *sinks.StatsSink, error) {
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	stats := sinks.NewStatsSink()
	hub := progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
		stats,
	)
	return hub, stats, nil
}

func buildEngine(appInstance *app.App, hub *progress.Hub, runID [16]byte) *crawler.Engine {
	cfg := appInstance.Config()

	fetcher := retryfetcher.New(
		collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Crawler.UserAgent,
			Timeout:   cfg.FetchTimeout(),
		}),
		retryfetcher.Config{MaxAttempts: cfg.Crawler.RetryAttempts},
		appInstance.Logger(),
	)
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Crawler.RPS,
		DefaultBurst: cfg.Crawler.Burst,
	})
	normalizer := catalog.NewNormalizer(clocksys.New().Now)

	return crawler.NewEngine(
		crawler.Config{
			Source:        appInstance.Source(),
			Concurrency:   cfg.Crawler.Concurrency,
			MaxPages:      cfg.Crawler.MaxPages,
			PublishTopic:  cfg.Publisher.TopicID,
			ArchivePrefix: cfg.Archive.Prefix,
		},
		fetcher,
		queuemem.NewQueue(cfg.Crawler.QueueDepth),
		appInstance.Sink(),
		appInstance.Publisher(),
		appInstance.Archive(),
		limiter,
		normalizer,
		hub,
		appInstance.Logger(),
		runID,
	)
}
