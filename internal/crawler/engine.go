package crawler

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mkraev/alkoteka-crawler/internal/archive"
	"github.com/mkraev/alkoteka-crawler/internal/catalog"
	"github.com/mkraev/alkoteka-crawler/internal/progress"
)

// Config holds the settings for one crawl run.
type Config struct {
	Source      catalog.SourceConfig
	Concurrency int
	// MaxPages caps listing pages per category; 0 means unlimited.
	MaxPages int
	// PublishTopic is the notification topic; empty disables publishing.
	PublishTopic string
	// ArchivePrefix prefixes raw payload object names in the archive.
	ArchivePrefix string
}

// Engine drives a crawl: it seeds the queue with first-page listing
// requests, fans responses out to the catalog walkers through a worker
// pool, and forwards normalized records to the sink.
type Engine struct {
	cfg        Config
	fetcher    Fetcher
	queue      Queue
	sink       RecordSink
	publisher  Publisher
	archive    archive.Provider
	limiter    Limiter
	normalizer *catalog.Normalizer
	hub        progress.Emitter
	logger     *zap.Logger
	runID      [16]byte

	pending sync.WaitGroup
}

// NewEngine constructs an Engine. publisher, archive, limiter and hub are
// optional; a nil logger defaults to a no-op one.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	queue Queue,
	sink RecordSink,
	publisher Publisher,
	archiveProvider archive.Provider,
	limiter Limiter,
	normalizer *catalog.Normalizer,
	hub progress.Emitter,
	logger *zap.Logger,
	runID [16]byte,
) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = catalog.NewNormalizer(nil)
	}
	return &Engine{
		cfg:        cfg,
		fetcher:    fetcher,
		queue:      queue,
		sink:       sink,
		publisher:  publisher,
		archive:    archiveProvider,
		limiter:    limiter,
		normalizer: normalizer,
		hub:        hub,
		logger:     logger,
		runID:      runID,
	}
}

// Run crawls every category seed to exhaustion and returns once all derived
// work has been processed or the context ends. Seeds are category path
// fragments, not URLs.
func (e *Engine) Run(ctx context.Context, seeds []string) error {
	start := time.Now()
	e.emit(progress.Event{Stage: progress.StageRunStart, Note: fmt.Sprintf("%d categories", len(seeds))})

	group, ctx := errgroup.WithContext(ctx)

	for _, fragment := range seeds {
		e.spawn(ctx, FetchRequest{
			Kind:     KindListing,
			URL:      e.cfg.Source.ListingURL(fragment),
			Category: fragment,
			Page:     1,
		})
	}

	// Close the queue once every in-flight request, including requests
	// derived from responses, has been processed. Workers drain until then.
	go func() {
		e.pending.Wait()
		e.queue.Close()
	}()

	for i := 0; i < e.cfg.Concurrency; i++ {
		group.Go(func() error {
			return e.work(ctx)
		})
	}

	err := group.Wait()
	e.emit(progress.Event{Stage: progress.StageRunDone, Dur: time.Since(start)})
	if err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}
	return nil
}

// spawn registers a request with the in-flight tracker and enqueues it
// without blocking the caller. Workers enqueue child requests while the
// queue may be full, so the enqueue has to happen off the worker goroutine.
func (e *Engine) spawn(ctx context.Context, request FetchRequest) {
	e.pending.Add(1)
	go func() {
		if err := e.queue.Enqueue(ctx, request); err != nil {
			e.pending.Done()
			if ctx.Err() == nil {
				e.logger.Error("enqueue failed", zap.String("url", request.URL), zap.Error(err))
			}
		}
	}()
}

func (e *Engine) work(ctx context.Context) error {
	for {
		request, err := e.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		e.process(ctx, request)
		e.pending.Done()
	}
}

// process handles one request end to end. Failures are contained to the
// single response: they are logged and reported, never propagated.
func (e *Engine) process(ctx context.Context, request FetchRequest) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, request.URL); err != nil {
			return
		}
	}

	response, err := e.fetcher.Fetch(ctx, request)
	if err != nil {
		e.logger.Error("fetch failed",
			zap.String("url", request.URL),
			zap.String("kind", string(request.Kind)),
			zap.Error(err),
		)
		e.emit(progress.Event{
			Stage:    progress.StageFetchError,
			Category: request.Category,
			URL:      request.URL,
			Note:     err.Error(),
		})
		return
	}

	switch request.Kind {
	case KindListing:
		e.handleListing(ctx, request, response)
	case KindProduct:
		e.handleProduct(ctx, request, response)
	default:
		e.logger.Warn("unknown request kind", zap.String("kind", string(request.Kind)))
	}
}

func (e *Engine) handleListing(ctx context.Context, request FetchRequest, response FetchResponse) {
	result, err := catalog.ParseListing(response.Body, request.URL, e.cfg.Source)
	if err != nil {
		e.reportMalformed(request, err)
		return
	}
	if result.Empty {
		e.logger.Info("empty category", zap.String("category", request.Category), zap.String("url", request.URL))
		e.emit(progress.Event{
			Stage:    progress.StageEmptyCategory,
			Category: request.Category,
			URL:      request.URL,
		})
		return
	}

	for _, ref := range result.Products {
		e.spawn(ctx, FetchRequest{
			Kind:     KindProduct,
			URL:      ref.URL,
			Slug:     ref.Slug,
			Category: request.Category,
		})
	}

	if result.NextPageURL != "" && e.allowNextPage(result.Page) {
		e.logger.Info("next listing page",
			zap.String("category", request.Category),
			zap.Int("page", result.Page+1),
		)
		e.spawn(ctx, FetchRequest{
			Kind:     KindListing,
			URL:      result.NextPageURL,
			Category: request.Category,
			Page:     result.Page + 1,
		})
	} else {
		e.logger.Info("category exhausted", zap.String("category", request.Category), zap.Int("pages", result.Page))
	}

	e.emit(progress.Event{
		Stage:    progress.StageListingDone,
		Category: request.Category,
		URL:      request.URL,
		Page:     result.Page,
		Products: int64(len(result.Products)),
		Bytes:    int64(len(response.Body)),
		Dur:      response.Duration,
	})
}

func (e *Engine) handleProduct(ctx context.Context, request FetchRequest, response FetchResponse) {
	record, err := e.normalizer.Normalize(response.Body, request.Slug, request.URL)
	if err != nil {
		e.reportMalformed(request, err)
		return
	}

	if e.archive != nil {
		name := path.Join(e.cfg.ArchivePrefix, uuidString(e.runID), request.Slug+".json")
		if err := e.archive.Save(ctx, name, response.Body); err != nil {
			e.logger.Warn("archive raw payload failed", zap.String("slug", request.Slug), zap.Error(err))
		}
	}

	if err := e.sink.Emit(ctx, record); err != nil {
		e.logger.Error("sink emit failed", zap.String("slug", request.Slug), zap.Error(err))
		return
	}
	if e.publisher != nil && e.cfg.PublishTopic != "" {
		if _, err := e.publisher.Publish(ctx, e.cfg.PublishTopic, record); err != nil {
			e.logger.Warn("publish record failed", zap.String("slug", request.Slug), zap.Error(err))
		}
	}

	e.emit(progress.Event{
		Stage:    progress.StageRecordEmitted,
		Category: request.Category,
		URL:      request.URL,
		Bytes:    int64(len(response.Body)),
		Dur:      response.Duration,
	})
}

// reportMalformed covers both invalid JSON and structurally unusable
// payloads; both end processing for this response only.
func (e *Engine) reportMalformed(request FetchRequest, err error) {
	e.logger.Error("unusable response",
		zap.String("url", request.URL),
		zap.String("kind", string(request.Kind)),
		zap.Error(err),
	)
	e.emit(progress.Event{
		Stage:    progress.StageMalformed,
		Category: request.Category,
		URL:      request.URL,
		Note:     err.Error(),
	})
}

func (e *Engine) allowNextPage(current int) bool {
	return e.cfg.MaxPages == 0 || current < e.cfg.MaxPages
}

func uuidString(id [16]byte) string {
	return uuid.UUID(id).String()
}

func (e *Engine) emit(evt progress.Event) {
	if e.hub == nil {
		return
	}
	evt.RunID = e.runID
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	e.hub.Emit(evt)
}
