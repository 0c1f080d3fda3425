// Package retry decorates a Fetcher with jittered exponential backoff for
// transient upstream failures.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/mkraev/alkoteka-crawler/internal/crawler"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts is the total number of tries per request (default 3).
	MaxAttempts int
	// BaseDelay seeds the exponential backoff (default 250ms).
	BaseDelay time.Duration
	// MaxDelay caps a single backoff wait (default 5s).
	MaxDelay time.Duration
}

// Fetcher wraps another crawler.Fetcher and re-issues failed requests.
// Context cancellation is never retried; everything else is treated as
// transient, the catalog API fails mostly with 5xx and resets under load.
type Fetcher struct {
	next   crawler.Fetcher
	cfg    Config
	logger *zap.Logger
}

// New builds a retrying Fetcher around next.
func New(next crawler.Fetcher, cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{next: next, cfg: cfg, logger: logger}
}

// Fetch tries the wrapped fetcher up to MaxAttempts times, sleeping a
// jittered exponential backoff between attempts.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			f.logger.Debug("retrying fetch",
				zap.String("url", request.URL),
				zap.Int("attempt", attempt+1),
			)
			select {
			case <-ctx.Done():
				return crawler.FetchResponse{}, fmt.Errorf("fetch retry canceled: %w", ctx.Err())
			case <-time.After(f.backoff(attempt - 1)):
			}
		}

		response, err := f.next.Fetch(ctx, request)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}
	return crawler.FetchResponse{}, fmt.Errorf("fetch failed after retries: %w", lastErr)
}

func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := float64(f.cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(f.cfg.MaxDelay) {
		delay = float64(f.cfg.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
