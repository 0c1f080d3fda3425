package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
)

// ErrQueueClosed is returned by Queue implementations once Close has been
// called and the backlog is drained; workers treat it as the shutdown
// signal.
var ErrQueueClosed = errors.New("queue closed")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Queue provides enqueue/dequeue semantics for fetch requests.
type Queue interface {
	Enqueue(ctx context.Context, request FetchRequest) error
	Dequeue(ctx context.Context) (FetchRequest, error)
	Close()
}

// RecordSink receives normalized product records.
type RecordSink interface {
	Emit(ctx context.Context, record catalog.ProductRecord) error
	Close(ctx context.Context) error
}

// Publisher pushes records to a notification topic (Pub/Sub or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Limiter throttles outbound fetches per host.
type Limiter interface {
	Wait(ctx context.Context, url string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
