// Package memory provides a bounded in-memory fetch queue for single
// process runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkraev/alkoteka-crawler/internal/crawler"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan crawler.FetchRequest
	closeMu sync.Mutex
	closed  bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch: make(chan crawler.FetchRequest, capacity),
	}
}

// Enqueue pushes a request into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, request crawler.FetchRequest) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- request:
		return nil
	}
}

// Dequeue pops the next request, respecting context cancellation. Once the
// queue is closed and drained it returns crawler.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (crawler.FetchRequest, error) {
	select {
	case <-ctx.Done():
		return crawler.FetchRequest{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case request, ok := <-q.ch:
		if !ok {
			return crawler.FetchRequest{}, crawler.ErrQueueClosed
		}
		return request, nil
	}
}

// Close closes the underlying channel for shutdown. Buffered requests stay
// dequeueable until drained.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
