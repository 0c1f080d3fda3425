// Package memory contains an in-memory record sink for tests.
package memory

import (
	"context"
	"sync"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
)

// Sink stores emitted records for inspection.
type Sink struct {
	mu      sync.RWMutex
	records []catalog.ProductRecord
}

// New returns a memory Sink.
func New() *Sink {
	return &Sink{}
}

// Emit records the product record.
func (s *Sink) Emit(_ context.Context, record catalog.ProductRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of the emitted records.
func (s *Sink) Records() []catalog.ProductRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.ProductRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close implements crawler.RecordSink; it performs no action.
func (s *Sink) Close(context.Context) error {
	return nil
}
