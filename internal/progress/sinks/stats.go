package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/mkraev/alkoteka-crawler/internal/progress"
)

// CategoryStats aggregates per-category counters for one run.
type CategoryStats struct {
	ListingPages int64 `json:"listing_pages"`
	Products     int64 `json:"products_discovered"`
	Records      int64 `json:"records_emitted"`
	Bytes        int64 `json:"bytes"`
}

// Snapshot is a point-in-time view of the run, served by the status API.
type Snapshot struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt *time.Time               `json:"finished_at,omitempty"`
	Records    int64                    `json:"records_emitted"`
	Malformed  int64                    `json:"malformed_responses"`
	FetchFails int64                    `json:"fetch_errors"`
	Categories map[string]CategoryStats `json:"categories"`
}

// StatsSink keeps an in-memory aggregate of the event stream so the status
// API can serve a cheap snapshot without touching a store.
type StatsSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewStatsSink returns an empty StatsSink.
func NewStatsSink() *StatsSink {
	return &StatsSink{snap: Snapshot{Categories: make(map[string]CategoryStats)}}
}

// Consume folds the batch into the aggregate.
func (s *StatsSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *StatsSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.snap.RunID = evt.RunUUID().String()
		s.snap.StartedAt = evt.TS
	case progress.StageRunDone:
		ts := evt.TS
		s.snap.FinishedAt = &ts
	case progress.StageListingDone:
		stats := s.snap.Categories[evt.Category]
		stats.ListingPages++
		stats.Products += evt.Products
		stats.Bytes += evt.Bytes
		s.snap.Categories[evt.Category] = stats
	case progress.StageRecordEmitted:
		stats := s.snap.Categories[evt.Category]
		stats.Records++
		stats.Bytes += evt.Bytes
		s.snap.Categories[evt.Category] = stats
		s.snap.Records++
	case progress.StageMalformed:
		s.snap.Malformed++
	case progress.StageFetchError:
		s.snap.FetchFails++
	}
}

// Snapshot returns a copy of the current aggregate.
func (s *StatsSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.Categories = make(map[string]CategoryStats, len(s.snap.Categories))
	for k, v := range s.snap.Categories {
		snap.Categories[k] = v
	}
	if s.snap.FinishedAt != nil {
		ts := *s.snap.FinishedAt
		snap.FinishedAt = &ts
	}
	return snap
}

// Close implements the Sink interface; it performs no action.
func (s *StatsSink) Close(context.Context) error {
	return nil
}
