// Package progress defines the event stream emitted by the crawl engine and
// the sink fan-out that consumes it.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart      Stage = "RUN_START"
	StageRunDone       Stage = "RUN_DONE"
	StageListingDone   Stage = "LISTING_DONE"
	StageEmptyCategory Stage = "EMPTY_CATEGORY"
	StageRecordEmitted Stage = "RECORD_EMITTED"
	StageMalformed     Stage = "MALFORMED_RESPONSE"
	StageFetchError    Stage = "FETCH_ERROR"
)

// Event captures a single component of crawl progress.
type Event struct {
	// RunID uniquely identifies a crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Category is the seed fragment the event belongs to, when applicable.
	Category string
	// URL is the page URL the event refers to.
	URL string
	// Page is the listing page number for LISTING_DONE events.
	Page int
	// Products counts product refs discovered on a listing page.
	Products int64
	// Bytes carries the response size for fetch-scoped events.
	Bytes int64
	// Dur captures fetch latency, or total runtime for RUN_DONE.
	Dur time.Duration
	// Note attaches low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageFetchError:
	case StageListingDone, StageEmptyCategory:
		if e.Category == "" {
			return fmt.Errorf("%s requires category", e.Stage)
		}
	case StageRecordEmitted, StageMalformed:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
