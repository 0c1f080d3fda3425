package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkraev/alkoteka-crawler/internal/progress"
)

func TestStatsSinkAggregatesRun(t *testing.T) {
	t.Parallel()

	runID := uuid.MustParse("0d3fca52-5a8a-4cf5-9d17-9c2f1f6d0002")
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	sink := NewStatsSink()
	batch := []progress.Event{
		{Stage: progress.StageRunStart, RunID: progress.UUIDToBytes(runID), TS: started},
		{Stage: progress.StageListingDone, Category: "vino", Products: 20, Bytes: 4096},
		{Stage: progress.StageListingDone, Category: "vino", Products: 7, Bytes: 2048},
		{Stage: progress.StageRecordEmitted, Category: "vino", Bytes: 512},
		{Stage: progress.StageRecordEmitted, Category: "krepkiy-alkogol", Bytes: 256},
		{Stage: progress.StageMalformed, Category: "vino"},
		{Stage: progress.StageFetchError},
		{Stage: progress.StageRunDone, TS: finished},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	snap := sink.Snapshot()
	assert.Equal(t, runID.String(), snap.RunID)
	assert.Equal(t, started, snap.StartedAt)
	require.NotNil(t, snap.FinishedAt)
	assert.Equal(t, finished, *snap.FinishedAt)
	assert.Equal(t, int64(2), snap.Records)
	assert.Equal(t, int64(1), snap.Malformed)
	assert.Equal(t, int64(1), snap.FetchFails)

	vino := snap.Categories["vino"]
	assert.Equal(t, CategoryStats{ListingPages: 2, Products: 27, Records: 1, Bytes: 6656}, vino)
	assert.Equal(t, CategoryStats{Records: 1, Bytes: 256}, snap.Categories["krepkiy-alkogol"])
}

func TestStatsSinkSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	sink := NewStatsSink()
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Stage: progress.StageRecordEmitted, Category: "vino"},
	}))

	snap := sink.Snapshot()
	snap.Categories["vino"] = CategoryStats{Records: 99}

	fresh := sink.Snapshot()
	assert.Equal(t, int64(1), fresh.Categories["vino"].Records, "mutating a snapshot must not leak back")
}

func TestStatsSinkEmptySnapshot(t *testing.T) {
	t.Parallel()

	snap := NewStatsSink().Snapshot()
	assert.Empty(t, snap.RunID)
	assert.Nil(t, snap.FinishedAt)
	assert.NotNil(t, snap.Categories)
	assert.Empty(t, snap.Categories)
}
