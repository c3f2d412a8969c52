package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/scraper"
)

// TestStoreSinkCollapsesHeadlinesPerRun ensures headline events are grouped
// into a single write per run.
func TestStoreSinkCollapsesHeadlinesPerRun(t *testing.T) {
	t.Parallel()

	writer := &fakeHeadlineWriter{}
	sink := NewStoreSink(writer, nil)
	runUUID := uuid.New()
	runID := progress.UUIDToBytes(runUUID)
	now := time.Now()

	first := scraper.HeadlineRecord{Title: "Central bank holds rates steady again", URL: "https://example.com/a", Source: "BBC News"}
	second := scraper.HeadlineRecord{Title: "Storm season arrives early on the coast", URL: "https://example.com/b", Source: "BBC News"}

	batch := []progress.Event{
		{RunID: runID, Stage: progress.StageRunStart, TS: now},
		{RunID: runID, Stage: progress.StageHeadline, Source: "BBC News", Record: &first, TS: now},
		{RunID: runID, Stage: progress.StageHeadline, Source: "BBC News", Record: &second, TS: now},
		{RunID: runID, Stage: progress.StageRunDone, TS: now.Add(time.Second), Dur: time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))
	require.Len(t, writer.calls, 1)
	require.Equal(t, runUUID, writer.calls[0].runID)
	require.Equal(t, []scraper.HeadlineRecord{first, second}, writer.calls[0].records)
}

// TestStoreSinkPropagatesWriterErrors surfaces persistence failures to the hub.
func TestStoreSinkPropagatesWriterErrors(t *testing.T) {
	t.Parallel()

	writer := &fakeHeadlineWriter{err: errors.New("insert failed")}
	sink := NewStoreSink(writer, nil)
	runID := progress.UUIDToBytes(uuid.New())
	record := scraper.HeadlineRecord{Title: "Markets rally on upbeat earnings news", URL: "https://example.com/c"}

	err := sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, Stage: progress.StageHeadline, Source: "BBC News", Record: &record, TS: time.Now()},
	})
	require.Error(t, err)
}

// TestStoreSinkIgnoresNonHeadlineEvents verifies lifecycle events trigger no writes.
func TestStoreSinkIgnoresNonHeadlineEvents(t *testing.T) {
	t.Parallel()

	writer := &fakeHeadlineWriter{}
	sink := NewStoreSink(writer, nil)
	runID := progress.UUIDToBytes(uuid.New())

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, Stage: progress.StageRunStart, TS: time.Now()},
		{RunID: runID, Stage: progress.StageSourceError, Source: "Reuters", Note: "blocked", TS: time.Now()},
	}))
	require.Empty(t, writer.calls)
}

type fakeHeadlineWriter struct {
	err   error
	calls []writerCall
}

type writerCall struct {
	runID   uuid.UUID
	records []scraper.HeadlineRecord
}

func (f *fakeHeadlineWriter) SaveHeadlines(_ context.Context, runID uuid.UUID, records []scraper.HeadlineRecord) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, writerCall{runID: runID, records: append([]scraper.HeadlineRecord(nil), records...)})
	return nil
}
