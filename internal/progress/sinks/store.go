package sinks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/scraper"
)

// HeadlineWriter persists accepted headlines keyed by run.
type HeadlineWriter interface {
	SaveHeadlines(ctx context.Context, runID uuid.UUID, records []scraper.HeadlineRecord) error
}

// StoreSink persists headlines via a HeadlineWriter. Headline events are
// collapsed per run before writing to reduce write amplification.
type StoreSink struct {
	writer HeadlineWriter
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided writer.
func NewStoreSink(writer HeadlineWriter, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{writer: writer, logger: logger}
}

// Consume collapses headline events per run and forwards them to the writer.
// It respects ctx deadlines and returns writer errors verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.writer == nil {
		return nil
	}

	byRun := make(map[uuid.UUID][]scraper.HeadlineRecord)
	var order []uuid.UUID
	for _, evt := range batch {
		if evt.Stage != progress.StageHeadline || evt.Record == nil {
			continue
		}
		runID := evt.RunUUID()
		if _, ok := byRun[runID]; !ok {
			order = append(order, runID)
		}
		byRun[runID] = append(byRun[runID], *evt.Record)
	}

	for _, runID := range order {
		if err := s.writer.SaveHeadlines(ctx, runID, byRun[runID]); err != nil {
			return fmt.Errorf("save headlines: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
