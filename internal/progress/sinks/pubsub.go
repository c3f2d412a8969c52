package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/scraper"
)

// RunSummary is the payload published when a run reaches a terminal stage.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
	Canceled   bool      `json:"canceled"`
	Sources    int       `json:"sources"`
	Succeeded  int       `json:"succeeded"`
	Headlines  int       `json:"headlines"`
	DurationMS int64     `json:"duration_ms"`
}

// PublishSink announces finished runs on a message topic so downstream
// consumers can react without polling the store.
type PublishSink struct {
	publisher scraper.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublishSink constructs a PublishSink for the given topic.
func NewPublishSink(publisher scraper.Publisher, topic string, logger *zap.Logger) *PublishSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes a summary for each terminal event in the batch.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		if !evt.Stage.Terminal() {
			continue
		}
		summary := RunSummary{
			RunID:      evt.RunUUID().String(),
			FinishedAt: evt.TS,
			Canceled:   evt.Stage == progress.StageRunCanceled,
			Sources:    evt.Total,
			Succeeded:  evt.Completed,
			Headlines:  len(evt.Records),
			DurationMS: evt.Dur.Milliseconds(),
		}
		payload, err := json.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal run summary: %w", err)
		}
		id, err := s.publisher.Publish(ctx, s.topic, payload)
		if err != nil {
			return fmt.Errorf("publish run summary: %w", err)
		}
		s.logger.Debug("run summary published",
			zap.String("run_id", summary.RunID),
			zap.String("message_id", id),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
