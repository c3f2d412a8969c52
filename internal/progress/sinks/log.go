package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where no UI is attached.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.ByteString("run_id", evt.RunID[:]),
			zap.String("stage", string(evt.Stage)),
			zap.String("source", evt.Source),
			zap.Float64("percent", evt.Percent),
			zap.Int("completed", evt.Completed),
			zap.Int("total", evt.Total),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Record != nil {
			fields = append(fields, zap.String("title", evt.Record.Title))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
