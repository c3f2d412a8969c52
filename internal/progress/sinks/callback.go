package sinks

import (
	"context"

	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/scraper"
)

// Callbacks bundles the notification hooks a front end registers for a
// scrape run. Any hook may be nil.
type Callbacks struct {
	// OnProgress receives overall completion after each source finishes.
	OnProgress func(percent float64, completed, total int)
	// OnHeadlineFound receives each accepted headline as it is extracted.
	OnHeadlineFound func(record scraper.HeadlineRecord)
	// OnSourceError receives per-source failures; the run keeps going.
	OnSourceError func(source, message string)
	// OnCompleted receives the final aggregate exactly once per run,
	// whether the run finished or was canceled.
	OnCompleted func(records []scraper.HeadlineRecord, canceled bool)
}

// CallbackSink adapts the event stream to front-end callbacks. Events inside
// a batch are dispatched in emit order, so a headline is always delivered
// before the progress update and terminal notification that follow it.
type CallbackSink struct {
	cb Callbacks
}

// NewCallbackSink builds a sink around the given callbacks.
func NewCallbackSink(cb Callbacks) *CallbackSink {
	return &CallbackSink{cb: cb}
}

// Consume dispatches each event to the matching callback.
func (s *CallbackSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageHeadline:
			if s.cb.OnHeadlineFound != nil && evt.Record != nil {
				s.cb.OnHeadlineFound(*evt.Record)
			}
		case progress.StageSourceError:
			if s.cb.OnSourceError != nil {
				s.cb.OnSourceError(evt.Source, evt.Note)
			}
		case progress.StageSourceDone:
			if s.cb.OnProgress != nil {
				s.cb.OnProgress(evt.Percent, evt.Completed, evt.Total)
			}
		case progress.StageRunDone:
			if s.cb.OnCompleted != nil {
				s.cb.OnCompleted(evt.Records, false)
			}
		case progress.StageRunCanceled:
			if s.cb.OnCompleted != nil {
				s.cb.OnCompleted(evt.Records, true)
			}
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *CallbackSink) Close(context.Context) error {
	return nil
}
