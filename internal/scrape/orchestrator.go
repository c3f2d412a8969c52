// Package scrape implements the run orchestrator: it walks a list of
// sources sequentially, drives the fetch/parse/select/extract pipeline for
// each, and reports milestones on the progress stream.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/progress"
	"github.com/avelkov/newsreel/internal/scraper"
)

// Config controls run pacing and extraction limits.
type Config struct {
	// InterSourceDelay is the pause between consecutive sources.
	InterSourceDelay time.Duration
	// MaxHeadlines caps records per source when the caller passes no limit.
	MaxHeadlines int
	// ArchiveContentType is recorded on archived markup objects.
	ArchiveContentType string
}

func (c Config) withDefaults() Config {
	if c.InterSourceDelay < 0 {
		c.InterSourceDelay = 0
	}
	if c.MaxHeadlines <= 0 {
		c.MaxHeadlines = 10
	}
	if c.ArchiveContentType == "" {
		c.ArchiveContentType = "text/html; charset=utf-8"
	}
	return c
}

// Orchestrator executes scrape runs. At most one run is active at a time;
// starting a second run while one is in flight fails with ErrRunActive.
type Orchestrator struct {
	fetcher   scraper.Fetcher
	parser    scraper.Parser
	selector  scraper.Selector
	extractor scraper.Extractor
	clock     scraper.Clock
	ids       scraper.IDGenerator
	emitter   progress.Emitter
	archive   scraper.BlobStore
	cfg       Config
	logger    *zap.Logger

	mu     sync.Mutex
	active *Run
}

// New constructs an Orchestrator. The archive store may be nil, in which
// case raw markup is not retained.
func New(
	fetcher scraper.Fetcher,
	parser scraper.Parser,
	selector scraper.Selector,
	extractor scraper.Extractor,
	clock scraper.Clock,
	ids scraper.IDGenerator,
	emitter progress.Emitter,
	archive scraper.BlobStore,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		parser:    parser,
		selector:  selector,
		extractor: extractor,
		clock:     clock,
		ids:       ids,
		emitter:   emitter,
		archive:   archive,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Start begins a run over the given sources and returns its handle. The
// per-source record cap falls back to the configured default when
// maxPerSource is zero or negative. Invalid requests fail synchronously:
// an empty source list returns ErrNoSources and a second concurrent run
// returns ErrRunActive.
func (o *Orchestrator) Start(ctx context.Context, sources []scraper.Source, maxPerSource int) (*Run, error) {
	if len(sources) == 0 {
		return nil, scraper.ErrNoSources
	}
	if maxPerSource <= 0 {
		maxPerSource = o.cfg.MaxHeadlines
	}

	runID, err := o.newRunID()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(runID, cancel)

	o.mu.Lock()
	if o.active != nil {
		select {
		case <-o.active.Done():
			// previous run finished; slot is free
		default:
			o.mu.Unlock()
			cancel()
			return nil, scraper.ErrRunActive
		}
	}
	o.active = run
	o.mu.Unlock()

	// Deep-copy so a caller mutating its slice after Start cannot alter the
	// selectors the run works from.
	snapshot := scraper.CloneSources(sources)
	go o.execute(runCtx, run, snapshot, maxPerSource)
	return run, nil
}

// Current returns the most recent run handle, or nil if none was started.
func (o *Orchestrator) Current() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, sources []scraper.Source, maxPerSource int) {
	start := o.clock.Now()
	total := len(sources)

	o.emit(progress.Event{
		RunID: progress.UUIDToBytes(run.id),
		TS:    start,
		Stage: progress.StageRunStart,
		Total: total,
	})

	canceled := false
	for i, source := range sources {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		o.scrapeSource(ctx, run, source, maxPerSource, i, total)

		if ctx.Err() != nil {
			canceled = true
			break
		}
		if i < total-1 {
			if err := sleepCtx(ctx, o.cfg.InterSourceDelay); err != nil {
				canceled = true
				break
			}
		}
	}

	dur := o.clock.Now().Sub(start)
	state := StateCompleted
	stage := progress.StageRunDone
	if canceled {
		state = StateCancelled
		stage = progress.StageRunCanceled
	}

	summary := run.Summary()
	o.emit(progress.Event{
		RunID:     progress.UUIDToBytes(run.id),
		TS:        o.clock.Now(),
		Stage:     stage,
		Percent:   progress.PercentOf(summary.SourcesAttempted, total),
		Completed: summary.SourcesSucceeded,
		Total:     total,
		Records:   summary.Records,
		Dur:       dur,
	})

	o.logger.Info("scrape run finished",
		zap.String("run_id", run.ID()),
		zap.String("state", string(state)),
		zap.Int("sources", total),
		zap.Int("succeeded", summary.SourcesSucceeded),
		zap.Int("headlines", len(summary.Records)),
		zap.Duration("dur", dur),
	)

	run.finish(state, dur)
}

// scrapeSource runs the pipeline for one source. Failures are confined to
// the source: they are reported on the stream and the run moves on.
func (o *Orchestrator) scrapeSource(
	ctx context.Context,
	run *Run,
	source scraper.Source,
	maxPerSource int,
	index, total int,
) {
	runID := progress.UUIDToBytes(run.id)
	sourceStart := o.clock.Now()

	o.emit(progress.Event{
		RunID:   runID,
		TS:      sourceStart,
		Stage:   progress.StageSourceStart,
		Source:  source.Name,
		Percent: progress.PercentOf(index, total),
		Total:   total,
	})

	run.update(func(s *Summary) { s.SourcesAttempted++ })

	records, err := o.pipeline(ctx, run, source, maxPerSource)
	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		// the terminal event reports cancellation; the interrupted source
		// gets neither an error nor a completion milestone
		return
	case err != nil:
		o.logger.Warn("source failed",
			zap.String("run_id", run.ID()),
			zap.String("source", source.Name),
			zap.Error(err),
		)
		run.update(func(s *Summary) {
			s.Failures = append(s.Failures, SourceFailure{Source: source.Name, Message: err.Error()})
		})
		o.emit(progress.Event{
			RunID:  runID,
			TS:     o.clock.Now(),
			Stage:  progress.StageSourceError,
			Source: source.Name,
			Note:   err.Error(),
			Total:  total,
		})
	default:
		run.update(func(s *Summary) {
			s.SourcesSucceeded++
			s.Records = append(s.Records, records...)
		})
	}

	done := index + 1
	o.emit(progress.Event{
		RunID:     runID,
		TS:        o.clock.Now(),
		Stage:     progress.StageSourceDone,
		Source:    source.Name,
		Percent:   progress.PercentOf(done, total),
		Completed: done,
		Total:     total,
		Dur:       o.clock.Now().Sub(sourceStart),
	})
}

func (o *Orchestrator) pipeline(
	ctx context.Context,
	run *Run,
	source scraper.Source,
	maxPerSource int,
) ([]scraper.HeadlineRecord, error) {
	result, err := o.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	o.archiveMarkup(ctx, run, source, result.Body)

	doc, err := o.parser.Parse(result.Body)
	if err != nil {
		return nil, err
	}

	sel := o.selector.Select(doc, source)
	records := o.extractor.ExtractAll(sel, source, maxPerSource, o.clock.Now)

	runID := progress.UUIDToBytes(run.id)
	for i := range records {
		o.emit(progress.Event{
			RunID:  runID,
			TS:     records[i].CapturedAt,
			Stage:  progress.StageHeadline,
			Source: source.Name,
			Record: &records[i],
		})
	}
	return records, nil
}

// archiveMarkup retains the raw page best-effort; archive failures never
// fail the source.
func (o *Orchestrator) archiveMarkup(ctx context.Context, run *Run, source scraper.Source, body []byte) {
	if o.archive == nil || len(body) == 0 {
		return
	}
	path := fmt.Sprintf("runs/%s/%s.html", run.ID(), slugify(source.Name))
	uri, err := o.archive.PutObject(ctx, path, o.cfg.ArchiveContentType, body)
	if err != nil {
		o.logger.Warn("archive markup failed",
			zap.String("run_id", run.ID()),
			zap.String("source", source.Name),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("markup archived",
		zap.String("source", source.Name),
		zap.String("uri", uri),
	)
}

// Probe fetches a source once and reports how each of its selectors (and
// the generic fallbacks) performed, without emitting run events.
func (o *Orchestrator) Probe(ctx context.Context, source scraper.Source) (scraper.ProbeReport, error) {
	result, err := o.fetcher.Fetch(ctx, source)
	if err != nil {
		return scraper.ProbeReport{}, err
	}
	doc, err := o.parser.Parse(result.Body)
	if err != nil {
		return scraper.ProbeReport{}, err
	}
	matches, fallbacks := o.selector.Explain(doc, source)
	return scraper.ProbeReport{
		Source:    source.Name,
		FetchedAt: o.clock.Now(),
		Matches:   matches,
		Fallbacks: fallbacks,
	}, nil
}

func (o *Orchestrator) newRunID() (uuid.UUID, error) {
	raw, err := o.ids.NewID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate run id: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse run id %q: %w", raw, err)
	}
	return id, nil
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(evt)
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "source"
	}
	return out
}

func sleepCtx(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
