package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelkov/newsreel/internal/scraper"
)

// State is the lifecycle phase of a scrape run.
type State string

// Run lifecycle states. A run moves Idle -> Running -> Completed or
// Cancelled; there are no other transitions.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// SourceFailure records one source that failed during a run.
type SourceFailure struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Summary is the aggregate outcome of a run. It is complete once the run's
// Done channel is closed; before that it reflects progress so far.
type Summary struct {
	RunID            string                   `json:"run_id"`
	State            State                    `json:"state"`
	Records          []scraper.HeadlineRecord `json:"records"`
	SourcesAttempted int                      `json:"sources_attempted"`
	SourcesSucceeded int                      `json:"sources_succeeded"`
	Failures         []SourceFailure          `json:"failures,omitempty"`
	Duration         time.Duration            `json:"duration"`
}

// SuccessRate reports the fraction of attempted sources that produced a
// parsed page, in [0, 1].
func (s Summary) SuccessRate() float64 {
	if s.SourcesAttempted == 0 {
		return 0
	}
	return float64(s.SourcesSucceeded) / float64(s.SourcesAttempted)
}

// Run is the handle for one scrape execution. Cancel and the accessors are
// safe to call from any goroutine.
type Run struct {
	id     uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	summary Summary
}

func newRun(id uuid.UUID, cancel context.CancelFunc) *Run {
	return &Run{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
		summary: Summary{
			RunID: id.String(),
			State: StateRunning,
		},
	}
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	return r.id.String()
}

// Cancel requests the run stop at the next source or retry boundary. It is
// idempotent; canceling a finished run has no effect.
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed once the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns the run's current lifecycle phase.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary.State
}

// Summary returns a snapshot of the aggregate. After Done it is the final
// outcome; during the run it reflects sources finished so far.
func (r *Run) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.summary
	out.Records = append([]scraper.HeadlineRecord(nil), r.summary.Records...)
	out.Failures = append([]SourceFailure(nil), r.summary.Failures...)
	return out
}

func (r *Run) update(fn func(*Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.summary)
}

func (r *Run) finish(state State, dur time.Duration) {
	r.mu.Lock()
	r.summary.State = state
	r.summary.Duration = dur
	r.mu.Unlock()
	close(r.done)
}
