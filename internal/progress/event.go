package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelkov/newsreel/internal/scraper"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart    Stage = "RUN_START"
	StageSourceStart Stage = "SOURCE_START"
	StageHeadline    Stage = "HEADLINE"
	StageSourceError Stage = "SOURCE_ERROR"
	StageSourceDone  Stage = "SOURCE_DONE"
	StageRunDone     Stage = "RUN_DONE"
	StageRunCanceled Stage = "RUN_CANCELED"
)

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageRunDone || s == StageRunCanceled
}

// Event captures a single milestone of a scrape run.
type Event struct {
	// RunID uniquely identifies a scrape run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Source names the source the event concerns; empty for run-level stages.
	Source string
	// Percent is the run's overall completion, 0 to 100.
	Percent float64
	// Completed counts the sources finished so far (terminal events carry
	// the number of sources that produced headlines).
	Completed int
	// Total counts the sources the run was asked to visit.
	Total int
	// Record is the single headline for HEADLINE events.
	Record *scraper.HeadlineRecord
	// Records carries the full aggregate on terminal events.
	Records []scraper.HeadlineRecord
	// Note lets emitters attach low-volume context such as error text.
	Note string
	// Dur captures latency for source completions and whole runs.
	Dur time.Duration
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
	case StageRunStart, StageRunDone, StageRunCanceled:
	case StageSourceStart, StageSourceDone, StageSourceError:
		if e.Source == "" {
			return fmt.Errorf("%s requires source", e.Stage)
		}
	case StageHeadline:
		if e.Source == "" {
			return errors.New("headline event requires source")
		}
		if e.Record == nil {
			return errors.New("headline event requires record")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Percent < 0 || e.Percent > 100 {
		return errors.New("percent must be within [0, 100]")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// PercentOf computes overall completion for done sources out of total.
func PercentOf(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return float64(done) / float64(total) * 100
}
