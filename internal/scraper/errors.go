package scraper

import (
	"errors"
	"fmt"
	"strings"
)

// FetchErrorKind labels the failure mode of a fetch.
type FetchErrorKind string

// Fetch failure modes surfaced to the orchestrator.
const (
	FetchTimeout    FetchErrorKind = "timeout"
	FetchConnection FetchErrorKind = "connection"
	FetchBlocked    FetchErrorKind = "blocked"
	FetchHTTPOther  FetchErrorKind = "http_other"
)

// FetchError is the typed failure returned by the fetch client. Blocked and
// HTTPOther carry the last observed HTTP status.
type FetchError struct {
	Kind   FetchErrorKind
	Source string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchTimeout:
		return fmt.Sprintf("fetch %s: timed out", e.Source)
	case FetchConnection:
		return fmt.Sprintf("fetch %s: connection failed: %v", e.Source, e.Err)
	case FetchBlocked:
		return fmt.Sprintf("fetch %s: blocked after retries (last status %d)", e.Source, e.Status)
	default:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.Source, e.Status)
	}
}

// Unwrap exposes the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a FetchError for the given source and kind.
func NewFetchError(kind FetchErrorKind, source string, status int, err error) *FetchError {
	return &FetchError{Kind: kind, Source: source, Status: status, Err: err}
}

// IsFetchError reports whether err is a FetchError, returning it if so.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// ParseError reports that every parser backend rejected the markup. It
// aggregates the per-backend failures for diagnostics.
type ParseError struct {
	Backends []string
	Errs     []error
}

func (e *ParseError) Error() string {
	if len(e.Backends) == 0 {
		return "parse markup: all backends failed"
	}
	parts := make([]string, 0, len(e.Backends))
	for i, name := range e.Backends {
		if i < len(e.Errs) && e.Errs[i] != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errs[i]))
		}
	}
	return "parse markup: all backends failed: " + strings.Join(parts, "; ")
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Sentinel errors for invalid run requests.
var (
	// ErrNoSources is returned synchronously when a run is requested with an
	// empty source list.
	ErrNoSources = errors.New("no sources to scrape")
	// ErrRunActive is returned when a run is requested while another run is
	// still in progress on the same orchestrator.
	ErrRunActive = errors.New("a scrape run is already active")
)
