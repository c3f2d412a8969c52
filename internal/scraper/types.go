package scraper

import (
	"time"
)

// AntiBotClass classifies how aggressively a source defends against
// automated clients. The class selects the retry/backoff policy applied
// by the fetch client.
type AntiBotClass string

// Supported anti-bot classes.
const (
	// ClassStandard sources respond to a plain polite request.
	ClassStandard AntiBotClass = "standard"
	// ClassHardened sources are known to block automated clients and get
	// extra delays, retries, and header rotation.
	ClassHardened AntiBotClass = "hardened"
)

// Source describes a configured news site: where to fetch and, in priority
// order, which CSS selectors are likely to match its headline elements.
// A Source is immutable once a run starts.
type Source struct {
	Name      string       `json:"name" mapstructure:"name"`
	EntryURL  string       `json:"entry_url" mapstructure:"entry_url"`
	Selectors []string     `json:"selectors" mapstructure:"selectors"`
	Class     AntiBotClass `json:"class" mapstructure:"class"`
}

// Hardened reports whether the source is classified as actively defended.
func (s Source) Hardened() bool {
	return s.Class == ClassHardened
}

// HeadlineRecord is one normalized headline extracted from a source page.
// Records are created only by the Extractor and are immutable afterwards;
// ownership passes to the event stream and the run aggregate.
type HeadlineRecord struct {
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	CapturedAt time.Time `json:"timestamp"`
}

// FetchResult carries the raw bytes of a retrieved page plus metadata the
// pipeline may report on.
type FetchResult struct {
	Body       []byte
	StatusCode int
	FinalURL   string
	Attempts   int
	Rendered   bool
	Duration   time.Duration
}

// ProbeReport describes how each selector of a source performed against a
// single fetched page. It backs the source diagnostics endpoint.
type ProbeReport struct {
	Source    string       `json:"source"`
	FetchedAt time.Time    `json:"fetched_at"`
	Matches   []ProbeMatch `json:"matches"`
	Fallbacks []ProbeMatch `json:"fallbacks"`
}

// ProbeMatch is the element count for one selector.
type ProbeMatch struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}
