package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves the entry page of a source, applying the retry and
// backoff policy its anti-bot class calls for.
type Fetcher interface {
	Fetch(ctx context.Context, source Source) (FetchResult, error)
}

// Parser turns retrieved bytes into a queryable document, escalating
// through progressively more lenient backends.
type Parser interface {
	Parse(body []byte) (*goquery.Document, error)
}

// Selector finds candidate headline elements for a source. An empty
// selection is a valid outcome, not an error.
type Selector interface {
	Select(doc *goquery.Document, source Source) *goquery.Selection
	Explain(doc *goquery.Document, source Source) ([]ProbeMatch, []ProbeMatch)
}

// Extractor converts candidate elements into normalized, deduplicated
// headline records. It is a pure transform; no network or parse errors
// originate here.
type Extractor interface {
	ExtractAll(sel *goquery.Selection, source Source, maxCount int, capturedAt func() time.Time) []HeadlineRecord
}

// Renderer re-renders a page in a real browser when plain fetching yields
// a block page. Implementations may be a no-op when headless support is
// disabled.
type Renderer interface {
	Render(ctx context.Context, url string, userAgent string) ([]byte, int, error)
}

// BlobStore archives raw artifacts (fetched markup) and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes run summaries to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) (string, error)
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
