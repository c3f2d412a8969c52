package scraper

import (
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultFallbackSelectors is the source-independent heuristic list applied
// when none of a source's own selectors match: anchors whose target path
// carries typical story markers, common headline class patterns, and
// heading-wrapped anchors. Tried in order, first match wins.
func DefaultFallbackSelectors() []string {
	return []string{
		`a[href*="news"]`, `a[href*="story"]`, `a[href*="article"]`,
		".headline", ".title", ".news-title", ".story-headline",
		"h1 a", "h2 a", "h3 a", "h4 a",
		`[class*="headline"]`, `[class*="title"]`, `[class*="story"]`,
	}
}

// CSSSelector implements Selector over goquery documents. The source's own
// selectors are tried in listed priority; the first selector matching at
// least one element wins outright, with no merging across selectors.
type CSSSelector struct {
	fallbacks []string
	logger    *zap.Logger
}

// NewCSSSelector builds a selector with the given fallback list. A nil or
// empty fallback list uses DefaultFallbackSelectors.
func NewCSSSelector(fallbacks []string, logger *zap.Logger) *CSSSelector {
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbackSelectors()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSSSelector{
		fallbacks: append([]string(nil), fallbacks...),
		logger:    logger,
	}
}

// Select returns the candidate elements for the source. An empty selection
// is a valid outcome meaning zero headlines were found.
func (s *CSSSelector) Select(doc *goquery.Document, source Source) *goquery.Selection {
	for _, selector := range source.Selectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			s.logger.Debug("selector matched",
				zap.String("source", source.Name),
				zap.String("selector", selector),
				zap.Int("elements", sel.Length()),
			)
			return sel
		}
	}
	for _, selector := range s.fallbacks {
		if sel := doc.Find(selector); sel.Length() > 0 {
			s.logger.Debug("fallback selector matched",
				zap.String("source", source.Name),
				zap.String("selector", selector),
				zap.Int("elements", sel.Length()),
			)
			selectorFallbacks.WithLabelValues(source.Name).Inc()
			return sel
		}
	}
	return doc.Find("")
}

// Explain reports the element count for every configured selector and every
// fallback selector, without short-circuiting. Used by the source probe.
func (s *CSSSelector) Explain(doc *goquery.Document, source Source) ([]ProbeMatch, []ProbeMatch) {
	matches := make([]ProbeMatch, 0, len(source.Selectors))
	for _, selector := range source.Selectors {
		matches = append(matches, ProbeMatch{
			Selector: selector,
			Count:    doc.Find(selector).Length(),
		})
	}
	fallbacks := make([]ProbeMatch, 0, len(s.fallbacks))
	for _, selector := range s.fallbacks {
		fallbacks = append(fallbacks, ProbeMatch{
			Selector: selector,
			Count:    doc.Find(selector).Length(),
		})
	}
	return matches, fallbacks
}
