package scraper

import (
	"strings"
	"unicode/utf8"
)

// chromeMaxLen is the length, in runes, under which a title containing a
// navigation term is treated as page chrome. Longer titles that merely
// contain such a word are real headlines and kept.
const chromeMaxLen = 30

// DefaultChromeTerms lists navigation/advertising text fragments that show
// up in scraped elements but are not headlines.
func DefaultChromeTerms() []string {
	return []string{
		"Home", "News", "Sports", "Business", "Opinion", "Entertainment",
		"Login", "Subscribe", "Advertisement", "More", "Latest", "Breaking",
		"Top Stories", "Read More", "View All", "Load More",
	}
}

// ChromeFilter suppresses short navigation/chrome text masquerading as a
// headline. Matching is case-insensitive substring matching.
type ChromeFilter struct {
	terms []string
}

// NewChromeFilter builds a filter from the given terms; empty terms are
// skipped. A nil filter rejects nothing.
func NewChromeFilter(terms []string) *ChromeFilter {
	cleaned := make([]string, 0, len(terms))
	for _, raw := range terms {
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" {
			continue
		}
		cleaned = append(cleaned, term)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return &ChromeFilter{terms: cleaned}
}

// IsChrome reports whether the title is short generic chrome text: it
// contains a blacklisted term and its overall length is below the chrome
// threshold.
func (f *ChromeFilter) IsChrome(title string) bool {
	if f == nil || utf8.RuneCountInString(title) >= chromeMaxLen {
		return false
	}
	lower := strings.ToLower(title)
	for _, term := range f.terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
