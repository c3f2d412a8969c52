package scraper

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// minTitleLen is the minimum normalized title length, in runes, accepted as
// a headline. Counting runes keeps the bar consistent for non-Latin scripts.
const minTitleLen = 15

// textContainers are the descendant elements searched when an anchor
// carries no text of its own.
const textContainers = "h1, h2, h3, h4, h5, h6, span, div"

// HeadlineExtractor turns selected elements into normalized, deduplicated
// headline records. It holds no per-run state; the seen-title set is scoped
// to a single ExtractAll pass.
type HeadlineExtractor struct {
	chrome *ChromeFilter
}

// NewHeadlineExtractor builds an extractor with the given chrome filter.
// Passing nil terms applies the default navigation blacklist.
func NewHeadlineExtractor(chromeTerms []string) *HeadlineExtractor {
	if chromeTerms == nil {
		chromeTerms = DefaultChromeTerms()
	}
	return &HeadlineExtractor{chrome: NewChromeFilter(chromeTerms)}
}

// ExtractAll walks the selection in document order and emits at most
// maxCount records. Rejected elements (short, duplicate, or chrome text) are
// discarded without counting against the cap. capturedAt supplies record
// timestamps; nil uses time.Now.
func (x *HeadlineExtractor) ExtractAll(
	sel *goquery.Selection,
	source Source,
	maxCount int,
	capturedAt func() time.Time,
) []HeadlineRecord {
	if sel == nil || maxCount <= 0 {
		return nil
	}
	if capturedAt == nil {
		capturedAt = time.Now
	}

	records := make([]HeadlineRecord, 0, min(maxCount, sel.Length()))
	seenTitles := make(map[string]struct{})

	sel.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		title := normalizeTitle(elementTitle(el))
		if !x.accept(title, seenTitles) {
			return true
		}
		seenTitles[title] = struct{}{}
		records = append(records, HeadlineRecord{
			Title:      title,
			URL:        elementLink(el, source.EntryURL),
			Source:     source.Name,
			CapturedAt: capturedAt(),
		})
		headlinesExtracted.WithLabelValues(source.Name).Inc()
		return len(records) < maxCount
	})
	return records
}

func (x *HeadlineExtractor) accept(title string, seen map[string]struct{}) bool {
	if utf8.RuneCountInString(title) < minTitleLen {
		return false
	}
	if _, dup := seen[title]; dup {
		return false
	}
	return !x.chrome.IsChrome(title)
}

// elementTitle extracts the raw title text for one candidate element.
// Headings and anchors use their own text; an anchor with empty text falls
// back to its first heading or generic text container descendant.
func elementTitle(el *goquery.Selection) string {
	text := el.Text()
	if strings.TrimSpace(text) != "" {
		return text
	}
	if nodeName(el) == "a" {
		if nested := el.Find(textContainers).First(); nested.Length() > 0 {
			return nested.Text()
		}
	}
	return text
}

// elementLink resolves the record URL. Anchors use their own href;
// non-anchors use the first descendant anchor; everything is resolved
// against the entry URL, which is also the fallback when no link exists.
func elementLink(el *goquery.Selection, entryURL string) string {
	var href string
	if nodeName(el) == "a" {
		href, _ = el.Attr("href")
	} else if anchor := el.Find("a").First(); anchor.Length() > 0 {
		href, _ = anchor.Attr("href")
	}
	return ResolveLink(entryURL, href)
}

// normalizeTitle collapses whitespace runs to single spaces and trims.
func normalizeTitle(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func nodeName(el *goquery.Selection) string {
	if len(el.Nodes) == 0 {
		return ""
	}
	node := el.Nodes[0]
	if node.Type != html.ElementNode {
		return ""
	}
	return node.Data
}

