package scraper

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func docFromHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func newsSource() Source {
	return Source{
		Name:      "Example News",
		EntryURL:  "https://example.com/news",
		Selectors: []string{"h3 a"},
	}
}

func TestExtractAll_EmitsNormalizedRecords(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/world/story-1">Global   markets rally
		after     rate decision</a></h3>
		<h3><a href="https://example.com/world/story-2">Parliament approves the new climate bill</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, nil)
	require.Len(t, records, 2)
	require.Equal(t, "Global markets rally after rate decision", records[0].Title)
	require.Equal(t, "https://example.com/world/story-1", records[0].URL)
	require.Equal(t, "Example News", records[0].Source)
	require.Equal(t, "https://example.com/world/story-2", records[1].URL)
}

func TestExtractAll_RejectsShortTitles(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/a">News</a></h3>
		<h3><a href="/b">A headline long enough to keep around</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, "A headline long enough to keep around", records[0].Title)
}

func TestExtractAll_ChromeTermRejection(t *testing.T) {
	t.Parallel()

	short := "Breaking news today!" // 20 chars, blacklisted term, dropped
	long := "Breaking ground on the new stadium site" // 39 chars, kept
	require.Len(t, short, 20)
	require.GreaterOrEqual(t, len(long), 30)

	doc := docFromHTML(t, `
		<h3><a href="/a">`+short+`</a></h3>
		<h3><a href="/b">`+long+`</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, long, records[0].Title)
}

func TestExtractAll_CountsRunesNotBytes(t *testing.T) {
	t.Parallel()

	// Devanagari is 3 bytes per rune, so byte counting would keep the short
	// title and miss the chrome filter on the second one.
	short := "समाचार आज!" // 10 runes, dropped
	chrome := "ताज़ा समाचार Latest News" // 24 runes, blacklisted term, dropped
	kept := "संसद ने नए जलवायु विधेयक को मंजूरी दी" // 37 runes, kept
	require.Greater(t, len(short), 15)
	require.GreaterOrEqual(t, len(chrome), 30)

	doc := docFromHTML(t, `
		<h3><a href="/a">`+short+`</a></h3>
		<h3><a href="/b">`+chrome+`</a></h3>
		<h3><a href="/c">`+kept+`</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, kept, records[0].Title)
}

func TestExtractAll_DeduplicatesWithinPass(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/a">Council votes to expand the tram network</a></h3>
		<h3><a href="/b">Council  votes to expand the tram network</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, nil)
	require.Len(t, records, 1)
}

func TestExtractAll_IsIdempotent(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/a">Council votes to expand the tram network</a></h3>
		<h3><a href="/b">Airport reopens after overnight storm damage</a></h3>
	`)
	x := NewHeadlineExtractor(nil)
	at := func() time.Time { return time.Unix(1000, 0) }

	first := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, at)
	second := x.ExtractAll(doc.Find("h3 a"), newsSource(), 50, at)
	require.Equal(t, first, second)
}

func TestExtractAll_HonorsMaxCount(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/a">First headline with plenty of characters</a></h3>
		<h3><a href="/b">Second headline with plenty of characters</a></h3>
		<h3><a href="/c">Third headline with plenty of characters</a></h3>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3 a"), newsSource(), 2, nil)
	require.Len(t, records, 2)
	require.Equal(t, "First headline with plenty of characters", records[0].Title)
	require.Equal(t, "Second headline with plenty of characters", records[1].Title)
}

func TestExtractAll_AnchorWithNestedHeading(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<a href="/nested"><h2>Ministers agree on the budget framework</h2></a>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("a"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, "Ministers agree on the budget framework", records[0].Title)
	require.Equal(t, "https://example.com/nested", records[0].URL)
}

func TestExtractAll_NonAnchorUsesDescendantLink(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<div class="headline">
			<a href="/inner/story">Regulator fines the utility over outages</a>
		</div>
	`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("div.headline"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, "https://example.com/inner/story", records[0].URL)
}

func TestExtractAll_MissingLinkFallsBackToEntryURL(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `<h3>Harvest forecasts revised upward this season</h3>`)
	x := NewHeadlineExtractor(nil)

	records := x.ExtractAll(doc.Find("h3"), newsSource(), 50, nil)
	require.Len(t, records, 1)
	require.Equal(t, "https://example.com/news", records[0].URL)
}

func TestExtractAll_NilSelectionAndZeroBudget(t *testing.T) {
	t.Parallel()

	x := NewHeadlineExtractor(nil)
	require.Empty(t, x.ExtractAll(nil, newsSource(), 10, nil))

	doc := docFromHTML(t, `<h3><a href="/a">A headline long enough to keep around</a></h3>`)
	require.Empty(t, x.ExtractAll(doc.Find("h3 a"), newsSource(), 0, nil))
}
