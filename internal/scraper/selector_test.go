package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelect_FirstMatchingSelectorWins(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h2 class="alt"><a href="/a">Second choice headline</a></h2>
		<h3><a href="/b">Primary headline one</a></h3>
		<h3><a href="/c">Primary headline two</a></h3>
	`)
	src := Source{
		Name:      "Ordered",
		EntryURL:  "https://example.com",
		Selectors: []string{"h3 a", "h2 a"},
	}
	s := NewCSSSelector(nil, nil)

	sel := s.Select(doc, src)
	require.Equal(t, 2, sel.Length())
	require.Equal(t, "Primary headline one", sel.First().Text())
}

func TestSelect_SkipsNonMatchingSelectors(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `<h2 class="alt"><a href="/a">Only the second selector matches</a></h2>`)
	src := Source{
		Name:      "Skipping",
		EntryURL:  "https://example.com",
		Selectors: []string{".missing a", "h2 a"},
	}
	s := NewCSSSelector(nil, nil)

	sel := s.Select(doc, src)
	require.Equal(t, 1, sel.Length())
}

func TestSelect_FallsBackToHeuristics(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<a href="/story/deep-dive">A story anchor found by the fallback list</a>
	`)
	src := Source{
		Name:      "Fallback",
		EntryURL:  "https://example.com",
		Selectors: []string{".nothing-here"},
	}
	s := NewCSSSelector(nil, nil)

	sel := s.Select(doc, src)
	require.Equal(t, 1, sel.Length())
}

func TestSelect_EmptyResultIsValid(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `<p>no headlines on this page</p>`)
	src := Source{
		Name:      "Empty",
		EntryURL:  "https://example.com",
		Selectors: []string{".nothing-here"},
	}
	s := NewCSSSelector(nil, nil)

	sel := s.Select(doc, src)
	require.Zero(t, sel.Length())
}

func TestExplain_ReportsAllSelectors(t *testing.T) {
	t.Parallel()

	doc := docFromHTML(t, `
		<h3><a href="/a">First probe headline</a></h3>
		<h3><a href="/b">Second probe headline</a></h3>
	`)
	src := Source{
		Name:      "Probe",
		EntryURL:  "https://example.com",
		Selectors: []string{"h3 a", ".missing"},
	}
	s := NewCSSSelector([]string{"h3 a"}, nil)

	matches, fallbacks := s.Explain(doc, src)
	require.Equal(t, []ProbeMatch{
		{Selector: "h3 a", Count: 2},
		{Selector: ".missing", Count: 0},
	}, matches)
	require.Equal(t, []ProbeMatch{{Selector: "h3 a", Count: 2}}, fallbacks)
}
