package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// CustomSourceName labels the ad-hoc source a caller may add at run start.
const CustomSourceName = "Custom URL"

// genericSelectors is the selector set used for ad-hoc custom sources where
// nothing is known about the site's markup.
var genericSelectors = []string{
	"h1", "h2", "h3", ".headline", ".title", "article h2", "article h3",
}

// Catalog is an immutable, ordered collection of source definitions. It is
// assembled before a run starts and never mutated afterwards.
type Catalog struct {
	sources []Source
}

// NewCatalog validates and copies the given sources into a Catalog.
func NewCatalog(sources []Source) (*Catalog, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	copied := make([]Source, 0, len(sources))
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if err := validateSource(src); err != nil {
			return nil, err
		}
		key := strings.ToLower(src.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[key] = struct{}{}
		src.Selectors = append([]string(nil), src.Selectors...)
		if src.Class == "" {
			src.Class = ClassStandard
		}
		copied = append(copied, src)
	}
	return &Catalog{sources: copied}, nil
}

// DefaultCatalog returns the preconfigured news sources.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultSources())
	if err != nil {
		// defaultSources is a compile-time constant set; a failure here is a
		// programming error.
		panic(err)
	}
	return catalog
}

// Sources returns the sources in listed order. The slice and the selector
// slices inside it are copies.
func (c *Catalog) Sources() []Source {
	return CloneSources(c.sources)
}

// CloneSources deep-copies a source slice so callers can hold or mutate the
// result without aliasing the input's selector slices.
func CloneSources(sources []Source) []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	for i := range out {
		out[i].Selectors = append([]string(nil), out[i].Selectors...)
	}
	return out
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	return len(c.sources)
}

// Names returns the source names in listed order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.sources))
	for _, src := range c.sources {
		names = append(names, src.Name)
	}
	return names
}

// Get looks up a source by name (case-insensitive).
func (c *Catalog) Get(name string) (Source, bool) {
	for _, src := range c.sources {
		if strings.EqualFold(src.Name, name) {
			src.Selectors = append([]string(nil), src.Selectors...)
			return src, true
		}
	}
	return Source{}, false
}

// Filter returns a new Catalog containing only the named sources, preserving
// catalog order. Unknown names are reported as an error.
func (c *Catalog) Filter(names []string) (*Catalog, error) {
	if len(names) == 0 {
		return c, nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := c.Get(n); !ok {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		wanted[strings.ToLower(n)] = struct{}{}
	}
	filtered := make([]Source, 0, len(wanted))
	for _, src := range c.sources {
		if _, ok := wanted[strings.ToLower(src.Name)]; ok {
			filtered = append(filtered, src)
		}
	}
	return &Catalog{sources: CloneSources(filtered)}, nil
}

// WithCustom returns a new Catalog with an ad-hoc source appended. The custom
// source uses the generic selector set and the standard anti-bot class.
func (c *Catalog) WithCustom(rawURL string) (*Catalog, error) {
	custom := Source{
		Name:      CustomSourceName,
		EntryURL:  rawURL,
		Selectors: append([]string(nil), genericSelectors...),
		Class:     ClassStandard,
	}
	if err := validateSource(custom); err != nil {
		return nil, err
	}
	sources := append(c.Sources(), custom)
	return &Catalog{sources: sources}, nil
}

func validateSource(src Source) error {
	if strings.TrimSpace(src.Name) == "" {
		return fmt.Errorf("source name must be set")
	}
	u, err := url.Parse(src.EntryURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source %q: entry url %q is not absolute", src.Name, src.EntryURL)
	}
	if len(src.Selectors) == 0 {
		return fmt.Errorf("source %q: at least one selector is required", src.Name)
	}
	for _, sel := range src.Selectors {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("source %q: empty selector", src.Name)
		}
	}
	switch src.Class {
	case "", ClassStandard, ClassHardened:
	default:
		return fmt.Errorf("source %q: unknown anti-bot class %q", src.Name, src.Class)
	}
	return nil
}

func defaultSources() []Source {
	return []Source{
		{
			Name:      "BBC News",
			EntryURL:  "https://www.bbc.com/news",
			Selectors: []string{"h3", ".media__title a", ".gs-c-promo-heading__title"},
		},
		{
			Name:      "Reuters",
			EntryURL:  "https://www.reuters.com",
			Selectors: []string{"h3 a", ".story-title", "h2 a"},
		},
		{
			Name:      "CNN",
			EntryURL:  "https://www.cnn.com",
			Selectors: []string{"h3 a", ".cd__headline-text", "h2 a"},
		},
		{
			Name:      "The Guardian",
			EntryURL:  "https://www.theguardian.com",
			Selectors: []string{".fc-item__title a", "h3 a", ".u-faux-block-link__overlay"},
		},
		{
			Name:      "Associated Press",
			EntryURL:  "https://apnews.com",
			Selectors: []string{".PagePromo-title a", "h1 a", "h2 a"},
		},
		{
			Name:      "Indian Express",
			EntryURL:  "https://indianexpress.com/section/india/",
			Selectors: []string{".title a", "h2 a", "h3 a", ".ie-custom-story-item h3 a", ".story-details h3 a"},
			Class:     ClassHardened,
		},
		{
			Name:      "Times of India",
			EntryURL:  "https://timesofindia.indiatimes.com/india",
			Selectors: []string{".content a", "h2 a", "h3 a", ".story-list h3 a"},
			Class:     ClassHardened,
		},
		{
			Name:      "Hindustan Times",
			EntryURL:  "https://www.hindustantimes.com/india-news",
			Selectors: []string{".hdg3 a", "h3 a", ".story-title", ".big-news h3 a"},
		},
		{
			Name:      "NDTV",
			EntryURL:  "https://www.ndtv.com/india",
			Selectors: []string{".nstory_header a", "h2 a", "h3 a", ".story-title"},
		},
		{
			Name:      "India Today",
			EntryURL:  "https://www.indiatoday.in/india",
			Selectors: []string{".detail h3 a", "h2 a", "h3 a", ".story-kicker"},
		},
	}
}
