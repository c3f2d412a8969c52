package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveLink makes href absolute against the source entry URL. Empty or
// unparsable hrefs fall back to the entry URL so a record never carries an
// empty link.
func ResolveLink(entryURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return entryURL
	}
	base, err := url.Parse(entryURL)
	if err != nil {
		return entryURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return entryURL
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme == "" || resolved.Host == "" {
		return entryURL
	}
	return resolved.String()
}

// NormalizeURL standardizes a URL for comparison: lowercased scheme and
// host, default ports stripped, fragment removed, query sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}

// Host extracts the lowercased hostname of a URL, or "unknown" when it
// cannot be parsed. Used as a metrics label.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
