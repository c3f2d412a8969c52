package scraper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// headlinesExtracted tracks accepted headline records per source.
	headlinesExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreel_headlines_extracted_total",
		Help: "The total number of headline records accepted, by source.",
	}, []string{"source"})
	// selectorFallbacks counts selection passes that fell back to the
	// generic heuristic list.
	selectorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreel_selector_fallbacks_total",
		Help: "The total number of passes resolved by the generic fallback selectors, by source.",
	}, []string{"source"})
	// FetchAttempts tracks HTTP attempts, including retries, by host.
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreel_fetch_attempts_total",
		Help: "The total number of HTTP fetch attempts, by host.",
	}, []string{"host"})
	// BlockedFetches counts fetches that exhausted retries against a
	// defended source.
	BlockedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreel_fetch_blocked_total",
		Help: "The total number of fetches that gave up blocked, by host.",
	}, []string{"host"})
	// ParseFallbacks counts documents rescued by a lenient parser backend.
	ParseFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsreel_parse_fallbacks_total",
		Help: "The total number of parses resolved by a lenient backend, by backend.",
	}, []string{"backend"})
)
