// Package main hosts the newsreel entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, source, and scrape endpoints. A POST to
//     /v1/scrapes starts at most one run at a time; /v1/scrapes/current reports progress and
//     /v1/scrapes/current/cancel stops a run between sources or mid-fetch.
//   - Scrape pipeline: the orchestrator (internal/scrape) walks the source catalog sequentially. Each source is
//     fetched through the Colly-based transport with per-host rate limiting; hardened sources get pre-request
//     delays, retries, and a user-agent swap after a 403. Suspected block pages are optionally re-rendered via
//     headless Chrome (chromedp) before parsing.
//   - Extraction: pages are parsed leniently (strict UTF-8, then declared charset, then lossy), the first
//     matching CSS selector wins (with generic fallbacks), and headlines are normalized, deduplicated, and
//     resolved to absolute URLs.
//   - Persistence & fanout: raw HTML is optionally archived to a BlobStore (local/GCS), accepted headlines are
//     optionally persisted to Postgres, and a compact run summary is published to Pub/Sub when a topic is
//     configured. Progress events are buffered through a hub and fanned out to the configured sinks.
//   - Configuration & plumbing: Viper populates config from env/files (NEWSREEL_ prefix); zap provides
//     structured logging; Prometheus metrics are exported from /metrics.
//
// Run locally: go run ./cmd/newsreel -config config.yaml for a one-shot scrape that prints headlines to
// stdout, or add -serve to run the HTTP service. -sources and -custom-url narrow or extend the catalog
// for one-shot runs.
package main
