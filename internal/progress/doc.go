// Package progress provides the event primitives, non-blocking hub, and emitter
// interfaces the scrape orchestrator uses to report run milestones. A dispatch
// goroutine delivers queued events to pluggable sinks such as UI callbacks,
// Prometheus metrics, or persistent storage.
package progress
