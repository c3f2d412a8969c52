// Package sinks implements concrete progress consumers such as UI callbacks,
// Prometheus metrics, headline persistence, run-summary publishing, and
// structured logging. Each sink satisfies the progress.Sink interface and is
// safe for repeated Consume/Close cycles.
package sinks
