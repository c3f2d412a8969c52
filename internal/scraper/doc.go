// Package scraper defines the core types and interfaces for the headline
// extraction engine: source definitions, headline records, the error
// taxonomy, and the selection/extraction stages that turn parsed markup
// into normalized records.
package scraper
