// Package api exposes the HTTP interface for the scrape service.
package api
