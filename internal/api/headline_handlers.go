package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/storage/postgres"
)

const (
	defaultHeadlineLimit = 50
	maxHeadlineLimit     = 500
	headlineTimeout      = 3 * time.Second
)

// HeadlineReader serves persisted headlines for the read endpoints.
type HeadlineReader interface {
	ListHeadlines(ctx context.Context, source string, limit int) ([]postgres.StoredHeadline, error)
	RunHeadlines(ctx context.Context, runID uuid.UUID) ([]postgres.StoredHeadline, error)
}

// HeadlinesHandler exposes read-only endpoints over persisted headlines.
type HeadlinesHandler struct {
	reader  HeadlineReader
	timeout time.Duration
	logger  *zap.Logger
}

// NewHeadlinesHandler wires the reader and logger. A nil reader is allowed;
// the endpoints then answer 503.
func NewHeadlinesHandler(reader HeadlineReader, logger *zap.Logger) *HeadlinesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeadlinesHandler{
		reader:  reader,
		timeout: headlineTimeout,
		logger:  logger,
	}
}

// MountHeadlines registers the headline read endpoints on the server router.
func (s *Server) MountHeadlines(h *HeadlinesHandler) {
	s.router.Route("/v1/headlines", func(r chi.Router) {
		r.Get("/", h.ListHeadlines)
		r.Get("/runs/{run_id}", h.RunHeadlines)
	})
}

// ListHeadlines handles GET /v1/headlines?source=&limit=. It returns a JSON
// object {"headlines": [...]} on success, 400 for invalid filters, 503 when
// persistence is not configured, or 500 if the query fails.
func (h *HeadlinesHandler) ListHeadlines(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "headline persistence is not configured")
		return
	}
	limit := defaultHeadlineLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHeadlineLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be an integer in [1, %d]", maxHeadlineLimit))
			return
		}
		limit = parsed
	}
	source := strings.TrimSpace(r.URL.Query().Get("source"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	headlines, err := h.reader.ListHeadlines(ctx, source, limit)
	if err != nil {
		h.logger.Error("list headlines failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list headlines")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"headlines": headlines})
}

// RunHeadlines handles GET /v1/headlines/runs/{run_id}. It returns
// {"headlines": [...]} on success or 400 for a malformed run ID.
func (h *HeadlinesHandler) RunHeadlines(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "headline persistence is not configured")
		return
	}
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "run_id must be a UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	headlines, err := h.reader.RunHeadlines(ctx, runID)
	if err != nil {
		h.logger.Error("run headlines failed", zap.String("run_id", runID.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run headlines")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"headlines": headlines})
}
