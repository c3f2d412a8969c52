package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/metrics"
	"github.com/avelkov/newsreel/internal/scrape"
	"github.com/avelkov/newsreel/internal/scraper"
)

// Config carries the HTTP-layer knobs.
type Config struct {
	// RequestTimeout bounds handler execution; zero means 60s.
	RequestTimeout time.Duration
	// APIKey, when non-empty, requires X-API-Key on every request.
	APIKey string
}

// Server wires HTTP handlers to the orchestrator and source catalog.
type Server struct {
	router   chi.Router
	catalog  *scraper.Catalog
	orch     *scrape.Orchestrator
	gatherer prometheus.Gatherer
	cfg      Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. A nil gatherer
// falls back to the default Prometheus registry.
func NewServer(
	catalog *scraper.Catalog,
	orch *scrape.Orchestrator,
	gatherer prometheus.Gatherer,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		catalog:  catalog,
		orch:     orch,
		gatherer: gatherer,
		cfg:      cfg,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(cfg.RequestTimeout))
	if cfg.APIKey != "" {
		r.Use(apiKeyMiddleware(cfg.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sources", func(r chi.Router) {
			r.Get("/", s.listSources)
			r.Get("/{name}/probe", s.probeSource)
		})
		r.Route("/scrapes", func(r chi.Router) {
			r.Post("/", s.startScrape)
			r.Route("/current", func(r chi.Router) {
				r.Get("/", s.currentScrape)
				r.Post("/cancel", s.cancelScrape)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil || s.catalog.Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "no sources configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.catalog.Sources()})
}

func (s *Server) probeSource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	src, ok := s.catalog.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", name))
		return
	}
	report, err := s.orch.Probe(r.Context(), src)
	if err != nil {
		s.logger.Warn("probe failed", zap.String("source", src.Name), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// startScrapeRequest is the POST /v1/scrapes body. All fields are optional;
// an empty body scrapes the full catalog with default limits.
type startScrapeRequest struct {
	Sources      []string `json:"sources"`
	CustomURL    *string  `json:"custom_url"`
	MaxPerSource *int     `json:"max_per_source"`
}

type startScrapeResponse struct {
	RunID string       `json:"run_id"`
	State scrape.State `json:"state"`
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	var req startScrapeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	catalog := s.catalog
	if len(req.Sources) > 0 {
		filtered, err := catalog.Filter(req.Sources)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		catalog = filtered
	}
	if req.CustomURL != nil {
		withCustom, err := catalog.WithCustom(*req.CustomURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		catalog = withCustom
	}

	// The run outlives the request, so it must not inherit the request
	// context's cancellation.
	run, err := s.orch.Start(context.WithoutCancel(r.Context()), catalog.Sources(), valueOrDefault(req.MaxPerSource, 0))
	if err != nil {
		switch {
		case errors.Is(err, scraper.ErrNoSources):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, scraper.ErrRunActive):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("start scrape failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start scrape")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, startScrapeResponse{RunID: run.ID(), State: run.State()})
}

func (s *Server) currentScrape(w http.ResponseWriter, _ *http.Request) {
	run := s.orch.Current()
	if run == nil {
		writeError(w, http.StatusNotFound, "no scrape has been started")
		return
	}
	summary := run.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":      summary,
		"success_rate": summary.SuccessRate(),
	})
}

func (s *Server) cancelScrape(w http.ResponseWriter, _ *http.Request) {
	run := s.orch.Current()
	if run == nil {
		writeError(w, http.StatusNotFound, "no scrape has been started")
		return
	}
	if run.State() != scrape.StateRunning {
		writeError(w, http.StatusConflict, fmt.Sprintf("run is %s", run.State()))
		return
	}
	run.Cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID(), "status": "cancelling"})
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr != nil {
		return *ptr
	}
	return def
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
