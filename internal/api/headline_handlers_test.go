package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avelkov/newsreel/internal/storage/postgres"
)

type mockHeadlineReader struct {
	headlines []postgres.StoredHeadline
	err       error

	lastSource string
	lastLimit  int
	lastRunID  uuid.UUID
}

func (m *mockHeadlineReader) ListHeadlines(_ context.Context, source string, limit int) ([]postgres.StoredHeadline, error) {
	m.lastSource = source
	m.lastLimit = limit
	return m.headlines, m.err
}

func (m *mockHeadlineReader) RunHeadlines(_ context.Context, runID uuid.UUID) ([]postgres.StoredHeadline, error) {
	m.lastRunID = runID
	return m.headlines, m.err
}

func withRunIDParam(r *http.Request, runID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("run_id", runID)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}

func TestListHeadlines(t *testing.T) {
	t.Parallel()

	reader := &mockHeadlineReader{
		headlines: []postgres.StoredHeadline{
			{
				RunID:      uuid.New(),
				Source:     "BBC News",
				Title:      "Ceasefire talks resume after a week of shelling",
				URL:        "https://example.com/a",
				CapturedAt: time.Now().Add(-time.Hour),
			},
		},
	}
	handler := NewHeadlinesHandler(reader, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/headlines?source=BBC+News&limit=10", nil)
	rec := httptest.NewRecorder()

	handler.ListHeadlines(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "headlines")
	require.Equal(t, "BBC News", reader.lastSource)
	require.Equal(t, 10, reader.lastLimit)
}

func TestListHeadlinesInvalidLimit(t *testing.T) {
	t.Parallel()

	handler := NewHeadlinesHandler(&mockHeadlineReader{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/headlines?limit=-1", nil)
	rec := httptest.NewRecorder()

	handler.ListHeadlines(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHeadlinesWithoutReader(t *testing.T) {
	t.Parallel()

	handler := NewHeadlinesHandler(nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/headlines", nil)
	rec := httptest.NewRecorder()

	handler.ListHeadlines(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunHeadlinesMalformedID(t *testing.T) {
	t.Parallel()

	handler := NewHeadlinesHandler(&mockHeadlineReader{}, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/v1/headlines/runs/not-a-uuid", nil)
	req = withRunIDParam(req, "not-a-uuid")
	rec := httptest.NewRecorder()

	handler.RunHeadlines(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunHeadlinesByID(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	reader := &mockHeadlineReader{
		headlines: []postgres.StoredHeadline{
			{RunID: runID, Source: "Reuters", Title: "Election results certified after recount", URL: "https://example.org/b"},
		},
	}
	handler := NewHeadlinesHandler(reader, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/headlines/runs/"+runID.String(), nil)
	req = withRunIDParam(req, runID.String())
	rec := httptest.NewRecorder()

	handler.RunHeadlines(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, runID, reader.lastRunID)
}

func TestMountHeadlinesRoutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Config{})
	f.server.MountHeadlines(NewHeadlinesHandler(&mockHeadlineReader{}, zap.NewNop()))

	rec := f.do(t, http.MethodGet, "/v1/headlines", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
