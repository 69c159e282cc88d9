package advisory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	advisoryservice "github.com/crowdshield/dashboard/backend/internal/service/advisory"
)

func setupRouter(t *testing.T) (*chi.Mux, *advisoryservice.Cache) {
	t.Helper()
	cache, err := advisoryservice.LoadCache("")
	require.NoError(t, err)
	gen := advisoryservice.NewGenerator(context.Background(), nil, cache, 150, zaptest.NewLogger(t))

	r := chi.NewRouter()
	New(gen, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r, cache
}

func TestGenerateFallsBackToMock(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/advisory/", strings.NewReader(`{"severity":"high","drivers":["rain","crowd"]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"severity":"high","text":"[Mock Advisory] Severity: high. Drivers: rain, crowd","source":"mock"}`, rec.Body.String())
}

func TestGenerateValidates(t *testing.T) {
	r, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/advisory/", strings.NewReader(`{"drivers":["rain"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsBlankSeverity(t *testing.T) {
	r, cache := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/advisory/", strings.NewReader(`{"severity":"  \t ","drivers":["rain"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Severity failed notblank")
	assert.Empty(t, cache.Snapshot())
}

func TestStreamEmitsSSE(t *testing.T) {
	r, cache := setupRouter(t)
	require.NoError(t, cache.Put("medium", "Stay indoors"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/advisory/stream?severity=medium&drivers=rain,%20wind", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: start\n")
	assert.Contains(t, body, "event: delta\ndata: {\"content\":\"Stay indoors\"}\n\n")
	assert.Contains(t, body, "event: done\n")
}

func TestStreamRequiresSeverity(t *testing.T) {
	r, _ := setupRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/advisory/stream", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheSnapshot(t *testing.T) {
	r, cache := setupRouter(t)
	require.NoError(t, cache.Put("low", "All clear"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/advisory/cache", nil))
	assert.JSONEq(t, `{"low":"All clear"}`, rec.Body.String())
}
