package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crowdshield/dashboard/backend/internal/auth"
	"github.com/crowdshield/dashboard/backend/internal/config"
	statemodel "github.com/crowdshield/dashboard/backend/internal/model/state"
	"github.com/crowdshield/dashboard/backend/internal/service/data"
	"github.com/crowdshield/dashboard/backend/internal/service/report"
)

func newTestRouter(t *testing.T, signer *auth.Signer) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewRouter(Deps{
		Config:  &config.Config{},
		Logger:  logger,
		Data:    data.NewService(t.TempDir(), statemodel.NewMemoryStore(statemodel.MustSeed()), nil, logger),
		Reports: report.NewService(nil, nil, logger),
		Signer:  signer,
	})
}

func request(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesPageMetricsAndHealth(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := request(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leaflet")

	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/api/states", "").Code)

	rec = request(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crowdshield_http_requests_total")
}

func TestRouterUnwiredServicesAnswer503(t *testing.T) {
	h := newTestRouter(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, request(h, http.MethodPost, "/api/advisory", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, request(h, http.MethodPost, "/api/speech/synthesize", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, request(h, http.MethodPost, "/api/routes", "").Code)
}

func TestRouterOperatorRoutesWithoutAuthAreOpen(t *testing.T) {
	h := newTestRouter(t, nil)
	assert.Equal(t, http.StatusOK, request(h, http.MethodDelete, "/api/cache", "").Code)
}

func TestRouterOperatorRoutesRequireToken(t *testing.T) {
	signer := auth.NewSigner("test-secret")
	h := newTestRouter(t, signer)

	assert.Equal(t, http.StatusUnauthorized, request(h, http.MethodDelete, "/api/cache", "").Code)

	viewer, err := signer.Issue("viewer", nil, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(h, http.MethodDelete, "/api/cache", viewer).Code)

	operator, err := signer.Issue("ops", []string{auth.RoleOperator}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, request(h, http.MethodDelete, "/api/cache", operator).Code)

	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/api/states", "").Code)
}
