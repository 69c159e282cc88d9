package system

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdshield/dashboard/backend/internal/config"
)

type fixedMode config.Mode

func (m fixedMode) Mode() config.Mode { return config.Mode(m) }

func setupRouter() *chi.Mux {
	h := New(
		[]config.IntegrationStatus{{Name: "twilio", Mode: config.ModeFallback, Missing: []string{"TWILIO_AUTH_TOKEN"}}},
		map[string]Moder{"sms": fixedMode(config.ModeFallback), "advisory": fixedMode(config.ModeLive)},
		nil,
	)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestIntegrationsNeverLeakValues(t *testing.T) {
	rec := httptest.NewRecorder()
	setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/integrations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"credentials": [{"name":"twilio","mode":"fallback","missing":["TWILIO_AUTH_TOKEN"]}],
		"components": [{"name":"advisory","mode":"live"},{"name":"sms","mode":"fallback"}]
	}`, rec.Body.String())
}
