package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
	translatesvc "github.com/crowdshield/dashboard/backend/internal/service/translate"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, err := translatesvc.NewService(context.Background(), nil, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func TestTranslateStaticLabel(t *testing.T) {
	r := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":"Hazard","lang":"hi"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var got translatemodel.Translation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "खतरा", got.Text)
	assert.Equal(t, translatemodel.SourceStatic, got.Source)
}

func TestTranslatePassthroughWithoutModel(t *testing.T) {
	r := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"text":"Move to the north gate immediately","lang":"ta"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var got translatemodel.Translation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Move to the north gate immediately", got.Text)
	assert.Equal(t, translatemodel.SourcePassthrough, got.Source)
}

func TestTranslateValidates(t *testing.T) {
	r := setupRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(`{"lang":"hi"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLabelsFallBackToEnglish(t *testing.T) {
	r := setupRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/i18n/fr", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Labels map[string]string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Hazard", body.Labels["hazard"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/i18n", nil))
	assert.JSONEq(t, `{"languages":["en","hi","ml","ta"]}`, rec.Body.String())
}
