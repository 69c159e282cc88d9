package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crowdshield/dashboard/backend/internal/config"
	speechmodel "github.com/crowdshield/dashboard/backend/internal/model/speech"
	speechsvc "github.com/crowdshield/dashboard/backend/internal/service/speech"
)

// mp3Frame is an ID3 header followed by an MPEG frame sync, enough for MIME sniffing.
var mp3Frame = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0xFF, 0xFB, 0x90, 0x64)

type stubEngine struct {
	available bool
}

func (s stubEngine) Name() string    { return "stub" }
func (s stubEngine) Available() bool { return s.available }

func (s stubEngine) Synthesize(context.Context, *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	return &speechmodel.TTSResponse{AudioData: mp3Frame, Format: "mp3"}, nil
}

func setupRouter(t *testing.T, available bool) *chi.Mux {
	t.Helper()
	cfg := config.SpeechConfig{OutputDir: filepath.Join(t.TempDir(), "alerts"), Language: "en"}
	svc := speechsvc.NewService(cfg, zaptest.NewLogger(t), speechsvc.WithEngines(stubEngine{available: available}))

	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r
}

func synthesize(t *testing.T, r http.Handler, body string) (*httptest.ResponseRecorder, speechmodel.Result) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(body)))
	var res speechmodel.Result
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}
	return rec, res
}

func TestSynthesizeThenServeAudio(t *testing.T) {
	r := setupRouter(t, true)

	rec, res := synthesize(t, r, `{"text":"Evacuate now","lang":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stub", res.Engine)
	name := filepath.Base(res.Path)
	assert.Equal(t, speechsvc.AudioURLPrefix+name, res.URL)
	audio := httptest.NewRecorder()
	r.ServeHTTP(audio, httptest.NewRequest(http.MethodGet, "/audio/"+name, nil))
	require.Equal(t, http.StatusOK, audio.Code)
	assert.Equal(t, "audio/mpeg", audio.Header().Get("Content-Type"))
	assert.Equal(t, mp3Frame, audio.Body.Bytes())

	_, again := synthesize(t, r, `{"text":"Evacuate now","lang":"hi"}`)
	assert.True(t, again.Cached)
}

func TestSynthesizeTextFallbackIsServedAsText(t *testing.T) {
	r := setupRouter(t, false)

	rec, res := synthesize(t, r, `{"text":"Shelter in place","filename":"drill.wav"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Fallback)
	assert.Equal(t, "drill.txt", filepath.Base(res.Path))

	body := httptest.NewRecorder()
	r.ServeHTTP(body, httptest.NewRequest(http.MethodGet, "/audio/drill.txt", nil))
	require.Equal(t, http.StatusOK, body.Code)
	assert.True(t, strings.HasPrefix(body.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, body.Body.String(), "TTS unavailable for lang='en'")
}

func TestSynthesizeRejectsBlankText(t *testing.T) {
	r := setupRouter(t, true)
	rec, _ := synthesize(t, r, `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAudioNotFoundAndTraversal(t *testing.T) {
	r := setupRouter(t, true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audio/missing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audio/.hidden", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEngines(t *testing.T) {
	r := setupRouter(t, true)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/speech/engines", nil))
	assert.JSONEq(t, `{"stub":true}`, rec.Body.String())
}
