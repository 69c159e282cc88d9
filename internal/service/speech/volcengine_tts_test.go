package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

func TestResolveResourceCandidates(t *testing.T) {
	tests := []struct {
		name  string
		voice string
		want  []string
	}{
		{"empty voice", "", []string{volcDefaultResource, volcSeedResource}},
		{"seed voice", "en_female_amy_jupiter_bigtts", []string{volcSeedResource, volcDefaultResource}},
		{"cloned voice", "S_abc123", []string{volcMegaResource}},
		{"classic voice", "BV001_streaming", []string{volcDefaultResource, volcSeedResource}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveResourceCandidates(tt.voice))
		})
	}
}

func TestResolveSpeakerCandidates(t *testing.T) {
	assert.Equal(t,
		[]string{"en_female_amy_jupiter_bigtts", "zh_female_vv_uranus_bigtts"},
		resolveSpeakerCandidates("alert", "zh_female_vv_uranus_bigtts", ""))

	assert.Equal(t,
		[]string{"zh_female_vv_uranus_bigtts", "en_female_amy_jupiter_bigtts"},
		resolveSpeakerCandidates("", "en_female_amy_jupiter_bigtts", "zh"))

	assert.Equal(t,
		[]string{"en_female_amy_jupiter_bigtts"},
		resolveSpeakerCandidates(" ", "EN_FEMALE_AMY_JUPITER_BIGTTS ", "en"))

	assert.Equal(t, []string{"en_female_amy_jupiter_bigtts"}, resolveSpeakerCandidates("", "", "ml"))
}

func TestIsResourceMismatchError(t *testing.T) {
	assert.False(t, isResourceMismatchError(nil))
	assert.False(t, isResourceMismatchError(errors.New("quota exceeded")))
	assert.True(t, isResourceMismatchError(errors.New("volcengine api error 45000000: resource ID is mismatched with speaker related resource")))
}

func TestVolcengineEngineAvailability(t *testing.T) {
	e := NewVolcengineEngine(speech.VolcengineConfig{AppID: "app"}, nil)
	assert.False(t, e.Available())

	_, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "hello"})
	assert.Error(t, err)

	e = NewVolcengineEngine(speech.VolcengineConfig{AppID: "app", AccessToken: "tok"}, nil)
	assert.True(t, e.Available())

	_, err = e.Synthesize(context.Background(), &speech.TTSRequest{Text: "  "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestVolcengineEngineSkipsUnmappedLanguage(t *testing.T) {
	var dials int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		dials++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewVolcengineEngine(speech.VolcengineConfig{AppID: "app", AccessToken: "tok", TTSVoice: "en_female_amy_jupiter_bigtts"}, zaptest.NewLogger(t))
	e.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	for _, lang := range []string{"hi", "ml", "ta"} {
		_, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "Move to higher ground", Language: lang})
		assert.ErrorIs(t, err, ErrUnsupportedLanguage, lang)
	}
	assert.Zero(t, dials)

	assert.True(t, hasLanguageVoice(""))
	assert.True(t, hasLanguageVoice("en-IN"))
	assert.True(t, hasLanguageVoice("ZH"))
	assert.False(t, hasLanguageVoice("hi"))
}

func TestSynthesizeSkipsVolcengineForUnmappedLanguage(t *testing.T) {
	volc := NewVolcengineEngine(speech.VolcengineConfig{AppID: "app", AccessToken: "tok"}, zaptest.NewLogger(t))
	volc.url = "ws://127.0.0.1:1/unreachable"
	next := &fakeEngine{name: "gtts", available: true, audio: []byte("hindi audio")}
	svc := newTestService(t, volc, next)

	res, err := svc.Synthesize(context.Background(), "Move to higher ground", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "gtts", res.Engine)
	assert.Equal(t, 1, next.calls)
}

func TestVolcengineEngineStreamsAudio(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotHeaders http.Header
	var gotRequest volcRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := decodeFrame(data)
		if err != nil {
			return
		}
		_ = json.Unmarshal(req.Payload, &gotRequest)

		audio := &frame{
			Header:   frameHeader{Version: protocolVersion, Size: 1, Type: msgAudioOnlyResponse, Flags: flagPositiveSequence},
			Sequence: 1,
			Payload:  []byte("abc"),
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, encodeFrame(audio))

		body, _ := json.Marshal(map[string]any{
			"code":  0,
			"reqid": "req-1",
			"data":  base64.StdEncoding.EncodeToString([]byte("def")),
		})
		final := &frame{
			Header:   frameHeader{Version: protocolVersion, Size: 1, Type: msgFullServerResponse, Flags: flagNegativeSequence, Serialization: serializationJSON},
			Sequence: -1,
			Payload:  body,
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, encodeFrame(final))
	}))
	defer srv.Close()

	e := NewVolcengineEngine(speech.VolcengineConfig{AppID: "app", AccessToken: "tok", TTSVoice: "en_female_amy_jupiter_bigtts"}, zaptest.NewLogger(t))
	e.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	resp, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "Move to shelter", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(resp.AudioData))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "mp3", resp.Format)

	assert.Equal(t, "app", gotHeaders.Get("X-Api-App-Key"))
	assert.Equal(t, volcSeedResource, gotHeaders.Get("X-Api-Resource-Id"))
	assert.Equal(t, "Move to shelter", gotRequest.ReqParams.Text)
	assert.Equal(t, "en_female_amy_jupiter_bigtts", gotRequest.ReqParams.Speaker)
}

func TestVolcengineEngineSurfacesServerError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		errFrame := &frame{
			Header:    frameHeader{Version: protocolVersion, Size: 1, Type: msgError},
			ErrorCode: 45000001,
			Payload:   []byte("invalid token"),
		}
		_ = conn.WriteMessage(websocket.BinaryMessage, encodeFrame(errFrame))
	}))
	defer srv.Close()

	e := NewVolcengineEngine(speech.VolcengineConfig{AppID: "app", AccessToken: "bad"}, nil)
	e.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	_, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}
