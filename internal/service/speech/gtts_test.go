package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short alert"}, splitText("  short   alert ", 200))

	long := strings.Repeat("word ", 100)
	chunks := splitText(long, 200)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 200)
	}
	assert.Equal(t, strings.TrimSpace(long), strings.Join(chunks, " "))

	assert.Equal(t, []string{"abcd", "ef", "gh"}, splitText("abcdef gh", 4))
	assert.Empty(t, splitText("   ", 10))
}

func TestGTTSEngineRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "ml", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte("mp3:" + r.URL.Query().Get("q")))
	}))
	defer srv.Close()

	e := NewGTTSEngine(true, 3, 0, nil, WithGTTSEndpoint(srv.URL))
	resp, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "go north", Language: "ml"})
	require.NoError(t, err)
	assert.Equal(t, "mp3:go north", string(resp.AudioData))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGTTSEngineGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	e := NewGTTSEngine(true, 2, 0, nil, WithGTTSEndpoint(srv.URL))
	_, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGTTSEngineDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := NewGTTSEngine(true, 5, 0, nil, WithGTTSEndpoint(srv.URL))
	_, err := e.Synthesize(context.Background(), &speech.TTSRequest{Text: "hello", Language: "xx"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGTTSEngineDisabled(t *testing.T) {
	assert.False(t, NewGTTSEngine(false, 1, 0, nil).Available())
	assert.True(t, NewGTTSEngine(true, 1, 0, nil).Available())
}
