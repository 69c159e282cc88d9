package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

const (
	gttsEndpoint = "https://translate.google.com/translate_tts"
	gttsMaxChars = 200
)

// GTTSEngine calls the public Google Translate speech endpoint. It needs no
// credentials; each chunk is retried with exponential backoff.
type GTTSEngine struct {
	enabled    bool
	endpoint   string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

type GTTSOption func(*GTTSEngine)

// WithGTTSEndpoint points the engine at another host.
func WithGTTSEndpoint(endpoint string) GTTSOption {
	return func(e *GTTSEngine) { e.endpoint = endpoint }
}

func WithGTTSClient(client *http.Client) GTTSOption {
	return func(e *GTTSEngine) { e.client = client }
}

func NewGTTSEngine(enabled bool, maxRetries int, baseDelay time.Duration, logger *zap.Logger, opts ...GTTSOption) *GTTSEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	e := &GTTSEngine{
		enabled:    enabled,
		endpoint:   gttsEndpoint,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.Named("gtts"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *GTTSEngine) Name() string { return EngineGTTS }

func (e *GTTSEngine) Available() bool { return e.enabled }

func (e *GTTSEngine) Synthesize(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "en"
	}

	chunks := splitText(text, gttsMaxChars)
	var audio bytes.Buffer
	for idx, chunk := range chunks {
		data, err := e.fetchWithRetry(ctx, chunk, lang, idx, len(chunks))
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}
	return &speech.TTSResponse{AudioData: audio.Bytes(), Format: "mp3", CreatedAt: time.Now()}, nil
}

func (e *GTTSEngine) fetchWithRetry(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		data, err := e.fetch(ctx, chunk, lang, idx, total)
		if err != nil {
			e.logger.Debug("gtts attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return data, err
	}
	data, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.maxRetries)),
	)
	if err != nil {
		return nil, fmt.Errorf("gtts failed after %d attempts: %w", attempt, err)
	}
	return data, nil
}

func (e *GTTSEngine) fetch(ctx context.Context, chunk, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	q.Set("idx", strconv.Itoa(idx))
	q.Set("total", strconv.Itoa(total))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (crowdshield)")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("gtts status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("gtts status %d", resp.StatusCode))
	}
	if len(body) == 0 {
		return nil, errors.New("gtts returned empty audio")
	}
	return body, nil
}

// splitText cuts text into pieces of at most limit runes, preferring
// whitespace boundaries.
func splitText(text string, limit int) []string {
	var chunks []string
	var current []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = nil
			}
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		if len(current) > 0 && len(current)+1+len(w) > limit {
			chunks = append(chunks, string(current))
			current = nil
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}
