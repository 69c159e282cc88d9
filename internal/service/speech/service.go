package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
	"github.com/crowdshield/dashboard/backend/internal/model/speech"
)

// AudioURLPrefix is where the HTTP layer serves generated artifacts.
const AudioURLPrefix = "/api/audio/"

// ErrInvalidName rejects artifact names that could escape the output directory.
var ErrInvalidName = errors.New("invalid audio file name")

// Service turns alert text into an audio artifact on disk. Engines are tried
// in order; when all of them fail a .txt file is written instead, and when
// even that fails the text itself is returned as the result path.
type Service struct {
	engines     []Engine
	outputDir   string
	defaultLang string
	logger      *zap.Logger
}

type Option func(*Service)

// WithEngines replaces the configured engine chain.
func WithEngines(engines ...Engine) Option {
	return func(s *Service) { s.engines = engines }
}

// NewService builds the default chain: Volcengine, Google Cloud, gTTS.
func NewService(cfg config.SpeechConfig, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	lang := strings.TrimSpace(cfg.Language)
	if lang == "" {
		lang = "en"
	}
	s := &Service{
		engines: []Engine{
			NewVolcengineEngine(speech.VolcengineConfig{
				AppID:       cfg.AppID,
				AccessToken: cfg.AccessToken,
				TTSVoice:    cfg.TTSVoice,
				TTSSpeed:    cfg.TTSSpeed,
				TTSVolume:   cfg.TTSVolume,
				Timeout:     cfg.Timeout,
			}, logger),
			NewGoogleCloudEngine(cfg.GoogleCredentialsFile),
			NewGTTSEngine(cfg.GTTSEnabled, cfg.MaxRetries, cfg.BaseDelay, logger),
		},
		outputDir:   cfg.OutputDir,
		defaultLang: lang,
		logger:      logger.Named("tts"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OutputDir is the directory artifacts are written to.
func (s *Service) OutputDir() string { return s.outputDir }

// Engines lists the chain with each engine's availability.
func (s *Service) Engines() map[string]bool {
	out := make(map[string]bool, len(s.engines))
	for _, e := range s.engines {
		out[e.Name()] = e.Available()
	}
	return out
}

// Mode is live when any engine in the chain can run.
func (s *Service) Mode() config.Mode {
	for _, e := range s.engines {
		if e.Available() {
			return config.ModeLive
		}
	}
	return config.ModeFallback
}

// Synthesize renders text in lang. An empty filename derives a stable name
// from the text and language, so repeated requests reuse the cached file.
func (s *Service) Synthesize(ctx context.Context, text, lang, filename string) (speech.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return speech.Result{}, ErrEmptyText
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = s.defaultLang
	}

	name, err := artifactName(text, lang, filename)
	if err != nil {
		return speech.Result{}, err
	}
	target := filepath.Join(s.outputDir, name)

	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		metrics.TTSEngineTotal.WithLabelValues(EngineCache, metrics.OutcomeSuccess).Inc()
		return s.result(target, EngineCache, lang, true, false), nil
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		s.logger.Warn("create output dir", zap.String("dir", s.outputDir), zap.Error(err))
	}

	req := &speech.TTSRequest{Text: text, Language: lang, Format: "mp3"}
	for _, engine := range s.engines {
		if !engine.Available() {
			metrics.TTSEngineTotal.WithLabelValues(engine.Name(), metrics.OutcomeSkipped).Inc()
			continue
		}
		resp, err := engine.Synthesize(ctx, req)
		if err == nil && (resp == nil || len(resp.AudioData) == 0) {
			err = errors.New("engine returned no audio")
		}
		if err == nil {
			err = writeFileAtomic(target, resp.AudioData)
		}
		if err != nil {
			metrics.TTSEngineTotal.WithLabelValues(engine.Name(), metrics.OutcomeError).Inc()
			s.logger.Warn("tts engine failed", zap.String("engine", engine.Name()), zap.String("lang", lang), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.TTSEngineTotal.WithLabelValues(engine.Name(), metrics.OutcomeSuccess).Inc()
		metrics.ObserveIntegration("tts", string(config.ModeLive), metrics.OutcomeSuccess)
		return s.result(target, engine.Name(), lang, false, false), nil
	}

	metrics.ObserveIntegration("tts", string(config.ModeFallback), metrics.OutcomeSuccess)
	return s.textFallback(target, text, lang), nil
}

func (s *Service) textFallback(target, text, lang string) speech.Result {
	txtPath := strings.TrimSuffix(target, filepath.Ext(target)) + ".txt"
	body := fmt.Sprintf("%s\n\n(TTS unavailable for lang='%s'; generated as text fallback)\n", text, lang)
	if err := writeFileAtomic(txtPath, []byte(body)); err != nil {
		metrics.TTSEngineTotal.WithLabelValues(EngineNone, metrics.OutcomeError).Inc()
		s.logger.Warn("text fallback write failed", zap.String("path", txtPath), zap.Error(err))
		return speech.Result{Path: text, Engine: EngineNone, Language: lang, Fallback: true}
	}
	metrics.TTSEngineTotal.WithLabelValues(EngineText, metrics.OutcomeSuccess).Inc()
	return s.result(txtPath, EngineText, lang, false, true)
}

func (s *Service) result(path, engine, lang string, cached, fallback bool) speech.Result {
	return speech.Result{
		Path:     path,
		URL:      AudioURLPrefix + filepath.Base(path),
		Engine:   engine,
		Language: lang,
		Cached:   cached,
		Fallback: fallback,
	}
}

// Resolve maps an artifact name back to a readable file under the output
// directory.
func (s *Service) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	path := filepath.Join(s.outputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", ErrInvalidName
	}
	return path, nil
}

// artifactName returns tts_<lang>_<hash>.mp3, or the caller's name with its
// extension forced to .mp3.
func artifactName(text, lang, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		sum := sha256.Sum256([]byte(text + "||" + lang))
		return fmt.Sprintf("tts_%s_%s.mp3", safeSegment(lang), hex.EncodeToString(sum[:])[:16]), nil
	}
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) || strings.HasPrefix(base, ".") {
		return "", ErrInvalidName
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3", nil
}

func safeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
