package translate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
	"github.com/crowdshield/dashboard/backend/internal/service/ai"
)

const integrationName = "translate"

// ChatModelSource resolves the live chat model. *ai.Factory satisfies it.
type ChatModelSource interface {
	ChatModel(ctx context.Context) (model.BaseChatModel, config.LLMProvider, error)
}

// Service translates alert text. It never fails: without a model, or when the
// model errors, the input comes back unchanged.
type Service struct {
	chain     ai.Chain
	labels    LabelTable
	maxTokens int
	logger    *zap.Logger
}

func NewService(ctx context.Context, source ChatModelSource, maxTokens int, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	labels, err := loadLabels()
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		maxTokens = 400
	}
	s := &Service{labels: labels, maxTokens: maxTokens, logger: logger.Named("translate")}

	if source == nil {
		return s, nil
	}
	cm, _, err := source.ChatModel(ctx)
	if err != nil {
		if !errors.Is(err, ai.ErrNoProvider) {
			s.logger.Warn("translation model unavailable", zap.Error(err))
		}
		return s, nil
	}
	chain, err := ai.CompileChain(ctx, cm, ai.TranslateSystemPrompt, ai.TranslateUserPrompt)
	if err != nil {
		s.logger.Warn("translation chain unavailable", zap.Error(err))
		return s, nil
	}
	s.chain = chain
	return s, nil
}

// Mode is live when a translation chain is wired.
func (s *Service) Mode() config.Mode {
	if s.chain == nil {
		return config.ModeFallback
	}
	return config.ModeLive
}

// Labels returns the UI label table for lang.
func (s *Service) Labels(lang string) map[string]string {
	return s.labels.Labels(lang)
}

func (s *Service) Languages() []string {
	return s.labels.Languages()
}

// Translate renders text in lang. English and empty targets, and text already
// detected as the target language, are returned unchanged.
func (s *Service) Translate(ctx context.Context, text, lang string) translatemodel.Translation {
	text = strings.TrimSpace(text)
	lang = normalizeLang(lang)
	detected := DetectLanguage(text)

	out := translatemodel.Translation{Text: text, Lang: lang, Detected: detected, Source: translatemodel.SourcePassthrough}
	if lang == "" {
		out.Lang = "en"
	}
	if text == "" || lang == "" || lang == "en" || detected == lang {
		return out
	}

	if translated, ok := s.labels.lookup(text, lang); ok {
		out.Text = translated
		out.Source = translatemodel.SourceStatic
		return out
	}

	if s.chain == nil {
		metrics.ObserveIntegration(integrationName, string(config.ModeFallback), metrics.OutcomeSkipped)
		return out
	}

	start := time.Now()
	msg, err := s.chain.Invoke(ctx, map[string]any{"lang": lang, "text": text}, ai.MaxTokens(s.maxTokens))
	metrics.IntegrationDuration.WithLabelValues(integrationName).Observe(time.Since(start).Seconds())
	if err == nil && (msg == nil || strings.TrimSpace(msg.Content) == "") {
		err = errors.New("empty translation")
	}
	if err != nil {
		metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeError)
		s.logger.Warn("translation failed, passing text through", zap.String("lang", lang), zap.Error(err))
		return out
	}

	metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeSuccess)
	out.Text = strings.TrimSpace(msg.Content)
	out.Source = translatemodel.SourceLive
	return out
}

// DetectLanguage returns the ISO 639-1 code of text when detection is
// reliable, else "".
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
