// Package broadcast renders one advisory into every requested language and
// pushes it through speech and SMS.
package broadcast

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
	broadcastmodel "github.com/crowdshield/dashboard/backend/internal/model/broadcast"
	speechmodel "github.com/crowdshield/dashboard/backend/internal/model/speech"
	translatemodel "github.com/crowdshield/dashboard/backend/internal/model/translate"
)

type Advisor interface {
	Generate(ctx context.Context, req advisorymodel.Request) advisorymodel.Advisory
}

type Translator interface {
	Translate(ctx context.Context, text, lang string) translatemodel.Translation
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang, filename string) (speechmodel.Result, error)
}

type Sender interface {
	Send(ctx context.Context, message, to string) alertmodel.Result
}

const maxParallel = 3

var ErrSeverityRequired = errors.New("severity is required")

// Service chains the advisory, translation, speech and SMS steps. Each step
// keeps its own fallback, so a broadcast always produces a message per
// language.
type Service struct {
	advisor    Advisor
	translator Translator
	speech     Synthesizer
	sender     Sender
	logger     *zap.Logger
}

func NewService(advisor Advisor, translator Translator, speech Synthesizer, sender Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		advisor:    advisor,
		translator: translator,
		speech:     speech,
		sender:     sender,
		logger:     logger.Named("broadcast"),
	}
}

// Broadcast generates the advisory once and renders it per language. Severity
// must already be set on req.
func (s *Service) Broadcast(ctx context.Context, req broadcastmodel.Request) (broadcastmodel.Result, error) {
	if strings.TrimSpace(req.Severity) == "" {
		return broadcastmodel.Result{}, ErrSeverityRequired
	}

	adv := s.advisor.Generate(ctx, advisorymodel.Request{
		Severity: req.Severity,
		Drivers:  req.Drivers,
		Role:     req.Role,
	})

	langs := languages(req.Languages)
	messages := make([]broadcastmodel.Message, len(langs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, lang := range langs {
		g.Go(func() error {
			messages[i] = s.render(gctx, adv.Text, lang, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return broadcastmodel.Result{}, err
	}

	s.logger.Info("broadcast complete",
		zap.String("severity", adv.Severity),
		zap.String("source", string(adv.Source)),
		zap.Strings("languages", langs),
		zap.Bool("audio", req.Audio),
		zap.Bool("sms", req.SMS),
	)
	return broadcastmodel.Result{Advisory: adv, Messages: messages}, nil
}

func (s *Service) render(ctx context.Context, text, lang string, req broadcastmodel.Request) broadcastmodel.Message {
	msg := broadcastmodel.Message{Lang: lang, Text: text, Translation: translatemodel.SourcePassthrough}
	if s.translator != nil {
		tr := s.translator.Translate(ctx, text, lang)
		msg.Text = tr.Text
		msg.Translation = tr.Source
	}

	if req.Audio && s.speech != nil {
		res, err := s.speech.Synthesize(ctx, msg.Text, lang, "")
		if err != nil {
			s.logger.Warn("broadcast audio failed", zap.String("lang", lang), zap.Error(err))
			msg.AudioError = err.Error()
		} else {
			msg.Audio = &res
		}
	}

	if req.SMS && s.sender != nil {
		res := s.sender.Send(ctx, msg.Text, req.To)
		msg.SMS = &res
	}
	return msg
}

func languages(requested []string) []string {
	langs := lo.Uniq(lo.FilterMap(requested, func(l string, _ int) (string, bool) {
		l = strings.ToLower(strings.TrimSpace(l))
		return l, l != ""
	}))
	if len(langs) == 0 {
		return []string{"en"}
	}
	return langs
}
