package advisory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
	advisorymodel "github.com/crowdshield/dashboard/backend/internal/model/advisory"
	"github.com/crowdshield/dashboard/backend/internal/service/ai"
)

const integrationName = "advisory"

// ChatModelSource resolves the live chat model. *ai.Factory satisfies it.
type ChatModelSource interface {
	ChatModel(ctx context.Context) (model.BaseChatModel, config.LLMProvider, error)
}

// Generator produces advisories from the live model, the advisory cache or a
// deterministic mock, in that order of preference.
type Generator struct {
	logger    *zap.Logger
	cache     *Cache
	maxTokens int

	mu       sync.RWMutex
	chain    ai.Chain
	provider string

	disabled atomic.Bool
}

// NewGenerator resolves the chat model once. Missing credentials or a failed
// construction leave the generator in fallback mode.
func NewGenerator(ctx context.Context, source ChatModelSource, cache *Cache, maxTokens int, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache, _ = LoadCache("")
	}
	if maxTokens <= 0 {
		maxTokens = 150
	}

	g := &Generator{logger: logger.Named("advisory"), cache: cache, maxTokens: maxTokens}
	if source == nil {
		g.logger.Info("advisory generator running in fallback mode", zap.String("reason", "no model source"))
		return g
	}

	cm, provider, err := source.ChatModel(ctx)
	if err != nil {
		g.logger.Info("advisory generator running in fallback mode", zap.Error(err))
		return g
	}

	chain, err := ai.CompileChain(ctx, cm, ai.AdvisorySystemPrompt, ai.AdvisoryUserPrompt)
	if err != nil {
		g.logger.Warn("advisory chain unavailable, using fallback", zap.Error(err))
		return g
	}

	g.chain = chain
	g.provider = provider.Name
	g.logger.Info("advisory generator live", zap.String("provider", provider.Name), zap.String("model", provider.Model))
	return g
}

// Mode reports live when a chain is wired and the quota latch is open.
func (g *Generator) Mode() config.Mode {
	if g.liveChain() == nil || g.disabled.Load() {
		return config.ModeFallback
	}
	return config.ModeLive
}

// Disabled reports whether a quota error latched the live path off.
func (g *Generator) Disabled() bool {
	return g.disabled.Load()
}

// Cache exposes the advisory cache.
func (g *Generator) Cache() *Cache {
	return g.cache
}

// CachedAdvisories copies the severity to text cache.
func (g *Generator) CachedAdvisories() map[string]string {
	return g.cache.Snapshot()
}

// Generate returns an advisory for the request. It never fails: every error
// on the live path degrades to the cache or the mock text.
func (g *Generator) Generate(ctx context.Context, req advisorymodel.Request) advisorymodel.Advisory {
	severity, drivers, role := normalize(req)

	if g.disabled.Load() {
		metrics.ObserveIntegration(integrationName, string(config.ModeFallback), metrics.OutcomeSkipped)
		return g.disabledFallback(severity)
	}

	chain := g.liveChain()
	if chain == nil {
		metrics.ObserveIntegration(integrationName, string(config.ModeFallback), metrics.OutcomeSkipped)
		return g.fallback(severity, drivers)
	}

	start := time.Now()
	msg, err := chain.Invoke(ctx, chainInput(severity, drivers, role), ai.MaxTokens(g.maxTokens))
	metrics.IntegrationDuration.WithLabelValues(integrationName).Observe(time.Since(start).Seconds())

	var text string
	if err == nil && msg != nil {
		text = strings.TrimSpace(msg.Content)
		if text == "" {
			err = errors.New("empty completion")
		}
	}
	if err != nil {
		g.handleLiveError(err, severity)
		metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeError)
		return g.fallback(severity, drivers)
	}

	g.store(severity, text)
	metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeSuccess)
	return advisorymodel.Advisory{Severity: severity, Text: text, Source: advisorymodel.SourceLive}
}

// Stream emits the advisory incrementally. In fallback mode the whole text is
// emitted as a single chunk. The returned advisory holds the full text. An
// error is returned only when emit fails or the stream breaks after partial
// output was sent.
func (g *Generator) Stream(ctx context.Context, req advisorymodel.Request, emit func(chunk string) error) (advisorymodel.Advisory, error) {
	severity, drivers, role := normalize(req)

	chain := g.liveChain()
	if chain == nil || g.disabled.Load() {
		adv := g.Generate(ctx, req)
		return adv, emit(adv.Text)
	}

	reader, err := chain.Stream(ctx, chainInput(severity, drivers, role), ai.MaxTokens(g.maxTokens))
	if err != nil {
		g.handleLiveError(err, severity)
		metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeError)
		adv := g.fallback(severity, drivers)
		return adv, emit(adv.Text)
	}
	defer reader.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := reader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			g.handleLiveError(recvErr, severity)
			metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeError)
			if builder.Len() == 0 {
				adv := g.fallback(severity, drivers)
				return adv, emit(adv.Text)
			}
			return advisorymodel.Advisory{Severity: severity, Text: builder.String(), Source: advisorymodel.SourceLive},
				fmt.Errorf("advisory stream interrupted: %w", recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		builder.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			return advisorymodel.Advisory{Severity: severity, Text: builder.String(), Source: advisorymodel.SourceLive}, err
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		adv := g.fallback(severity, drivers)
		return adv, emit(adv.Text)
	}

	g.store(severity, text)
	metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeSuccess)
	return advisorymodel.Advisory{Severity: severity, Text: text, Source: advisorymodel.SourceLive}, nil
}

func (g *Generator) liveChain() ai.Chain {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.chain
}

func (g *Generator) store(severity, text string) {
	if err := g.cache.Put(severity, text); err != nil {
		g.logger.Warn("failed to persist advisory cache", zap.Error(err))
	}
}

func (g *Generator) handleLiveError(err error, severity string) {
	if IsQuotaError(err) {
		if g.disabled.CompareAndSwap(false, true) {
			g.logger.Warn("llm quota exhausted, advisories latched to cache", zap.String("provider", g.provider), zap.Error(err))
		}
		return
	}
	g.logger.Warn("llm advisory error", zap.String("provider", g.provider), zap.String("severity", severity), zap.Error(err))
}

func (g *Generator) fallback(severity string, drivers []string) advisorymodel.Advisory {
	if text, ok := g.cache.Get(severity); ok {
		return advisorymodel.Advisory{Severity: severity, Text: text, Source: advisorymodel.SourceCache}
	}
	return advisorymodel.Advisory{
		Severity: severity,
		Text:     MockText(severity, drivers),
		Source:   advisorymodel.SourceMock,
	}
}

func (g *Generator) disabledFallback(severity string) advisorymodel.Advisory {
	if text, ok := g.cache.Get(severity); ok {
		return advisorymodel.Advisory{Severity: severity, Text: text, Source: advisorymodel.SourceCache}
	}
	return advisorymodel.Advisory{
		Severity: severity,
		Text:     fmt.Sprintf("[Cached Advisory] %s: follow local instructions.", severity),
		Source:   advisorymodel.SourceMock,
	}
}

// MockText is the deterministic advisory used without a live model.
func MockText(severity string, drivers []string) string {
	return fmt.Sprintf("[Mock Advisory] Severity: %s. Drivers: %s", severity, strings.Join(drivers, ", "))
}

// IsQuotaError matches provider errors that signal an exhausted quota.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "insufficient_quota")
}

func normalize(req advisorymodel.Request) (string, []string, string) {
	severity := strings.TrimSpace(req.Severity)
	drivers := lo.Compact(lo.Map(req.Drivers, func(d string, _ int) string { return strings.TrimSpace(d) }))
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = advisorymodel.DefaultRole
	}
	return severity, drivers, role
}

func chainInput(severity string, drivers []string, role string) map[string]any {
	return map[string]any{
		"severity": severity,
		"drivers":  strings.Join(drivers, ", "),
		"role":     role,
	}
}
