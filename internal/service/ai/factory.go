package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/crowdshield/dashboard/backend/internal/config"
)

// ErrNoProvider means no LLM credential group is complete.
var ErrNoProvider = errors.New("no llm provider configured")

// Factory builds one chat model per resolved provider and memoizes it.
type Factory struct {
	cfg config.LLMConfig

	mu       sync.Mutex
	model    model.BaseChatModel
	provider config.LLMProvider
}

// NewFactory returns a factory over the LLM section of the config.
func NewFactory(cfg config.LLMConfig) *Factory {
	return &Factory{cfg: cfg}
}

// Provider reports the provider that would be used, if any.
func (f *Factory) Provider() (config.LLMProvider, bool) {
	return f.cfg.ResolveProvider()
}

// ChatModel returns the shared chat model. ErrNoProvider is returned when the
// credential groups are all incomplete.
func (f *Factory) ChatModel(ctx context.Context) (model.BaseChatModel, config.LLMProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.model != nil {
		return f.model, f.provider, nil
	}

	provider, ok := f.cfg.ResolveProvider()
	if !ok {
		return nil, config.LLMProvider{}, ErrNoProvider
	}

	var (
		cm  model.BaseChatModel
		err error
	)
	switch provider.Name {
	case "ark":
		cm, err = newArkModel(ctx, f.cfg)
	default:
		cm, err = newOpenAIModel(ctx, f.cfg, provider)
	}
	if err != nil {
		return nil, provider, fmt.Errorf("create %s chat model: %w", provider.Name, err)
	}

	f.model = cm
	f.provider = provider
	return cm, provider, nil
}

func newOpenAIModel(ctx context.Context, cfg config.LLMConfig, provider config.LLMProvider) (model.BaseChatModel, error) {
	maxTokens := cfg.MaxTokens
	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:    provider.APIKey,
		BaseURL:   provider.BaseURL,
		Model:     provider.Model,
		MaxTokens: &maxTokens,
		Timeout:   cfg.Timeout,
	})
}

func newArkModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	var temperature *float32
	if cfg.Ark.Temperature != nil {
		val := float32(*cfg.Ark.Temperature)
		temperature = &val
	}

	var topP *float32
	if cfg.Ark.TopP != nil {
		val := float32(*cfg.Ark.TopP)
		topP = &val
	}

	maxTokens := cfg.MaxTokens
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.Ark.BaseURL,
		Region:      cfg.Ark.Region,
		APIKey:      cfg.Ark.APIKey,
		AccessKey:   cfg.Ark.AccessKey,
		SecretKey:   cfg.Ark.SecretKey,
		Model:       cfg.Ark.Model,
		MaxTokens:   &maxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}
