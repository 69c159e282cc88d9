package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Prompt texts. Placeholders use eino's FString syntax.
const (
	AdvisorySystemPrompt = "You are a disaster authority generating advisories."
	AdvisoryUserPrompt   = "Provide a concise advisory for severity={severity}. Drivers: {drivers}. Role: {role}."

	TranslateSystemPrompt = "You translate public safety messages. Reply with the translation only, keeping numbers, place names and phone numbers unchanged."
	TranslateUserPrompt   = "Translate the following message into the language with ISO 639-1 code \"{lang}\":\n\n{text}"
)

// Chain is the compiled prompt+model pipeline shared by the LLM features.
type Chain = compose.Runnable[map[string]any, *schema.Message]

// CompileChain wires a system/user template in front of the chat model.
func CompileChain(ctx context.Context, cm model.BaseChatModel, system, user string) (Chain, error) {
	if cm == nil {
		return nil, ErrNoProvider
	}

	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(cm)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chain: %w", err)
	}
	return runnable, nil
}

// MaxTokens caps the completion length of one chain run.
func MaxTokens(n int) compose.Option {
	return compose.WithChatModelOption(model.WithMaxTokens(n))
}
