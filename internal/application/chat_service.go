package application

import (
	"context"
	"fmt"

	"github.com/bnema/pairchat/internal/domain"
)

// ChatService is the entry point used by the CLI and HTTP transports.
type ChatService struct {
	contexts     *ContextBuilder
	composer     *PromptComposer
	orchestrator *TurnOrchestrator
}

func NewChatService(contexts *ContextBuilder, composer *PromptComposer, orchestrator *TurnOrchestrator) *ChatService {
	return &ChatService{
		contexts:     contexts,
		composer:     composer,
		orchestrator: orchestrator,
	}
}

// Send runs one turn for the account. The returned error covers only failures
// to build the context; turn outcomes are reported in the result.
func (s *ChatService) Send(ctx context.Context, id domain.AccountID, message string) (domain.TurnResult, error) {
	cc, err := s.contexts.Build(ctx, id, message)
	if err != nil {
		return domain.TurnResult{}, fmt.Errorf("build conversation context: %w", err)
	}

	return s.orchestrator.HandleTurn(ctx, cc, message), nil
}

// Preview composes the prompt the account's next turn would receive, without
// admission, model call or usage.
func (s *ChatService) Preview(ctx context.Context, id domain.AccountID, insight bool) (domain.ComposedPrompt, error) {
	cc, err := s.contexts.Peek(ctx, id, insight)
	if err != nil {
		return domain.ComposedPrompt{}, err
	}

	prompt, err := s.composer.Compose(cc)
	if err != nil {
		return domain.ComposedPrompt{}, fmt.Errorf("compose prompt: %w", err)
	}

	return prompt, nil
}
