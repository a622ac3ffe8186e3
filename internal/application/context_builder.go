package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
)

var insightPhrase = regexp.MustCompile(`(?i)\b(?:insights?|summar(?:y|ize|ise)|recap|patterns?|what do you (?:notice|see)|how are we doing)\b`)

// WantsInsight reports whether a message explicitly asks for a reflection or
// summary.
func WantsInsight(message string) bool {
	return insightPhrase.MatchString(message)
}

// ContextBuilder assembles the per-turn conversation context from persisted
// account state.
type ContextBuilder struct {
	accounts ports.AccountRepository
}

func NewContextBuilder(accounts ports.AccountRepository) *ContextBuilder {
	return &ContextBuilder{accounts: accounts}
}

// Build advances the account's turn counter and returns a fresh context for
// the new turn.
func (b *ContextBuilder) Build(ctx context.Context, id domain.AccountID, message string) (domain.ConversationContext, error) {
	account, err := b.accounts.AdvanceTurn(ctx, id)
	if err != nil {
		return domain.ConversationContext{}, fmt.Errorf("advance turn: %w", err)
	}

	return contextFromAccount(account, WantsInsight(message)), nil
}

// Peek returns the context the next turn would see without advancing the
// counter. Unknown accounts get default settings.
func (b *ContextBuilder) Peek(ctx context.Context, id domain.AccountID, insight bool) (domain.ConversationContext, error) {
	account, err := b.accounts.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ConversationContext{}, fmt.Errorf("get account by id: %w", err)
		}
		account = domain.Account{ID: id}
	}

	cc := contextFromAccount(account, insight)
	cc.TurnID = account.LastTurnID + 1
	return cc, nil
}

func contextFromAccount(account domain.Account, insight bool) domain.ConversationContext {
	facts := make([]domain.ProfileFact, len(account.ProfileFacts))
	copy(facts, account.ProfileFacts)

	return domain.ConversationContext{
		AccountID:        account.ID,
		MemoryEnabled:    account.Settings.MemoryEnabled,
		InsightRequested: insight,
		ProfileFacts:     facts,
		TurnID:           account.LastTurnID,
	}
}
