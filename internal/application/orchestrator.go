package application

import (
	"context"
	"errors"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"go.uber.org/zap"
)

// TurnOrchestrator drives one turn: admit, compose, invoke, record. Denied
// turns never reach the model and never touch the ledger.
type TurnOrchestrator struct {
	guard    *QuotaGuard
	composer *PromptComposer
	model    ports.ModelClient
	observer ports.TurnObserver
	logger   *zap.Logger
}

func NewTurnOrchestrator(guard *QuotaGuard, composer *PromptComposer, model ports.ModelClient, observer ports.TurnObserver, logger *zap.Logger) *TurnOrchestrator {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TurnOrchestrator{
		guard:    guard,
		composer: composer,
		model:    model,
		observer: observer,
		logger:   logger,
	}
}

// HandleTurn never returns an error: every failure mode is one of the
// TurnResult outcomes.
func (o *TurnOrchestrator) HandleTurn(ctx context.Context, cc domain.ConversationContext, message string) domain.TurnResult {
	logger := o.logger.With(
		zap.String("account", string(cc.AccountID)),
		zap.Uint64("turn", cc.TurnID),
	)

	decision, err := o.guard.Admit(ctx, cc.AccountID)
	if !decision.Allowed {
		if err != nil {
			logger.Warn("turn denied: ledger unavailable", zap.Error(err))
		} else {
			logger.Info("turn denied", zap.String("reason", string(decision.Reason)))
		}
		return domain.TurnDenied(decision, err)
	}

	prompt, err := o.composer.Compose(cc)
	if err != nil {
		var violation *domain.RedactionViolationError
		if errors.As(err, &violation) {
			o.observer.PolicyViolation(violation.LayerID, violation.Category)
			logger.Error("redaction violation",
				zap.String("layer", violation.LayerID),
				zap.String("category", string(violation.Category)),
				zap.Int("fragment_len", len(violation.Fragment)),
			)
		} else {
			logger.Error("compose prompt", zap.Error(err))
		}
		return domain.TurnPolicyViolation(cc.TurnID, decision, err)
	}

	resp, err := o.model.Complete(ctx, ports.ModelRequest{
		AccountID:    cc.AccountID,
		TurnID:       cc.TurnID,
		Instructions: prompt.Text,
		Message:      message,
	})
	if err != nil {
		o.observer.UpstreamFailed(cc.AccountID)
		logger.Warn("model call failed", zap.Error(err))
		return domain.TurnUpstreamError(cc.TurnID, decision, err)
	}

	tokens := resp.Usage.BlendedTotal()
	recorded := o.guard.Record(context.WithoutCancel(ctx), cc.AccountID, decision.PeriodKey, tokens, cc.TurnID)

	logger.Debug("turn completed",
		zap.Strings("layers", prompt.LayerIDs),
		zap.Int64("tokens", tokens),
		zap.Bool("flagged", recorded.Flagged),
	)

	return domain.TurnOK(cc.TurnID, resp.Text, prompt.LayerIDs, resp.Usage, decision, recorded.Flagged)
}
