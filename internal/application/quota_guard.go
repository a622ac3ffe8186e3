package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaGuard is the only path through which turns are admitted and usage is
// credited. It never mutates records itself; the ledger does.
type QuotaGuard struct {
	ledger   ports.UsageLedger
	queue    ports.ReconciliationQueue
	observer ports.TurnObserver
	clock    ports.Clock
	logger   *zap.Logger
}

// RecordResult reports what happened to post-call usage. Usage that could not
// be credited is flagged instead of returned as an error, so a delivered
// response is never retracted.
type RecordResult struct {
	Record           domain.UsageRecord
	Flagged          bool
	Reason           domain.ReconcileReason
	ReconciliationID string
}

func NewQuotaGuard(ledger ports.UsageLedger, queue ports.ReconciliationQueue, observer ports.TurnObserver, clock ports.Clock, logger *zap.Logger) *QuotaGuard {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QuotaGuard{
		ledger:   ledger,
		queue:    queue,
		observer: observer,
		clock:    clock,
		logger:   logger,
	}
}

// Admit decides whether a turn may invoke the model. Admission allows when
// consumption is strictly below the limit; one turn may therefore overshoot.
// Ledger failures deny with DenyReasonLedgerUnavailable and return the error
// so callers can retry.
func (g *QuotaGuard) Admit(ctx context.Context, id domain.AccountID) (domain.AdmissionDecision, error) {
	decision := domain.AdmissionDecision{AccountID: id}

	periodKey, err := g.ledger.CurrentPeriod(ctx, id)
	if err != nil {
		return g.deny(decision, domain.DenyReasonLedgerUnavailable), fmt.Errorf("resolve current period: %w", err)
	}
	decision.PeriodKey = periodKey

	record, err := g.ledger.GetUsage(ctx, id, periodKey)
	if err != nil {
		return g.deny(decision, domain.DenyReasonLedgerUnavailable), fmt.Errorf("get usage: %w", err)
	}
	decision.Remaining = record.Remaining()

	switch {
	case record.Limit <= 0:
		return g.deny(decision, domain.DenyReasonQuotaDisabled), nil
	case record.TokensConsumed >= record.Limit:
		return g.deny(decision, domain.DenyReasonQuotaExceeded), nil
	}

	decision.Allowed = true
	g.observer.Admitted(id)
	return decision, nil
}

func (g *QuotaGuard) deny(decision domain.AdmissionDecision, reason domain.DenyReason) domain.AdmissionDecision {
	decision.Allowed = false
	decision.Reason = reason
	g.observer.Denied(decision.AccountID, reason)
	return decision
}

// Record credits tokens to the period the turn was admitted under. Increments
// that fail are queued for reconciliation.
func (g *QuotaGuard) Record(ctx context.Context, id domain.AccountID, periodKey string, tokens int64, turnID uint64) RecordResult {
	if tokens < 0 {
		return g.flag(ctx, id, periodKey, tokens, turnID, domain.ReconcileReasonInvalidTokenUse,
			fmt.Errorf("negative token count %d", tokens))
	}

	record, err := g.ledger.Increment(ctx, id, periodKey, tokens)
	if err != nil {
		reason := domain.ReconcileReasonLedgerFailure
		if errors.Is(err, domain.ErrPeriodClosed) {
			reason = domain.ReconcileReasonPeriodRollover
		}
		return g.flag(ctx, id, periodKey, tokens, turnID, reason, err)
	}

	g.observer.Recorded(id, tokens)
	return RecordResult{Record: record}
}

func (g *QuotaGuard) flag(ctx context.Context, id domain.AccountID, periodKey string, tokens int64, turnID uint64, reason domain.ReconcileReason, cause error) RecordResult {
	entry := domain.ReconciliationEntry{
		ID:        uuid.NewString(),
		AccountID: id,
		PeriodKey: periodKey,
		Tokens:    tokens,
		TurnID:    turnID,
		Reason:    reason,
		Detail:    cause.Error(),
		CreatedAt: g.clock.Now(),
	}

	fields := []zap.Field{
		zap.String("account", string(id)),
		zap.String("period", periodKey),
		zap.Int64("tokens", tokens),
		zap.Uint64("turn", turnID),
		zap.String("reason", string(reason)),
		zap.Error(cause),
	}

	if err := g.queue.Flag(ctx, entry); err != nil {
		g.logger.Error("usage lost: reconciliation flag failed", append(fields, zap.NamedError("flag_error", err))...)
	} else {
		g.logger.Warn("usage flagged for reconciliation", append(fields, zap.String("reconciliation_id", entry.ID))...)
	}
	g.observer.Flagged(id, reason)

	return RecordResult{Flagged: true, Reason: reason, ReconciliationID: entry.ID}
}
