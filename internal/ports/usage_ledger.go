package ports

import (
	"context"

	"github.com/bnema/pairchat/internal/domain"
)

// UsageLedger exclusively owns reads and writes of usage records.
//
// Implementations must serialize mutation per account: concurrent Increment
// calls for the same account never lose updates. Failure to reach the durable
// store is reported as domain.ErrLedgerUnavailable.
type UsageLedger interface {
	// CurrentPeriod returns the account's open period, opening one for the
	// present time when the account has none.
	CurrentPeriod(ctx context.Context, id domain.AccountID) (string, error)
	// GetUsage returns the record, creating a zeroed one on first access.
	GetUsage(ctx context.Context, id domain.AccountID, periodKey string) (domain.UsageRecord, error)
	// Increment adds tokens to the record. It fails with domain.ErrPeriodClosed
	// when periodKey is no longer the account's current period.
	Increment(ctx context.Context, id domain.AccountID, periodKey string, tokens int64) (domain.UsageRecord, error)
	// ResetPeriod makes newPeriodKey current. Older records are retained.
	ResetPeriod(ctx context.Context, id domain.AccountID, newPeriodKey string) (domain.UsageRecord, error)
	SetLimit(ctx context.Context, id domain.AccountID, periodKey string, limit int64) (domain.UsageRecord, error)
	History(ctx context.Context, id domain.AccountID) ([]domain.UsageRecord, error)
}

// LimitPolicy supplies the token limit stamped on newly opened records.
type LimitPolicy interface {
	LimitFor(ctx context.Context, id domain.AccountID) (int64, error)
}

type ReconciliationQueue interface {
	Flag(ctx context.Context, entry domain.ReconciliationEntry) error
	Pending(ctx context.Context) ([]domain.ReconciliationEntry, error)
	Resolve(ctx context.Context, id string) error
}
