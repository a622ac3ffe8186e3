package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
)

// ReconciliationQueue stores usage that could not be credited, in the
// ledger's database.
type ReconciliationQueue struct {
	db    *sql.DB
	clock ports.Clock
}

var _ ports.ReconciliationQueue = (*ReconciliationQueue)(nil)

func (l *Ledger) ReconciliationQueue() *ReconciliationQueue {
	return &ReconciliationQueue{db: l.db, clock: l.clock}
}

func (q *ReconciliationQueue) Flag(ctx context.Context, entry domain.ReconciliationEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("flag usage: entry id is required")
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = q.clock.Now()
	}

	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO usage_reconciliation(id, account_id, period_key, tokens, turn_id, reason, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.AccountID), entry.PeriodKey, entry.Tokens, int64(entry.TurnID),
		string(entry.Reason), entry.Detail, createdAt.Format(timeLayout),
	); err != nil {
		return ledgerErr("flag usage", err)
	}

	return nil
}

func (q *ReconciliationQueue) Pending(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, account_id, period_key, tokens, turn_id, reason, detail, created_at
		FROM usage_reconciliation WHERE resolved_at IS NULL ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, ledgerErr("list reconciliation", err)
	}
	defer rows.Close()

	var entries []domain.ReconciliationEntry
	for rows.Next() {
		var (
			entry     domain.ReconciliationEntry
			accountID string
			turnID    int64
			reason    string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &accountID, &entry.PeriodKey, &entry.Tokens, &turnID, &reason, &entry.Detail, &createdAt); err != nil {
			return nil, ledgerErr("list reconciliation", err)
		}
		entry.AccountID = domain.AccountID(accountID)
		entry.TurnID = uint64(turnID)
		entry.Reason = domain.ReconcileReason(reason)
		entry.CreatedAt = parseTime(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgerErr("list reconciliation", err)
	}

	return entries, nil
}

// Resolve marks a pending entry as handled. Unknown or already resolved ids
// report domain.ErrReconcileNotFound.
func (q *ReconciliationQueue) Resolve(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx,
		`UPDATE usage_reconciliation SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL`,
		q.clock.Now().Format(timeLayout), id,
	)
	if err != nil {
		return ledgerErr("resolve reconciliation", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ledgerErr("resolve reconciliation", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrReconcileNotFound, id)
	}

	return nil
}
