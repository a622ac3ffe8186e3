// Package sqlite is the durable usage ledger and reconciliation queue.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/pairchat/internal/domain"
	"github.com/bnema/pairchat/internal/ports"
	_ "modernc.org/sqlite"
)

const (
	ledgerDirMode = 0o700
	busyTimeoutMS = 5000
	timeLayout    = time.RFC3339Nano
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ledger owns every read and write of usage records. Mutation runs in an
// immediate transaction under a per-account lock, so concurrent increments
// never lose updates.
//
// The open period follows the calendar window: when the window key for the
// present time differs from the key the period was opened under, the account
// moves to the new calendar period. ResetPeriod opens an explicit period that
// lasts until the next calendar boundary.
type Ledger struct {
	db     *sql.DB
	path   string
	window domain.Window
	limits ports.LimitPolicy
	clock  ports.Clock
	locks  *accountLocks
}

var _ ports.UsageLedger = (*Ledger)(nil)

func Open(ctx context.Context, path string, window domain.Window, limits ports.LimitPolicy, clock ports.Clock) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger path is empty")
	}
	if !window.Valid() {
		return nil, fmt.Errorf("unsupported quota period %q", window)
	}
	if limits == nil {
		return nil, errors.New("ledger limit policy is required")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ledger path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), ledgerDirMode); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(absPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Ledger{
		db:     db,
		path:   absPath,
		window: window,
		limits: limits,
		clock:  clock,
		locks:  newAccountLocks(),
	}, nil
}

// dsn sets pragmas per connection; database/sql may open several.
func dsn(path string) string {
	query := url.Values{}
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(NORMAL)")
	query.Set("_txlock", "immediate")
	return "file:" + path + "?" + query.Encode()
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) CurrentPeriod(ctx context.Context, id domain.AccountID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock := l.locks.lock(id)
	defer unlock()

	var periodKey string
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		periodKey, err = l.currentPeriod(ctx, tx, id, l.clock.Now())
		return err
	})
	if err != nil {
		return "", ledgerErr("resolve current period", err)
	}

	return periodKey, nil
}

func (l *Ledger) GetUsage(ctx context.Context, id domain.AccountID, periodKey string) (domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageRecord{}, err
	}

	limit, err := l.limits.LimitFor(ctx, id)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("resolve limit: %w", err)
	}

	unlock := l.locks.lock(id)
	defer unlock()

	var record domain.UsageRecord
	err = l.withTx(ctx, func(tx *sql.Tx) error {
		if err := l.ensureRecord(ctx, tx, id, periodKey, limit); err != nil {
			return err
		}
		var err error
		record, err = selectRecord(ctx, tx, id, periodKey)
		return err
	})
	if err != nil {
		return domain.UsageRecord{}, ledgerErr("get usage", err)
	}

	return record, nil
}

func (l *Ledger) Increment(ctx context.Context, id domain.AccountID, periodKey string, tokens int64) (domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageRecord{}, err
	}
	if tokens < 0 {
		return domain.UsageRecord{}, fmt.Errorf("increment usage: negative token count %d", tokens)
	}

	limit, err := l.limits.LimitFor(ctx, id)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("resolve limit: %w", err)
	}

	unlock := l.locks.lock(id)
	defer unlock()

	var record domain.UsageRecord
	err = l.withTx(ctx, func(tx *sql.Tx) error {
		now := l.clock.Now()
		current, err := l.currentPeriod(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if current != periodKey {
			return fmt.Errorf("period %s superseded by %s: %w", periodKey, current, domain.ErrPeriodClosed)
		}

		if err := l.ensureRecord(ctx, tx, id, periodKey, limit); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE usage_records SET tokens_consumed = tokens_consumed + ?, updated_at = ? WHERE account_id = ? AND period_key = ?`,
			tokens, now.Format(timeLayout), string(id), periodKey,
		); err != nil {
			return fmt.Errorf("update usage record: %w", err)
		}

		record, err = selectRecord(ctx, tx, id, periodKey)
		return err
	})
	if err != nil {
		return domain.UsageRecord{}, ledgerErr("increment usage", err)
	}

	return record, nil
}

// ResetPeriod makes newPeriodKey current with a fresh record. Keys that
// already hold a record are refused so that consumption is never reopened.
func (l *Ledger) ResetPeriod(ctx context.Context, id domain.AccountID, newPeriodKey string) (domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageRecord{}, err
	}

	limit, err := l.limits.LimitFor(ctx, id)
	if err != nil {
		return domain.UsageRecord{}, fmt.Errorf("resolve limit: %w", err)
	}

	unlock := l.locks.lock(id)
	defer unlock()

	var record domain.UsageRecord
	err = l.withTx(ctx, func(tx *sql.Tx) error {
		_, err := selectRecord(ctx, tx, id, newPeriodKey)
		switch {
		case err == nil:
			return fmt.Errorf("period %s already has a record: %w", newPeriodKey, domain.ErrPeriodClosed)
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		now := l.clock.Now()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage_accounts(account_id, current_period, calendar_key, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(account_id) DO UPDATE SET
				current_period = excluded.current_period,
				calendar_key = excluded.calendar_key,
				updated_at = excluded.updated_at`,
			string(id), newPeriodKey, l.window.PeriodKey(now), now.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("set current period: %w", err)
		}

		if err := l.ensureRecord(ctx, tx, id, newPeriodKey, limit); err != nil {
			return err
		}
		record, err = selectRecord(ctx, tx, id, newPeriodKey)
		return err
	})
	if err != nil {
		return domain.UsageRecord{}, ledgerErr("reset period", err)
	}

	return record, nil
}

func (l *Ledger) SetLimit(ctx context.Context, id domain.AccountID, periodKey string, limit int64) (domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.UsageRecord{}, err
	}

	unlock := l.locks.lock(id)
	defer unlock()

	var record domain.UsageRecord
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		now := l.clock.Now().Format(timeLayout)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO usage_records(account_id, period_key, tokens_consumed, token_limit, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?, ?)
			ON CONFLICT(account_id, period_key) DO UPDATE SET
				token_limit = excluded.token_limit,
				updated_at = excluded.updated_at`,
			string(id), periodKey, limit, now, now,
		); err != nil {
			return fmt.Errorf("set usage limit: %w", err)
		}

		var err error
		record, err = selectRecord(ctx, tx, id, periodKey)
		return err
	})
	if err != nil {
		return domain.UsageRecord{}, ledgerErr("set limit", err)
	}

	return record, nil
}

func (l *Ledger) History(ctx context.Context, id domain.AccountID) ([]domain.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT account_id, period_key, tokens_consumed, token_limit, updated_at
		FROM usage_records WHERE account_id = ? ORDER BY created_at ASC, period_key ASC`,
		string(id),
	)
	if err != nil {
		return nil, ledgerErr("usage history", err)
	}
	defer rows.Close()

	var records []domain.UsageRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, ledgerErr("usage history", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, ledgerErr("usage history", err)
	}

	return records, nil
}

func (l *Ledger) currentPeriod(ctx context.Context, tx *sql.Tx, id domain.AccountID, now time.Time) (string, error) {
	calendarKey := l.window.PeriodKey(now)

	var current, openedUnder string
	err := tx.QueryRowContext(ctx,
		`SELECT current_period, calendar_key FROM usage_accounts WHERE account_id = ?`, string(id),
	).Scan(&current, &openedUnder)
	switch {
	case err == nil && openedUnder == calendarKey:
		return current, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("read current period: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usage_accounts(account_id, current_period, calendar_key, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			current_period = excluded.current_period,
			calendar_key = excluded.calendar_key,
			updated_at = excluded.updated_at`,
		string(id), calendarKey, calendarKey, now.Format(timeLayout),
	); err != nil {
		return "", fmt.Errorf("open period: %w", err)
	}

	return calendarKey, nil
}

func (l *Ledger) ensureRecord(ctx context.Context, tx *sql.Tx, id domain.AccountID, periodKey string, limit int64) error {
	now := l.clock.Now().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO usage_records(account_id, period_key, tokens_consumed, token_limit, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?)
		ON CONFLICT(account_id, period_key) DO NOTHING`,
		string(id), periodKey, limit, now, now,
	); err != nil {
		return fmt.Errorf("create usage record: %w", err)
	}
	return nil
}

func (l *Ledger) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return errors.Join(err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func selectRecord(ctx context.Context, q execer, id domain.AccountID, periodKey string) (domain.UsageRecord, error) {
	row := q.QueryRowContext(ctx,
		`SELECT account_id, period_key, tokens_consumed, token_limit, updated_at
		FROM usage_records WHERE account_id = ? AND period_key = ?`,
		string(id), periodKey,
	)
	return scanRecord(row)
}

func scanRecord(row rowScanner) (domain.UsageRecord, error) {
	var (
		accountID string
		record    domain.UsageRecord
		updatedAt string
	)
	if err := row.Scan(&accountID, &record.PeriodKey, &record.TokensConsumed, &record.Limit, &updatedAt); err != nil {
		return domain.UsageRecord{}, err
	}
	record.AccountID = domain.AccountID(accountID)
	record.UpdatedAt = parseTime(updatedAt)
	return record, nil
}

// ledgerErr marks storage failures as domain.ErrLedgerUnavailable. Domain and
// context errors pass through unchanged.
func ledgerErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrPeriodClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrLedgerUnavailable, err)
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
