package sqlite

import (
	"context"
	"fmt"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_meta (
		version INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usage_accounts (
		account_id TEXT PRIMARY KEY,
		current_period TEXT NOT NULL,
		calendar_key TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS usage_records (
		account_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		tokens_consumed INTEGER NOT NULL DEFAULT 0,
		token_limit INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (account_id, period_key)
	)`,
	`CREATE TABLE IF NOT EXISTS usage_reconciliation (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		period_key TEXT NOT NULL,
		tokens INTEGER NOT NULL,
		turn_id INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		resolved_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reconciliation_pending ON usage_reconciliation(resolved_at, created_at)`,
}

func initSchema(ctx context.Context, exec execer) error {
	for _, stmt := range schemaStatements {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	var version int
	row := exec.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_meta`)
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case version == 0:
		if _, err := exec.ExecContext(ctx, `INSERT INTO schema_meta(version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
	case version > schemaVersion:
		return fmt.Errorf("unsupported ledger schema version %d (current %d)", version, schemaVersion)
	}

	return nil
}
