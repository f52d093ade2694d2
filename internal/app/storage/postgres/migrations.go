package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; each statement is idempotent so Apply can
// run at every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS auction_accounts (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auction_assets (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		approved JSONB,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS auction_listings (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		seller TEXT NOT NULL,
		operator TEXT NOT NULL,
		starting_price BIGINT NOT NULL,
		reserve_price BIGINT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		duration_seconds BIGINT NOT NULL,
		ended BOOLEAN NOT NULL DEFAULT FALSE,
		winner TEXT NOT NULL DEFAULT '',
		final_price BIGINT NOT NULL DEFAULT 0,
		ended_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_auction_listings_open
		ON auction_listings (ended) WHERE NOT ended`,
	`CREATE TABLE IF NOT EXISTS ledger_balances (
		identity TEXT PRIMARY KEY,
		pending BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount BIGINT NOT NULL,
		balance_after BIGINT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_identity
		ON ledger_entries (identity, created_at)`,
}

// Apply runs every migration statement against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
