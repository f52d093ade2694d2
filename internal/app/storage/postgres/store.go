// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/auction_layer/internal/app/domain/account"
	"github.com/R3E-Network/auction_layer/internal/app/domain/asset"
	"github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/domain/ledger"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.AccountStore = (*Store)(nil)
var _ storage.AssetStore = (*Store)(nil)
var _ storage.AuctionStore = (*Store)(nil)
var _ storage.LedgerStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- AccountStore -----------------------------------------------------------

func (s *Store) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	metadataJSON, err := json.Marshal(acct.Metadata)
	if err != nil {
		return account.Account{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_accounts (id, owner, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, acct.ID, acct.Owner, metadataJSON, acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		return account.Account{}, err
	}
	return acct, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, metadata, created_at, updated_at
		FROM auction_accounts
		WHERE id = $1
	`, id)

	var (
		acct        account.Account
		metadataRaw []byte
	)
	if err := row.Scan(&acct.ID, &acct.Owner, &metadataRaw, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
		}
		return account.Account{}, err
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &acct.Metadata)
	}
	return acct, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]account.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, metadata, created_at, updated_at
		FROM auction_accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		var (
			acct        account.Account
			metadataRaw []byte
		)
		if err := rows.Scan(&acct.ID, &acct.Owner, &metadataRaw, &acct.CreatedAt, &acct.UpdatedAt); err != nil {
			return nil, err
		}
		if len(metadataRaw) > 0 {
			_ = json.Unmarshal(metadataRaw, &acct.Metadata)
		}
		result = append(result, acct)
	}
	return result, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM auction_accounts WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- AssetStore -------------------------------------------------------------

func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	approvedJSON, err := json.Marshal(a.Approved)
	if err != nil {
		return asset.Asset{}, err
	}
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return asset.Asset{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_assets (id, owner, approved, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Owner, approvedJSON, metadataJSON, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return asset.Asset{}, err
	}
	return a, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error) {
	existing, err := s.GetAsset(ctx, a.ID)
	if err != nil {
		return asset.Asset{}, err
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	approvedJSON, err := json.Marshal(a.Approved)
	if err != nil {
		return asset.Asset{}, err
	}
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return asset.Asset{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE auction_assets
		SET owner = $2, approved = $3, metadata = $4, updated_at = $5
		WHERE id = $1
	`, a.ID, a.Owner, approvedJSON, metadataJSON, a.UpdatedAt)
	if err != nil {
		return asset.Asset{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return asset.Asset{}, fmt.Errorf("asset %s: %w", a.ID, storage.ErrNotFound)
	}
	return a, nil
}

func (s *Store) GetAsset(ctx context.Context, id string) (asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, approved, metadata, created_at, updated_at
		FROM auction_assets
		WHERE id = $1
	`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Asset{}, fmt.Errorf("asset %s: %w", id, storage.ErrNotFound)
	}
	return a, err
}

func (s *Store) ListAssets(ctx context.Context, owner string) ([]asset.Asset, error) {
	query := `
		SELECT id, owner, approved, metadata, created_at, updated_at
		FROM auction_assets
	`
	args := []interface{}{}
	if owner != "" {
		query += ` WHERE owner = $1`
		args = append(args, owner)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (asset.Asset, error) {
	var (
		a           asset.Asset
		approvedRaw []byte
		metadataRaw []byte
	)
	if err := row.Scan(&a.ID, &a.Owner, &approvedRaw, &metadataRaw, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return asset.Asset{}, err
	}
	if len(approvedRaw) > 0 {
		_ = json.Unmarshal(approvedRaw, &a.Approved)
	}
	if len(metadataRaw) > 0 {
		_ = json.Unmarshal(metadataRaw, &a.Metadata)
	}
	return a, nil
}

// --- AuctionStore -----------------------------------------------------------

func (s *Store) CreateListing(ctx context.Context, l auction.Listing) (auction.Listing, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auction_listings (
			id, asset_id, seller, operator, starting_price, reserve_price,
			start_time, duration_seconds, ended, winner, final_price, ended_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, l.ID, l.AssetID, l.Seller, l.Operator, l.StartingPrice, l.ReservePrice,
		l.StartTime, int64(l.Duration/time.Second), l.Ended, l.Winner, l.FinalPrice,
		nullTime(l.EndedAt), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return auction.Listing{}, err
	}
	return l, nil
}

func (s *Store) UpdateListing(ctx context.Context, l auction.Listing) (auction.Listing, error) {
	existing, err := s.GetListing(ctx, l.ID)
	if err != nil {
		return auction.Listing{}, err
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE auction_listings
		SET ended = $2, winner = $3, final_price = $4, ended_at = $5, updated_at = $6
		WHERE id = $1
	`, l.ID, l.Ended, l.Winner, l.FinalPrice, nullTime(l.EndedAt), l.UpdatedAt)
	if err != nil {
		return auction.Listing{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return auction.Listing{}, fmt.Errorf("listing %s: %w", l.ID, storage.ErrNotFound)
	}
	return l, nil
}

func (s *Store) GetListing(ctx context.Context, id string) (auction.Listing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, asset_id, seller, operator, starting_price, reserve_price,
			start_time, duration_seconds, ended, winner, final_price, ended_at,
			created_at, updated_at
		FROM auction_listings
		WHERE id = $1
	`, id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auction.Listing{}, fmt.Errorf("listing %s: %w", id, storage.ErrNotFound)
	}
	return l, err
}

func (s *Store) ListListings(ctx context.Context, seller string) ([]auction.Listing, error) {
	query := `
		SELECT id, asset_id, seller, operator, starting_price, reserve_price,
			start_time, duration_seconds, ended, winner, final_price, ended_at,
			created_at, updated_at
		FROM auction_listings
	`
	args := []interface{}{}
	if seller != "" {
		query += ` WHERE seller = $1`
		args = append(args, seller)
	}
	query += ` ORDER BY created_at`

	return s.queryListings(ctx, query, args...)
}

func (s *Store) ListOpenListings(ctx context.Context) ([]auction.Listing, error) {
	return s.queryListings(ctx, `
		SELECT id, asset_id, seller, operator, starting_price, reserve_price,
			start_time, duration_seconds, ended, winner, final_price, ended_at,
			created_at, updated_at
		FROM auction_listings
		WHERE NOT ended
		ORDER BY created_at
	`)
}

func (s *Store) queryListings(ctx context.Context, query string, args ...interface{}) ([]auction.Listing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auction.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanListing(row rowScanner) (auction.Listing, error) {
	var (
		l           auction.Listing
		durationSec int64
		endedAt     sql.NullTime
	)
	if err := row.Scan(&l.ID, &l.AssetID, &l.Seller, &l.Operator, &l.StartingPrice,
		&l.ReservePrice, &l.StartTime, &durationSec, &l.Ended, &l.Winner,
		&l.FinalPrice, &endedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return auction.Listing{}, err
	}
	l.Duration = time.Duration(durationSec) * time.Second
	if endedAt.Valid {
		l.EndedAt = endedAt.Time
	}
	return l, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// --- LedgerStore ------------------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, identity string) (ledger.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, pending, updated_at
		FROM ledger_balances
		WHERE identity = $1
	`, identity)

	var bal ledger.Balance
	if err := row.Scan(&bal.Identity, &bal.Pending, &bal.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Balance{Identity: identity}, nil
		}
		return ledger.Balance{}, err
	}
	return bal, nil
}

func (s *Store) PutBalance(ctx context.Context, bal ledger.Balance) (ledger.Balance, error) {
	bal.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_balances (identity, pending, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity) DO UPDATE SET pending = $2, updated_at = $3
	`, bal.Identity, bal.Pending, bal.UpdatedAt)
	if err != nil {
		return ledger.Balance{}, err
	}
	return bal, nil
}

func (s *Store) TotalPending(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(pending), 0) FROM ledger_balances
	`)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) CreateEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (
			id, identity, entry_type, amount, balance_after, reference, status,
			message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.Identity, string(entry.Type), entry.Amount, entry.BalanceAfter,
		entry.Reference, string(entry.Status), entry.Message, entry.CreatedAt)
	if err != nil {
		return ledger.Entry{}, err
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, identity string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity, entry_type, amount, balance_after, reference, status,
			message, created_at
		FROM ledger_entries
		WHERE identity = $1
		ORDER BY created_at
	`, identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ledger.Entry
	for rows.Next() {
		var (
			entry     ledger.Entry
			entryType string
			status    string
		)
		if err := rows.Scan(&entry.ID, &entry.Identity, &entryType, &entry.Amount,
			&entry.BalanceAfter, &entry.Reference, &status, &entry.Message,
			&entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Type = ledger.EntryType(entryType)
		entry.Status = ledger.Status(status)
		result = append(result, entry)
	}
	return result, rows.Err()
}
