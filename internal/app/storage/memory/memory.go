// Package memory provides a thread-safe in-memory implementation of the
// storage interfaces, intended for tests and single-node development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/auction_layer/internal/app/domain/account"
	"github.com/R3E-Network/auction_layer/internal/app/domain/asset"
	"github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/domain/ledger"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
)

// Store implements every storage interface with mutex-guarded maps.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	accounts map[string]account.Account
	assets   map[string]asset.Asset
	listings map[string]auction.Listing
	balances map[string]ledger.Balance
	entries  map[string][]ledger.Entry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:   1,
		accounts: make(map[string]account.Account),
		assets:   make(map[string]asset.Asset),
		listings: make(map[string]auction.Listing),
		balances: make(map[string]ledger.Balance),
		entries:  make(map[string][]ledger.Entry),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// AccountStore implementation -----------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct account.Account) (account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID == "" {
		acct.ID = s.nextIDLocked()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return account.Account{}, fmt.Errorf("account %s already exists", acct.ID)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	acct.Metadata = copyMap(acct.Metadata)

	s.accounts[acct.ID] = acct
	return cloneAccount(acct), nil
}

func (s *Store) GetAccount(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return cloneAccount(acct), nil
}

func (s *Store) ListAccounts(_ context.Context) ([]account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]account.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		result = append(result, cloneAccount(acct))
	}
	return result, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	delete(s.accounts, id)
	return nil
}

// AssetStore implementation -------------------------------------------------

func (s *Store) CreateAsset(_ context.Context, a asset.Asset) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.assets[a.ID]; exists {
		return asset.Asset{}, fmt.Errorf("asset %s already exists", a.ID)
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Metadata = copyMap(a.Metadata)
	a.Approved = append([]string(nil), a.Approved...)

	s.assets[a.ID] = a
	return cloneAsset(a), nil
}

func (s *Store) UpdateAsset(_ context.Context, a asset.Asset) (asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.assets[a.ID]
	if !ok {
		return asset.Asset{}, fmt.Errorf("asset %s: %w", a.ID, storage.ErrNotFound)
	}

	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	a.Metadata = copyMap(a.Metadata)
	a.Approved = append([]string(nil), a.Approved...)

	s.assets[a.ID] = a
	return cloneAsset(a), nil
}

func (s *Store) GetAsset(_ context.Context, id string) (asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return asset.Asset{}, fmt.Errorf("asset %s: %w", id, storage.ErrNotFound)
	}
	return cloneAsset(a), nil
}

func (s *Store) ListAssets(_ context.Context, owner string) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]asset.Asset, 0)
	for _, a := range s.assets {
		if owner == "" || a.Owner == owner {
			result = append(result, cloneAsset(a))
		}
	}
	return result, nil
}

// AuctionStore implementation -----------------------------------------------

func (s *Store) CreateListing(_ context.Context, l auction.Listing) (auction.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == "" {
		l.ID = s.nextIDLocked()
	} else if _, exists := s.listings[l.ID]; exists {
		return auction.Listing{}, fmt.Errorf("listing %s already exists", l.ID)
	}

	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	s.listings[l.ID] = l
	return l, nil
}

func (s *Store) UpdateListing(_ context.Context, l auction.Listing) (auction.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.listings[l.ID]
	if !ok {
		return auction.Listing{}, fmt.Errorf("listing %s: %w", l.ID, storage.ErrNotFound)
	}

	l.CreatedAt = original.CreatedAt
	l.UpdatedAt = time.Now().UTC()

	s.listings[l.ID] = l
	return l, nil
}

func (s *Store) GetListing(_ context.Context, id string) (auction.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.listings[id]
	if !ok {
		return auction.Listing{}, fmt.Errorf("listing %s: %w", id, storage.ErrNotFound)
	}
	return l, nil
}

func (s *Store) ListListings(_ context.Context, seller string) ([]auction.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]auction.Listing, 0)
	for _, l := range s.listings {
		if seller == "" || l.Seller == seller {
			result = append(result, l)
		}
	}
	return result, nil
}

func (s *Store) ListOpenListings(_ context.Context) ([]auction.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]auction.Listing, 0)
	for _, l := range s.listings {
		if !l.Ended {
			result = append(result, l)
		}
	}
	return result, nil
}

// LedgerStore implementation ------------------------------------------------

func (s *Store) GetBalance(_ context.Context, identity string) (ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[identity]
	if !ok {
		return ledger.Balance{Identity: identity}, nil
	}
	return bal, nil
}

func (s *Store) PutBalance(_ context.Context, bal ledger.Balance) (ledger.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bal.Identity == "" {
		return ledger.Balance{}, fmt.Errorf("balance identity is required")
	}
	bal.UpdatedAt = time.Now().UTC()
	s.balances[bal.Identity] = bal
	return bal, nil
}

func (s *Store) TotalPending(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, bal := range s.balances {
		total += bal.Pending
	}
	return total, nil
}

func (s *Store) CreateEntry(_ context.Context, entry ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = s.nextIDLocked()
	}
	entry.CreatedAt = time.Now().UTC()

	s.entries[entry.Identity] = append(s.entries[entry.Identity], entry)
	return entry, nil
}

func (s *Store) ListEntries(_ context.Context, identity string) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]ledger.Entry(nil), s.entries[identity]...), nil
}

// Helpers ---------------------------------------------------------------------

func copyMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneAccount(acct account.Account) account.Account {
	acct.Metadata = copyMap(acct.Metadata)
	return acct
}

func cloneAsset(a asset.Asset) asset.Asset {
	a.Metadata = copyMap(a.Metadata)
	a.Approved = append([]string(nil), a.Approved...)
	return a
}
