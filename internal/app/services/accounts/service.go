// Package accounts manages the identities known to the auction layer.
package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/R3E-Network/auction_layer/internal/app/domain/account"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// Service manages account records.
type Service struct {
	store storage.AccountStore
	log   *logger.Logger
}

// New constructs an accounts service.
func New(store storage.AccountStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, log: log}
}

// Create registers a new identity.
func (s *Service) Create(ctx context.Context, owner string, metadata map[string]string) (account.Account, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return account.Account{}, fmt.Errorf("owner is required")
	}

	acct, err := s.store.CreateAccount(ctx, account.Account{Owner: owner, Metadata: metadata})
	if err != nil {
		return account.Account{}, err
	}

	s.log.WithField("account_id", acct.ID).Debug("account created")
	return acct, nil
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, id string) (account.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]account.Account, error) {
	return s.store.ListAccounts(ctx)
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteAccount(ctx, id)
}
