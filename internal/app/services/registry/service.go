// Package registry implements the asset ownership registry: register an
// asset, approve operators, and transfer ownership guarded by an
// owner-or-approved check. The auction service settles purchases through it
// once approved as an operator on the listed asset.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/auction_layer/internal/app/domain/asset"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

var (
	// ErrNotAuthorized rejects a transfer or approval from a caller who is
	// neither the owner nor an approved operator.
	ErrNotAuthorized = errors.New("caller is not the owner or an approved operator")
	// ErrWrongOwner rejects a transfer whose "from" does not hold the asset.
	ErrWrongOwner = errors.New("asset is not held by the expected owner")
)

// Service manages asset ownership records.
type Service struct {
	store storage.AssetStore
	log   *logger.Logger
}

// New constructs a registry service.
func New(store storage.AssetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{store: store, log: log}
}

// Register records a new asset under the given owner.
func (s *Service) Register(ctx context.Context, owner, assetID string, metadata map[string]string) (asset.Asset, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return asset.Asset{}, fmt.Errorf("owner is required")
	}

	a, err := s.store.CreateAsset(ctx, asset.Asset{
		ID:       strings.TrimSpace(assetID),
		Owner:    owner,
		Metadata: metadata,
	})
	if err != nil {
		return asset.Asset{}, err
	}

	s.log.WithField("asset_id", a.ID).Infof("asset registered to %s", owner)
	return a, nil
}

// Approve lets the owner grant an operator the right to transfer the asset.
func (s *Service) Approve(ctx context.Context, caller, assetID, operator string) (asset.Asset, error) {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		return asset.Asset{}, fmt.Errorf("operator is required")
	}

	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return asset.Asset{}, err
	}
	if caller != a.Owner {
		return asset.Asset{}, ErrNotAuthorized
	}
	if a.IsApproved(operator) {
		return a, nil
	}

	a.Approved = append(a.Approved, operator)
	a, err = s.store.UpdateAsset(ctx, a)
	if err != nil {
		return asset.Asset{}, err
	}

	s.log.WithField("asset_id", a.ID).Infof("operator %s approved", operator)
	return a, nil
}

// Transfer moves the asset from its current holder to a new owner. The
// caller must be the owner or an approved operator, and "from" must match
// the current holder. Approvals are cleared on transfer.
func (s *Service) Transfer(ctx context.Context, caller, assetID, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("transfer recipient is required")
	}

	a, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if a.Owner != from {
		return ErrWrongOwner
	}
	if caller != a.Owner && !a.IsApproved(caller) {
		return ErrNotAuthorized
	}

	a.Owner = to
	a.Approved = nil
	if _, err := s.store.UpdateAsset(ctx, a); err != nil {
		return err
	}

	s.log.WithField("asset_id", a.ID).Infof("transferred %s -> %s", from, to)
	return nil
}

// Get returns the asset record.
func (s *Service) Get(ctx context.Context, assetID string) (asset.Asset, error) {
	return s.store.GetAsset(ctx, assetID)
}

// List returns assets, optionally filtered by owner.
func (s *Service) List(ctx context.Context, owner string) ([]asset.Asset, error) {
	return s.store.ListAssets(ctx, owner)
}

// Transferrer adapts the registry to the auction service's collaborator
// interface, acting with a fixed caller identity that the asset owner must
// have approved beforehand.
type Transferrer struct {
	Service *Service
	Caller  string
}

// TransferAsset implements the auction service's AssetTransferrer.
func (t Transferrer) TransferAsset(ctx context.Context, assetID, from, to string) error {
	return t.Service.Transfer(ctx, t.Caller, assetID, from, to)
}
