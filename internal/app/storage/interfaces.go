package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/auction_layer/internal/app/domain/account"
	"github.com/R3E-Network/auction_layer/internal/app/domain/asset"
	"github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/domain/ledger"
)

// ErrNotFound is returned by every backend when a requested record does not
// exist. Callers match it with errors.Is.
var ErrNotFound = errors.New("record not found")

// AccountStore persists identity records.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct account.Account) (account.Account, error)
	GetAccount(ctx context.Context, id string) (account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// AssetStore persists asset ownership records.
type AssetStore interface {
	CreateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
	UpdateAsset(ctx context.Context, a asset.Asset) (asset.Asset, error)
	GetAsset(ctx context.Context, id string) (asset.Asset, error)
	ListAssets(ctx context.Context, owner string) ([]asset.Asset, error)
}

// AuctionStore persists listings.
type AuctionStore interface {
	CreateListing(ctx context.Context, l auction.Listing) (auction.Listing, error)
	UpdateListing(ctx context.Context, l auction.Listing) (auction.Listing, error)
	GetListing(ctx context.Context, id string) (auction.Listing, error)
	ListListings(ctx context.Context, seller string) ([]auction.Listing, error)
	ListOpenListings(ctx context.Context) ([]auction.Listing, error)
}

// LedgerStore persists pending balances and the settlement journal. A missing
// balance reads as zero; the sum of all pending balances must always equal
// value received minus value paid out.
type LedgerStore interface {
	GetBalance(ctx context.Context, identity string) (ledger.Balance, error)
	PutBalance(ctx context.Context, bal ledger.Balance) (ledger.Balance, error)
	TotalPending(ctx context.Context) (int64, error)

	CreateEntry(ctx context.Context, entry ledger.Entry) (ledger.Entry, error)
	ListEntries(ctx context.Context, identity string) ([]ledger.Entry, error)
}
