package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/auction_layer/internal/app/domain/account"
	"github.com/R3E-Network/auction_layer/internal/app/domain/asset"
	"github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/domain/ledger"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
)

func TestAccountLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateAccount(ctx, account.Account{Owner: "alice"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}

	fetched, err := store.GetAccount(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Owner != "alice" {
		t.Fatalf("unexpected account %+v", fetched)
	}

	if err := store.DeleteAccount(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.GetAccount(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMissingRecordsReturnNotFound(t *testing.T) {
	store := New()
	ctx := context.Background()

	if err := store.DeleteAccount(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete missing account: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetAsset(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing asset: expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateAsset(ctx, asset.Asset{ID: "nope"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing asset: expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetListing(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("get missing listing: expected ErrNotFound, got %v", err)
	}
	if _, err := store.UpdateListing(ctx, auction.Listing{ID: "nope"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing listing: expected ErrNotFound, got %v", err)
	}
}

func TestAssetCloneIsolation(t *testing.T) {
	store := New()
	ctx := context.Background()

	created, err := store.CreateAsset(ctx, asset.Asset{
		ID:       "asset-1",
		Owner:    "alice",
		Metadata: map[string]string{"kind": "deed"},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Mutating the returned copy must not touch the stored record.
	created.Metadata["kind"] = "tampered"
	created.Approved = append(created.Approved, "mallory")

	fetched, err := store.GetAsset(ctx, "asset-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Metadata["kind"] != "deed" {
		t.Fatalf("stored metadata mutated: %+v", fetched.Metadata)
	}
	if len(fetched.Approved) != 0 {
		t.Fatalf("stored approvals mutated: %v", fetched.Approved)
	}
}

func TestCreateAssetRejectsDuplicateID(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.CreateAsset(ctx, asset.Asset{ID: "asset-1", Owner: "alice"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := store.CreateAsset(ctx, asset.Asset{ID: "asset-1", Owner: "bob"}); err == nil {
		t.Fatal("expected duplicate ID to be rejected")
	}
}

func TestListOpenListings(t *testing.T) {
	store := New()
	ctx := context.Background()

	open, err := store.CreateListing(ctx, auction.Listing{
		AssetID:       "a1",
		Seller:        "alice",
		StartingPrice: 100,
		ReservePrice:  10,
		StartTime:     time.Now().UTC(),
		Duration:      time.Minute,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ended, err := store.CreateListing(ctx, auction.Listing{
		AssetID:       "a2",
		Seller:        "bob",
		StartingPrice: 100,
		ReservePrice:  10,
		StartTime:     time.Now().UTC(),
		Duration:      time.Minute,
		Ended:         true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_ = ended

	listings, err := store.ListOpenListings(ctx)
	if err != nil {
		t.Fatalf("list open failed: %v", err)
	}
	if len(listings) != 1 || listings[0].ID != open.ID {
		t.Fatalf("expected only the open listing, got %v", listings)
	}
}

func TestListListingsBySeller(t *testing.T) {
	store := New()
	ctx := context.Background()

	for _, seller := range []string{"alice", "alice", "bob"} {
		if _, err := store.CreateListing(ctx, auction.Listing{
			AssetID:       "a",
			Seller:        seller,
			StartingPrice: 100,
			ReservePrice:  10,
			StartTime:     time.Now().UTC(),
			Duration:      time.Minute,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	mine, err := store.ListListings(ctx, "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 listings for alice, got %d", len(mine))
	}

	all, err := store.ListListings(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(all))
	}
}

func TestBalancesAndEntries(t *testing.T) {
	store := New()
	ctx := context.Background()

	// Unknown identities read as zero.
	bal, err := store.GetBalance(ctx, "alice")
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if bal.Pending != 0 || bal.Identity != "alice" {
		t.Fatalf("unexpected zero balance %+v", bal)
	}

	bal.Pending = 700
	if _, err := store.PutBalance(ctx, bal); err != nil {
		t.Fatalf("put balance failed: %v", err)
	}
	if _, err := store.PutBalance(ctx, ledger.Balance{Identity: "bob", Pending: 300}); err != nil {
		t.Fatalf("put balance failed: %v", err)
	}

	total, err := store.TotalPending(ctx)
	if err != nil {
		t.Fatalf("total pending failed: %v", err)
	}
	if total != 1000 {
		t.Fatalf("expected total 1000, got %d", total)
	}

	if _, err := store.CreateEntry(ctx, ledger.Entry{Identity: "alice", Type: ledger.EntryCredit, Amount: 700}); err != nil {
		t.Fatalf("create entry failed: %v", err)
	}
	entries, err := store.ListEntries(ctx, "alice")
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID == "" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestPutBalanceRequiresIdentity(t *testing.T) {
	store := New()

	if _, err := store.PutBalance(context.Background(), ledger.Balance{Pending: 5}); err == nil {
		t.Fatal("expected error for missing identity")
	}
}
