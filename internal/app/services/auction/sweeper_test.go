package auction

import (
	"context"
	"testing"
	"time"

	domain "github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/events"
	"github.com/R3E-Network/auction_layer/internal/app/services/settlement"
	"github.com/R3E-Network/auction_layer/internal/app/storage/memory"
)

func newSweeperFixture(t *testing.T, autoClose bool) (*fixture, *Sweeper, *events.Bus) {
	t.Helper()
	store := memory.New()
	ledgerSvc := settlement.New(store, nil)
	svc := New(nil, store, ledgerSvc, nil)
	svc.AttachAssetTransferrer(&stubAssets{})

	f := &fixture{
		svc:    svc,
		ledger: ledgerSvc,
		now:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	svc.WithClock(func() time.Time { return f.now })

	bus := events.NewBus(16)
	sweeper := NewSweeper(store, svc, "", autoClose, nil)
	sweeper.AttachBus(bus)
	return f, sweeper, bus
}

func TestSweepReportsExpiredOnce(t *testing.T) {
	f, sweeper, bus := newSweeperFixture(t, false)
	ctx := context.Background()
	listing := f.createListing(t)

	var expired []string
	bus.Subscribe(func(evt events.Event) {
		if evt.Type == events.TypeListingExpired {
			expired = append(expired, evt.ListingID)
		}
	})

	// Still active: nothing to report.
	f.advance(500 * time.Second)
	sweeper.sweep(ctx)
	if len(expired) != 0 {
		t.Fatalf("expected no expiry events while active, got %v", expired)
	}

	f.advance(500 * time.Second)
	sweeper.sweep(ctx)
	sweeper.sweep(ctx)
	if len(expired) != 1 || expired[0] != listing.ID {
		t.Fatalf("expected one expiry event for %s, got %v", listing.ID, expired)
	}

	// Without auto-close the listing stays open at the reserve price.
	snap, err := f.svc.Info(ctx, listing.ID)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if snap.Status != domain.StatusExpired {
		t.Fatalf("expected expired status, got %s", snap.Status)
	}
}

func TestSweepAutoCloses(t *testing.T) {
	f, sweeper, _ := newSweeperFixture(t, true)
	ctx := context.Background()
	listing := f.createListing(t)

	f.advance(1001 * time.Second)
	sweeper.sweep(ctx)

	snap, err := f.svc.Info(ctx, listing.ID)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	if snap.Status != domain.StatusEnded {
		t.Fatalf("expected listing closed by sweeper, got %s", snap.Status)
	}
	if snap.Listing.Winner != "" {
		t.Fatalf("expected no winner on auto-close, got %q", snap.Listing.Winner)
	}
}

func TestSweeperStartStop(t *testing.T) {
	_, sweeper, _ := newSweeperFixture(t, false)
	ctx := context.Background()

	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Second start is a no-op.
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := sweeper.Stop(ctx); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
}
