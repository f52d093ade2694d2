// Package auction implements the falling-price auction state machine: it
// owns listing lifecycles, decides whether a purchase succeeds and at what
// price, and defers all value movement into the settlement ledger.
package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/events"
	"github.com/R3E-Network/auction_layer/internal/app/metrics"
	"github.com/R3E-Network/auction_layer/internal/app/services/settlement"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

var (
	// ErrInvalidConfig rejects listing parameters that violate the price and
	// duration invariants.
	ErrInvalidConfig = errors.New("invalid listing configuration")
	// ErrNotYetOpen rejects purchases before the start time.
	ErrNotYetOpen = errors.New("listing not yet open")
	// ErrAlreadySettled rejects purchase or close once a listing has ended.
	ErrAlreadySettled = errors.New("listing already settled")
	// ErrPaymentTooLow rejects payments below the current price.
	ErrPaymentTooLow = errors.New("payment below current price")
	// ErrSelfPurchase rejects a seller buying their own listing.
	ErrSelfPurchase = errors.New("seller cannot purchase own listing")
	// ErrStillActive rejects close before the deadline.
	ErrStillActive = errors.New("listing still active")
	// ErrNotOperator rejects close from anyone but the listing operator.
	ErrNotOperator = errors.New("caller is not the listing operator")
	// ErrTransferFailed wraps a failed asset transfer; the listing has been
	// reopened and no ledger credit was recorded.
	ErrTransferFailed = errors.New("asset transfer failed")
)

// AssetTransferrer moves the auctioned asset to the buyer. The auction
// service must have been approved as an operator on the asset beforehand.
type AssetTransferrer interface {
	TransferAsset(ctx context.Context, assetID, from, to string) error
}

// CreateParams holds the immutable configuration of a new listing.
type CreateParams struct {
	AssetID       string
	Seller        string
	Operator      string
	StartingPrice int64
	ReservePrice  int64
	Duration      time.Duration
}

// Service is the auction state machine. The mutex serializes the mutating
// transitions (purchase, close); it is released before any external call so
// a reentrant attempt observes the committed terminal state and is rejected
// by the state check rather than deadlocking.
type Service struct {
	accounts storage.AccountStore
	store    storage.AuctionStore
	ledger   *settlement.Service
	assets   AssetTransferrer
	bus      *events.Bus
	log      *logger.Logger
	mu       sync.Mutex
	now      func() time.Time
}

// New constructs an auction service.
func New(accounts storage.AccountStore, store storage.AuctionStore, ledger *settlement.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auction")
	}
	return &Service{
		accounts: accounts,
		store:    store,
		ledger:   ledger,
		log:      log,
		now:      time.Now,
	}
}

// AttachAssetTransferrer sets the external asset registry collaborator.
func (s *Service) AttachAssetTransferrer(t AssetTransferrer) {
	s.assets = t
}

// AttachBus sets the notification bus.
func (s *Service) AttachBus(bus *events.Bus) {
	s.bus = bus
}

// WithClock overrides the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) {
	s.now = now
}

// Create validates the configuration and opens a new listing. The start time
// is fixed to the creation time.
func (s *Service) Create(ctx context.Context, params CreateParams) (domain.Listing, error) {
	params.AssetID = strings.TrimSpace(params.AssetID)
	params.Seller = strings.TrimSpace(params.Seller)
	params.Operator = strings.TrimSpace(params.Operator)

	if params.AssetID == "" {
		return domain.Listing{}, fmt.Errorf("%w: asset_id is required", ErrInvalidConfig)
	}
	if params.Seller == "" {
		return domain.Listing{}, fmt.Errorf("%w: seller is required", ErrInvalidConfig)
	}
	if params.ReservePrice <= 0 {
		return domain.Listing{}, fmt.Errorf("%w: reserve price must be positive", ErrInvalidConfig)
	}
	if params.StartingPrice <= params.ReservePrice {
		return domain.Listing{}, fmt.Errorf("%w: starting price must exceed reserve price", ErrInvalidConfig)
	}
	if params.Duration < time.Second {
		return domain.Listing{}, fmt.Errorf("%w: duration must be at least one second", ErrInvalidConfig)
	}
	if params.Operator == "" {
		params.Operator = params.Seller
	}

	if s.accounts != nil {
		if _, err := s.accounts.GetAccount(ctx, params.Seller); err != nil {
			return domain.Listing{}, fmt.Errorf("seller validation failed: %w", err)
		}
	}

	listing, err := s.store.CreateListing(ctx, domain.Listing{
		AssetID:       params.AssetID,
		Seller:        params.Seller,
		Operator:      params.Operator,
		StartingPrice: params.StartingPrice,
		ReservePrice:  params.ReservePrice,
		StartTime:     s.now().UTC(),
		Duration:      params.Duration,
	})
	if err != nil {
		return domain.Listing{}, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:      events.TypeListingCreated,
			ListingID: listing.ID,
			Identity:  listing.Seller,
			Amount:    listing.StartingPrice,
		})
	}

	s.log.WithField("listing_id", listing.ID).
		Infof("listing created: %d -> %d over %s", listing.StartingPrice, listing.ReservePrice, listing.Duration)
	return listing, nil
}

// Purchase settles the listing for the first buyer paying the current price.
// The price is computed once on entry and reused for every later step. The
// terminal listing state is committed before the asset transfer runs, so a
// reentrant purchase attempt is rejected by the state check; the ledger
// credits are recorded only after the transfer succeeds, so a failing
// transferrer never observes withdrawable value. If the transfer fails the
// listing is reopened and ErrTransferFailed is returned.
func (s *Service) Purchase(ctx context.Context, listingID, buyer string, payment int64) (domain.Listing, error) {
	buyer = strings.TrimSpace(buyer)
	if buyer == "" {
		return domain.Listing{}, fmt.Errorf("buyer is required")
	}

	s.mu.Lock()
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		s.mu.Unlock()
		return domain.Listing{}, err
	}

	now := s.now().UTC()
	if listing.Ended {
		s.mu.Unlock()
		metrics.RecordPurchase("rejected", 0)
		return domain.Listing{}, ErrAlreadySettled
	}
	if now.Before(listing.StartTime) {
		s.mu.Unlock()
		metrics.RecordPurchase("rejected", 0)
		return domain.Listing{}, ErrNotYetOpen
	}
	if buyer == listing.Seller {
		s.mu.Unlock()
		metrics.RecordPurchase("rejected", 0)
		return domain.Listing{}, ErrSelfPurchase
	}

	price := listing.PriceAt(now)
	if payment < price {
		s.mu.Unlock()
		metrics.RecordPurchase("rejected", 0)
		return domain.Listing{}, fmt.Errorf("%w: need %d, got %d", ErrPaymentTooLow, price, payment)
	}

	prior := listing
	listing.Ended = true
	listing.Winner = buyer
	listing.FinalPrice = price
	listing.EndedAt = now

	listing, err = s.store.UpdateListing(ctx, listing)
	if err != nil {
		s.mu.Unlock()
		return domain.Listing{}, err
	}
	s.mu.Unlock()

	overpay := payment - price

	if err := s.transferAsset(ctx, listing.AssetID, listing.Seller, buyer); err != nil {
		s.restoreListing(ctx, prior)
		metrics.RecordPurchase("failed", 0)
		return domain.Listing{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	// The asset has moved, so the sale stays terminal from here on. A credit
	// failure is a store fault needing manual reconciliation, not an unwind.
	if _, err := s.ledger.Credit(ctx, listing.Seller, price, "sale:"+listing.ID); err != nil {
		s.log.WithError(err).Errorf("credit seller %s with %d for listing %s", listing.Seller, price, listing.ID)
		return domain.Listing{}, fmt.Errorf("credit seller: %w", err)
	}
	if overpay > 0 {
		if _, err := s.ledger.Credit(ctx, buyer, overpay, "refund:"+listing.ID); err != nil {
			s.log.WithError(err).Errorf("credit refund %d to %s for listing %s", overpay, buyer, listing.ID)
			return domain.Listing{}, fmt.Errorf("credit buyer refund: %w", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:      events.TypeListingPurchased,
			ListingID: listing.ID,
			Identity:  buyer,
			Amount:    price,
			Timestamp: now,
		})
	}

	metrics.RecordPurchase("completed", price)
	s.log.WithField("listing_id", listing.ID).
		Infof("settled: buyer %s paid %d (refund %d)", buyer, price, overpay)
	return listing, nil
}

func (s *Service) transferAsset(ctx context.Context, assetID, from, to string) error {
	if s.assets == nil {
		return fmt.Errorf("no asset transferrer configured")
	}
	return s.assets.TransferAsset(ctx, assetID, from, to)
}

func (s *Service) restoreListing(ctx context.Context, prior domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.store.UpdateListing(ctx, prior); err != nil {
		s.log.WithError(err).Errorf("restore listing %s after failed settlement", prior.ID)
	}
}

// Close ends an unsold listing after its deadline. Only the listing operator
// may close; closing an already ended listing fails with ErrAlreadySettled.
func (s *Service) Close(ctx context.Context, listingID, caller string) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Listing{}, err
	}

	if caller != listing.Operator {
		metrics.RecordClose("rejected")
		return domain.Listing{}, ErrNotOperator
	}
	if listing.Ended {
		metrics.RecordClose("rejected")
		return domain.Listing{}, ErrAlreadySettled
	}
	now := s.now().UTC()
	if now.Before(listing.Deadline()) {
		metrics.RecordClose("rejected")
		return domain.Listing{}, ErrStillActive
	}

	listing.Ended = true
	listing.EndedAt = now

	listing, err = s.store.UpdateListing(ctx, listing)
	if err != nil {
		return domain.Listing{}, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:      events.TypeListingClosed,
			ListingID: listing.ID,
			Identity:  caller,
		})
	}

	metrics.RecordClose("completed")
	s.log.WithField("listing_id", listing.ID).Info("closed unsold")
	return listing, nil
}

// Info returns the full state snapshot of a listing.
func (s *Service) Info(ctx context.Context, listingID string) (domain.Snapshot, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	now := s.now().UTC()
	return domain.Snapshot{
		Listing:       listing,
		Status:        listing.StatusAt(now),
		CurrentPrice:  listing.PriceAt(now),
		TimeRemaining: listing.TimeRemainingAt(now),
	}, nil
}

// CurrentPrice returns the listing price at the current instant.
func (s *Service) CurrentPrice(ctx context.Context, listingID string) (int64, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return listing.PriceAt(s.now().UTC()), nil
}

// TimeRemaining returns the time until the deadline, zero if ended or
// expired.
func (s *Service) TimeRemaining(ctx context.Context, listingID string) (time.Duration, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return 0, err
	}
	return listing.TimeRemainingAt(s.now().UTC()), nil
}

// IsActive reports whether the listing is open for purchase within its
// scheduled window.
func (s *Service) IsActive(ctx context.Context, listingID string) (bool, error) {
	listing, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return false, err
	}
	return listing.StatusAt(s.now().UTC()) == domain.StatusActive, nil
}

// List returns listings, optionally filtered by seller.
func (s *Service) List(ctx context.Context, seller string) ([]domain.Listing, error) {
	return s.store.ListListings(ctx, seller)
}
