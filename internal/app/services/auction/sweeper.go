package auction

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/R3E-Network/auction_layer/internal/app/domain/auction"
	"github.com/R3E-Network/auction_layer/internal/app/events"
	"github.com/R3E-Network/auction_layer/internal/app/metrics"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/internal/app/system"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// Sweeper watches open listings and reports the ones whose deadline passed
// with no sale. With auto-close enabled it also closes them on behalf of
// their operator, so sellers do not need to submit the close themselves.
type Sweeper struct {
	store     storage.AuctionStore
	service   *Service
	bus       *events.Bus
	log       *logger.Logger
	schedule  string
	autoClose bool

	mu       sync.Mutex
	cron     *cron.Cron
	runCtx   context.Context
	cancel   context.CancelFunc
	running  bool
	reported map[string]bool
}

var _ system.Service = (*Sweeper)(nil)

// NewSweeper creates a sweeper on the given cron schedule (e.g. "@every 30s").
func NewSweeper(store storage.AuctionStore, service *Service, schedule string, autoClose bool, log *logger.Logger) *Sweeper {
	if log == nil {
		log = logger.NewDefault("auction-sweeper")
	}
	if schedule == "" {
		schedule = "@every 30s"
	}
	return &Sweeper{
		store:     store,
		service:   service,
		schedule:  schedule,
		autoClose: autoClose,
		log:       log,
		reported:  make(map[string]bool),
	}
}

// AttachBus sets the notification bus.
func (s *Sweeper) AttachBus(bus *events.Bus) {
	s.bus = bus
}

func (s *Sweeper) Name() string { return "auction-sweeper" }

// Start schedules the sweep job.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.sweep(runCtx) }); err != nil {
		cancel()
		return err
	}
	c.Start()

	s.cron = c
	s.runCtx = runCtx
	s.cancel = cancel
	s.running = true

	s.log.Infof("sweeper started on schedule %q (auto-close=%t)", s.schedule, s.autoClose)
	return nil
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	cancel()
	stopCtx := c.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweep is also callable directly by tests.
func (s *Sweeper) sweep(ctx context.Context) {
	listings, err := s.store.ListOpenListings(ctx)
	if err != nil {
		s.log.WithError(err).Warn("list open listings failed")
		return
	}

	now := time.Now().UTC()
	if s.service != nil && s.service.now != nil {
		now = s.service.now().UTC()
	}

	expired := 0
	for _, listing := range listings {
		if listing.StatusAt(now) != domain.StatusExpired {
			continue
		}

		if !s.alreadyReported(listing.ID) {
			expired++
			if s.bus != nil {
				s.bus.Publish(events.Event{
					Type:      events.TypeListingExpired,
					ListingID: listing.ID,
					Identity:  listing.Seller,
				})
			}
			s.log.WithField("listing_id", listing.ID).Info("listing expired unsold")
		}

		if s.autoClose && s.service != nil {
			if _, err := s.service.Close(ctx, listing.ID, listing.Operator); err != nil {
				s.log.WithError(err).Warnf("auto-close listing %s", listing.ID)
			}
		}
	}

	metrics.RecordSweep(expired)
}

func (s *Sweeper) alreadyReported(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reported[id] {
		return true
	}
	s.reported[id] = true
	return false
}
