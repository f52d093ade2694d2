// Package settlement implements the pull-payment ledger. Value owed to an
// identity is credited here during auction settlement and leaves only through
// an explicit withdrawal by that identity.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/R3E-Network/auction_layer/internal/app/domain/ledger"
	"github.com/R3E-Network/auction_layer/internal/app/events"
	"github.com/R3E-Network/auction_layer/internal/app/metrics"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

var (
	// ErrNothingOwed is returned by Withdraw when the caller's pending
	// balance is zero, so clients can tell "nothing owed" from a failed
	// transfer.
	ErrNothingOwed = errors.New("nothing to withdraw")
	// ErrTransferFailed wraps a failed external value transfer. The ledger
	// balance is restored before this is returned.
	ErrTransferFailed = errors.New("value transfer failed")
)

// ValueTransferrer moves withdrawn value to its recipient. Implementations
// talk to an external payment rail; a failure must be reported, never
// swallowed.
type ValueTransferrer interface {
	TransferValue(ctx context.Context, to string, amount int64) error
}

// Service manages pending balances and the settlement journal. The mutex
// serializes balance mutations; it is never held across an external transfer,
// so nested calls triggered from inside a transfer observe committed state
// instead of deadlocking.
type Service struct {
	store    storage.LedgerStore
	transfer ValueTransferrer
	bus      *events.Bus
	log      *logger.Logger
	mu       sync.Mutex
}

// New constructs a settlement service.
func New(store storage.LedgerStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settlement")
	}
	return &Service{store: store, log: log}
}

// AttachTransferrer sets the external value mover used by Withdraw.
func (s *Service) AttachTransferrer(t ValueTransferrer) {
	s.transfer = t
}

// AttachBus sets the notification bus.
func (s *Service) AttachBus(bus *events.Bus) {
	s.bus = bus
}

// Credit adds amount to the identity's pending balance. It is an internal
// operation invoked during auction settlement and is not exposed to callers.
func (s *Service) Credit(ctx context.Context, identity string, amount int64, reference string) (ledger.Balance, error) {
	if identity == "" {
		return ledger.Balance{}, fmt.Errorf("credit identity is required")
	}
	if amount <= 0 {
		return ledger.Balance{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal, err := s.store.GetBalance(ctx, identity)
	if err != nil {
		return ledger.Balance{}, err
	}
	bal.Pending += amount
	bal, err = s.store.PutBalance(ctx, bal)
	if err != nil {
		return ledger.Balance{}, err
	}

	if _, err := s.store.CreateEntry(ctx, ledger.Entry{
		Identity:     identity,
		Type:         ledger.EntryCredit,
		Amount:       amount,
		BalanceAfter: bal.Pending,
		Reference:    reference,
		Status:       ledger.StatusCompleted,
	}); err != nil {
		s.log.WithError(err).Warnf("journal credit for %s", identity)
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:     events.TypeLedgerCredited,
			Identity: identity,
			Amount:   amount,
			Message:  reference,
		})
	}

	s.log.WithField("identity", identity).Debugf("credited %d (%s)", amount, reference)
	return bal, nil
}

// Reverse removes a previously credited amount, compensating a settlement
// whose final step failed. It never drives a balance negative.
func (s *Service) Reverse(ctx context.Context, identity string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("reverse amount must be positive, got %d", amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal, err := s.store.GetBalance(ctx, identity)
	if err != nil {
		return err
	}
	if bal.Pending < amount {
		return fmt.Errorf("cannot reverse %d for %s: pending balance is %d", amount, identity, bal.Pending)
	}
	bal.Pending -= amount
	bal, err = s.store.PutBalance(ctx, bal)
	if err != nil {
		return err
	}

	if _, err := s.store.CreateEntry(ctx, ledger.Entry{
		Identity:     identity,
		Type:         ledger.EntryReverse,
		Amount:       -amount,
		BalanceAfter: bal.Pending,
		Reference:    reference,
		Status:       ledger.StatusCompleted,
	}); err != nil {
		s.log.WithError(err).Warnf("journal reversal for %s", identity)
	}
	return nil
}

// Withdraw pays out the caller's entire pending balance. The balance is
// zeroed before the external transfer is attempted, so a reentrant Withdraw
// triggered from inside the transfer observes zero and fails with
// ErrNothingOwed. If the transfer fails the prior balance is restored and
// ErrTransferFailed is returned: the operation is all-or-nothing.
func (s *Service) Withdraw(ctx context.Context, identity string) (ledger.Entry, error) {
	if identity == "" {
		return ledger.Entry{}, fmt.Errorf("withdraw identity is required")
	}

	s.mu.Lock()
	bal, err := s.store.GetBalance(ctx, identity)
	if err != nil {
		s.mu.Unlock()
		return ledger.Entry{}, err
	}
	owed := bal.Pending
	if owed <= 0 {
		s.mu.Unlock()
		return ledger.Entry{}, ErrNothingOwed
	}

	// Checks-effects-interactions: commit the zeroed balance before touching
	// the external transfer rail.
	bal.Pending = 0
	if _, err := s.store.PutBalance(ctx, bal); err != nil {
		s.mu.Unlock()
		return ledger.Entry{}, err
	}
	s.mu.Unlock()

	if err := s.transferValue(ctx, identity, owed); err != nil {
		s.mu.Lock()
		restored, restoreErr := s.store.GetBalance(ctx, identity)
		if restoreErr == nil {
			restored.Pending += owed
			_, restoreErr = s.store.PutBalance(ctx, restored)
		}
		s.mu.Unlock()
		if restoreErr != nil {
			s.log.WithError(restoreErr).Errorf("restore balance for %s after failed transfer", identity)
		}

		if _, jerr := s.store.CreateEntry(ctx, ledger.Entry{
			Identity:     identity,
			Type:         ledger.EntryPayout,
			Amount:       -owed,
			BalanceAfter: owed,
			Status:       ledger.StatusFailed,
			Message:      err.Error(),
		}); jerr != nil {
			s.log.WithError(jerr).Warnf("journal failed payout for %s", identity)
		}

		metrics.RecordWithdrawal("failed")
		return ledger.Entry{}, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	entry, err := s.store.CreateEntry(ctx, ledger.Entry{
		Identity:     identity,
		Type:         ledger.EntryPayout,
		Amount:       -owed,
		BalanceAfter: 0,
		Status:       ledger.StatusCompleted,
	})
	if err != nil {
		s.log.WithError(err).Warnf("journal payout for %s", identity)
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:     events.TypeLedgerWithdrawn,
			Identity: identity,
			Amount:   owed,
		})
	}

	metrics.RecordWithdrawal("completed")
	s.log.WithField("identity", identity).Infof("paid out %d", owed)
	return entry, nil
}

func (s *Service) transferValue(ctx context.Context, to string, amount int64) error {
	if s.transfer == nil {
		return fmt.Errorf("no value transferrer configured")
	}
	return s.transfer.TransferValue(ctx, to, amount)
}

// Balance returns the identity's pending balance.
func (s *Service) Balance(ctx context.Context, identity string) (ledger.Balance, error) {
	return s.store.GetBalance(ctx, identity)
}

// Entries returns the identity's journal entries.
func (s *Service) Entries(ctx context.Context, identity string) ([]ledger.Entry, error) {
	return s.store.ListEntries(ctx, identity)
}

// TotalPending returns the sum of all pending balances, for the conservation
// check: it must equal total value received minus total value paid out.
func (s *Service) TotalPending(ctx context.Context) (int64, error) {
	return s.store.TotalPending(ctx)
}
