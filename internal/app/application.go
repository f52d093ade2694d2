package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/R3E-Network/auction_layer/internal/app/events"
	"github.com/R3E-Network/auction_layer/internal/app/services/accounts"
	auctionsvc "github.com/R3E-Network/auction_layer/internal/app/services/auction"
	"github.com/R3E-Network/auction_layer/internal/app/services/registry"
	settlementsvc "github.com/R3E-Network/auction_layer/internal/app/services/settlement"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
	"github.com/R3E-Network/auction_layer/internal/app/storage/memory"
	"github.com/R3E-Network/auction_layer/internal/app/system"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Accounts storage.AccountStore
	Assets   storage.AssetStore
	Auctions storage.AuctionStore
	Ledger   storage.LedgerStore
}

// Options tunes optional application behaviour. The zero value is a working
// development setup with logged payouts and a 30 second sweep.
type Options struct {
	// SweepSchedule is a cron spec for the deadline sweeper.
	SweepSchedule string
	// AutoClose makes the sweeper close expired listings automatically.
	AutoClose bool
	// ServiceIdentity is the identity asset transfers execute under. Asset
	// owners must approve it before listing.
	ServiceIdentity string
	// PayoutURL, when set, routes withdrawals through an external payout
	// endpoint instead of the logging transferrer.
	PayoutURL string
	PayoutKey string
}

// Application ties the auction, settlement, and registry services together
// and manages their lifecycle.
type Application struct {
	manager  *system.Manager
	log      *logger.Logger
	identity string

	Accounts   *accounts.Service
	Registry   *registry.Service
	Auctions   *auctionsvc.Service
	Settlement *settlementsvc.Service
	Bus        *events.Bus
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Accounts == nil {
		stores.Accounts = mem
	}
	if stores.Assets == nil {
		stores.Assets = mem
	}
	if stores.Auctions == nil {
		stores.Auctions = mem
	}
	if stores.Ledger == nil {
		stores.Ledger = mem
	}

	manager := system.NewManager()
	bus := events.NewBus(256)

	acctService := accounts.New(stores.Accounts, log)
	registryService := registry.New(stores.Assets, log)

	settlementService := settlementsvc.New(stores.Ledger, log)
	settlementService.AttachBus(bus)
	if endpoint := strings.TrimSpace(opts.PayoutURL); endpoint != "" {
		httpClient := &http.Client{Timeout: 10 * time.Second}
		transferrer, err := settlementsvc.NewHTTPTransferrer(httpClient, endpoint, opts.PayoutKey, log)
		if err != nil {
			return nil, fmt.Errorf("configure payout transferrer: %w", err)
		}
		settlementService.AttachTransferrer(transferrer)
	} else {
		log.Warn("no payout endpoint configured; payouts are logged, not executed")
		settlementService.AttachTransferrer(settlementsvc.NewLoggingTransferrer(log))
	}

	auctionService := auctionsvc.New(stores.Accounts, stores.Auctions, settlementService, log)
	auctionService.AttachBus(bus)

	identity := strings.TrimSpace(opts.ServiceIdentity)
	if identity == "" {
		identity = "auction-layer"
	}
	auctionService.AttachAssetTransferrer(registry.Transferrer{Service: registryService, Caller: identity})

	for _, name := range []string{"accounts", "registry", "settlement"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	sweeper := auctionsvc.NewSweeper(stores.Auctions, auctionService, opts.SweepSchedule, opts.AutoClose, log)
	sweeper.AttachBus(bus)
	if err := manager.Register(sweeper); err != nil {
		return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
	}

	return &Application{
		manager:    manager,
		log:        log,
		identity:   identity,
		Accounts:   acctService,
		Registry:   registryService,
		Auctions:   auctionService,
		Settlement: settlementService,
		Bus:        bus,
	}, nil
}

// ServiceIdentity returns the identity the auction service transfers assets as.
func (a *Application) ServiceIdentity() string {
	return a.identity
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
