// Package main implements auctiond, the descending-price auction daemon.
// It exposes the listing, ledger, and asset registry APIs over HTTP and
// runs the deadline sweeper in the background.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	app "github.com/R3E-Network/auction_layer/internal/app"
	"github.com/R3E-Network/auction_layer/internal/app/httpapi"
	"github.com/R3E-Network/auction_layer/internal/app/metrics"
	"github.com/R3E-Network/auction_layer/internal/app/storage/postgres"
	"github.com/R3E-Network/auction_layer/internal/config"
	"github.com/R3E-Network/auction_layer/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	appLog := logger.New(cfg.Logging)

	stores := app.Stores{}
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime.Std())

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := postgres.Apply(migrateCtx, db); err != nil {
			cancel()
			log.Fatalf("Failed to apply migrations: %v", err)
		}
		cancel()

		store := postgres.New(db)
		stores = app.Stores{Accounts: store, Assets: store, Auctions: store, Ledger: store}
		appLog.Info("using postgres storage")
	} else {
		appLog.Warn("no database configured; state is in-memory only")
	}

	application, err := app.New(stores, app.Options{
		SweepSchedule:   cfg.Auction.SweepSchedule,
		AutoClose:       cfg.Auction.AutoClose,
		ServiceIdentity: cfg.Auction.ServiceIdentity,
		PayoutURL:       cfg.Auction.PayoutURL,
		PayoutKey:       cfg.Auction.PayoutKey,
	}, appLog)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application))

	limiter := httpapi.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst, appLog)
	var handler http.Handler = mux
	handler = httpapi.WrapWithAuth(handler, cfg.Server.AuthTokens, appLog)
	handler = limiter.Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLog.WithField("addr", cfg.Server.Addr).Info("auctiond listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	appLog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("application stop")
	}
	if db != nil {
		_ = db.Close()
	}

	appLog.Info("auctiond stopped")
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix("[auctiond] ")
}
