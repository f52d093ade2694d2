package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected default addr %q", cfg.Server.Addr)
	}
	if cfg.Auction.SweepSchedule != "@every 30s" {
		t.Fatalf("unexpected default sweep schedule %q", cfg.Auction.SweepSchedule)
	}
	if cfg.Auction.ServiceIdentity != "auction-layer" {
		t.Fatalf("unexpected default identity %q", cfg.Auction.ServiceIdentity)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  addr: ":9999"
  auth_tokens: ["tok-1", "tok-2"]
database:
  dsn: "postgres://localhost/auction"
  max_open_conns: 25
  conn_max_lifetime: 5m
logging:
  level: debug
auction:
  sweep_schedule: "@every 5s"
  auto_close: true
  service_identity: settlement-bot
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" || len(cfg.Server.AuthTokens) != 2 {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Database.MaxOpenConns != 25 || cfg.Database.ConnMaxLifetime.Std() != 5*time.Minute {
		t.Fatalf("unexpected database config %+v", cfg.Database)
	}
	if !cfg.Auction.AutoClose || cfg.Auction.ServiceIdentity != "settlement-bot" {
		t.Fatalf("unexpected auction config %+v", cfg.Auction)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUCTION_ADDR", ":7070")
	t.Setenv("AUCTION_AUTH_TOKENS", "a, b ,,c")
	t.Setenv("AUCTION_AUTO_CLOSE", "TRUE")
	t.Setenv("DATABASE_URL", "postgres://override/db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("expected env addr, got %q", cfg.Server.Addr)
	}
	if len(cfg.Server.AuthTokens) != 3 {
		t.Fatalf("expected 3 tokens, got %v", cfg.Server.AuthTokens)
	}
	if !cfg.Auction.AutoClose {
		t.Fatal("expected auto close enabled via env")
	}
	if cfg.Database.DSN != "postgres://override/db" {
		t.Fatalf("unexpected DSN %q", cfg.Database.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
