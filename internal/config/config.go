package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// Config holds runtime configuration for the auction layer daemon.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Database DatabaseConfig       `yaml:"database"`
	Logging  logger.LoggingConfig `yaml:"logging"`
	Auction  AuctionConfig        `yaml:"auction"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr              string   `yaml:"addr"`
	AuthTokens        []string `yaml:"auth_tokens"`
	RequestsPerSecond int      `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

// DatabaseConfig selects the persistence backend. An empty DSN keeps
// everything in memory.
type DatabaseConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
}

// Duration is a time.Duration that unmarshals from "5m" style YAML values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AuctionConfig tunes auction sweeping and ledger payouts.
type AuctionConfig struct {
	SweepSchedule   string `yaml:"sweep_schedule"`
	AutoClose       bool   `yaml:"auto_close"`
	ServiceIdentity string `yaml:"service_identity"`
	PayoutURL       string `yaml:"payout_url"`
	PayoutKey       string `yaml:"payout_key"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Auction: AuctionConfig{
			SweepSchedule:   "@every 30s",
			ServiceIdentity: "auction-layer",
		},
	}
}

// Load reads configuration from path (optional) and applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.Server.Addr == "" {
		return Config{}, fmt.Errorf("server addr must not be empty")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AUCTION_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("AUCTION_AUTH_TOKENS"); v != "" {
		cfg.Server.AuthTokens = splitTokens(v)
	}
	if v := os.Getenv("AUCTION_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.RequestsPerSecond = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUCTION_SWEEP_SCHEDULE"); v != "" {
		cfg.Auction.SweepSchedule = v
	}
	if v := os.Getenv("AUCTION_AUTO_CLOSE"); v != "" {
		cfg.Auction.AutoClose = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("AUCTION_SERVICE_IDENTITY"); v != "" {
		cfg.Auction.ServiceIdentity = v
	}
	if v := os.Getenv("LEDGER_PAYOUT_URL"); v != "" {
		cfg.Auction.PayoutURL = v
	}
	if v := os.Getenv("LEDGER_PAYOUT_KEY"); v != "" {
		cfg.Auction.PayoutKey = v
	}
}

func splitTokens(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}
