package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	log := New(LoggingConfig{Level: "debug", Format: "json"})

	var buf bytes.Buffer
	log.entry.Logger.SetOutput(&buf)

	log.WithField("listing_id", "42").Info("settled")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "settled" || record["listing_id"] != "42" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	log := New(LoggingConfig{Level: "warn", Format: "json"})

	var buf bytes.Buffer
	log.entry.Logger.SetOutput(&buf)

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn level, got %q", buf.String())
	}

	log.Warnf("shown %d", 1)
	if buf.Len() == 0 {
		t.Fatal("expected warn to be emitted")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	log := New(LoggingConfig{Level: "nonsense", Format: "text"})

	var buf bytes.Buffer
	log.entry.Logger.SetOutput(&buf)

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug suppressed at fallback info level, got %q", buf.String())
	}
}

func TestNewDefaultCarriesComponent(t *testing.T) {
	log := NewDefault("settlement")

	var buf bytes.Buffer
	log.entry.Logger.SetOutput(&buf)

	log.Info("ready")
	if !bytes.Contains(buf.Bytes(), []byte("settlement")) {
		t.Fatalf("expected component field in output, got %q", buf.String())
	}
}
