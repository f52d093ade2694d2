package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPTransferrerCompleted(t *testing.T) {
	var seen struct {
		Recipient string `json:"recipient"`
		Amount    int64  `json:"amount"`
	}
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode payout request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"completed","reference":"tx-1"}`))
	}))
	defer server.Close()

	transfer, err := NewHTTPTransferrer(server.Client(), server.URL, "payout-key", nil)
	if err != nil {
		t.Fatalf("build transferrer failed: %v", err)
	}

	if err := transfer.TransferValue(context.Background(), "alice", 750); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if seen.Recipient != "alice" || seen.Amount != 750 {
		t.Fatalf("unexpected payout request %+v", seen)
	}
	if gotAuth != "Bearer payout-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
}

func TestHTTPTransferrerRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"declined","message":"recipient frozen"}`))
	}))
	defer server.Close()

	transfer, err := NewHTTPTransferrer(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("build transferrer failed: %v", err)
	}

	if err := transfer.TransferValue(context.Background(), "alice", 100); err == nil {
		t.Fatal("expected rejected payout to fail")
	}
}

func TestHTTPTransferrerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	transfer, err := NewHTTPTransferrer(server.Client(), server.URL, "", nil)
	if err != nil {
		t.Fatalf("build transferrer failed: %v", err)
	}

	if err := transfer.TransferValue(context.Background(), "alice", 100); err == nil {
		t.Fatal("expected 5xx payout to fail")
	}
}

func TestNewHTTPTransferrerRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPTransferrer(nil, "   ", "", nil); err == nil {
		t.Fatal("expected missing endpoint to be rejected")
	}
}
