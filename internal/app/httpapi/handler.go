package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/R3E-Network/auction_layer/internal/app"
	auctionsvc "github.com/R3E-Network/auction_layer/internal/app/services/auction"
	"github.com/R3E-Network/auction_layer/internal/app/services/registry"
	settlementsvc "github.com/R3E-Network/auction_layer/internal/app/services/settlement"
	"github.com/R3E-Network/auction_layer/internal/app/storage"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthz)
	mux.HandleFunc("/accounts", h.accounts)
	mux.HandleFunc("/accounts/", h.accountResources)
	mux.HandleFunc("/assets", h.assets)
	mux.HandleFunc("/assets/", h.assetResources)
	mux.HandleFunc("/listings", h.listings)
	mux.HandleFunc("/listings/", h.listingResources)
	mux.HandleFunc("/ledger/", h.ledgerResources)
	mux.HandleFunc("/events/stream", h.eventStream)
	mux.HandleFunc("/events/recent", h.eventsRecent)
	return mux
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (h *handler) accounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Owner    string            `json:"owner"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		acct, err := h.app.Accounts.Create(r.Context(), payload.Owner, payload.Metadata)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, acct)

	case http.MethodGet:
		accts, err := h.app.Accounts.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, accts)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) accountResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/accounts"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	accountID := parts[0]

	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		acct, err := h.app.Accounts.Get(r.Context(), accountID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	case http.MethodDelete:
		if err := h.app.Accounts.Delete(r.Context(), accountID); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, storage.ErrNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) assets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			ID       string            `json:"id"`
			Owner    string            `json:"owner"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		item, err := h.app.Registry.Register(r.Context(), payload.Owner, payload.ID, payload.Metadata)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, item)

	case http.MethodGet:
		owner := r.URL.Query().Get("owner")
		items, err := h.app.Registry.List(r.Context(), owner)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) assetResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/assets"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	assetID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		item, err := h.app.Registry.Get(r.Context(), assetID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	switch parts[1] {
	case "approve":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Caller   string `json:"caller"`
			Operator string `json:"operator"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := h.app.Registry.Approve(r.Context(), payload.Caller, assetID, payload.Operator)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, item)

	case "transfer":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Caller string `json:"caller"`
			From   string `json:"from"`
			To     string `json:"to"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := h.app.Registry.Transfer(r.Context(), payload.Caller, assetID, payload.From, payload.To); err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) listings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			AssetID       string `json:"asset_id"`
			Seller        string `json:"seller"`
			Operator      string `json:"operator"`
			StartingPrice int64  `json:"starting_price"`
			ReservePrice  int64  `json:"reserve_price"`
			DurationSecs  int64  `json:"duration_seconds"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		listing, err := h.app.Auctions.Create(r.Context(), auctionsvc.CreateParams{
			AssetID:       payload.AssetID,
			Seller:        payload.Seller,
			Operator:      payload.Operator,
			StartingPrice: payload.StartingPrice,
			ReservePrice:  payload.ReservePrice,
			Duration:      time.Duration(payload.DurationSecs) * time.Second,
		})
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, listing)

	case http.MethodGet:
		seller := r.URL.Query().Get("seller")
		listings, err := h.app.Auctions.List(r.Context(), seller)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, listings)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) listingResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/listings"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	listingID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		snapshot, err := h.app.Auctions.Info(r.Context(), listingID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	switch parts[1] {
	case "purchase":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Buyer   string `json:"buyer"`
			Payment int64  `json:"payment"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		listing, err := h.app.Auctions.Purchase(r.Context(), listingID, payload.Buyer, payload.Payment)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, listing)

	case "close":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Caller string `json:"caller"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		listing, err := h.app.Auctions.Close(r.Context(), listingID, payload.Caller)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, listing)

	case "price":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		price, err := h.app.Auctions.CurrentPrice(r.Context(), listingID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"price": price})

	case "remaining":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		remaining, err := h.app.Auctions.TimeRemaining(r.Context(), listingID)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"remaining_seconds": int64(remaining / time.Second)})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) ledgerResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ledger"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	identity := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		balance, err := h.app.Settlement.Balance(r.Context(), identity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, balance)
		return
	}

	switch parts[1] {
	case "withdraw":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entry, err := h.app.Settlement.Withdraw(r.Context(), identity)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, entry)

	case "entries":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		entries, err := h.app.Settlement.Entries(r.Context(), identity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) eventsRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Bus.Recent(50))
}

// statusForError maps service sentinels onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auctionsvc.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, auctionsvc.ErrNotYetOpen),
		errors.Is(err, auctionsvc.ErrAlreadySettled),
		errors.Is(err, auctionsvc.ErrStillActive),
		errors.Is(err, auctionsvc.ErrSelfPurchase),
		errors.Is(err, settlementsvc.ErrNothingOwed):
		return http.StatusConflict
	case errors.Is(err, auctionsvc.ErrPaymentTooLow):
		return http.StatusPaymentRequired
	case errors.Is(err, auctionsvc.ErrNotOperator),
		errors.Is(err, registry.ErrNotAuthorized),
		errors.Is(err, registry.ErrWrongOwner):
		return http.StatusForbidden
	case errors.Is(err, auctionsvc.ErrTransferFailed),
		errors.Is(err, settlementsvc.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
