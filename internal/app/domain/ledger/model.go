// Package ledger defines the pull-payment settlement model: per-identity
// pending balances that are credited during auction settlement and paid out
// only by an explicit withdrawal from the owning identity.
package ledger

import "time"

// Balance is the pending amount owed to one identity.
type Balance struct {
	Identity  string    `json:"identity"`
	Pending   int64     `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntryType classifies a journal entry.
type EntryType string

const (
	EntryCredit  EntryType = "credit"
	EntryReverse EntryType = "reverse"
	EntryPayout  EntryType = "payout"
)

// Status records the outcome of a journal entry.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Entry journals one movement of value: a credit into the ledger, a reversal
// compensating a failed settlement, or a payout to the identity. Amount is
// positive for credits and negative for reversals and payouts; BalanceAfter
// is the identity's pending balance once the entry took effect.
type Entry struct {
	ID           string    `json:"id"`
	Identity     string    `json:"identity"`
	Type         EntryType `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Reference    string    `json:"reference,omitempty"`
	Status       Status    `json:"status"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
