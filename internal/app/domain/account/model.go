package account

import "time"

// Account represents an identity known to the auction layer: a seller, a
// buyer, or an operator.
type Account struct {
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
