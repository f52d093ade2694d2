// Package asset defines the keyed ownership record managed by the registry
// service: an asset has exactly one owner and a set of approved operators
// allowed to transfer it on the owner's behalf.
package asset

import "time"

// Asset is a registered item of ownership.
type Asset struct {
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	Approved  []string          `json:"approved,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// IsApproved reports whether the operator may transfer the asset on behalf
// of its owner.
func (a Asset) IsApproved(operator string) bool {
	for _, op := range a.Approved {
		if op == operator {
			return true
		}
	}
	return false
}
