// Package auction defines the falling-price listing model. A listing starts
// at a ceiling price, decays linearly to a reserve floor over its duration,
// and is settled at most once: either by the first purchase at the current
// price or by an explicit operator close after the deadline.
package auction

import "time"

// Status describes the lifecycle position of a listing at a point in time.
type Status string

const (
	// StatusPending means the start time has not been reached yet.
	StatusPending Status = "pending"
	// StatusActive means the listing is open for purchase.
	StatusActive Status = "active"
	// StatusExpired means the deadline passed with no sale and no close yet.
	// The listing can still be purchased at the reserve price until closed.
	StatusExpired Status = "expired"
	// StatusEnded is terminal: settled by purchase or closed unsold.
	StatusEnded Status = "ended"
)

// Listing is a single-item falling-price sale. The configuration fields
// (asset, seller, operator, prices, start, duration) are fixed at creation;
// only the settlement fields mutate, and they mutate exactly once.
type Listing struct {
	ID            string        `json:"id"`
	AssetID       string        `json:"asset_id"`
	Seller        string        `json:"seller"`
	Operator      string        `json:"operator"`
	StartingPrice int64         `json:"starting_price"`
	ReservePrice  int64         `json:"reserve_price"`
	StartTime     time.Time     `json:"start_time"`
	Duration      time.Duration `json:"duration"`

	Ended      bool      `json:"ended"`
	Winner     string    `json:"winner,omitempty"`
	FinalPrice int64     `json:"final_price,omitempty"`
	EndedAt    time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Deadline returns the instant after which the price has fully decayed.
func (l Listing) Deadline() time.Time {
	return l.StartTime.Add(l.Duration)
}

// PriceAt returns the listing price at the given instant. Before the start
// time the price is the starting price; from the deadline onward, or once the
// listing has ended, it is the reserve price. In between the price decays
// linearly using floor division over whole seconds, so it never leaves the
// [reserve, starting] interval and never increases as time advances.
func (l Listing) PriceAt(now time.Time) int64 {
	if l.Ended || !now.Before(l.Deadline()) {
		return l.ReservePrice
	}
	if now.Before(l.StartTime) {
		return l.StartingPrice
	}

	elapsed := int64(now.Sub(l.StartTime) / time.Second)
	duration := int64(l.Duration / time.Second)
	if duration <= 0 {
		return l.ReservePrice
	}
	drop := (l.StartingPrice - l.ReservePrice) * elapsed / duration
	return l.StartingPrice - drop
}

// StatusAt derives the lifecycle status at the given instant.
func (l Listing) StatusAt(now time.Time) Status {
	switch {
	case l.Ended:
		return StatusEnded
	case now.Before(l.StartTime):
		return StatusPending
	case now.Before(l.Deadline()):
		return StatusActive
	default:
		return StatusExpired
	}
}

// TimeRemainingAt returns the time left until the deadline, zero once the
// listing has ended or the deadline has passed.
func (l Listing) TimeRemainingAt(now time.Time) time.Duration {
	if l.Ended {
		return 0
	}
	remaining := l.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot is the read model returned by info queries.
type Snapshot struct {
	Listing       Listing       `json:"listing"`
	Status        Status        `json:"status"`
	CurrentPrice  int64         `json:"current_price"`
	TimeRemaining time.Duration `json:"time_remaining"`
}
