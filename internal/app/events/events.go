// Package events provides the auction layer's notification bus. Settlement
// operations publish typed events (purchase completed, listing closed,
// withdrawal paid) that subscribers such as the websocket stream consume.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies an event.
type Type string

const (
	TypeListingCreated   Type = "auction.created"
	TypeListingPurchased Type = "auction.purchased"
	TypeListingClosed    Type = "auction.closed"
	TypeListingExpired   Type = "auction.expired"
	TypeLedgerCredited   Type = "ledger.credited"
	TypeLedgerWithdrawn  Type = "ledger.withdrawn"
)

// Event is a single notification. Amount carries the price, credit, or
// payout value depending on the type.
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	ListingID string            `json:"listing_id,omitempty"`
	Identity  string            `json:"identity,omitempty"`
	Amount    int64             `json:"amount,omitempty"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Handler processes events as they are published.
type Handler func(Event)

// Bus fans published events out to subscribers and keeps a bounded history
// of recent events for late joiners.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
	recent   []Event
	capacity int
}

// NewBus creates a bus retaining the given number of recent events.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	return &Bus{
		handlers: make(map[int]Handler),
		capacity: capacity,
	}
}

// Publish stamps the event with an ID and timestamp and delivers it to every
// subscriber synchronously in publish order.
func (b *Bus) Publish(evt Event) Event {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.recent = append(b.recent, evt)
	if len(b.recent) > b.capacity {
		b.recent = b.recent[len(b.recent)-b.capacity:]
	}
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
	return evt
}

// Subscribe registers a handler and returns its unsubscribe function.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Recent returns up to n of the most recently published events, oldest first.
func (b *Bus) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > len(b.recent) {
		n = len(b.recent)
	}
	return append([]Event(nil), b.recent[len(b.recent)-n:]...)
}
