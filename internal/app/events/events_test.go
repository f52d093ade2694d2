package events

import (
	"testing"
	"time"
)

func TestPublishStampsAndDelivers(t *testing.T) {
	bus := NewBus(8)

	var got []Event
	bus.Subscribe(func(evt Event) { got = append(got, evt) })

	published := bus.Publish(Event{Type: TypeListingCreated, ListingID: "1"})
	if published.ID == "" {
		t.Fatal("expected publish to assign an ID")
	}
	if published.Timestamp.IsZero() {
		t.Fatal("expected publish to assign a timestamp")
	}
	if len(got) != 1 || got[0].ID != published.ID {
		t.Fatalf("expected delivery of published event, got %v", got)
	}
}

func TestPublishPreservesExplicitTimestamp(t *testing.T) {
	bus := NewBus(8)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	published := bus.Publish(Event{Type: TypeListingPurchased, Timestamp: at})
	if !published.Timestamp.Equal(at) {
		t.Fatalf("expected timestamp %s preserved, got %s", at, published.Timestamp)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(8)

	count := 0
	unsubscribe := bus.Subscribe(func(Event) { count++ })

	bus.Publish(Event{Type: TypeListingCreated})
	unsubscribe()
	bus.Publish(Event{Type: TypeListingClosed})

	if count != 1 {
		t.Fatalf("expected one delivery after unsubscribe, got %d", count)
	}
}

func TestRecentBoundedHistory(t *testing.T) {
	bus := NewBus(3)

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: TypeLedgerCredited, Amount: int64(i)})
	}

	recent := bus.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(recent))
	}
	if recent[0].Amount != 2 || recent[2].Amount != 4 {
		t.Fatalf("expected oldest-first window [2..4], got %v", recent)
	}

	last := bus.Recent(1)
	if len(last) != 1 || last[0].Amount != 4 {
		t.Fatalf("expected newest event, got %v", last)
	}
}
