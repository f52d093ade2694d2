package auction

import (
	"testing"
	"time"
)

func sampleListing() Listing {
	return Listing{
		ID:            "listing-1",
		AssetID:       "asset-1",
		Seller:        "alice",
		Operator:      "alice",
		StartingPrice: 10000,
		ReservePrice:  1000,
		StartTime:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Duration:      1000 * time.Second,
	}
}

func TestPriceAtEndpoints(t *testing.T) {
	l := sampleListing()

	if got := l.PriceAt(l.StartTime); got != 10000 {
		t.Fatalf("expected starting price at start, got %d", got)
	}
	if got := l.PriceAt(l.StartTime.Add(-time.Minute)); got != 10000 {
		t.Fatalf("expected starting price before start, got %d", got)
	}
	if got := l.PriceAt(l.Deadline()); got != 1000 {
		t.Fatalf("expected reserve price at deadline, got %d", got)
	}
	if got := l.PriceAt(l.Deadline().Add(time.Hour)); got != 1000 {
		t.Fatalf("expected reserve price after deadline, got %d", got)
	}
}

func TestPriceAtLinearDecay(t *testing.T) {
	l := sampleListing()

	// 10000 -> 1000 over 1000s decays 9 per second.
	cases := []struct {
		elapsed time.Duration
		want    int64
	}{
		{0, 10000},
		{1 * time.Second, 9991},
		{500 * time.Second, 5500},
		{999 * time.Second, 1009},
	}
	for _, tc := range cases {
		got := l.PriceAt(l.StartTime.Add(tc.elapsed))
		if got != tc.want {
			t.Fatalf("price at +%s: expected %d, got %d", tc.elapsed, tc.want, got)
		}
	}
}

func TestPriceAtFloorsSubSecondElapsed(t *testing.T) {
	l := sampleListing()

	// Partial seconds do not move the price.
	at := l.StartTime.Add(500*time.Second + 900*time.Millisecond)
	if got := l.PriceAt(at); got != 5500 {
		t.Fatalf("expected 5500 at 500.9s, got %d", got)
	}
}

func TestPriceAtNeverIncreases(t *testing.T) {
	l := Listing{
		StartingPrice: 7777,
		ReservePrice:  13,
		StartTime:     time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Duration:      3600 * time.Second,
	}

	prev := l.StartingPrice
	for elapsed := time.Duration(0); elapsed <= l.Duration; elapsed += time.Second {
		p := l.PriceAt(l.StartTime.Add(elapsed))
		if p > prev {
			t.Fatalf("price increased from %d to %d at +%s", prev, p, elapsed)
		}
		if p < l.ReservePrice || p > l.StartingPrice {
			t.Fatalf("price %d outside [%d, %d] at +%s", p, l.ReservePrice, l.StartingPrice, elapsed)
		}
		prev = p
	}
}

func TestPriceAtEndedListing(t *testing.T) {
	l := sampleListing()
	l.Ended = true

	if got := l.PriceAt(l.StartTime.Add(10 * time.Second)); got != l.ReservePrice {
		t.Fatalf("expected reserve price for ended listing, got %d", got)
	}
}

func TestStatusAt(t *testing.T) {
	l := sampleListing()

	if got := l.StatusAt(l.StartTime.Add(-time.Second)); got != StatusPending {
		t.Fatalf("expected pending before start, got %s", got)
	}
	if got := l.StatusAt(l.StartTime); got != StatusActive {
		t.Fatalf("expected active at start, got %s", got)
	}
	if got := l.StatusAt(l.Deadline()); got != StatusExpired {
		t.Fatalf("expected expired at deadline, got %s", got)
	}

	l.Ended = true
	if got := l.StatusAt(l.StartTime); got != StatusEnded {
		t.Fatalf("expected ended, got %s", got)
	}
}

func TestTimeRemainingAt(t *testing.T) {
	l := sampleListing()

	if got := l.TimeRemainingAt(l.StartTime.Add(400 * time.Second)); got != 600*time.Second {
		t.Fatalf("expected 600s remaining, got %s", got)
	}
	if got := l.TimeRemainingAt(l.Deadline().Add(time.Minute)); got != 0 {
		t.Fatalf("expected zero remaining after deadline, got %s", got)
	}

	l.Ended = true
	if got := l.TimeRemainingAt(l.StartTime); got != 0 {
		t.Fatalf("expected zero remaining for ended listing, got %s", got)
	}
}
