package price

import (
	"context"
	"testing"
	"time"
)

// countingSource returns queued quotes in order, counting calls.
type countingSource struct {
	quotes []Quote
	calls  int
}

func (s *countingSource) GetPrice(_ context.Context) Quote {
	idx := s.calls
	s.calls++
	if idx >= len(s.quotes) {
		return s.quotes[len(s.quotes)-1]
	}
	return s.quotes[idx]
}

func TestCached_ServesFreshValueWithoutRefetch(t *testing.T) {
	clock := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	src := &countingSource{quotes: []Quote{{Value: 1.25, Status: StatusOK}}}
	c := NewCached(src, WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	first := c.GetPrice(context.Background())
	if first.Value != 1.25 || first.Status != StatusOK {
		t.Fatalf("first = %+v", first)
	}

	clock = clock.Add(30 * time.Second)
	second := c.GetPrice(context.Background())
	if second.Value != 1.25 || second.Status != StatusOK {
		t.Fatalf("second = %+v", second)
	}
	if src.calls != 1 {
		t.Errorf("calls = %d, want 1 (second served from cache)", src.calls)
	}
}

func TestCached_RefreshesAfterTTL(t *testing.T) {
	clock := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	src := &countingSource{quotes: []Quote{
		{Value: 1.25, Status: StatusOK},
		{Value: 1.30, Status: StatusOK},
	}}
	c := NewCached(src, WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	c.GetPrice(context.Background())
	clock = clock.Add(2 * time.Minute)

	got := c.GetPrice(context.Background())
	if got.Value != 1.30 {
		t.Errorf("Value = %v, want refreshed 1.30", got.Value)
	}
	if src.calls != 2 {
		t.Errorf("calls = %d, want 2", src.calls)
	}
}

func TestCached_FailedRefreshServesStale(t *testing.T) {
	clock := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	src := &countingSource{quotes: []Quote{
		{Value: 1.25, Status: StatusOK},
		{Status: StatusError},
	}}
	c := NewCached(src, WithTTL(time.Minute), WithClock(func() time.Time { return clock }))

	c.GetPrice(context.Background())
	clock = clock.Add(2 * time.Minute)

	got := c.GetPrice(context.Background())
	if got.Status != StatusStale {
		t.Errorf("Status = %q, want stale", got.Status)
	}
	if got.Value != 1.25 {
		t.Errorf("Value = %v, want last known 1.25", got.Value)
	}
}

func TestCached_NeverFetchedErrors(t *testing.T) {
	src := &countingSource{quotes: []Quote{{Status: StatusError}}}
	c := NewCached(src)

	got := c.GetPrice(context.Background())
	if got.Status != StatusError {
		t.Errorf("Status = %q, want error with no prior value", got.Status)
	}
	if got.Usable() {
		t.Error("Error quote must not be usable")
	}
}

func TestQuoteUsable(t *testing.T) {
	tests := []struct {
		quote Quote
		want  bool
	}{
		{Quote{Value: 1.25, Status: StatusOK}, true},
		{Quote{Value: 1.25, Status: StatusStale}, true},
		{Quote{Status: StatusError}, false},
		{Quote{Value: 0, Status: StatusOK}, false},
	}

	for _, tt := range tests {
		if got := tt.quote.Usable(); got != tt.want {
			t.Errorf("Usable(%+v) = %v, want %v", tt.quote, got, tt.want)
		}
	}
}
