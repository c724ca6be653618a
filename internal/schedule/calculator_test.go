package schedule

import (
	"errors"
	"testing"
	"time"

	"circle-resolver/internal/domain"
)

func TestNextPayout_Weekly(t *testing.T) {
	// Wednesday 2026-03-04 15:30 UTC
	from := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cycleDay int // Monday=0
		want     time.Time
	}{
		{"later this week", 4, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)},   // Friday
		{"earlier weekday rolls over", 0, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)}, // next Monday
		{"same weekday rolls to next week", 2, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
		{"sunday", 6, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPayout(domain.CycleWeekly, tt.cycleDay, from, true)
			if err != nil {
				t.Fatalf("NextPayout failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextPayout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextPayout_Weekly_ExactMidnightIsToday(t *testing.T) {
	// Exactly midnight on the target weekday: no time has elapsed, the
	// payout is today.
	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC) // Wednesday 00:00
	got, err := NextPayout(domain.CycleWeekly, 2, from, true)
	if err != nil {
		t.Fatalf("NextPayout failed: %v", err)
	}
	if !got.Equal(from) {
		t.Errorf("NextPayout = %v, want %v (today)", got, from)
	}
}

func TestNextPayout_BiWeekly_SharesWeekdayMath(t *testing.T) {
	from := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

	weekly, err := NextPayout(domain.CycleWeekly, 4, from, true)
	if err != nil {
		t.Fatalf("weekly failed: %v", err)
	}
	biweekly, err := NextPayout(domain.CycleBiWeekly, 4, from, true)
	if err != nil {
		t.Fatalf("biweekly failed: %v", err)
	}
	if !weekly.Equal(biweekly) {
		t.Errorf("bi-weekly date %v differs from weekly %v", biweekly, weekly)
	}
}

func TestNextPayout_Monthly(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		cycleDay int
		want     time.Time
	}{
		{
			"later this month",
			time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
			15,
			time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"passed, next month",
			time.Date(2026, 3, 20, 15, 30, 0, 0, time.UTC),
			15,
			time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"same day before noon",
			time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC),
			15,
			time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"same day after noon rolls over",
			time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC),
			15,
			time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"december rolls to january",
			time.Date(2026, 12, 28, 13, 0, 0, 0, time.UTC),
			15,
			time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPayout(domain.CycleMonthly, tt.cycleDay, tt.from, true)
			if err != nil {
				t.Fatalf("NextPayout failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextPayout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextPayout_Quarterly(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		cycleDay int
		want     time.Time
	}{
		{
			"within current quarter start month",
			time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC),
			15,
			time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"mid-quarter advances to next quarter",
			time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			15,
			time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			"q4 rolls into next year",
			time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
			15,
			time.Date(2027, 1, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPayout(domain.CycleQuarterly, tt.cycleDay, tt.from, true)
			if err != nil {
				t.Fatalf("NextPayout failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextPayout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextPayout_InvalidCycleDay(t *testing.T) {
	from := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cycleType domain.CycleType
		cycleDay  int
	}{
		{"weekly day 7", domain.CycleWeekly, 7},
		{"weekly negative", domain.CycleWeekly, -1},
		{"monthly day 0", domain.CycleMonthly, 0},
		{"monthly day 29", domain.CycleMonthly, 29},
		{"quarterly day 31", domain.CycleQuarterly, 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextPayout(tt.cycleType, tt.cycleDay, from, true)
			var invErr *domain.InvariantError
			if !errors.As(err, &invErr) {
				t.Fatalf("Expected InvariantError, got %v", err)
			}
		})
	}
}

func TestNextPayout_InactivePreviewsSchedule(t *testing.T) {
	from := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

	active, err := NextPayout(domain.CycleWeekly, 4, from, true)
	if err != nil {
		t.Fatalf("active failed: %v", err)
	}
	inactive, err := NextPayout(domain.CycleWeekly, 4, from, false)
	if err != nil {
		t.Fatalf("inactive failed: %v", err)
	}
	if !active.Equal(inactive) {
		t.Errorf("inactive preview %v differs from active %v", inactive, active)
	}

	potential, err := PotentialNextPayout(domain.CycleWeekly, 4, from)
	if err != nil {
		t.Fatalf("potential failed: %v", err)
	}
	if !potential.Equal(active) {
		t.Errorf("PotentialNextPayout = %v, want %v", potential, active)
	}
}

func TestNextPayout_NonUTCInputNormalized(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 2026-03-06 02:00 +05 is 2026-03-05 21:00 UTC, a Thursday.
	from := time.Date(2026, 3, 6, 2, 0, 0, 0, loc)

	got, err := NextPayout(domain.CycleWeekly, 4, from, true) // Friday
	if err != nil {
		t.Fatalf("NextPayout failed: %v", err)
	}
	want := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextPayout = %v, want %v", got, want)
	}
}
