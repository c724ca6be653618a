// Package schedule computes payout instants for the four cycle types.
// All computed instants are normalized to a fixed time-of-day (midnight
// UTC for weekday cycles, noon UTC for day-of-month cycles) so client
// and ledger never drift apart across timezones.
package schedule

import (
	"time"

	"circle-resolver/internal/domain"
)

// NextPayout computes the next payout instant strictly from the
// circle's cycle configuration. For inactive circles it previews the
// schedule as if the circle activated now; active and inactive
// computation are identical, the flag exists so call sites read
// correctly at the boundary.
func NextPayout(cycleType domain.CycleType, cycleDay int, from time.Time, isActive bool) (time.Time, error) {
	_ = isActive
	return compute(cycleType, cycleDay, from)
}

// PotentialNextPayout previews the payout schedule for a circle that
// has not activated yet.
func PotentialNextPayout(cycleType domain.CycleType, cycleDay int, from time.Time) (time.Time, error) {
	return compute(cycleType, cycleDay, from)
}

func compute(cycleType domain.CycleType, cycleDay int, from time.Time) (time.Time, error) {
	if !cycleType.ValidDay(cycleDay) {
		return time.Time{}, &domain.InvariantError{CycleType: cycleType, CycleDay: cycleDay}
	}

	from = from.UTC()

	switch cycleType {
	case domain.CycleWeekly, domain.CycleBiWeekly:
		// Bi-weekly shares the weekday arithmetic: the fortnight
		// distinction affects contribution cadence accounting, not
		// the date computation.
		return nextWeekday(cycleDay, from), nil
	case domain.CycleMonthly:
		return nextMonthly(cycleDay, from, 1), nil
	case domain.CycleQuarterly:
		return nextQuarterly(cycleDay, from), nil
	}

	return time.Time{}, &domain.InvariantError{CycleType: cycleType, CycleDay: cycleDay}
}

// nextWeekday finds the next occurrence of target weekday (Monday=0)
// at midnight UTC. If the target is today and the day has already
// begun, the payout rolls to next week.
func nextWeekday(target int, from time.Time) time.Time {
	weekday := (int(from.Weekday()) + 6) % 7 // Monday=0
	days := (target - weekday + 7) % 7

	candidate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	candidate = candidate.AddDate(0, 0, days)

	if candidate.Before(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// nextMonthly finds the next occurrence of target day-of-month at noon
// UTC, advancing by step months when this month's date has passed.
func nextMonthly(target int, from time.Time, step int) time.Time {
	candidate := monthlyCandidate(from.Year(), from.Month(), target)
	if candidate.Before(from) {
		year, month := addMonths(from.Year(), from.Month(), step)
		candidate = monthlyCandidate(year, month, target)
	}
	return candidate
}

// nextQuarterly is monthly computation anchored to quarter start
// months (Jan, Apr, Jul, Oct), advancing in 3-month increments with
// year rollover.
func nextQuarterly(target int, from time.Time) time.Time {
	quarterStart := time.Month((int(from.Month())-1)/3*3 + 1)

	candidate := monthlyCandidate(from.Year(), quarterStart, target)
	if candidate.Before(from) {
		year, month := addMonths(from.Year(), quarterStart, 3)
		candidate = monthlyCandidate(year, month, target)
	}
	return candidate
}

// monthlyCandidate builds a noon-UTC instant on the target day,
// clamped to the month's last valid day. Input validation constrains
// the day to 1-28 so the clamp only fires on defensive paths.
func monthlyCandidate(year int, month time.Month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func addMonths(year int, month time.Month, step int) (int, time.Month) {
	m := int(month) + step
	for m > 12 {
		m -= 12
		year++
	}
	return year, time.Month(m)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
