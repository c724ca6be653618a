// Package money converts between USD cents (the canonical unit) and
// native-token amounts (a derived projection of USD and the current
// exchange rate).
package money

import (
	"math"

	"circle-resolver/internal/domain"
)

const (
	// AtomicUnitsPerToken is the chain's fixed decimal exponent:
	// amounts stored on the ledger in atomic integer units are divided
	// by this exactly once at the extraction boundary.
	AtomicUnitsPerToken = 1_000_000_000

	// ImplausibleNativeCeiling marks a raw native amount as unusable.
	// A stale or wrongly-scaled field can read as millions of tokens;
	// anything above this is discarded and re-derived from USD.
	ImplausibleNativeCeiling = 1_000_000.0

	// CentsPerDollar converts USD cents to decimal dollars.
	CentsPerDollar = 100
)

// FromAtomic converts ledger atomic units to decimal token units.
func FromAtomic(atomic float64) float64 {
	return atomic / AtomicUnitsPerToken
}

// ToNative converts a USD cents amount to native tokens at the given
// rate (native-token price in USD). A non-positive or NaN rate
// returns 0 with ErrRateUnavailable instead of dividing by zero.
func ToNative(usdCents int64, rate float64) (float64, error) {
	if !rateUsable(rate) {
		return 0, domain.ErrRateUnavailable
	}
	return float64(usdCents) / CentsPerDollar / rate, nil
}

// ToUSDCents converts a native-token amount to USD cents at the given
// rate, rounded to the nearest cent.
func ToUSDCents(native float64, rate float64) (int64, error) {
	if !rateUsable(rate) {
		return 0, domain.ErrRateUnavailable
	}
	return int64(math.Round(native * rate * CentsPerDollar)), nil
}

// Reconcile returns the trustworthy native amount for a USD cents
// amount. When the raw on-chain native value is zero, NaN, or above
// the implausibility ceiling it is discarded and re-derived from USD;
// the second return reports whether that fallback fired.
func Reconcile(rawNative float64, usdCents int64, rate float64) (float64, bool, error) {
	if rawNative > 0 && !math.IsNaN(rawNative) && rawNative <= ImplausibleNativeCeiling {
		return rawNative, false, nil
	}

	derived, err := ToNative(usdCents, rate)
	if err != nil {
		return 0, true, err
	}
	return derived, true, nil
}

func rateUsable(rate float64) bool {
	return rate > 0 && !math.IsNaN(rate) && !math.IsInf(rate, 0)
}
