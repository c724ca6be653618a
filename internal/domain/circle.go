package domain

import "time"

// CycleType represents the recurring contribution/payout period of a circle.
type CycleType string

const (
	CycleWeekly    CycleType = "WEEKLY"
	CycleBiWeekly  CycleType = "BI_WEEKLY"
	CycleMonthly   CycleType = "MONTHLY"
	CycleQuarterly CycleType = "QUARTERLY"
)

// String returns the string representation of CycleType.
func (c CycleType) String() string {
	return string(c)
}

// IsValid checks if the cycle type is a valid value.
func (c CycleType) IsValid() bool {
	switch c {
	case CycleWeekly, CycleBiWeekly, CycleMonthly, CycleQuarterly:
		return true
	}
	return false
}

// ValidDay reports whether day is in range for this cycle type.
// Weekly/BiWeekly use weekday 0-6 (Monday=0); Monthly/Quarterly
// use day-of-month 1-28 so every month has the payout day.
func (c CycleType) ValidDay(day int) bool {
	switch c {
	case CycleWeekly, CycleBiWeekly:
		return day >= 0 && day <= 6
	case CycleMonthly, CycleQuarterly:
		return day >= 1 && day <= 28
	}
	return false
}

// CycleTypeFromCode maps the ledger's integer encoding to a CycleType.
func CycleTypeFromCode(code int) (CycleType, bool) {
	switch code {
	case 0:
		return CycleWeekly, true
	case 1:
		return CycleBiWeekly, true
	case 2:
		return CycleMonthly, true
	case 3:
		return CycleQuarterly, true
	}
	return "", false
}

// RotationStyle represents how payout order is determined.
type RotationStyle string

const (
	RotationFixed        RotationStyle = "FIXED"
	RotationAuctionBased RotationStyle = "AUCTION_BASED"
)

// String returns the string representation of RotationStyle.
func (r RotationStyle) String() string {
	return string(r)
}

// IsValid checks if the rotation style is a valid value.
func (r RotationStyle) IsValid() bool {
	return r == RotationFixed || r == RotationAuctionBased
}

// RotationStyleFromCode maps the ledger's integer encoding to a RotationStyle.
func RotationStyleFromCode(code int) (RotationStyle, bool) {
	switch code {
	case 0:
		return RotationFixed, true
	case 1:
		return RotationAuctionBased, true
	}
	return "", false
}

// Member count bounds enforced at circle creation.
const (
	MinMembers = 3
	MaxMembers = 20
)

// CircleConfig is the canonical, resolved configuration for one circle.
// USD cents fields are the source of truth; native-token fields are
// derived projections and always re-derivable from cents and the
// current exchange rate.
type CircleConfig struct {
	CircleID                 string        // ledger object identifier, immutable
	Admin                    string        // admin address, immutable
	ContributionAmountCents  int64         // per-cycle contribution, USD cents
	ContributionAmountNative float64       // derived native-token projection
	SecurityDepositCents     int64         // required security deposit, USD cents
	SecurityDepositNative    float64       // derived native-token projection
	CycleType                CycleType     // WEEKLY | BI_WEEKLY | MONTHLY | QUARTERLY
	CycleDay                 int           // weekday 0-6 or day-of-month 1-28
	MaxMembers               int           // 3-20
	RotationStyle            RotationStyle // FIXED | AUCTION_BASED
	IsActive                 bool
	NextPayoutAt             time.Time // zero when inactive or unavailable
	ReportedMemberCount      int       // scalar count reported by the circle object
}
