package domain

// SnapshotFlags records the degradations applied while assembling a
// ResolvedCircle. A zero value means every source resolved cleanly.
// No numeric field in the snapshot is ever silently coerced to zero
// without the corresponding flag being set.
type SnapshotFlags struct {
	RateUnavailable       bool // price quote missing or invalid; native amounts are zero
	RateStale             bool // quote served from an expired cache entry
	NextPayoutUnavailable bool // schedule computation failed (invalid cycle day)
	MembershipTruncated   bool // event paging hit the page limit; count is a lower bound
	MembershipApproximate bool // event query failed; count from reported scalar field
	NativeFallback        bool // raw native amount implausible, re-derived from USD
}

// Degraded reports whether any fallback was applied.
func (f SnapshotFlags) Degraded() bool {
	return f.RateUnavailable || f.NextPayoutUnavailable ||
		f.MembershipTruncated || f.MembershipApproximate || f.NativeFallback
}

// ResolvedCircle is the externally consumed snapshot of one circle.
// Immutable once constructed; a new fetch produces a new, independent
// snapshot. The engine holds no long-lived state behind it.
type ResolvedCircle struct {
	Config         CircleConfig
	Members        *MembershipSet
	CurrentMembers int            // |Members|, or the reported count when approximate
	CustodyWallet  string         // escrow object id, empty when none was found
	Deposit        *DepositRecord // nil unless a viewer address was supplied
	Flags          SnapshotFlags
	ResolvedAtMs   int64 // Unix timestamp in milliseconds
}
