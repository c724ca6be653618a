package domain

// ResolutionOutcome classifies a completed projection attempt.
type ResolutionOutcome string

const (
	OutcomeOK       ResolutionOutcome = "OK"
	OutcomeDegraded ResolutionOutcome = "DEGRADED"
	OutcomeNotFound ResolutionOutcome = "NOT_FOUND"
	OutcomeError    ResolutionOutcome = "ERROR"
)

// ResolutionLogEntry is one row of the append-only resolution audit
// log. Corresponds to the resolution_log table in ClickHouse.
type ResolutionLogEntry struct {
	CircleID     string
	ResolvedAtMs int64 // Unix timestamp in milliseconds
	Outcome      ResolutionOutcome
	DurationMs   int64 // wall time of the projection
	MemberCount  int
	Flags        SnapshotFlags
}
