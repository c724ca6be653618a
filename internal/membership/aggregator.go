// Package membership aggregates a circle's member set from the
// append-only member-joined event log.
package membership

import (
	"context"
	"fmt"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
)

// Paging limits for the event query. Hitting MaxPages means the
// member count is a lower bound, not an exact one.
const (
	PageLimit = 50
	MaxPages  = 10
)

// Result is an aggregated member set with its confidence flags.
type Result struct {
	Set *domain.MembershipSet

	// Truncated means the page limit was reached; the count is a
	// lower bound.
	Truncated bool

	// Approximate means the event query failed and the count fell
	// back to the circle object's reported scalar.
	Approximate bool

	// ReportedCount carries the scalar fallback when Approximate.
	ReportedCount int
}

// Count returns the member count the caller should surface.
func (r Result) Count() int {
	if r.Approximate {
		return r.ReportedCount
	}
	return r.Set.Len()
}

// Aggregate builds the member set from join events: seed with the
// admin, keep events whose payload circle_id matches, and insert each
// payload member. Set semantics make replayed or duplicate events
// naturally idempotent; no member is ever removed here.
func Aggregate(admin string, events []ledger.Event, circleID string) *domain.MembershipSet {
	set := domain.NewMembershipSet(admin)
	for _, e := range events {
		if e.StringField("circle_id") != circleID {
			continue
		}
		if member := e.StringField("member"); member != "" {
			set.Add(member)
		}
	}
	return set
}

// Assemble turns a Fetch outcome into a Result. A fetch failure does
// not abort: the result degrades to the reported scalar count with the
// Approximate flag set, so callers can always render a member count.
func Assemble(admin, circleID string, events []ledger.Event, truncated bool, fetchErr error, reportedCount int) Result {
	if fetchErr != nil {
		return Result{
			Set:           domain.NewMembershipSet(admin),
			Approximate:   true,
			ReportedCount: reportedCount,
		}
	}

	return Result{
		Set:       Aggregate(admin, events, circleID),
		Truncated: truncated,
	}
}

// Collector fetches join events page by page and aggregates them.
type Collector struct {
	client ledger.Client
	types  ledger.EventTypes
}

// NewCollector creates a Collector for one deployed package.
func NewCollector(client ledger.Client, types ledger.EventTypes) *Collector {
	return &Collector{client: client, types: types}
}

// Fetch pages through member-joined events up to MaxPages. The
// second return reports whether the page limit cut the scan short.
func (c *Collector) Fetch(ctx context.Context) ([]ledger.Event, bool, error) {
	filter := c.types.Filter(ledger.EventMemberJoined)

	var all []ledger.Event
	var cursor *ledger.EventCursor

	for page := 0; page < MaxPages; page++ {
		p, err := c.client.QueryEvents(ctx, filter, cursor, PageLimit)
		if err != nil {
			return nil, false, fmt.Errorf("query join events: %w", err)
		}

		all = append(all, p.Events...)

		if !p.HasNextPage || p.NextCursor == nil {
			return all, false, nil
		}
		cursor = p.NextCursor
	}

	return all, true, nil
}
