// Package deposit determines whether a member has satisfied the
// circle's security-deposit obligation. Two independent detection
// methods are consulted in order; absence of evidence from both means
// unpaid, the closed-world answer the contribution gate depends on.
package deposit

import (
	"context"
	"log"
	"strconv"

	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/money"
)

// Tolerance is the fraction of the required deposit a custody event
// must reach to count as paid. The 5% slack absorbs network-fee
// rounding on the deposit transfer.
const Tolerance = 0.95

// Paging limits for the custody-event scan, matching the join-event
// collector's bounds.
const (
	pageLimit = 50
	maxPages  = 10
)

// MemberEntry is one row of the circle's on-chain members table.
type MemberEntry struct {
	Address        string
	DepositBalance float64 // token units
	Status         string
}

// MemberTable is a point-in-time snapshot of the members table,
// keyed by address.
type MemberTable map[string]MemberEntry

// IsDepositPaid evaluates both detection methods against supplied
// snapshots. Method one: the member's table row holds a positive
// deposit balance. Method two: any custody-deposit event from this
// member reaches the tolerance threshold of the required amount.
func IsDepositPaid(circleID, address string, requiredNative float64, table MemberTable, custodyEvents []ledger.Event) domain.DepositRecord {
	rec := domain.DepositRecord{
		CircleID: circleID,
		Address:  address,
		Method:   domain.DepositMethodUnknown,
	}

	if entry, ok := table[address]; ok && entry.DepositBalance > 0 {
		rec.Paid = true
		rec.Method = domain.DepositMethodMemberTable
		return rec
	}

	threshold := requiredNative * Tolerance
	for _, e := range custodyEvents {
		if e.StringField("circle_id") != circleID || e.StringField("member") != address {
			continue
		}
		atomic, ok := e.NumberField("amount")
		if !ok {
			continue
		}
		if money.FromAtomic(atomic) >= threshold {
			rec.Paid = true
			rec.Method = domain.DepositMethodCustodyEvent
			return rec
		}
	}

	return rec
}

// Resolver fetches the detection inputs itself and tolerates a
// transient failure of either fetch: both methods are attempted
// before concluding unpaid.
type Resolver struct {
	client ledger.Client
	types  ledger.EventTypes
	logger *log.Logger
}

// NewResolver creates a deposit Resolver.
func NewResolver(client ledger.Client, types ledger.EventTypes, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{client: client, types: types, logger: logger}
}

// Resolve determines deposit status for one (circle, address) pair.
// memberTableID is the id of the circle's members table object; an
// empty id skips the table method.
func (r *Resolver) Resolve(ctx context.Context, circleID, memberTableID, address string, requiredNative float64) domain.DepositRecord {
	table := MemberTable{}
	if memberTableID != "" {
		entry, err := r.fetchMemberEntry(ctx, memberTableID, address)
		if err != nil {
			r.logger.Printf("[deposit] member table lookup failed for %s: %v", address, err)
		} else if entry != nil {
			table[address] = *entry
		}
	}

	events, err := r.fetchCustodyEvents(ctx)
	if err != nil {
		r.logger.Printf("[deposit] custody event query failed: %v", err)
	}

	return IsDepositPaid(circleID, address, requiredNative, table, events)
}

// fetchMemberEntry looks up one address in the members table.
// Returns nil when the address has no row.
func (r *Resolver) fetchMemberEntry(ctx context.Context, tableID, address string) (*MemberEntry, error) {
	name := ledger.DynamicFieldName{Type: "address", Value: address}
	obj, err := r.client.GetDynamicFieldObject(ctx, tableID, name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	entry := parseMemberEntry(address, obj)
	return entry, nil
}

// fetchCustodyEvents pages through custody-deposit events up to
// maxPages. The feed is package-wide, so the qualifying event for one
// member can sit arbitrarily deep; stopping at the first page would
// misreport a funded member as unpaid. A mid-scan failure returns the
// pages already fetched alongside the error.
func (r *Resolver) fetchCustodyEvents(ctx context.Context) ([]ledger.Event, error) {
	filter := r.types.Filter(ledger.EventCustodyDeposited)

	var all []ledger.Event
	var cursor *ledger.EventCursor

	for page := 0; page < maxPages; page++ {
		p, err := r.client.QueryEvents(ctx, filter, cursor, pageLimit)
		if err != nil {
			return all, err
		}

		all = append(all, p.Events...)

		if !p.HasNextPage || p.NextCursor == nil {
			break
		}
		cursor = p.NextCursor
	}
	return all, nil
}

// parseMemberEntry reads a members-table row object, probing the
// value.fields wrapper shape table entries are usually served in.
func parseMemberEntry(address string, obj *ledger.Object) *MemberEntry {
	fields := obj.Fields
	if v, ok := fields["value"].(map[string]interface{}); ok {
		if fm, ok := v["fields"].(map[string]interface{}); ok {
			fields = fm
		}
	}

	entry := &MemberEntry{Address: address}
	if raw, ok := fields["deposit_balance"]; ok {
		if atomic, parsed := parseAtomic(raw); parsed {
			entry.DepositBalance = money.FromAtomic(atomic)
		}
	}
	if status, ok := fields["status"].(string); ok {
		entry.Status = status
	}
	return entry
}

// parseAtomic accepts the u64-as-string and numeric forms ledger
// nodes use for atomic amounts.
func parseAtomic(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
