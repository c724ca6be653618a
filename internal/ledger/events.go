package ledger

import (
	"fmt"
	"strconv"
)

// Event type names emitted by the savings-circle package.
const (
	EventCircleCreated        = "CircleCreated"
	EventMemberJoined         = "MemberJoined"
	EventMemberApproved       = "MemberApproved"
	EventCustodyWalletCreated = "CustodyWalletCreated"
	EventCustodyDeposited     = "CustodyDeposited"
)

// EventTypes builds full event type tags for one deployed package.
type EventTypes struct {
	PackageID string
	Module    string
}

// Tag returns the full type tag for a named event.
func (t EventTypes) Tag(name string) string {
	return fmt.Sprintf("%s::%s::%s", t.PackageID, t.Module, name)
}

// Filter returns an EventFilter for a named event.
func (t EventTypes) Filter(name string) EventFilter {
	return EventFilter{EventType: t.Tag(name)}
}

// StringField extracts a string payload field, or "" when absent or
// not a string.
func (e Event) StringField(key string) string {
	if e.ParsedJSON == nil {
		return ""
	}
	s, _ := e.ParsedJSON[key].(string)
	return s
}

// NumberField extracts a numeric payload field. Ledger nodes encode
// u64 payload values as JSON strings, so both forms are accepted;
// anything unparseable reports absent rather than zero.
func (e Event) NumberField(key string) (float64, bool) {
	if e.ParsedJSON == nil {
		return 0, false
	}
	switch v := e.ParsedJSON[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
