package ledger

import "context"

// Client defines the ledger JSON-RPC read interface consumed by the
// resolution engine. Every method is a point-in-time read; the engine
// never mutates chain state.
type Client interface {
	// GetObject retrieves an object's content by id. Returns nil when
	// the object does not exist.
	GetObject(ctx context.Context, objectID string) (*Object, error)

	// GetDynamicFields lists dynamic fields attached to a parent object.
	GetDynamicFields(ctx context.Context, parentID string) ([]DynamicFieldInfo, error)

	// GetDynamicFieldObject retrieves the object behind a named dynamic field.
	GetDynamicFieldObject(ctx context.Context, parentID string, name DynamicFieldName) (*Object, error)

	// QueryEvents retrieves one page of events matching the filter.
	QueryEvents(ctx context.Context, filter EventFilter, cursor *EventCursor, limit int) (*EventPage, error)

	// GetTransactionBlock retrieves a transaction block with its typed
	// inputs by digest. Returns nil when not found.
	GetTransactionBlock(ctx context.Context, digest string) (*TransactionBlock, error)
}

// Object is an on-chain object's content as a field bag. Any field
// may be absent; consumers must probe defensively.
type Object struct {
	ObjectID string
	Type     string // full struct type tag
	Version  int64
	Fields   map[string]interface{}
}

// DynamicFieldName identifies a dynamic field on its parent.
type DynamicFieldName struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// DynamicFieldInfo describes one dynamic field from a listing.
type DynamicFieldInfo struct {
	ObjectID   string
	Name       DynamicFieldName
	ObjectType string // type tag of the value object
}

// Event is one emitted ledger event with its type-specific payload.
type Event struct {
	TxDigest    string
	EventSeq    string
	Type        string // full event type tag
	TimestampMs int64  // Unix timestamp in milliseconds
	ParsedJSON  map[string]interface{}
}

// EventCursor is an opaque pagination cursor for QueryEvents.
type EventCursor struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// EventFilter selects events by their full type tag.
type EventFilter struct {
	EventType string
}

// EventPage is one page of a paginated event query.
type EventPage struct {
	Events      []Event
	NextCursor  *EventCursor
	HasNextPage bool
}

// TransactionBlock is a transaction with its ordered typed inputs.
type TransactionBlock struct {
	Digest      string
	TimestampMs int64
	Inputs      []TransactionInput
}

// TransactionInput is one input of a programmable transaction.
// Pure inputs carry a literal value with a declared value type;
// object inputs reference another on-chain object.
type TransactionInput struct {
	Kind      string      // "pure" | "object"
	ValueType string      // declared type for pure inputs, e.g. "u64"
	Value     interface{} // literal value for pure inputs
	ObjectID  string      // referenced object for object inputs
}
