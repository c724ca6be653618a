package stub

import (
	"context"
	"errors"
	"sync"

	"circle-resolver/internal/ledger"
)

// ErrNotFound is returned when an object or transaction is not in the stub store.
var ErrNotFound = errors.New("not found")

// Client implements ledger.Client for testing.
type Client struct {
	Objects             map[string]*ledger.Object
	DynamicFields       map[string][]ledger.DynamicFieldInfo
	DynamicFieldObjects map[string]*ledger.Object // keyed by parentID
	Transactions        map[string]*ledger.TransactionBlock
	EventPages          map[string][]*ledger.EventPage // keyed by event type, served in order

	// Errs forces an error for a given method name ("QueryEvents", ...).
	Errs map[string]error

	// pageIdx is advanced under mu: consumers query event types from
	// concurrent goroutines.
	mu      sync.Mutex
	pageIdx map[string]int
}

// NewClient creates a new stub ledger client.
func NewClient() *Client {
	return &Client{
		Objects:             make(map[string]*ledger.Object),
		DynamicFields:       make(map[string][]ledger.DynamicFieldInfo),
		DynamicFieldObjects: make(map[string]*ledger.Object),
		Transactions:        make(map[string]*ledger.TransactionBlock),
		EventPages:          make(map[string][]*ledger.EventPage),
		Errs:                make(map[string]error),
		pageIdx:             make(map[string]int),
	}
}

// Compile-time interface check.
var _ ledger.Client = (*Client)(nil)

// GetObject retrieves an object from the stub store.
func (c *Client) GetObject(_ context.Context, objectID string) (*ledger.Object, error) {
	if err := c.Errs["GetObject"]; err != nil {
		return nil, err
	}
	obj, ok := c.Objects[objectID]
	if !ok {
		return nil, nil
	}
	return obj, nil
}

// GetDynamicFields lists dynamic fields from the stub store.
func (c *Client) GetDynamicFields(_ context.Context, parentID string) ([]ledger.DynamicFieldInfo, error) {
	if err := c.Errs["GetDynamicFields"]; err != nil {
		return nil, err
	}
	return c.DynamicFields[parentID], nil
}

// GetDynamicFieldObject retrieves a dynamic field object from the stub store.
func (c *Client) GetDynamicFieldObject(_ context.Context, parentID string, _ ledger.DynamicFieldName) (*ledger.Object, error) {
	if err := c.Errs["GetDynamicFieldObject"]; err != nil {
		return nil, err
	}
	obj, ok := c.DynamicFieldObjects[parentID]
	if !ok {
		return nil, nil
	}
	return obj, nil
}

// QueryEvents serves pre-seeded pages for the filter's event type in
// order, one page per call.
func (c *Client) QueryEvents(_ context.Context, filter ledger.EventFilter, _ *ledger.EventCursor, _ int) (*ledger.EventPage, error) {
	if err := c.Errs["QueryEvents"]; err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	pages := c.EventPages[filter.EventType]
	idx := c.pageIdx[filter.EventType]
	if idx >= len(pages) {
		return &ledger.EventPage{}, nil
	}
	c.pageIdx[filter.EventType] = idx + 1
	return pages[idx], nil
}

// GetTransactionBlock retrieves a transaction block from the stub store.
func (c *Client) GetTransactionBlock(_ context.Context, digest string) (*ledger.TransactionBlock, error) {
	if err := c.Errs["GetTransactionBlock"]; err != nil {
		return nil, err
	}
	tx, ok := c.Transactions[digest]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}
