package ledger

import "context"

// EventStream defines the ledger WebSocket subscription interface.
type EventStream interface {
	// SubscribeEvents subscribes to events matching the filter.
	SubscribeEvents(ctx context.Context, filter EventFilter) (<-chan EventNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// EventNotification is one pushed event from a subscription.
type EventNotification struct {
	Event Event
}
