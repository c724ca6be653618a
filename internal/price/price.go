// Package price provides the exchange-rate quote collaborator.
// The resolution engine treats the quote as an injected dependency;
// it never reaches for ambient global state to find a rate.
package price

import "context"

// QuoteStatus describes the freshness of a quote.
type QuoteStatus string

const (
	StatusOK    QuoteStatus = "ok"
	StatusStale QuoteStatus = "stale"
	StatusError QuoteStatus = "error"
)

// Quote is one native-token price observation in USD. A stale status
// is informational only: consumers still use the numeric value and
// never block or retry on staleness.
type Quote struct {
	Value  float64 // native-token price in USD
	Status QuoteStatus
}

// Usable reports whether the numeric value may be used for conversion.
func (q Quote) Usable() bool {
	return q.Status != StatusError && q.Value > 0
}

// Source supplies price quotes.
type Source interface {
	GetPrice(ctx context.Context) Quote
}

// Static is a fixed-value Source for tests and offline runs.
type Static struct {
	Quote Quote
}

// GetPrice returns the fixed quote.
func (s Static) GetPrice(_ context.Context) Quote {
	return s.Quote
}
