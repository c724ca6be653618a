// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the resolution engine.
type Metrics struct {
	// Projection metrics
	ProjectionsTotal    *prometheus.CounterVec // by outcome
	ProjectionDuration  prometheus.Histogram
	NativeFallbacks     prometheus.Counter
	ScheduleFailures    prometheus.Counter
	MembershipTruncated prometheus.Counter
	MembershipFallbacks prometheus.Counter

	// Price metrics
	QuoteRequests prometheus.Counter
	QuoteStale    prometheus.Counter
	QuoteErrors   prometheus.Counter
	LastQuoteUSD  prometheus.Gauge

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec // by method
	RPCCallErrors  *prometheus.CounterVec   // by method

	// Storage metrics
	SnapshotsStored prometheus.Counter
	AuditRowsStored prometheus.Counter
	StorageErrors   *prometheus.CounterVec // by store

	// Health metrics
	LastSuccessfulProjection prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "circle_resolver"
	}

	return &Metrics{
		ProjectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "projector",
			Name:      "projections_total",
			Help:      "Total number of circle projections by outcome",
		}, []string{"outcome"}),
		ProjectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "projector",
			Name:      "projection_duration_seconds",
			Help:      "Wall time of one circle projection",
			Buckets:   prometheus.DefBuckets,
		}),
		NativeFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolution",
			Name:      "native_fallbacks_total",
			Help:      "Raw native amounts discarded as implausible and re-derived from USD",
		}),
		ScheduleFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "failures_total",
			Help:      "Schedule computations rejected for an out-of-range cycle day",
		}),
		MembershipTruncated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "truncated_total",
			Help:      "Membership aggregations cut short by the event page limit",
		}),
		MembershipFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "fallbacks_total",
			Help:      "Membership aggregations degraded to the reported scalar count",
		}),
		QuoteRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "quote_requests_total",
			Help:      "Total price quote requests",
		}),
		QuoteStale: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "quote_stale_total",
			Help:      "Quotes served from an expired cache entry",
		}),
		QuoteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "quote_errors_total",
			Help:      "Quote requests that produced no usable value",
		}),
		LastQuoteUSD: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "last_quote_usd",
			Help:      "Last usable native-token price in USD",
		}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Ledger RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Ledger RPC call errors by method",
		}, []string{"method"}),
		SnapshotsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "snapshots_stored_total",
			Help:      "Resolved circle snapshots appended to the history store",
		}),
		AuditRowsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "audit_rows_stored_total",
			Help:      "Resolution audit log rows appended",
		}),
		StorageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Storage errors by store",
		}, []string{"store"}),
		LastSuccessfulProjection: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_projection_timestamp",
			Help:      "Unix timestamp of the last successful projection",
		}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
