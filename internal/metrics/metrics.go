// Package metrics holds the Prometheus collectors for itinerary operations.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/starford/tourdesk/internal/apperr"
)

// Result labels.
const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid"
	ResultNotFound  = "not_found"
	ResultRetryable = "retryable"
	ResultError     = "error"
)

type collectors struct {
	opsTotal   *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	eventTotal *prometheus.CounterVec
	catalog    *prometheus.CounterVec
}

var singleton = sync.OnceValue(func() *collectors {
	return &collectors{
		opsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "operations_total",
			Help:      "Total number of itinerary operations.",
		}, []string{"op", "result"}),
		opLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tourdesk",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for itinerary operations.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"op", "result"}),
		eventTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "events_published_total",
			Help:      "Total number of change events handed to subscribers.",
		}, []string{"type"}),
		catalog: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tourdesk",
			Name:      "catalog_sync_total",
			Help:      "Catalog files indexed or removed by the sync and watcher.",
		}, []string{"action"}),
	}
})

// Result classifies err into a result label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, apperr.ErrValidation):
		return ResultInvalid
	case errors.Is(err, apperr.ErrNotFound):
		return ResultNotFound
	case apperr.IsRetryable(err):
		return ResultRetryable
	default:
		return ResultError
	}
}

// ObserveOp records one completed operation started at start.
func ObserveOp(op string, start time.Time, err error) {
	c := singleton()
	result := Result(err)
	c.opsTotal.WithLabelValues(op, result).Inc()
	c.opLatency.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

// EventPublished counts a published change event.
func EventPublished(eventType string) {
	singleton().eventTotal.WithLabelValues(eventType).Inc()
}

// CatalogSynced counts catalog files handled by action ("indexed" or "removed").
func CatalogSynced(action string, n int) {
	if n > 0 {
		singleton().catalog.WithLabelValues(action).Add(float64(n))
	}
}
