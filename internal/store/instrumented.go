package store

import (
	"context"
	"time"

	"github.com/heysubinoy/kvgate/pkg/kv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opGet = "get"
	opSet = "set"
)

// Metrics holds the prometheus collectors for store operations.
type Metrics struct {
	Operations *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Latency    *prometheus.HistogramVec
}

// NewMetrics registers store metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvgate",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations.",
		}, []string{"op"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kvgate",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total number of failed store operations.",
		}, []string{"op"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kvgate",
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Latency of store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
// This pattern works for both in-memory and Redis-backed stores.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store, metrics *Metrics) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: metrics,
	}
}

// Get delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.store.Get(ctx, key)
	s.observe(opGet, start, err)
	return value, found, err
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.store.Set(ctx, key, value)
	s.observe(opSet, start, err)
	return err
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	s.metrics.Operations.WithLabelValues(op).Inc()
	s.metrics.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.Errors.WithLabelValues(op).Inc()
	}
}
