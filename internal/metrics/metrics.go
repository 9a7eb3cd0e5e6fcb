// Package metrics provides Prometheus metrics for the commute service.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "commute"

// Metrics holds every collector the service exports. The helper methods are
// safe on a nil *Metrics so engine components can run without a registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Engine
	TripsStarted          prometheus.Counter
	TripsFinalized        prometheus.Counter
	PatternsRecorded      *prometheus.CounterVec
	Suggestions           *prometheus.CounterVec
	StoreErrorsRecovered  *prometheus.CounterVec
	StopsPassed           prometheus.Counter
	TrackingSessionsGauge prometheus.Gauge
	EventsPublishFailures *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database pool
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger *slog.Logger

	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates a fresh registry and registers all collectors on it.
func NewWithLogger(logger *slog.Logger) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		logger:   logger,

		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_started_total",
			Help:      "Trips started and persisted",
		}),
		TripsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trips_finalized_total",
			Help:      "Trips finalized with an actual arrival time",
		}),
		PatternsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patterns_recorded_total",
			Help:      "Pattern recordings by outcome",
		}, []string{"outcome"}),
		Suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestion lookups by outcome",
		}, []string{"outcome"}),
		StoreErrorsRecovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_recovered_total",
			Help:      "Store failures degraded to an empty or fallback result",
		}, []string{"component"}),
		StopsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stops_passed_total",
			Help:      "Stops marked passed during GO-mode tracking",
		}),
		TrackingSessionsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracking_sessions_active",
			Help:      "Open GO-mode tracking sessions",
		}),
		EventsPublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Lifecycle events that could not be published",
		}, []string{"sink"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		}),
		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_wait_seconds_total",
			Help:      "Total time blocked waiting for a database connection",
		}),
	}

	m.Registry.MustRegister(
		m.TripsStarted,
		m.TripsFinalized,
		m.PatternsRecorded,
		m.Suggestions,
		m.StoreErrorsRecovered,
		m.StopsPassed,
		m.TrackingSessionsGauge,
		m.EventsPublishFailures,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)
	return m
}

func (m *Metrics) TripStarted() {
	if m != nil {
		m.TripsStarted.Inc()
	}
}

func (m *Metrics) TripFinalized() {
	if m != nil {
		m.TripsFinalized.Inc()
	}
}

func (m *Metrics) PatternRecorded(outcome string) {
	if m != nil {
		m.PatternsRecorded.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) SuggestionServed(outcome string) {
	if m != nil {
		m.Suggestions.WithLabelValues(outcome).Inc()
	}
}

// StoreErrorRecovered counts a store failure that a component absorbed.
func (m *Metrics) StoreErrorRecovered(component string) {
	if m != nil {
		m.StoreErrorsRecovered.WithLabelValues(component).Inc()
	}
}

func (m *Metrics) StopsMarkedPassed(n int) {
	if m != nil && n > 0 {
		m.StopsPassed.Add(float64(n))
	}
}

func (m *Metrics) SetTrackingSessions(n int) {
	if m != nil {
		m.TrackingSessionsGauge.Set(float64(n))
	}
}

func (m *Metrics) EventPublishFailed(sink string) {
	if m != nil {
		m.EventsPublishFailures.WithLabelValues(sink).Inc()
	}
}

// StartDBStatsCollector samples db.Stats every interval into the pool gauges.
// Only the first call starts a collector; Shutdown stops it.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastWait time.Duration
		for {
			select {
			case <-ticker.C:
				lastWait = m.recordDBStats(db.Stats(), lastWait)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Metrics) recordDBStats(stats sql.DBStats, lastWait time.Duration) time.Duration {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	if delta := stats.WaitDuration - lastWait; delta > 0 {
		m.DBWaitSecondsTotal.Add(delta.Seconds())
	}
	return stats.WaitDuration
}

// Shutdown stops the DB stats collector and waits for it to exit. Safe to
// call more than once.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
