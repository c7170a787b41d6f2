package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess       = "success"
	OutcomeTransport     = "transport_error"
	OutcomeDecompression = "decompression_error"
	OutcomeProtocol      = "protocol_error"
)

// Metrics holds the gateway's Prometheus metrics
type Metrics struct {
	// Request metrics, labeled by profile
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Version refresh metrics
	VersionChecks  *prometheus.CounterVec
	VersionUpdates *prometheus.CounterVec

	// Breaker state per profile (0 closed, 1 half-open, 2 open)
	BreakerState *prometheus.GaugeVec

	registry *prometheus.Registry
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for quick inspection without scraping.
type Snapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	ProtocolErrors int64
	TotalDuration  float64
}

// NewMetrics creates a metrics collector on its own registry, so several
// gateways can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eft_gateway_requests_total",
				Help: "Total number of backend requests",
			},
			[]string{"profile", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eft_gateway_request_duration_seconds",
				Help:    "Backend request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"profile"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eft_gateway_response_size_bytes",
				Help:    "Compressed response body size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"profile"},
		),
		VersionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eft_gateway_version_checks_total",
				Help: "Startup version checks by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		VersionUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eft_gateway_version_updates_total",
				Help: "Number of times a held version string changed",
			},
			[]string{"component"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eft_gateway_breaker_state",
				Help: "Circuit breaker state per profile",
			},
			[]string{"profile"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one completed backend request
func (m *Metrics) RecordRequest(profile, outcome string, duration time.Duration, respSize int) {
	m.RequestsTotal.WithLabelValues(profile, outcome).Inc()
	m.RequestDuration.WithLabelValues(profile).Observe(duration.Seconds())
	if respSize > 0 {
		m.ResponseSize.WithLabelValues(profile).Observe(float64(respSize))
	}

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	if outcome != OutcomeSuccess {
		m.snapshot.TotalErrors++
	}
	if outcome == OutcomeProtocol {
		m.snapshot.ProtocolErrors++
	}
	m.mu.Unlock()
}

// RecordVersionCheck records the result of one startup version check
func (m *Metrics) RecordVersionCheck(endpoint string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.VersionChecks.WithLabelValues(endpoint, result).Inc()
}

// IncVersionUpdates counts a version string change
func (m *Metrics) IncVersionUpdates(component string) {
	m.VersionUpdates.WithLabelValues(component).Inc()
}

// SetBreakerState records a breaker transition
func (m *Metrics) SetBreakerState(profile string, state int) {
	m.BreakerState.WithLabelValues(profile).Set(float64(state))
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
