// Package prometheus provides the Prometheus-backed implementation of the
// metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/mntfs/pkg/metrics"
)

// nfsMetrics is the Prometheus implementation of metrics.NFSMetrics.
type nfsMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	requestsInFlight    *prometheus.GaugeVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	mountsVisible       prometheus.Gauge
	entryCacheLookups   *prometheus.CounterVec
}

// NewNFSMetrics creates a Prometheus-backed NFSMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewNFSMetrics() metrics.NFSMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopNFSMetrics()
	}

	reg := metrics.GetRegistry()

	return &nfsMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mntfs_nfs_requests_total",
				Help: "Total number of NFS requests by procedure and status",
			},
			[]string{"procedure", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mntfs_nfs_request_duration_seconds",
				Help: "Duration of NFS requests in seconds",
				Buckets: []float64{
					0.0001, // 100us
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"procedure"},
		),
		requestsInFlight: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mntfs_nfs_requests_in_flight",
				Help: "Current number of NFS requests being processed",
			},
			[]string{"procedure"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mntfs_nfs_active_connections",
				Help: "Current number of active NFS connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mntfs_nfs_connections_accepted_total",
				Help: "Total number of NFS connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mntfs_nfs_connections_closed_total",
				Help: "Total number of NFS connections closed",
			},
		),
		mountsVisible: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mntfs_mounts_visible",
				Help: "Number of mounts visible in the served namespace at the last directory read",
			},
		),
		entryCacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mntfs_entry_cache_lookups_total",
				Help: "Total entry cache consultations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *nfsMetrics) RecordRequest(procedure, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(procedure, status).Inc()
	m.requestDuration.WithLabelValues(procedure).Observe(duration.Seconds())
}

func (m *nfsMetrics) RecordRequestStart(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Inc()
}

func (m *nfsMetrics) RecordRequestEnd(procedure string) {
	m.requestsInFlight.WithLabelValues(procedure).Dec()
}

func (m *nfsMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *nfsMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *nfsMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *nfsMetrics) SetMountsVisible(count uint64) {
	m.mountsVisible.Set(float64(count))
}

func (m *nfsMetrics) RecordEntryCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.entryCacheLookups.WithLabelValues(outcome).Inc()
}
