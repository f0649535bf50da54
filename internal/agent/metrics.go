package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are scraped from the agent's /metrics endpoint so fleet operators
// can see GPS health per vehicle without opening the app.
type Metrics struct {
	ShiftActive   prometheus.Gauge
	ShiftMiles    prometheus.Gauge
	ShiftSeconds  prometheus.Gauge
	GPSHealthy    prometheus.Gauge
	SyncHealthy   prometheus.Gauge
	SnapshotPolls prometheus.Counter
}

// NewMetrics registers the agent's metrics on a registry
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ShiftActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "shift_active",
			Help:      "1 while a shift session is open, 0 otherwise.",
		}),
		ShiftMiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "shift_total_miles",
			Help:      "Accumulated driving miles for the current shift.",
		}),
		ShiftSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "shift_elapsed_seconds",
			Help:      "Elapsed seconds since clock-in for the current shift.",
		}),
		GPSHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "gps_healthy",
			Help:      "1 when the last GPS sample succeeded, 0 otherwise.",
		}),
		SyncHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "sync_healthy",
			Help:      "1 when the last server write succeeded, 0 otherwise.",
		}),
		SnapshotPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "agent",
			Name:      "snapshot_polls_total",
			Help:      "Number of times the agent polled the session snapshot.",
		}),
	}
}
