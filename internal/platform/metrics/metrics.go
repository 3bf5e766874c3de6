package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. One instance is built
// at process start and shared by the services that observe into it.
type Metrics struct {
	GuestsCreated  prometheus.Counter
	Checkins       prometheus.Counter
	Checkouts      prometheus.Counter
	CheckinRejects prometheus.Counter
	Occupancy      prometheus.Gauge
	StayMinutes    prometheus.Histogram
	StatsDuration  prometheus.Histogram
}

// New creates and registers all engine metrics.
func New() *Metrics {
	return &Metrics{
		GuestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "genkan_guests_created_total",
			Help: "Total number of guests registered",
		}),
		Checkins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "genkan_checkins_total",
			Help: "Total number of successful check-ins",
		}),
		Checkouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "genkan_checkouts_total",
			Help: "Total number of successful check-outs",
		}),
		CheckinRejects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "genkan_checkin_rejects_total",
			Help: "Check-in attempts rejected because the guest was already present",
		}),
		Occupancy: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "genkan_occupancy",
			Help: "Guests currently checked in",
		}),
		StayMinutes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "genkan_stay_minutes",
			Help:    "Distribution of completed stay durations in minutes",
			Buckets: []float64{15, 30, 60, 120, 180, 240, 360, 480, 720},
		}),
		StatsDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "genkan_stats_query_duration_seconds",
			Help:    "Duration of aggregate stats computations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveStats records the duration of one stats computation. Call with
// time.Now() captured at the start.
func (m *Metrics) ObserveStats(start time.Time) {
	if m == nil {
		return
	}
	m.StatsDuration.Observe(time.Since(start).Seconds())
}
