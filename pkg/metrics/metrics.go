package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tryon_cycles_total",
			Help: "Count of finished try-on cycles",
		},
		[]string{"outcome"},
	)
	CycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tryon_cycle_duration_seconds",
			Help:    "Time from garment photo receipt to result delivery",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)
	PhotosReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tryon_photos_received_total",
			Help: "Count of received photos by session phase",
		},
		[]string{"phase"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tryon_active_sessions",
			Help: "Current number of users with a non-idle session",
		},
	)
	InferenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tryon_inference_failures_total",
			Help: "Count of failed inference calls by stage",
		},
		[]string{"stage"},
	)
)

// Init registers all collectors with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleDuration,
		PhotosReceived,
		ActiveSessions,
		InferenceFailures,
	)
}
