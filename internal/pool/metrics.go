package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "loads_total",
			Help:      "Model load attempts by device and result",
		},
		[]string{"device", "result"},
	)

	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "load_duration_seconds",
			Help:      "Duration of model load attempts in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"device"},
	)

	fallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "fallbacks_total",
			Help:      "Loads retried on the CPU after an accelerator failure",
		},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "evictions_total",
			Help:      "Entries removed to respect capacity",
		},
	)

	lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "lookups_total",
			Help:      "Acquire lookups by outcome (hit, miss)",
		},
		[]string{"outcome"},
	)

	entriesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sttd",
			Subsystem: "pool",
			Name:      "entries",
			Help:      "Models currently held by the pool",
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, fallbacksTotal, evictionsTotal, lookupsTotal, entriesGauge)
}
