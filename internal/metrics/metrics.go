package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uninotify_generations_total",
			Help: "Notification generations by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "uninotify_generation_duration_seconds",
			Help:    "Latency of notification pipelines including the model call",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"kind"},
	)

	RecordMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uninotify_record_mutations_total",
			Help: "Draft and template store mutations",
		},
		[]string{"store", "op", "status"},
	)
)
