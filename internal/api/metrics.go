package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var computations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "critpath",
	Name:      "computations_total",
	Help:      "Critical path requests by cache outcome.",
}, []string{"cache"})

var computeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "critpath",
	Name:      "compute_seconds",
	Help:      "Time spent in the critical path engine on cache misses.",
	Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
})

var cyclicSnapshots = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "critpath",
	Name:      "cyclic_snapshots_total",
	Help:      "Computed snapshots whose dependencies contain a cycle.",
})

var validationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "critpath",
	Name:      "validation_issues_total",
	Help:      "Validation issues reported, by kind.",
}, []string{"kind"})
