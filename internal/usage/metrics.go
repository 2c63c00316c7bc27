package usage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	usageComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usage_computations_total",
			Help: "Total number of credit computations by source",
		},
		[]string{"source"},
	)

	creditsComputed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "usage_credits",
			Help:    "Distribution of computed credit costs",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	reportLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_lookups_total",
			Help: "Total number of report cost lookups by outcome",
		},
		[]string{"outcome"},
	)
)
