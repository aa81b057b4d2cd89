package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	billsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "garage_bills_computed_total",
			Help: "Bills computed by operation and outcome",
		},
		[]string{"operation", "zone", "status"},
	)

	billedFinalPrice = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "garage_billed_final_price",
			Help:    "Final price of settled bills",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
		},
		[]string{"zone"},
	)
)
