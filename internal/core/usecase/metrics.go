package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rpa_transactions_processed_total",
		Help: "Transactions driven to a terminal state, by outcome.",
	}, []string{"outcome"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rpa_batch_duration_seconds",
		Help:    "Duration of batch processing runs.",
		Buckets: prometheus.DefBuckets,
	})
)

const (
	outcomeCompleted = "completed"
	outcomeRejected  = "rejected"
	outcomeError     = "error"
)
