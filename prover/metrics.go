package prover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Proof results used as label values.
const (
	resultSuccess   = "success"
	resultError     = "error"
	resultCancelled = "cancelled"
)

var (
	proofsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crisp_proofs_total",
		Help: "Total number of ballot proofs by result",
	}, []string{"result"})

	proofDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crisp_proof_duration_seconds",
		Help:    "Time spent generating a ballot proof",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	queueWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crisp_prover_queue_waiting",
		Help: "Number of proving jobs waiting for a free worker",
	})
)
