// Package metrics holds the engine's prometheus collectors, labelled by chain.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

var (
	// Vault lifecycle
	BuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingvault",
		Subsystem: "vault",
		Name:      "builds_total",
		Help:      "Encoded transactions built, by result",
	}, []string{"chain", "result"})

	BuildLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingvault",
		Subsystem: "vault",
		Name:      "build_duration_seconds",
		Help:      "Time to build an encoded transaction, indexer calls included",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"chain"})

	SignTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingvault",
		Subsystem: "vault",
		Name:      "signs_total",
		Help:      "Transactions signed, by result",
	}, []string{"chain", "result"})

	BroadcastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingvault",
		Subsystem: "vault",
		Name:      "broadcasts_total",
		Help:      "Signed transactions submitted, by result",
	}, []string{"chain", "result"})

	// Coin selection
	SelectedInputs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingvault",
		Subsystem: "coinselect",
		Name:      "inputs",
		Help:      "Inputs chosen per transaction",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	}, []string{"chain"})

	SizeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingvault",
		Subsystem: "coinselect",
		Name:      "size_retries_total",
		Help:      "Builds retried with largest-first priority after exceeding size limits",
	}, []string{"chain"})

	// Commit/reveal
	CommitWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingvault",
		Subsystem: "reveal",
		Name:      "commit_wait_seconds",
		Help:      "Time spent waiting for commit confirmation",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"chain", "result"})

	// Indexer
	IndexerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klingvault",
		Subsystem: "indexer",
		Name:      "requests_total",
		Help:      "Indexer requests, by operation and result",
	}, []string{"indexer", "op", "result"})

	IndexerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klingvault",
		Subsystem: "indexer",
		Name:      "request_duration_seconds",
		Help:      "Indexer request duration",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"indexer", "op"})
)

// Result returns the label for an operation outcome: "ok" or the error kind.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return vaulterr.KindOf(err).String()
}

// Observe records elapsed seconds since start on h.
func Observe(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
