// Package inspiremetrics reproduces the teacher's package-level
// registered-counter pattern (see common/dbutils/bucket.go's
// PreimageCounter/PreimageHitCounter) on top of
// github.com/prometheus/client_golang, since the teacher's own
// metrics package is internal to its module and can't be imported
// from here.
package inspiremetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueriesTotal counts every PIR query the server has answered, by lane.
	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inspire_pir_queries_total",
		Help: "Total PIR queries answered, labeled by lane (hot/cold).",
	}, []string{"lane"})

	// QueryDurationSeconds observes server-side time spent computing one
	// query's XOR response.
	QueryDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspire_pir_query_duration_seconds",
		Help:    "Server-side duration of XOR-subset query responses.",
		Buckets: prometheus.DefBuckets,
	}, []string{"lane"})

	// BlocksProcessedTotal counts blocks the updater has applied to the
	// bucket index.
	BlocksProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspire_blocks_processed_total",
		Help: "Total blocks applied to the bucket index by the updater.",
	})

	// BroadcastSubscribers gauges the number of live WebSocket subscribers.
	BroadcastSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspire_broadcast_subscribers",
		Help: "Current number of /index/subscribe WebSocket connections.",
	})

	// BroadcastLaggedTotal counts subscribers dropped for falling behind
	// the broadcast channel's buffer.
	BroadcastLaggedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspire_broadcast_lagged_total",
		Help: "Total subscribers disconnected with close code 4000 for lagging.",
	})

	// HintStoreBytes gauges a client's in-memory hint store footprint.
	HintStoreBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspire_hint_store_bytes",
		Help: "Estimated size in bytes of the local hint store.",
	})
)

func init() {
	prometheus.MustRegister(
		QueriesTotal,
		QueryDurationSeconds,
		BlocksProcessedTotal,
		BroadcastSubscribers,
		BroadcastLaggedTotal,
		HintStoreBytes,
	)
}
