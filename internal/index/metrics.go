package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_index_updates_applied_total",
		Help: "Index projections successfully written.",
	})
	updatesRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_index_updates_retried_total",
		Help: "Index writes retried after a store error.",
	})
	updatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_index_updates_dropped_total",
		Help: "Index updates dropped because the queue was full.",
	})
	updatesAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_index_updates_abandoned_total",
		Help: "Index updates abandoned after exhausting retries.",
	})
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lexgate_index_queue_depth",
		Help: "Pending index updates in the projection queue.",
	})
)
