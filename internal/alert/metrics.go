package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_alerts_raised_total",
		Help: "Security alerts raised, by type and severity.",
	}, []string{"type", "severity"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_alerts_persist_failures_total",
		Help: "Alerts that could not be persisted after retry. The audit entry that triggered them remains durable.",
	})

	windowErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_alerts_window_errors_total",
		Help: "Failures recording authentication failures in the sliding window.",
	})
)
