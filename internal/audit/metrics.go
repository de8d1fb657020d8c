package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_audit_entries_appended_total",
		Help: "Audit entries appended, by action.",
	}, []string{"action"})

	appendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_audit_append_failures_total",
		Help: "Audit append attempts that failed to persist.",
	})

	riskScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lexgate_audit_risk_score",
		Help:    "Distribution of computed risk scores.",
		Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	verifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lexgate_audit_verify_failures_total",
		Help: "Integrity verification failures, by kind.",
	}, []string{"kind"})
)
