// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for authentication attempts.
const (
	OutcomeBound     = "bound"
	OutcomeRefreshed = "refreshed"
)

var (
	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensegate",
		Name:      "auth_attempts_total",
		Help:      "License authentication attempts by outcome.",
	}, []string{"outcome"})

	deactivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensegate",
		Name:      "license_deactivations_total",
		Help:      "License deactivation requests by result.",
	}, []string{"result"})

	sessionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "licensegate",
		Name:      "session_checks_total",
		Help:      "Session validity checks by result.",
	}, []string{"valid"})
)

// RecordAuth counts an authentication attempt. outcome is either a success
// label above or a lower-cased error code.
func RecordAuth(outcome string) {
	authAttempts.WithLabelValues(outcome).Inc()
}

func RecordDeactivation(result string) {
	deactivations.WithLabelValues(result).Inc()
}

func RecordSessionCheck(valid bool) {
	label := "false"
	if valid {
		label = "true"
	}
	sessionChecks.WithLabelValues(label).Inc()
}
