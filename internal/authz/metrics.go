package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_authz_decisions_total",
			Help: "Authorization decisions by tier and reason",
		},
		[]string{"tier", "reason"},
	)

	collaboratorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minka_authz_collaborator_errors_total",
			Help: "Identity provider and data store failures seen while resolving requests",
		},
		[]string{"collaborator"},
	)
)

func recordDecision(d Decision) {
	decisionsTotal.WithLabelValues(d.Tier.String(), string(d.Reason)).Inc()
}
