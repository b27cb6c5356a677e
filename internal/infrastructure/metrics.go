package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the entitlement core. Labels stay low-cardinality:
// outcomes and tiers only, never keys or identities.
var (
	KeyValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartfile",
		Subsystem: "entitlement",
		Name:      "key_validations_total",
		Help:      "License key validations by outcome.",
	}, []string{"outcome"})

	SessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartfile",
		Subsystem: "entitlement",
		Name:      "sessions_issued_total",
		Help:      "Session tokens issued after successful validation.",
	})

	ActionsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartfile",
		Subsystem: "entitlement",
		Name:      "actions_verified_total",
		Help:      "Action verifications by tier and outcome.",
	}, []string{"tier", "outcome"})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartfile",
		Subsystem: "entitlement",
		Name:      "rate_limit_rejections_total",
		Help:      "Free tier actions rejected by the usage limiter.",
	})
)
