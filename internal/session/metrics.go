package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// LogoutsTotal counts cleared sessions by reason.
	LogoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Cleared sessions by reason (explicit, expired)",
		},
		[]string{"reason"},
	)

	// OutboundRequestsTotal counts requests that passed through the interceptor.
	OutboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "console",
			Subsystem: "session",
			Name:      "outbound_requests_total",
			Help:      "Backend requests by whether a credential was attached",
		},
		[]string{"authenticated"},
	)
)

const (
	outcomeSuccess            = "success"
	outcomeMissingCredentials = "missing_credentials"
	outcomeRejected           = "rejected"
	outcomeBusy               = "busy"

	reasonExplicit = "explicit"
	reasonExpired  = "expired"
)
