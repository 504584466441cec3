package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokenCaptures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "token_captures_total", Help: "Steam token capture attempts by outcome."},
		[]string{"outcome"},
	)
	SessionRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "session_refreshes_total", Help: "Cloud session refresh attempts by outcome."},
		[]string{"outcome"},
	)
	SyncPushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "sync_pushes_total", Help: "Cloud sync pushes by outcome."},
		[]string{"outcome"},
	)
	PairingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "pairing_events_total", Help: "Events received from the pairing engine by kind."},
		[]string{"kind"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pairing_agent", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokenCaptures)
	reg.MustRegister(SessionRefreshes)
	reg.MustRegister(SyncPushes)
	reg.MustRegister(PairingEvents)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
