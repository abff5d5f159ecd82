package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	MatchesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_matches_created_total",
			Help: "Matches created, by variant",
		},
		[]string{"variant"},
	)
	RoundsResolved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_rounds_resolved_total",
			Help: "Rounds resolved across all matches",
		},
	)
	TimerExpirations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_timer_expirations_total",
			Help: "Phase timers that fired and advanced a match",
		},
	)
	LiveMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "arena_live_matches",
			Help: "Matches currently held by the registry",
		},
	)
)

func init() {
	prometheus.MustRegister(MatchesCreated, RoundsResolved, TimerExpirations, LiveMatches)
}
