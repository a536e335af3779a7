package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the ledger's Prometheus collectors.
type Metrics struct {
	MatchesOpened       prometheus.Counter
	MatchesSettled      prometheus.Counter
	OpenMatches         prometheus.Gauge
	Bets                *prometheus.CounterVec
	StakedTotal         prometheus.Counter
	PaidOutTotal        prometheus.Counter
	PersistenceFailures prometheus.Counter
	Commands            *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MatchesOpened: f.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_matches_opened_total",
			Help: "Matches allocated",
		}),
		MatchesSettled: f.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_matches_settled_total",
			Help: "Matches settled by a reported winner",
		}),
		OpenMatches: f.NewGauge(prometheus.GaugeOpts{
			Name: "wagerbook_open_matches",
			Help: "Matches currently accepting bets",
		}),
		Bets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerbook_bets_total",
			Help: "Bet placement attempts by outcome",
		}, []string{"outcome"}),
		StakedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_staked_amount_total",
			Help: "Virtual currency debited by accepted bets",
		}),
		PaidOutTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_paid_out_amount_total",
			Help: "Virtual currency credited by settlements",
		}),
		PersistenceFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "wagerbook_persistence_failures_total",
			Help: "Ledger writes that failed and were rolled back",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "wagerbook_commands_total",
			Help: "Chat commands handled by command and outcome",
		}, []string{"command", "outcome"}),
		gatherer: reg,
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
