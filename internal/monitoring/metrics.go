package monitoring

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// Metrics holds the collectors of one process. A nil *Metrics records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	Rounds        *prometheus.CounterVec
	ForcedFreezes prometheus.Counter
	DropRotations prometheus.Histogram
	RoundDuration prometheus.Histogram
	BetsPlaced    *prometheus.CounterVec
	Wagered       prometheus.Counter
	Payouts       prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		Rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roulette_rounds_total",
				Help: "Completed rounds by winning color and how they froze",
			},
			[]string{"color", "outcome"},
		),
		ForcedFreezes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roulette_forced_freezes_total",
				Help: "Rounds frozen by the safety timeout",
			},
		),
		DropRotations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "roulette_drop_rotations",
				Help:    "Ball rotations on the bumper before it dropped",
				Buckets: prometheus.LinearBuckets(3, 0.1, 11),
			},
		),
		RoundDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "roulette_round_duration_seconds",
				Help:    "Simulated seconds from launch to result",
				Buckets: prometheus.LinearBuckets(2, 2, 10),
			},
		),
		BetsPlaced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "roulette_bets_total",
				Help: "Settled bets by kind and result",
			},
			[]string{"kind", "won"},
		),
		Wagered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roulette_wagered_total",
				Help: "Total amount staked",
			},
		),
		Payouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "roulette_payouts_total",
				Help: "Total amount returned to the player",
			},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.Rounds,
		m.ForcedFreezes,
		m.DropRotations,
		m.RoundDuration,
		m.BetsPlaced,
		m.Wagered,
		m.Payouts,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveRequest counts one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// ObserveRound records a completed round.
func (m *Metrics) ObserveRound(res wheel.RoundResult) {
	if m == nil {
		return
	}
	outcome := "natural"
	if res.Forced {
		outcome = "forced"
		m.ForcedFreezes.Inc()
	}
	m.Rounds.WithLabelValues(string(res.Color), outcome).Inc()
	m.RoundDuration.Observe(res.Elapsed)
}

// ObserveDrop records the ball leaving the bumper.
func (m *Metrics) ObserveDrop(d wheel.Drop) {
	if m == nil {
		return
	}
	m.DropRotations.Observe(d.Rotations)
}

// ObserveSettlement records the bets of a settled round.
func (m *Metrics) ObserveSettlement(s table.Settlement) {
	if m == nil {
		return
	}
	for _, o := range s.Outcomes {
		m.BetsPlaced.WithLabelValues(string(o.Bet.Kind), strconv.FormatBool(o.Won)).Inc()
	}
	m.Wagered.Add(s.Wagered.InexactFloat64())
	m.Payouts.Add(s.Returned.InexactFloat64())
}
