package monitoring

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

func TestObserveRound(t *testing.T) {
	m := New()

	m.ObserveRound(wheel.RoundResult{WinningNumber: 1, Color: wheel.Red, Elapsed: 10})
	m.ObserveRound(wheel.RoundResult{WinningNumber: 0, Color: wheel.Green, Forced: true, Elapsed: 60})

	if got := testutil.ToFloat64(m.Rounds.WithLabelValues("red", "natural")); got != 1 {
		t.Errorf("red natural rounds = %v", got)
	}
	if got := testutil.ToFloat64(m.ForcedFreezes); got != 1 {
		t.Errorf("forced freezes = %v", got)
	}
}

func TestObserveSettlement(t *testing.T) {
	m := New()
	s := table.Evaluate([]table.Bet{
		table.Straight(5, decimal.NewFromInt(2)),
		table.Outside(table.KindRed, decimal.NewFromInt(3)),
	}, 5)
	m.ObserveSettlement(s)

	if got := testutil.ToFloat64(m.BetsPlaced.WithLabelValues("straight", "true")); got != 1 {
		t.Errorf("winning straights = %v", got)
	}
	if got := testutil.ToFloat64(m.Wagered); got != 5 {
		t.Errorf("wagered = %v", got)
	}
	// 5 is red: straight returns 72, red returns 6.
	if got := testutil.ToFloat64(m.Payouts); got != 78 {
		t.Errorf("payouts = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRound(wheel.RoundResult{})
	m.ObserveDrop(wheel.Drop{})
	m.ObserveSettlement(table.Settlement{})
	m.ObserveRequest("GET", "/", 200)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveDrop(wheel.Drop{Rotations: 3.4})
	m.ObserveRequest("GET", "/health", 200)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"roulette_drop_rotations_count 1", `http_requests_total{method="GET",route="/health",status="200"} 1`} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
