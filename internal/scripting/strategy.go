package scripting

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MJE43/roulette-sim/internal/table"
)

var (
	ErrNoDobet = errors.New("script must define a dobet() function")
	ErrStopped = errors.New("strategy stopped")
)

// Strategy drives autoplay from a user script. The script sets nextbets at
// load time for the first round; after every settled round dobet() runs and
// may change nextbets for the following one.
type Strategy struct {
	mu    sync.Mutex
	vm    *VM
	vars  *Variables
	stats *Statistics
	chart *ChartBuffer
	err   error
}

// Snapshot is a serializable view of the strategy state.
type Snapshot struct {
	Running bool         `json:"running"`
	Error   string       `json:"error,omitempty"`
	Stats   Statistics   `json:"stats"`
	Chart   []ChartPoint `json:"chart"`
}

// NewStrategy executes source once and checks that it defines dobet().
func NewStrategy(source string, startBalance float64) (*Strategy, error) {
	stats := NewStatistics(startBalance)
	s := &Strategy{
		vm:    NewVM(),
		vars:  NewVariables(stats),
		stats: stats,
		chart: NewChartBuffer(500),
	}

	s.vm.SetVariables(s.vars)
	if err := s.vm.Execute(source); err != nil {
		return nil, err
	}
	s.vm.SyncVariables(s.vars)

	if !s.vm.HasDobet() {
		return nil, ErrNoDobet
	}

	s.vars.Running = true
	s.vm.SetVariables(s.vars)
	return s, nil
}

// Bets converts the script's current nextbets into table bets.
func (s *Strategy) Bets() ([]table.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bets()
}

func (s *Strategy) bets() ([]table.Bet, error) {
	out := make([]table.Bet, 0, len(s.vars.NextBets))
	for i, sb := range s.vars.NextBets {
		b := sb.TableBet()
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("nextbets[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// Next records the settled round, calls dobet() and returns the bets for
// the next round. It returns ErrStopped once the script called stop().
func (s *Strategy) Next(st table.Settlement) ([]table.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.vars.Running {
		return nil, ErrStopped
	}

	wagered := st.Wagered.InexactFloat64()
	returned := st.Returned.InexactFloat64()
	balance := st.Balance.InexactFloat64()

	if len(st.Outcomes) > 0 {
		s.stats.RecordRound(RoundOutcome{Wagered: wagered, Returned: returned, Number: st.Number})
		s.chart.Push(ChartPoint{BetNumber: s.stats.Bets, Profit: s.stats.Profit, Win: returned > wagered})
	}
	// The table balance is authoritative.
	s.stats.Balance = balance

	previous := make([]ScriptBet, 0, len(st.Outcomes))
	for _, o := range st.Outcomes {
		previous = append(previous, scriptBetFrom(o.Bet))
	}

	s.vars.Balance = balance
	s.vars.Win = returned > wagered
	s.vars.Round = st.Round
	s.vars.LastNumber = st.Number
	s.vars.LastColor = string(st.Color)
	s.vars.LastNet = returned - wagered
	s.vars.PreviousBets = previous
	s.vars.pushHistory(st.Number)

	s.vm.SetVariables(s.vars)
	if err := s.vm.CallDobet(); err != nil {
		s.fail(err)
		return nil, err
	}
	s.vm.SyncVariables(s.vars)

	if s.vm.IsResetStatsRequested() {
		s.stats.Reset()
		s.chart.Reset()
	}
	if s.vm.IsStopRequested() {
		s.vars.Running = false
		return nil, ErrStopped
	}

	bets, err := s.bets()
	if err != nil {
		s.fail(err)
		return nil, err
	}
	return bets, nil
}

func (s *Strategy) fail(err error) {
	s.err = err
	s.vars.Running = false
}

// Running reports whether the strategy still produces bets.
func (s *Strategy) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars.Running
}

// Snapshot returns the current strategy state.
func (s *Strategy) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running: s.vars.Running,
		Stats:   *s.stats,
		Chart:   append([]ChartPoint(nil), s.chart.Points...),
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// Logs returns the script log buffer.
func (s *Strategy) Logs() []LogEntry {
	return s.vm.GetLogs()
}
