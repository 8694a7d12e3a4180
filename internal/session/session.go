package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/monitoring"
	"github.com/MJE43/roulette-sim/internal/scripting"
	"github.com/MJE43/roulette-sim/internal/store"
	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

var (
	ErrRoundInProgress = errors.New("round in progress")
	ErrBettingClosed   = errors.New("betting is closed while the ball is in play")
	ErrNoStrategy      = errors.New("no strategy loaded")
	ErrClosed          = errors.New("session closed")
)

const inboxSize = 256

// Recorder persists settled rounds. store.DB satisfies it.
type Recorder interface {
	SaveRound(round *store.Round) error
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	ID            string
	TickHz        float64
	Seeds         engine.Seeds
	Wheel         wheel.Config
	Table         table.Config
	Strategy      *scripting.Strategy
	Recorder      Recorder
	Metrics       *monitoring.Metrics
	Logger        *zap.Logger
	EngineVersion string
}

// RoundSummary is the last completed round with its settlement.
type RoundSummary struct {
	ID         string            `json:"id,omitempty"`
	Result     wheel.RoundResult `json:"result"`
	Settlement table.Settlement  `json:"settlement"`
}

// State is the view served to clients.
type State struct {
	SessionID      string              `json:"session_id"`
	Nonce          uint64              `json:"nonce"`
	Status         string              `json:"status"`
	Snapshot       wheel.Snapshot      `json:"snapshot"`
	Balance        decimal.Decimal     `json:"balance"`
	OpenBets       []table.Bet         `json:"open_bets"`
	Exposure       decimal.Decimal     `json:"exposure"`
	Last           *RoundSummary       `json:"last,omitempty"`
	Autoplay       bool                `json:"autoplay"`
	Strategy       *scripting.Snapshot `json:"strategy,omitempty"`
	ServerSeedHash string              `json:"server_seed_hash"`
	ClientSeed     string              `json:"client_seed"`
	TickHz         float64             `json:"tick_hz"`
}

// Session owns one wheel, one table and their round loop. All mutation
// happens on the goroutine running Run; other goroutines talk to it through
// the inbox.
type Session struct {
	id     string
	opts   Options
	dt     float64
	logger *zap.Logger

	inbox chan any
	done  chan struct{}

	engine   *wheel.Engine
	table    *table.Table
	strategy *scripting.Strategy
	recorder Recorder
	metrics  *monitoring.Metrics

	nonce     uint64
	last      *RoundSummary
	autoplay  bool
	spinQueue bool
}

// New builds an idle session. Each round draws from its own seeded stream
// keyed by the round nonce, so any recorded round can be replayed.
func New(opts Options) (*Session, error) {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.TickHz <= 0 {
		opts.TickHz = 60
	}
	if opts.Seeds.Server == "" {
		opts.Seeds.Server = uuid.NewString()
	}
	if opts.Seeds.Client == "" {
		opts.Seeds.Client = opts.ID
	}
	if opts.Wheel == (wheel.Config{}) {
		opts.Wheel = wheel.DefaultConfig()
	}
	if opts.Table == (table.Config{}) {
		opts.Table = table.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		id:       opts.ID,
		opts:     opts,
		dt:       1 / opts.TickHz,
		logger:   opts.Logger.With(zap.String("session", opts.ID)),
		inbox:    make(chan any, inboxSize),
		done:     make(chan struct{}),
		table:    table.New(opts.Table),
		strategy: opts.Strategy,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
	}

	e, err := s.newRoundEngine(1)
	if err != nil {
		return nil, err
	}
	s.engine = e
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) newRoundEngine(nonce uint64) (*wheel.Engine, error) {
	e, err := wheel.New(s.opts.Wheel, engine.NewStream(s.opts.Seeds, nonce),
		wheel.WithLogger(s.logger.With(zap.Uint64("nonce", nonce))))
	if err != nil {
		return nil, err
	}
	e.OnBallDropped(s.metrics.ObserveDrop)
	e.OnRoundComplete(s.onRoundComplete)
	return e, nil
}

// Run ticks the engine at the configured rate and serves commands until ctx
// is cancelled. Every tick advances the simulation by exactly 1/TickHz
// seconds, so a slow host slows the round down without changing it.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(time.Duration(float64(time.Second) * s.dt))
	defer ticker.Stop()

	s.logger.Info("session started",
		zap.Float64("tick_hz", s.opts.TickHz),
		zap.String("server_seed_hash", engine.HashServerSeed(s.opts.Seeds.Server)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopped", zap.Uint64("rounds", s.nonce))
			return nil
		case cmd := <-s.inbox:
			s.handle(cmd)
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	if err := s.engine.Tick(s.dt); err != nil {
		s.logger.Error("tick failed", zap.Error(err))
		return
	}
	if s.spinQueue {
		s.spinQueue = false
		if err := s.spin(); err != nil {
			s.logger.Warn("autoplay spin failed", zap.Error(err))
			s.autoplay = false
		}
	}
}

func (s *Session) handle(cmd any) {
	switch c := cmd.(type) {
	case PlaceBet:
		c.Reply <- s.placeBet(c.Bet)
	case ClearBets:
		c.Reply <- s.table.Clear()
	case Spin:
		c.Reply <- s.spin()
	case SetAutoplay:
		c.Reply <- s.setAutoplay(c.On)
	case GetState:
		c.Reply <- s.state()
	default:
		s.logger.Warn("unknown command", zap.String("type", fmt.Sprintf("%T", cmd)))
	}
}

func (s *Session) bettingOpen() bool {
	return !s.engine.Ball().Active()
}

func (s *Session) placeBet(b table.Bet) error {
	if !s.bettingOpen() {
		return ErrBettingClosed
	}
	return s.table.Place(b)
}

// spin mirrors the space bar: an idle wheel starts a new round on a fresh
// stream, then the ball launches if it is not already in play.
func (s *Session) spin() error {
	if s.engine.Ball().Active() {
		return ErrRoundInProgress
	}

	if !s.engine.Wheel().Spinning {
		e, err := s.newRoundEngine(s.nonce + 1)
		if err != nil {
			return err
		}
		s.engine = e
		s.nonce++
		s.engine.StartSpin()
	}
	s.engine.LaunchBall()

	s.logger.Debug("round started",
		zap.Uint64("nonce", s.nonce),
		zap.Int("bets", len(s.table.Open())),
		zap.String("exposure", s.table.Exposure().String()),
	)
	return nil
}

func (s *Session) setAutoplay(on bool) error {
	// Off pauses autoplay. The strategy keeps its state and resumes on the
	// next call with on; only the script's own stop() or a failure ends it.
	if !on {
		s.autoplay = false
		s.spinQueue = false
		return nil
	}
	if s.strategy == nil {
		return ErrNoStrategy
	}
	if !s.strategy.Running() {
		return scripting.ErrStopped
	}
	if s.engine.Ball().Active() {
		return ErrRoundInProgress
	}

	bets, err := s.strategy.Bets()
	if err != nil {
		return err
	}
	s.table.Clear()
	for _, b := range bets {
		if err := s.table.Place(b); err != nil {
			s.table.Clear()
			return err
		}
	}
	s.autoplay = true
	return s.spin()
}

func (s *Session) onRoundComplete(res wheel.RoundResult) {
	// Every round runs on its own engine; the session nonce numbers them.
	res.Round = s.nonce

	st, err := s.table.Settle(res)
	if err != nil {
		s.logger.Error("settle failed", zap.Uint64("round", res.Round), zap.Error(err))
		return
	}

	s.metrics.ObserveRound(res)
	s.metrics.ObserveSettlement(st)

	summary := &RoundSummary{Result: res, Settlement: st}
	if s.recorder != nil {
		rec := s.record(res, st)
		if err := s.recorder.SaveRound(rec); err != nil {
			s.logger.Error("failed to record round", zap.Uint64("round", res.Round), zap.Error(err))
		} else {
			summary.ID = rec.ID
		}
	}
	s.last = summary

	s.logger.Info("round settled",
		zap.Uint64("round", res.Round),
		zap.Int("number", res.WinningNumber),
		zap.String("color", string(res.Color)),
		zap.Int("bets", len(st.Outcomes)),
		zap.String("net", st.Net.String()),
		zap.String("balance", st.Balance.String()),
	)

	if s.autoplay {
		s.nextAutoplayRound(st)
	}
}

func (s *Session) nextAutoplayRound(st table.Settlement) {
	bets, err := s.strategy.Next(st)
	if err != nil {
		if errors.Is(err, scripting.ErrStopped) {
			s.logger.Info("strategy stopped", zap.Uint64("round", st.Round))
		} else {
			s.logger.Warn("strategy failed", zap.Uint64("round", st.Round), zap.Error(err))
		}
		s.autoplay = false
		return
	}

	for _, b := range bets {
		if err := s.table.Place(b); err != nil {
			s.logger.Info("autoplay halted", zap.Stringer("bet", b), zap.Error(err))
			s.table.Clear()
			s.autoplay = false
			return
		}
	}
	s.spinQueue = true
}

func (s *Session) record(res wheel.RoundResult, st table.Settlement) *store.Round {
	rec := &store.Round{
		SessionID:      s.id,
		Round:          res.Round,
		WinningNumber:  res.WinningNumber,
		PocketIndex:    res.PocketIndex,
		Color:          string(res.Color),
		Forced:         res.Forced,
		Elapsed:        res.Elapsed,
		Ticks:          res.Ticks,
		ServerSeedHash: engine.HashServerSeed(s.opts.Seeds.Server),
		ClientSeed:     s.opts.Seeds.Client,
		Nonce:          s.nonce,
		TickHz:         s.opts.TickHz,
		Wagered:        st.Wagered,
		Returned:       st.Returned,
		Balance:        st.Balance,
		EngineVersion:  s.opts.EngineVersion,
	}
	for _, o := range st.Outcomes {
		rec.Bets = append(rec.Bets, store.Bet{
			Kind:    string(o.Bet.Kind),
			Numbers: o.Bet.Numbers,
			Value:   o.Bet.Value,
			Amount:  o.Bet.Amount,
			Payout:  o.Payout,
			Won:     o.Won,
		})
	}
	return rec
}

func (s *Session) state() State {
	snap := s.engine.Snapshot()
	snap.Round = s.nonce

	var last *wheel.RoundResult
	if s.last != nil {
		last = &s.last.Result
	}

	st := State{
		SessionID:      s.id,
		Nonce:          s.nonce,
		Status:         StatusText(snap, last),
		Snapshot:       snap,
		Balance:        s.table.Balance(),
		OpenBets:       s.table.Open(),
		Exposure:       s.table.Exposure(),
		Last:           s.last,
		Autoplay:       s.autoplay,
		ServerSeedHash: engine.HashServerSeed(s.opts.Seeds.Server),
		ClientSeed:     s.opts.Seeds.Client,
		TickHz:         s.opts.TickHz,
	}
	if s.strategy != nil {
		ss := s.strategy.Snapshot()
		st.Strategy = &ss
	}
	return st
}

// send delivers cmd to the loop. It fails once Run has returned.
func (s *Session) send(ctx context.Context, cmd any) error {
	select {
	case s.inbox <- cmd:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Session, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// PlaceBet stakes b on the next round.
func (s *Session) PlaceBet(ctx context.Context, b table.Bet) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, PlaceBet{Bet: b, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// ClearBets removes the open bets and returns the refunded amount.
func (s *Session) ClearBets(ctx context.Context) (decimal.Decimal, error) {
	reply := make(chan decimal.Decimal, 1)
	if err := s.send(ctx, ClearBets{Reply: reply}); err != nil {
		return decimal.Zero, err
	}
	return await(ctx, s, reply)
}

// Spin starts a round.
func (s *Session) Spin(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, Spin{Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// SetAutoplay starts or stops strategy-driven play.
func (s *Session) SetAutoplay(ctx context.Context, on bool) error {
	reply := make(chan error, 1)
	if err := s.send(ctx, SetAutoplay{On: on, Reply: reply}); err != nil {
		return err
	}
	err, waitErr := await(ctx, s, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

// State returns the current session view.
func (s *Session) State(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := s.send(ctx, GetState{Reply: reply}); err != nil {
		return State{}, err
	}
	return await(ctx, s, reply)
}
