package wheel

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
)

var (
	ErrNilRNG       = errors.New("rng is required")
	ErrInvalidDelta = errors.New("tick delta must be a finite, non-negative number of seconds")
	ErrNoResult     = errors.New("round did not complete")
)

// Engine drives one wheel and one ball. It is not safe for concurrent use;
// the owner ticks it from a single goroutine.
type Engine struct {
	cfg    Config
	rng    RNG
	logger *zap.Logger
	bus    *Bus

	wheel WheelState
	ball  BallState

	round   uint64
	elapsed float64
	ticks   uint64
	last    *RoundResult
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New validates cfg and builds an idle engine.
func New(cfg Config, rng RNG, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("wheel config: %w", err)
	}
	if rng == nil {
		return nil, ErrNilRNG
	}

	e := &Engine{
		cfg:    cfg,
		rng:    rng,
		logger: zap.NewNop(),
		bus:    NewBus(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Subscribe registers h for events of the given kind.
func (e *Engine) Subscribe(kind EventKind, h Handler) {
	e.bus.Subscribe(kind, h)
}

// SubscribeAll registers h for every event.
func (e *Engine) SubscribeAll(h Handler) {
	e.bus.SubscribeAll(h)
}

// OnRoundComplete registers fn to receive each round result, once per round.
func (e *Engine) OnRoundComplete(fn func(RoundResult)) {
	e.bus.Subscribe(EventRoundComplete, func(ev Event) {
		fn(*ev.Result)
	})
}

// OnBallDropped registers fn to receive each drop off the bumper.
func (e *Engine) OnBallDropped(fn func(Drop)) {
	e.bus.Subscribe(EventBallDropped, func(ev Event) {
		fn(*ev.Drop)
	})
}

// StartSpin sets the wheel spinning. No-op while it already spins.
func (e *Engine) StartSpin() bool {
	if !e.wheel.start(&e.cfg, e.rng) {
		return false
	}
	e.logger.Debug("wheel spinning", zap.Float64("velocity", e.wheel.AngularVelocity))
	e.bus.publish(Event{Kind: EventSpinStarted, Round: e.round, Tick: e.ticks})
	return true
}

// LaunchBall puts the ball on the bumper and starts a new round. No-op while
// a round is in flight.
func (e *Engine) LaunchBall() bool {
	if !e.ball.launch(&e.cfg, e.rng) {
		return false
	}
	e.round++
	e.elapsed = 0
	e.ticks = 0
	e.last = nil
	e.wheel.RotationsSinceDrop = 0

	e.logger.Debug("ball launched",
		zap.Uint64("round", e.round),
		zap.Float64("angle", e.ball.Angle),
		zap.Float64("velocity", e.ball.AngularVelocity),
	)
	e.bus.publish(Event{Kind: EventBallLaunched, Round: e.round, Tick: e.ticks})
	return true
}

// Reset returns a settled ball to idle. It does nothing mid-round.
func (e *Engine) Reset() {
	if e.ball.Phase == PhaseSettled {
		e.ball.Phase = PhaseIdle
		e.ball.RotationsOnBumper = 0
		e.ball.OnRim = false
	}
}

// Tick advances the simulation by dt seconds: wheel first, then ball.
func (e *Engine) Tick(dt float64) error {
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}
	if dt == 0 {
		return nil
	}

	if e.ball.Active() {
		e.elapsed += dt
		e.ticks++
		if e.elapsed >= e.cfg.SafetyTimeout.Seconds() {
			e.forceFreeze()
			return nil
		}
	}

	switch e.wheel.tick(&e.cfg, dt, e.ball.Phase == PhaseRim) {
	case wheelCompleted:
		e.bus.publish(Event{Kind: EventWheelStopped, Round: e.round, Tick: e.ticks})
		e.freeze(false)
		return nil
	case wheelStalled:
		e.logger.Debug("wheel stopped before the ball dropped", zap.Uint64("round", e.round))
		e.bus.publish(Event{Kind: EventWheelStopped, Round: e.round, Tick: e.ticks})
	}

	if !e.ball.Active() {
		return nil
	}

	step := e.ball.tick(&e.cfg, dt, &e.wheel, e.rng)
	if step.dropped {
		drop := Drop{
			Round:     e.round,
			Rotations: e.ball.RotationsOnBumper,
			Velocity:  e.ball.AngularVelocity,
			Forced:    step.forced,
			Elapsed:   e.elapsed,
		}
		e.logger.Debug("ball dropped",
			zap.Uint64("round", e.round),
			zap.Float64("rotations", drop.Rotations),
			zap.Bool("forced", drop.Forced),
		)
		e.bus.publish(Event{Kind: EventBallDropped, Round: e.round, Tick: e.ticks, Drop: &drop})
	}

	// A wheel that is not turning can never complete its rotation.
	if e.ball.Phase == PhaseRim && !e.wheel.Spinning {
		e.freeze(false)
	}
	return nil
}

func (e *Engine) forceFreeze() {
	e.logger.Warn("forcing round freeze after safety timeout",
		zap.Uint64("round", e.round),
		zap.Stringer("phase", e.ball.Phase),
		zap.Float64("elapsed", e.elapsed),
		zap.Duration("timeout", e.cfg.SafetyTimeout),
	)
	if e.wheel.Spinning {
		e.wheel.stop()
		e.bus.publish(Event{Kind: EventWheelStopped, Round: e.round, Tick: e.ticks})
	}
	e.freeze(true)
}

func (e *Engine) freeze(forced bool) {
	bumperRotations := e.ball.RotationsOnBumper
	index, number := e.ball.freeze(&e.wheel)
	e.wheel.stop()

	res := RoundResult{
		Round:              e.round,
		WinningNumber:      number,
		PocketIndex:        index,
		Color:              ColorOf(number),
		Forced:             forced,
		Elapsed:            e.elapsed,
		Ticks:              e.ticks,
		BumperRotations:    bumperRotations,
		RotationsAfterDrop: e.wheel.RotationsSinceDrop,
	}
	e.last = &res

	e.logger.Info("round complete",
		zap.Uint64("round", res.Round),
		zap.Int("number", res.WinningNumber),
		zap.String("color", string(res.Color)),
		zap.Bool("forced", res.Forced),
		zap.Float64("elapsed", res.Elapsed),
	)

	ev := res
	e.bus.publish(Event{Kind: EventRoundComplete, Round: e.round, Tick: e.ticks, Result: &ev})
}

// LastResult returns the result of the current round once it has frozen.
func (e *Engine) LastResult() (RoundResult, bool) {
	if e.last == nil {
		return RoundResult{}, false
	}
	return *e.last, true
}

// Phase returns the round phase.
func (e *Engine) Phase() Phase {
	return e.ball.Phase
}

// Wheel returns a copy of the wheel state.
func (e *Engine) Wheel() WheelState {
	return e.wheel
}

// Ball returns a copy of the ball state.
func (e *Engine) Ball() BallState {
	return e.ball
}

// Round returns the number of rounds launched so far.
func (e *Engine) Round() uint64 {
	return e.round
}

// Snapshot is the read-only view renderers and status displays use. Betting
// code must use RoundResult instead. Dropped and Track report a real drop
// only: a round forced to settle from the bumper stays on the bumper track.
type Snapshot struct {
	Round                   uint64  `json:"round"`
	Phase                   Phase   `json:"phase"`
	Track                   Track   `json:"track"`
	Active                  bool    `json:"active"`
	Dropped                 bool    `json:"dropped"`
	Settled                 bool    `json:"settled"`
	WheelAngle              float64 `json:"wheel_angle"`
	WheelVelocity           float64 `json:"wheel_velocity"`
	WheelSpinning           bool    `json:"wheel_spinning"`
	WheelRotationsSinceDrop float64 `json:"wheel_rotations_since_drop"`
	BallAngle               float64 `json:"ball_angle"`
	BallVelocity            float64 `json:"ball_velocity"`
	BallRotationsOnBumper   float64 `json:"ball_rotations_on_bumper"`
	Elapsed                 float64 `json:"elapsed"`
	Ticks                   uint64  `json:"ticks"`
}

// Snapshot captures the observable state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Round:                   e.round,
		Phase:                   e.ball.Phase,
		Track:                   e.ball.Track(),
		Active:                  e.ball.Active(),
		Dropped:                 e.ball.Dropped(),
		Settled:                 e.ball.Settled(),
		WheelAngle:              e.wheel.Angle,
		WheelVelocity:           e.wheel.AngularVelocity,
		WheelSpinning:           e.wheel.Spinning,
		WheelRotationsSinceDrop: e.wheel.RotationsSinceDrop,
		BallAngle:               e.ball.Angle,
		BallVelocity:            e.ball.AngularVelocity,
		BallRotationsOnBumper:   e.ball.RotationsOnBumper,
		Elapsed:                 e.elapsed,
		Ticks:                   e.ticks,
	}
}
