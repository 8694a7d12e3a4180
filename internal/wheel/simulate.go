package wheel

import (
	"fmt"
	"math"
)

// Simulate plays one full round headless: spin, launch, then fixed ticks of
// dt seconds until the round freezes. The safety timeout bounds the loop.
func Simulate(cfg Config, rng RNG, dt float64, opts ...Option) (RoundResult, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return RoundResult{}, fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}

	e, err := New(cfg, rng, opts...)
	if err != nil {
		return RoundResult{}, err
	}
	return e.Play(dt)
}

// Play starts the wheel, launches the ball and ticks until the result.
func (e *Engine) Play(dt float64) (RoundResult, error) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return RoundResult{}, fmt.Errorf("%w: %v", ErrInvalidDelta, dt)
	}

	e.StartSpin()
	e.LaunchBall()

	maxTicks := int(math.Ceil(e.cfg.SafetyTimeout.Seconds()/dt)) + 2
	for i := 0; i < maxTicks; i++ {
		if err := e.Tick(dt); err != nil {
			return RoundResult{}, err
		}
		if res, ok := e.LastResult(); ok {
			return res, nil
		}
	}
	return RoundResult{}, ErrNoResult
}
