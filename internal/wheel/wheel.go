package wheel

import "math"

// RNG is the randomness source of the physics. *engine.Stream and
// *math/rand.Rand both satisfy it.
type RNG interface {
	Float64() float64
}

func uniform(rng RNG, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// decay applies exponential friction at rate k over dt seconds.
func decay(v, k, dt float64) float64 {
	return v * math.Exp(-k*dt)
}

// WheelState is the rotating wheel head.
type WheelState struct {
	Angle              float64 `json:"angle"`
	AngularVelocity    float64 `json:"angular_velocity"`
	Spinning           bool    `json:"spinning"`
	RotationsSinceDrop float64 `json:"rotations_since_drop"`
}

type wheelStep uint8

const (
	wheelIdle wheelStep = iota
	wheelTurning
	// wheelCompleted means the wheel finished its rotations after the drop
	// and the round must freeze this tick.
	wheelCompleted
	// wheelStalled means the wheel ran out of speed before the ball dropped.
	wheelStalled
)

func (w *WheelState) start(cfg *Config, rng RNG) bool {
	if w.Spinning {
		return false
	}
	w.AngularVelocity = uniform(rng, cfg.SpinVelocityMin, cfg.SpinVelocityMax)
	w.Spinning = true
	return true
}

func (w *WheelState) tick(cfg *Config, dt float64, ballOnRim bool) wheelStep {
	if !w.Spinning {
		return wheelIdle
	}

	traveled := w.AngularVelocity * dt
	w.Angle = NormalizeAngle(w.Angle + traveled)
	w.AngularVelocity = decay(w.AngularVelocity, cfg.WheelFriction, dt)

	if ballOnRim {
		// traveled is taken before normalization, so a tick that crosses
		// zero still counts its full arc.
		w.RotationsSinceDrop += traveled / TwoPi
		if w.RotationsSinceDrop >= cfg.RotationsAfterDrop {
			w.stop()
			return wheelCompleted
		}
		return wheelTurning
	}

	if w.AngularVelocity < cfg.StopEpsilon {
		w.stop()
		return wheelStalled
	}
	return wheelTurning
}

func (w *WheelState) stop() {
	w.Spinning = false
	w.AngularVelocity = 0
}
