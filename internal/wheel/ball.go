package wheel

import "math"

// Phase is the round state of the ball.
//
//	Idle -> Bumper -> Rim -> Settled -> (launch or reset) -> ...
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseBumper
	PhaseRim
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBumper:
		return "bumper"
	case PhaseRim:
		return "rim"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Track is the ring the ball currently runs on.
type Track uint8

const (
	TrackBumper Track = iota
	TrackPocketRim
)

func (t Track) String() string {
	if t == TrackPocketRim {
		return "pocket_rim"
	}
	return "bumper"
}

// MarshalText encodes the track by name.
func (t Track) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// BallState is the ball. Its angle is absolute, in the same frame as the
// wheel angle.
type BallState struct {
	Angle             float64 `json:"angle"`
	AngularVelocity   float64 `json:"angular_velocity"`
	Phase             Phase   `json:"phase"`
	RotationsOnBumper float64 `json:"rotations_on_bumper"`
	// OnRim is set by a real drop. A round forced to settle from the bumper
	// keeps it false.
	OnRim bool `json:"on_rim"`
}

// Track is the ring the ball last ran on.
func (b BallState) Track() Track {
	if b.Dropped() {
		return TrackPocketRim
	}
	return TrackBumper
}

// Active is true from launch until the round freezes.
func (b BallState) Active() bool {
	return b.Phase == PhaseBumper || b.Phase == PhaseRim
}

// Dropped is true once the ball left the bumper.
func (b BallState) Dropped() bool {
	return b.OnRim || b.Phase == PhaseRim
}

// Settled is true once the round outcome is frozen.
func (b BallState) Settled() bool {
	return b.Phase == PhaseSettled
}

func (b *BallState) launch(cfg *Config, rng RNG) bool {
	if b.Active() {
		return false
	}
	b.Phase = PhaseBumper
	b.RotationsOnBumper = 0
	b.OnRim = false
	b.Angle = uniform(rng, 0, TwoPi)
	b.AngularVelocity = uniform(rng, cfg.LaunchVelocityMin, cfg.LaunchVelocityMax)
	return true
}

// dropProbability is the chance the ball leaves the bumper within dt,
// from a hazard that grows as the ball slows.
func dropProbability(cfg *Config, velocity, dt float64) float64 {
	slowness := (cfg.LaunchVelocityMax - velocity) / cfg.LaunchVelocityMax
	if slowness <= 0 {
		return 0
	}
	if slowness > 1 {
		slowness = 1
	}
	hazard := cfg.DropHazardRate * slowness
	return 1 - math.Exp(-hazard*dt)
}

type ballStep struct {
	dropped bool
	forced  bool
}

func (b *BallState) tick(cfg *Config, dt float64, wheel *WheelState, rng RNG) ballStep {
	var step ballStep

	switch b.Phase {
	case PhaseBumper:
		traveled := b.AngularVelocity * dt
		b.Angle = NormalizeAngle(b.Angle + traveled)
		b.RotationsOnBumper += traveled / TwoPi

		if b.RotationsOnBumper >= cfg.MinBumperRotations {
			if rng.Float64() < dropProbability(cfg, b.AngularVelocity, dt) {
				step.dropped = true
			} else if b.RotationsOnBumper >= cfg.MaxBumperRotations {
				step.dropped = true
				step.forced = true
			}
		}
		if step.dropped {
			b.Phase = PhaseRim
			b.OnRim = true
			b.AngularVelocity *= cfg.DropVelocityFactor
		}
		b.AngularVelocity = decay(b.AngularVelocity, cfg.BumperFriction, dt)

	case PhaseRim:
		// The pocket rim carries the ball along with the wheel.
		b.Angle = NormalizeAngle(b.Angle + (b.AngularVelocity+wheel.AngularVelocity)*dt)
		b.AngularVelocity = decay(b.AngularVelocity, cfg.RimFriction, dt)
	}

	return step
}

// freeze resolves the pocket under the ball and parks the ball at its center.
func (b *BallState) freeze(wheel *WheelState) (index, number int) {
	index, number = ResolvePocket(b.Angle, wheel.Angle)
	b.Phase = PhaseSettled
	b.AngularVelocity = 0
	b.Angle = PocketCenter(index, wheel.Angle)
	return index, number
}
