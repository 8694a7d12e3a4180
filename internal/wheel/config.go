package wheel

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange    = errors.New("invalid velocity range")
	ErrInvalidFriction = errors.New("friction rate must be >= 0")
	ErrInvalidRotation = errors.New("invalid rotation bounds")
	ErrInvalidHazard   = errors.New("drop hazard rate must be > 0")
	ErrInvalidFactor   = errors.New("drop velocity factor must be in (0, 1]")
	ErrInvalidEpsilon  = errors.New("stop epsilon must be >= 0")
	ErrInvalidTimeout  = errors.New("safety timeout must be > 0")
)

// Config holds every tunable constant of the physics. Rates are per second
// of simulated time so a round behaves the same at any tick frequency.
type Config struct {
	SpinVelocityMin float64 `yaml:"spin_velocity_min" json:"spin_velocity_min"` // rad/s
	SpinVelocityMax float64 `yaml:"spin_velocity_max" json:"spin_velocity_max"`

	LaunchVelocityMin float64 `yaml:"launch_velocity_min" json:"launch_velocity_min"` // rad/s
	LaunchVelocityMax float64 `yaml:"launch_velocity_max" json:"launch_velocity_max"`

	// Exponential decay rates k in v *= exp(-k*dt).
	WheelFriction  float64 `yaml:"wheel_friction" json:"wheel_friction"`
	BumperFriction float64 `yaml:"bumper_friction" json:"bumper_friction"`
	RimFriction    float64 `yaml:"rim_friction" json:"rim_friction"`

	MinBumperRotations float64 `yaml:"min_bumper_rotations" json:"min_bumper_rotations"`
	MaxBumperRotations float64 `yaml:"max_bumper_rotations" json:"max_bumper_rotations"`

	// DropHazardRate is the drop hazard (1/s) of a ball at rest. It scales
	// linearly down to zero at LaunchVelocityMax.
	DropHazardRate     float64 `yaml:"drop_hazard_rate" json:"drop_hazard_rate"`
	DropVelocityFactor float64 `yaml:"drop_velocity_factor" json:"drop_velocity_factor"`

	StopEpsilon        float64       `yaml:"stop_epsilon" json:"stop_epsilon"`
	RotationsAfterDrop float64       `yaml:"rotations_after_drop" json:"rotations_after_drop"`
	SafetyTimeout      time.Duration `yaml:"safety_timeout" json:"safety_timeout"`
}

// DefaultConfig returns the tuned defaults. The bumper and rim friction
// match 0.995 and 0.97 per frame at 60 Hz; the hazard matches a 2% per
// frame chance at rest.
func DefaultConfig() Config {
	return Config{
		SpinVelocityMin:    5.0,
		SpinVelocityMax:    8.0,
		LaunchVelocityMin:  8.0,
		LaunchVelocityMax:  12.0,
		WheelFriction:      0.05,
		BumperFriction:     0.30,
		RimFriction:        1.83,
		MinBumperRotations: 3.0,
		MaxBumperRotations: 4.0,
		DropHazardRate:     1.2,
		DropVelocityFactor: 0.7,
		StopEpsilon:        0.05,
		RotationsAfterDrop: 1.0,
		SafetyTimeout:      60 * time.Second,
	}
}

// Validate checks the configuration. Engines refuse to start with an
// invalid config.
func (c Config) Validate() error {
	if c.SpinVelocityMin <= 0 || c.SpinVelocityMax < c.SpinVelocityMin {
		return fmt.Errorf("spin velocity [%g, %g]: %w", c.SpinVelocityMin, c.SpinVelocityMax, ErrInvalidRange)
	}
	if c.LaunchVelocityMin <= 0 || c.LaunchVelocityMax < c.LaunchVelocityMin {
		return fmt.Errorf("launch velocity [%g, %g]: %w", c.LaunchVelocityMin, c.LaunchVelocityMax, ErrInvalidRange)
	}
	frictions := []struct {
		name string
		k    float64
	}{
		{"wheel_friction", c.WheelFriction},
		{"bumper_friction", c.BumperFriction},
		{"rim_friction", c.RimFriction},
	}
	for _, f := range frictions {
		if f.k < 0 {
			return fmt.Errorf("%s %g: %w", f.name, f.k, ErrInvalidFriction)
		}
	}
	if c.MinBumperRotations < 0 || c.MaxBumperRotations < c.MinBumperRotations || c.MaxBumperRotations <= 0 {
		return fmt.Errorf("bumper rotations [%g, %g]: %w", c.MinBumperRotations, c.MaxBumperRotations, ErrInvalidRotation)
	}
	if c.RotationsAfterDrop <= 0 {
		return fmt.Errorf("rotations after drop %g: %w", c.RotationsAfterDrop, ErrInvalidRotation)
	}
	if c.DropHazardRate <= 0 {
		return fmt.Errorf("drop hazard %g: %w", c.DropHazardRate, ErrInvalidHazard)
	}
	if c.DropVelocityFactor <= 0 || c.DropVelocityFactor > 1 {
		return fmt.Errorf("drop velocity factor %g: %w", c.DropVelocityFactor, ErrInvalidFactor)
	}
	if c.StopEpsilon < 0 {
		return fmt.Errorf("stop epsilon %g: %w", c.StopEpsilon, ErrInvalidEpsilon)
	}
	if c.SafetyTimeout <= 0 {
		return fmt.Errorf("safety timeout %s: %w", c.SafetyTimeout, ErrInvalidTimeout)
	}
	return nil
}
