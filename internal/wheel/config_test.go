package wheel

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"negative spin range", func(c *Config) { c.SpinVelocityMin = -1 }, ErrInvalidRange},
		{"inverted spin range", func(c *Config) { c.SpinVelocityMax = 1 }, ErrInvalidRange},
		{"zero launch velocity", func(c *Config) { c.LaunchVelocityMin = 0 }, ErrInvalidRange},
		{"inverted launch range", func(c *Config) { c.LaunchVelocityMax = 2 }, ErrInvalidRange},
		{"negative wheel friction", func(c *Config) { c.WheelFriction = -0.1 }, ErrInvalidFriction},
		{"negative rim friction", func(c *Config) { c.RimFriction = -1 }, ErrInvalidFriction},
		{"min above max rotations", func(c *Config) { c.MinBumperRotations = 5 }, ErrInvalidRotation},
		{"zero rotations after drop", func(c *Config) { c.RotationsAfterDrop = 0 }, ErrInvalidRotation},
		{"zero hazard", func(c *Config) { c.DropHazardRate = 0 }, ErrInvalidHazard},
		{"factor above one", func(c *Config) { c.DropVelocityFactor = 1.5 }, ErrInvalidFactor},
		{"zero factor", func(c *Config) { c.DropVelocityFactor = 0 }, ErrInvalidFactor},
		{"negative epsilon", func(c *Config) { c.StopEpsilon = -0.01 }, ErrInvalidEpsilon},
		{"zero timeout", func(c *Config) { c.SafetyTimeout = 0 }, ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}

			// Construction fails fast with the same error.
			if _, err := New(cfg, rand.New(rand.NewSource(1))); !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRequiresRNG(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); !errors.Is(err, ErrNilRNG) {
		t.Fatalf("expected ErrNilRNG, got %v", err)
	}
}
