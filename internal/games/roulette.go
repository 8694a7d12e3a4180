package games

import (
	"fmt"
	"math"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

const (
	DefaultTickHz = 60.0
	MaxTickHz     = 2000.0
)

// RouletteGame plays a full physical spin per nonce: the wheel and ball are
// simulated tick by tick from the seeded stream until the ball settles.
type RouletteGame struct {
	// Config overrides the physics. The zero value uses wheel.DefaultConfig.
	Config *wheel.Config
}

// Spec returns metadata about the Roulette game
func (g *RouletteGame) Spec() GameSpec {
	return GameSpec{
		ID:          "roulette",
		Name:        "Roulette",
		MetricLabel: "pocket",
	}
}

// Evaluate simulates the round for seeds and nonce at params["tick_hz"].
func (g *RouletteGame) Evaluate(seeds engine.Seeds, nonce uint64, params map[string]any) (GameResult, error) {
	hz, err := TickHz(params)
	if err != nil {
		return GameResult{}, err
	}
	res, err := g.Play(seeds, nonce, hz)
	if err != nil {
		return GameResult{}, err
	}

	details := pocketDetails(res.WinningNumber)
	details["pocket_index"] = res.PocketIndex
	details["forced"] = res.Forced
	details["ticks"] = res.Ticks
	details["elapsed"] = res.Elapsed
	details["bumper_rotations"] = res.BumperRotations
	details["tick_hz"] = hz

	return GameResult{
		Metric:      float64(res.WinningNumber),
		MetricLabel: "pocket",
		Details:     details,
	}, nil
}

// Play runs the physics for one nonce and returns the raw round result.
func (g *RouletteGame) Play(seeds engine.Seeds, nonce uint64, hz float64, opts ...wheel.Option) (wheel.RoundResult, error) {
	cfg := wheel.DefaultConfig()
	if g.Config != nil {
		cfg = *g.Config
	}
	res, err := wheel.Simulate(cfg, engine.NewStream(seeds, nonce), 1/hz, opts...)
	if err != nil {
		return wheel.RoundResult{}, fmt.Errorf("simulate nonce %d: %w", nonce, err)
	}
	return res, nil
}

// TickHz reads the tick_hz parameter. Missing means DefaultTickHz.
func TickHz(params map[string]any) (float64, error) {
	raw, ok := params["tick_hz"]
	if !ok || raw == nil {
		return DefaultTickHz, nil
	}

	var hz float64
	switch v := raw.(type) {
	case float64:
		hz = v
	case float32:
		hz = float64(v)
	case int:
		hz = float64(v)
	case int64:
		hz = float64(v)
	case uint64:
		hz = float64(v)
	default:
		return 0, fmt.Errorf("%w: tick_hz must be a number, got %T", ErrInvalidParam, raw)
	}

	if math.IsNaN(hz) || hz < 1 || hz > MaxTickHz {
		return 0, fmt.Errorf("%w: tick_hz %v outside [1, %v]", ErrInvalidParam, hz, MaxTickHz)
	}
	return hz, nil
}

func pocketDetails(number int) map[string]any {
	return map[string]any{
		"pocket": number,
		"color":  string(wheel.ColorOf(number)),
		"even":   number != 0 && number%2 == 0,
		"low":    number >= 1 && number <= 18,
		"dozen":  wheel.Dozen(number),
		"column": wheel.Column(number),
	}
}
