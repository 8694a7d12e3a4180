package games

import (
	"math"

	"github.com/MJE43/roulette-sim/internal/engine"
)

// InstantRouletteGame resolves the pocket straight from the first float,
// floor(f * 37), without simulating the spin. It is kept for comparing the
// physical outcome distribution against a flat one.
type InstantRouletteGame struct{}

func (g *InstantRouletteGame) Spec() GameSpec {
	return GameSpec{
		ID:          "roulette-instant",
		Name:        "Instant Roulette",
		MetricLabel: "pocket",
	}
}

func (g *InstantRouletteGame) Evaluate(seeds engine.Seeds, nonce uint64, params map[string]any) (GameResult, error) {
	f := engine.Floats(seeds, nonce, 0, 1)[0]
	pocket := int(math.Floor(f * 37))

	details := pocketDetails(pocket)
	details["raw_float"] = f

	return GameResult{
		Metric:      float64(pocket),
		MetricLabel: "pocket",
		Details:     details,
	}, nil
}
