package games

import (
	"errors"
	"sort"
	"sync"

	"github.com/MJE43/roulette-sim/internal/engine"
)

// ErrInvalidParam is returned when a game parameter is out of range.
var ErrInvalidParam = errors.New("invalid game parameter")

// GameSpec describes a registered game.
type GameSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MetricLabel string `json:"metric_label"`
}

// GameResult represents the outcome of a single game evaluation
type GameResult struct {
	Metric      float64        `json:"metric"`
	MetricLabel string         `json:"metric_label"`
	Details     map[string]any `json:"details,omitempty"`
}

// Game is a provably fair game evaluated from seeds and a nonce.
type Game interface {
	Spec() GameSpec
	Evaluate(seeds engine.Seeds, nonce uint64, params map[string]any) (GameResult, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Game)
)

// Register adds a game to the registry, replacing any game with the same ID.
func Register(game Game) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[game.Spec().ID] = game
}

// Get retrieves a game by ID
func Get(id string) (Game, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	game, ok := registry[id]
	return game, ok
}

// List returns the specs of all registered games sorted by ID.
func List() []GameSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()

	specs := make([]GameSpec, 0, len(registry))
	for _, g := range registry {
		specs = append(specs, g.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

func init() {
	Register(&RouletteGame{})
	Register(&InstantRouletteGame{})
}
