package api

import (
	"fmt"

	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// maxBetsPerRequest caps one layout submission.
const maxBetsPerRequest = 64

// ValidateSimulateRequest validates a simulate request
func ValidateSimulateRequest(req *SimulateRequest) error {
	if req.Seeds.Server == "" {
		return fmt.Errorf("server seed is required")
	}
	if req.Seeds.Client == "" {
		return fmt.Errorf("client seed is required")
	}
	if req.TickHz != 0 && (req.TickHz < 1 || req.TickHz > games.MaxTickHz) {
		return fmt.Errorf("tick_hz must be between 1 and %g", games.MaxTickHz)
	}
	if len(req.Bets) > maxBetsPerRequest {
		return fmt.Errorf("too many bets (max %d)", maxBetsPerRequest)
	}
	for i, b := range req.Bets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bets[%d]: %w", i, err)
		}
		if !b.Amount.IsPositive() {
			return fmt.Errorf("bets[%d]: amount must be positive", i)
		}
	}
	return nil
}

// ValidateVerifyRequest validates a verify request
func ValidateVerifyRequest(req *VerifyRequest) error {
	if req.Game == "" {
		req.Game = "roulette"
	}
	if _, exists := games.Get(req.Game); !exists {
		return fmt.Errorf("game '%s' not found", req.Game)
	}
	if req.Seeds.Server == "" {
		return fmt.Errorf("server seed is required")
	}
	if req.Seeds.Client == "" {
		return fmt.Errorf("client seed is required")
	}
	if req.ExpectedNumber != nil && !wheel.ValidNumber(*req.ExpectedNumber) {
		return fmt.Errorf("expected_number must be between 0 and 36")
	}
	return nil
}

// ValidateSeedHashRequest validates a seed hash request
func ValidateSeedHashRequest(req *SeedHashRequest) error {
	if req.ServerSeed == "" {
		return fmt.Errorf("server_seed is required")
	}
	return nil
}

// ValidatePlaceBetsRequest validates a bet submission
func ValidatePlaceBetsRequest(req *PlaceBetsRequest) error {
	if len(req.Bets) == 0 {
		return fmt.Errorf("at least one bet is required")
	}
	if len(req.Bets) > maxBetsPerRequest {
		return fmt.Errorf("too many bets (max %d)", maxBetsPerRequest)
	}
	return nil
}
