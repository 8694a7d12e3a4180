package api

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/games"
	"github.com/MJE43/roulette-sim/internal/scan"
	"github.com/MJE43/roulette-sim/internal/session"
	"github.com/MJE43/roulette-sim/internal/table"
	"github.com/MJE43/roulette-sim/internal/wheel"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeInvalidSeed   = "invalid_seed"
	ErrTypeInvalidParams = "invalid_params"
	ErrTypeValidation    = "validation_error"

	// Game-related errors
	ErrTypeGameNotFound   = "game_not_found"
	ErrTypeGameEvaluation = "game_evaluation_error"

	// Table errors
	ErrTypeInvalidBet          = "invalid_bet"
	ErrTypeBetLimit            = "bet_limit"
	ErrTypeInsufficientBalance = "insufficient_balance"
	ErrTypeConflict            = "conflict"

	// System errors
	ErrTypeNotFound           = "not_found"
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategoryTable      ErrorCategory = "table"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeInvalidSeed, ErrTypeInvalidParams, ErrTypeValidation:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeGameEvaluation:
		return CategoryGame
	case ErrTypeInvalidBet, ErrTypeBetLimit, ErrTypeInsufficientBalance, ErrTypeConflict:
		return CategoryTable
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// SimulateRequest plays one nonce headless and settles bets against it
type SimulateRequest struct {
	Seeds  engine.Seeds `json:"seeds"`
	Nonce  uint64       `json:"nonce"`
	TickHz float64      `json:"tick_hz,omitempty"`
	Bets   []table.Bet  `json:"bets,omitempty"`
}

// SimulateResponse carries the round and a settlement preview
type SimulateResponse struct {
	Result         wheel.RoundResult `json:"result"`
	Settlement     table.Settlement  `json:"settlement"`
	ServerSeedHash string            `json:"server_seed_hash"`
	TickHz         float64           `json:"tick_hz"`
	EngineVersion  string            `json:"engine_version"`
}

// VerifyRequest represents a single nonce verification request
type VerifyRequest struct {
	Game           string         `json:"game,omitempty"`
	Seeds          engine.Seeds   `json:"seeds"`
	Nonce          uint64         `json:"nonce"`
	TickHz         float64        `json:"tick_hz,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	ExpectedNumber *int           `json:"expected_number,omitempty"`
}

// VerifyResponse represents a single nonce verification response
type VerifyResponse struct {
	Nonce         uint64           `json:"nonce"`
	GameResult    games.GameResult `json:"game_result"`
	Match         *bool            `json:"match,omitempty"`
	EngineVersion string           `json:"engine_version"`
	Echo          VerifyRequest    `json:"echo"`
}

// ScanResponse represents the complete scan response
type ScanResponse struct {
	Hits          []scan.Hit       `json:"hits"`
	Summary       scan.Summary     `json:"summary"`
	EngineVersion string           `json:"engine_version"`
	Echo          scan.ScanRequest `json:"echo"`
}

// GamesResponse represents the games metadata response
type GamesResponse struct {
	Games         []games.GameSpec `json:"games"`
	EngineVersion string           `json:"engine_version"`
}

// SeedHashRequest represents a seed hashing request
type SeedHashRequest struct {
	ServerSeed string `json:"server_seed"`
}

// SeedHashResponse represents a seed hashing response
type SeedHashResponse struct {
	Hash          string `json:"hash"`
	EngineVersion string `json:"engine_version"`
}

// PlaceBetsRequest stakes one or more bets on the next round
type PlaceBetsRequest struct {
	Bets []table.Bet `json:"bets"`
}

// AutoplayRequest toggles strategy-driven play
type AutoplayRequest struct {
	On bool `json:"on"`
}

// TableResponse wraps the session state
type TableResponse struct {
	State         session.State    `json:"state"`
	Refund        *decimal.Decimal `json:"refund,omitempty"`
	EngineVersion string           `json:"engine_version"`
}
