package store

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a round does not exist.
var ErrNotFound = errors.New("round not found")

// DB represents the database interface
type DB interface {
	Close() error
	Ping() error
	Migrate() error
	SaveRound(round *Round) error
	GetRound(id string) (*Round, error)
	ListRounds(query RoundsQuery) (*RoundsList, error)
}

// RoundsQuery represents query parameters for listing rounds
type RoundsQuery struct {
	SessionID string `json:"sessionId,omitempty"`
	Number    *int   `json:"number,omitempty"`
	Forced    *bool  `json:"forced,omitempty"`
	Page      int    `json:"page"`
	PerPage   int    `json:"perPage"`
}

// RoundsList represents paginated rounds response
type RoundsList struct {
	Rounds     []Round `json:"rounds"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}

// Round is one completed spin with its settled bets.
type Round struct {
	ID             string          `json:"id" db:"id"`
	SessionID      string          `json:"session_id" db:"session_id"`
	Round          uint64          `json:"round" db:"round"`
	WinningNumber  int             `json:"winning_number" db:"winning_number"`
	PocketIndex    int             `json:"pocket_index" db:"pocket_index"`
	Color          string          `json:"color" db:"color"`
	Forced         bool            `json:"forced" db:"forced"`
	Elapsed        float64         `json:"elapsed" db:"elapsed"`
	Ticks          uint64          `json:"ticks" db:"ticks"`
	ServerSeedHash string          `json:"server_seed_hash,omitempty" db:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed,omitempty" db:"client_seed"`
	Nonce          uint64          `json:"nonce" db:"nonce"`
	TickHz         float64         `json:"tick_hz" db:"tick_hz"`
	Wagered        decimal.Decimal `json:"wagered" db:"wagered"`
	Returned       decimal.Decimal `json:"returned" db:"returned"`
	Balance        decimal.Decimal `json:"balance" db:"balance"`
	EngineVersion  string          `json:"engine_version" db:"engine_version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	Bets           []Bet           `json:"bets,omitempty"`
}

// Net is the player's result for the round.
func (r Round) Net() decimal.Decimal {
	return r.Returned.Sub(r.Wagered)
}

// Bet is a settled bet of a round.
type Bet struct {
	ID      int64           `json:"id" db:"id"`
	RoundID string          `json:"round_id" db:"round_id"`
	Kind    string          `json:"kind" db:"kind"`
	Numbers []int           `json:"numbers,omitempty" db:"numbers"` // JSON array in the column
	Value   int             `json:"value,omitempty" db:"value"`
	Amount  decimal.Decimal `json:"amount" db:"amount"`
	Payout  decimal.Decimal `json:"payout" db:"payout"`
	Won     bool            `json:"won" db:"won"`
}
