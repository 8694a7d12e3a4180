package session

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/table"
)

// Commands are sent to the session inbox and handled between ticks by the
// goroutine that owns the engine. Reply channels must be buffered.

type PlaceBet struct {
	Bet   table.Bet
	Reply chan<- error
}

type ClearBets struct {
	Reply chan<- decimal.Decimal
}

// Spin is the space bar: start the wheel if it is idle, then launch the
// ball if it is not already in play.
type Spin struct {
	Reply chan<- error
}

type SetAutoplay struct {
	On    bool
	Reply chan<- error
}

type GetState struct {
	Reply chan<- State
}
