package table

import (
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/wheel"
)

// Config holds the table limits.
type Config struct {
	StartingBalance decimal.Decimal `yaml:"starting_balance" json:"starting_balance"`
	MinBet          decimal.Decimal `yaml:"min_bet" json:"min_bet"`
	MaxBet          decimal.Decimal `yaml:"max_bet" json:"max_bet"`
}

// DefaultConfig starts the player with 1000 and allows stakes from 0.01 to
// 1000 per bet.
func DefaultConfig() Config {
	return Config{
		StartingBalance: decimal.NewFromInt(1000),
		MinBet:          decimal.New(1, -2),
		MaxBet:          decimal.NewFromInt(1000),
	}
}

// Outcome is the settlement of one bet.
type Outcome struct {
	Bet    Bet             `json:"bet"`
	Won    bool            `json:"won"`
	Payout decimal.Decimal `json:"payout"` // stake plus winnings, zero on a loss
	Profit decimal.Decimal `json:"profit"`
}

// Settlement is the result of settling every open bet against one round.
type Settlement struct {
	Round    uint64          `json:"round"`
	Number   int             `json:"number"`
	Color    wheel.Color     `json:"color"`
	Outcomes []Outcome       `json:"outcomes"`
	Wagered  decimal.Decimal `json:"wagered"`
	Returned decimal.Decimal `json:"returned"`
	Net      decimal.Decimal `json:"net"`
	Balance  decimal.Decimal `json:"balance"`
}

// Wins counts the winning bets.
func (s Settlement) Wins() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Won {
			n++
		}
	}
	return n
}

// Evaluate settles bets against number without touching any balance.
func Evaluate(bets []Bet, number int) Settlement {
	s := Settlement{
		Number:   number,
		Color:    wheel.ColorOf(number),
		Outcomes: make([]Outcome, 0, len(bets)),
	}
	for _, b := range bets {
		o := Outcome{Bet: b, Profit: b.Amount.Neg()}
		if b.Wins(number) {
			mult, _ := b.Kind.Payout()
			o.Won = true
			o.Payout = b.Amount.Add(b.Amount.Mul(mult))
			o.Profit = o.Payout.Sub(b.Amount)
		}
		s.Outcomes = append(s.Outcomes, o)
		s.Wagered = s.Wagered.Add(b.Amount)
		s.Returned = s.Returned.Add(o.Payout)
	}
	s.Net = s.Returned.Sub(s.Wagered)
	return s
}

// Table is the betting layout of one player. Stakes are debited when placed
// and credited back with winnings on settlement.
type Table struct {
	mu      sync.Mutex
	cfg     Config
	balance decimal.Decimal
	open    []Bet

	settled     bool
	lastSettled uint64
}

// New creates a table with the starting balance of cfg.
func New(cfg Config) *Table {
	return &Table{
		cfg:     cfg,
		balance: cfg.StartingBalance,
	}
}

// Balance returns the current balance, excluding open stakes.
func (t *Table) Balance() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance
}

// Open returns a copy of the open bets.
func (t *Table) Open() []Bet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.open)
}

// Exposure is the total of open stakes.
func (t *Table) Exposure() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := decimal.Zero
	for _, b := range t.open {
		total = total.Add(b.Amount)
	}
	return total
}

// Place validates b and debits its stake.
func (t *Table) Place(b Bet) error {
	if err := b.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if b.Amount.LessThan(t.cfg.MinBet) {
		return fmt.Errorf("%w: %s < %s", ErrMinBet, b.Amount, t.cfg.MinBet)
	}
	if t.cfg.MaxBet.IsPositive() && b.Amount.GreaterThan(t.cfg.MaxBet) {
		return fmt.Errorf("%w: %s > %s", ErrMaxBet, b.Amount, t.cfg.MaxBet)
	}
	if b.Amount.GreaterThan(t.balance) {
		return fmt.Errorf("%w: stake %s, balance %s", ErrInsufficientBalance, b.Amount, t.balance)
	}

	b.Numbers = slices.Clone(b.Numbers)
	t.balance = t.balance.Sub(b.Amount)
	t.open = append(t.open, b)
	return nil
}

// Clear removes all open bets and refunds their stakes. It returns the
// refunded amount.
func (t *Table) Clear() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()

	refund := decimal.Zero
	for _, b := range t.open {
		refund = refund.Add(b.Amount)
	}
	t.balance = t.balance.Add(refund)
	t.open = nil
	return refund
}

// Settle pays out the open bets against res and clears them. Each round
// settles at most once.
func (t *Table) Settle(res wheel.RoundResult) (Settlement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.settled && res.Round <= t.lastSettled {
		return Settlement{}, fmt.Errorf("%w: round %d", ErrAlreadySettled, res.Round)
	}

	s := Evaluate(t.open, res.WinningNumber)
	s.Round = res.Round

	t.balance = t.balance.Add(s.Returned)
	t.open = nil
	t.settled = true
	t.lastSettled = res.Round

	s.Balance = t.balance
	return s, nil
}

// Reset restores the starting balance and drops open bets without refund.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balance = t.cfg.StartingBalance
	t.open = nil
}
