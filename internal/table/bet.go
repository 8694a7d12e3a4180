package table

import (
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/wheel"
)

var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrUnknownKind         = errors.New("unknown bet kind")
	ErrMaxBet              = errors.New("bet exceeds table maximum")
	ErrMinBet              = errors.New("bet below table minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadySettled      = errors.New("round already settled")
)

// Kind is a bet type on the European layout.
type Kind string

const (
	KindStraight Kind = "straight"
	KindSplit    Kind = "split"
	KindStreet   Kind = "street"
	KindCorner   Kind = "corner"
	KindSixLine  Kind = "six_line"
	KindRed      Kind = "red"
	KindBlack    Kind = "black"
	KindOdd      Kind = "odd"
	KindEven     Kind = "even"
	KindLow      Kind = "low"
	KindHigh     Kind = "high"
	KindDozen    Kind = "dozen"
	KindColumn   Kind = "column"
)

// payouts are profit-to-one multipliers.
var payouts = map[Kind]int64{
	KindStraight: 35,
	KindSplit:    17,
	KindStreet:   11,
	KindCorner:   8,
	KindSixLine:  5,
	KindDozen:    2,
	KindColumn:   2,
	KindRed:      1,
	KindBlack:    1,
	KindOdd:      1,
	KindEven:     1,
	KindLow:      1,
	KindHigh:     1,
}

// Kinds lists every bet kind.
func Kinds() []Kind {
	return []Kind{
		KindStraight, KindSplit, KindStreet, KindCorner, KindSixLine,
		KindRed, KindBlack, KindOdd, KindEven, KindLow, KindHigh,
		KindDozen, KindColumn,
	}
}

// Payout returns the profit-to-one multiplier of the kind.
func (k Kind) Payout() (decimal.Decimal, bool) {
	p, ok := payouts[k]
	return decimal.NewFromInt(p), ok
}

// Inside reports whether the kind is placed on explicit numbers.
func (k Kind) Inside() bool {
	switch k {
	case KindStraight, KindSplit, KindStreet, KindCorner, KindSixLine:
		return true
	}
	return false
}

// Bet is one stake on the layout. Inside bets carry Numbers, dozen and
// column bets carry Value (1-3), even-money bets carry neither.
type Bet struct {
	Kind    Kind            `json:"kind"`
	Numbers []int           `json:"numbers,omitempty"`
	Value   int             `json:"value,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

func Straight(number int, amount decimal.Decimal) Bet {
	return Bet{Kind: KindStraight, Numbers: []int{number}, Amount: amount}
}

func Inside(kind Kind, numbers []int, amount decimal.Decimal) Bet {
	return Bet{Kind: kind, Numbers: slices.Clone(numbers), Amount: amount}
}

func Outside(kind Kind, amount decimal.Decimal) Bet {
	return Bet{Kind: kind, Amount: amount}
}

func Dozen(dozen int, amount decimal.Decimal) Bet {
	return Bet{Kind: KindDozen, Value: dozen, Amount: amount}
}

func Column(column int, amount decimal.Decimal) Bet {
	return Bet{Kind: KindColumn, Value: column, Amount: amount}
}

// Validate checks the bet shape. Stake limits are enforced by the table.
func (b Bet) Validate() error {
	if _, ok := payouts[b.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, b.Kind)
	}
	if !b.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}

	switch b.Kind {
	case KindStraight:
		if len(b.Numbers) != 1 || !wheel.ValidNumber(b.Numbers[0]) {
			return fmt.Errorf("%w: straight needs one number 0-36, got %v", ErrInvalidBet, b.Numbers)
		}
	case KindSplit:
		if !isSplit(b.Numbers) {
			return fmt.Errorf("%w: %v is not a split", ErrInvalidBet, b.Numbers)
		}
	case KindStreet:
		if !isLine(b.Numbers, 3) {
			return fmt.Errorf("%w: %v is not a street", ErrInvalidBet, b.Numbers)
		}
	case KindCorner:
		if !isCorner(b.Numbers) {
			return fmt.Errorf("%w: %v is not a corner", ErrInvalidBet, b.Numbers)
		}
	case KindSixLine:
		if !isLine(b.Numbers, 6) {
			return fmt.Errorf("%w: %v is not a six line", ErrInvalidBet, b.Numbers)
		}
	case KindDozen, KindColumn:
		if b.Value < 1 || b.Value > 3 {
			return fmt.Errorf("%w: %s must be 1-3, got %d", ErrInvalidBet, b.Kind, b.Value)
		}
	}
	return nil
}

// Wins reports whether the bet wins when number comes up. Zero loses every
// outside bet.
func (b Bet) Wins(number int) bool {
	if b.Kind.Inside() {
		return slices.Contains(b.Numbers, number)
	}
	if number < 1 || number > 36 {
		return false
	}

	switch b.Kind {
	case KindRed:
		return wheel.IsRed(number)
	case KindBlack:
		return !wheel.IsRed(number)
	case KindOdd:
		return number%2 == 1
	case KindEven:
		return number%2 == 0
	case KindLow:
		return number <= 18
	case KindHigh:
		return number >= 19
	case KindDozen:
		return wheel.Dozen(number) == b.Value
	case KindColumn:
		return wheel.Column(number) == b.Value
	}
	return false
}

// String is used in logs.
func (b Bet) String() string {
	switch {
	case b.Kind.Inside():
		return fmt.Sprintf("%s %v @ %s", b.Kind, b.Numbers, b.Amount)
	case b.Kind == KindDozen || b.Kind == KindColumn:
		return fmt.Sprintf("%s %d @ %s", b.Kind, b.Value, b.Amount)
	default:
		return fmt.Sprintf("%s @ %s", b.Kind, b.Amount)
	}
}

func sortedNumbers(numbers []int) []int {
	s := slices.Clone(numbers)
	slices.Sort(s)
	return s
}

func inRange(numbers []int) bool {
	for _, n := range numbers {
		if n < 1 || n > 36 {
			return false
		}
	}
	return true
}

// isSplit accepts two numbers adjacent on the layout, including zero with
// 1, 2 or 3.
func isSplit(numbers []int) bool {
	if len(numbers) != 2 {
		return false
	}
	s := sortedNumbers(numbers)
	a, b := s[0], s[1]
	if a == 0 {
		return b >= 1 && b <= 3
	}
	if !inRange(s) {
		return false
	}
	if b-a == 3 {
		return true
	}
	return b-a == 1 && (a-1)/3 == (b-1)/3
}

// isLine accepts n consecutive numbers starting at the left of a row:
// a street for n=3, two adjacent streets for n=6.
func isLine(numbers []int, n int) bool {
	if len(numbers) != n {
		return false
	}
	s := sortedNumbers(numbers)
	if !inRange(s) || s[0]%3 != 1 {
		return false
	}
	for i := 1; i < n; i++ {
		if s[i] != s[0]+i {
			return false
		}
	}
	return true
}

func isCorner(numbers []int) bool {
	if len(numbers) != 4 {
		return false
	}
	s := sortedNumbers(numbers)
	a := s[0]
	if !inRange(s) || a%3 == 0 {
		return false
	}
	return s[1] == a+1 && s[2] == a+3 && s[3] == a+4
}
