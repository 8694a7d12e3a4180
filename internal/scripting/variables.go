package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/shopspring/decimal"

	"github.com/MJE43/roulette-sim/internal/table"
)

const maxHistory = 100

// ScriptBet is a bet as scripts see it: {kind, numbers, value, amount}.
type ScriptBet struct {
	Kind    string  `json:"kind"`
	Numbers []int   `json:"numbers,omitempty"`
	Value   int     `json:"value,omitempty"`
	Amount  float64 `json:"amount"`
}

// TableBet converts the script bet into a table bet. Amounts are rounded to
// 8 decimal places.
func (b ScriptBet) TableBet() table.Bet {
	return table.Bet{
		Kind:    table.Kind(strings.ToLower(b.Kind)),
		Numbers: b.Numbers,
		Value:   b.Value,
		Amount:  decimal.NewFromFloat(b.Amount).Round(8),
	}
}

func scriptBetFrom(b table.Bet) ScriptBet {
	return ScriptBet{
		Kind:    string(b.Kind),
		Numbers: b.Numbers,
		Value:   b.Value,
		Amount:  b.Amount.InexactFloat64(),
	}
}

// Variables holds the globals a strategy script reads and writes.
type Variables struct {
	Balance      float64     `json:"balance"`
	BaseBet      float64     `json:"basebet"`
	NextBets     []ScriptBet `json:"nextbets"`
	PreviousBets []ScriptBet `json:"previousbets"`
	Win          bool        `json:"win"`
	Running      bool        `json:"running"`

	Round      uint64  `json:"round"`
	LastNumber int     `json:"lastnumber"` // -1 before the first round
	LastColor  string  `json:"lastcolor"`
	LastNet    float64 `json:"lastnet"`
	History    []int   `json:"history"`

	Stats *Statistics `json:"-"`
}

// NewVariables creates Variables for a fresh session.
func NewVariables(stats *Statistics) *Variables {
	return &Variables{
		Stats:      stats,
		Balance:    stats.Balance,
		LastNumber: -1,
		History:    []int{},
	}
}

func (v *Variables) pushHistory(number int) {
	v.History = append(v.History, number)
	if len(v.History) > maxHistory {
		v.History = v.History[len(v.History)-maxHistory:]
	}
}

// injectVariables sets the script globals. Read-only semantics are enforced
// in syncFromVM: values the script may not change are never read back.
func injectVariables(rt *goja.Runtime, vars *Variables) {
	rt.Set("balance", vars.Balance)
	rt.Set("basebet", vars.BaseBet)
	rt.Set("nextbets", betsToJS(rt, vars.NextBets))
	rt.Set("previousbets", betsToJS(rt, vars.PreviousBets))
	rt.Set("win", vars.Win)
	rt.Set("running", vars.Running)

	rt.Set("round", vars.Round)
	rt.Set("lastnumber", vars.LastNumber)
	rt.Set("lastcolor", vars.LastColor)
	rt.Set("lastnet", vars.LastNet)
	history := make([]any, len(vars.History))
	for i, n := range vars.History {
		history[i] = n
	}
	rt.Set("history", rt.NewArray(history...))

	s := vars.Stats
	rt.Set("bets", s.Bets)
	rt.Set("wins", s.Wins)
	rt.Set("losses", s.Losses)
	rt.Set("winstreak", s.WinStreak)
	rt.Set("losestreak", s.LoseStreak)
	rt.Set("currentstreak", s.CurrentStreak)
	rt.Set("profit", s.Profit)
	rt.Set("currentprofit", s.CurrentProfit)
	rt.Set("wagered", s.Wagered)
	rt.Set("highest_profit", s.HighestProfit)
	rt.Set("lowest_profit", s.LowestProfit)
	rt.Set("highest_bet", s.HighestBet)
	rt.Set("started_bal", s.StartBal)
}

// syncFromVM reads back the variables scripts are allowed to modify.
func syncFromVM(rt *goja.Runtime, vars *Variables) {
	vars.BaseBet = toFloat64(rt.Get("basebet"))
	vars.NextBets = toBets(rt.Get("nextbets"))
}

func betsToJS(rt *goja.Runtime, bets []ScriptBet) goja.Value {
	items := make([]any, len(bets))
	for i, b := range bets {
		obj := rt.NewObject()
		obj.Set("kind", b.Kind)
		numbers := make([]any, len(b.Numbers))
		for j, n := range b.Numbers {
			numbers[j] = n
		}
		obj.Set("numbers", rt.NewArray(numbers...))
		obj.Set("value", b.Value)
		obj.Set("amount", b.Amount)
		items[i] = obj
	}
	return rt.NewArray(items...)
}

// --- Conversion helpers ---

func isUndefinedOrNull(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func toFloat64(v goja.Value) float64 {
	if isUndefinedOrNull(v) {
		return 0
	}
	return v.ToFloat()
}

func toInt(v goja.Value) int {
	if isUndefinedOrNull(v) {
		return 0
	}
	return int(v.ToInteger())
}

func toString(v goja.Value) string {
	if isUndefinedOrNull(v) {
		return ""
	}
	return v.String()
}

func toIntSlice(v goja.Value) []int {
	if isUndefinedOrNull(v) {
		return nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	lengthVal := obj.Get("length")
	if isUndefinedOrNull(lengthVal) {
		return nil
	}
	length := int(lengthVal.ToInteger())
	result := make([]int, length)
	for i := 0; i < length; i++ {
		result[i] = toInt(obj.Get(fmt.Sprintf("%d", i)))
	}
	return result
}

// toBets reads an array of {kind, numbers, value, amount} objects.
func toBets(v goja.Value) []ScriptBet {
	if isUndefinedOrNull(v) {
		return nil
	}
	arr, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	length := toInt(arr.Get("length"))
	bets := make([]ScriptBet, 0, length)
	for i := 0; i < length; i++ {
		item, ok := arr.Get(fmt.Sprintf("%d", i)).(*goja.Object)
		if !ok {
			continue
		}
		bets = append(bets, ScriptBet{
			Kind:    toString(item.Get("kind")),
			Numbers: toIntSlice(item.Get("numbers")),
			Value:   toInt(item.Get("value")),
			Amount:  toFloat64(item.Get("amount")),
		})
	}
	return bets
}
