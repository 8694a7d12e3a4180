package session

import (
	"fmt"
	"strings"

	"github.com/MJE43/roulette-sim/internal/wheel"
)

// StatusText is the one-line status shown to the player.
func StatusText(snap wheel.Snapshot, last *wheel.RoundResult) string {
	switch snap.Phase {
	case wheel.PhaseBumper:
		return fmt.Sprintf("BALL SPINNING... %d ROTATIONS", int(snap.BallRotationsOnBumper))
	case wheel.PhaseRim:
		return "BALL ON NUMBERS..."
	case wheel.PhaseSettled:
		if last != nil {
			return fmt.Sprintf("WINNING NUMBER: %d (%s)", last.WinningNumber, strings.ToUpper(string(last.Color)))
		}
	}
	if snap.WheelSpinning {
		return "SPINNING..."
	}
	return "PRESS SPACE TO START"
}
