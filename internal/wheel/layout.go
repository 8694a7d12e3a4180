package wheel

import "math"

// NumPockets is the number of pockets on a European wheel (0-36).
const NumPockets = 37

// TwoPi is one full revolution in radians.
const TwoPi = 2 * math.Pi

// PocketWidth is the angular span of one pocket.
const PocketWidth = TwoPi / NumPockets

// PocketOrder lists the pocket numbers clockwise from the zero pocket,
// indexed by pocket index.
var PocketOrder = [NumPockets]int{
	0, 32, 15, 19, 4, 21, 2, 25, 17, 34, 6, 27, 13, 36, 11, 30, 8, 23,
	10, 5, 24, 16, 33, 1, 20, 14, 31, 9, 22, 18, 29, 7, 28, 12, 35, 3, 26,
}

// Red numbers: 1,3,5,7,9,12,14,16,18,19,21,23,25,27,30,32,34,36
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true,
	12: true, 14: true, 16: true, 18: true, 19: true,
	21: true, 23: true, 25: true, 27: true, 30: true,
	32: true, 34: true, 36: true,
}

var pocketIndex = func() map[int]int {
	m := make(map[int]int, NumPockets)
	for i, n := range PocketOrder {
		m[n] = i
	}
	return m
}()

// Color is the color class of a pocket.
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
	Black Color = "black"
)

// ColorOf returns the color of a pocket number. Zero is green, the red set
// is red and every other number is black.
func ColorOf(number int) Color {
	if number == 0 {
		return Green
	}
	if redNumbers[number] {
		return Red
	}
	return Black
}

// IsRed reports whether number is one of the eighteen red numbers.
func IsRed(number int) bool {
	return redNumbers[number]
}

// ValidNumber reports whether number is on the wheel.
func ValidNumber(number int) bool {
	return number >= 0 && number < NumPockets
}

// PocketIndexOf returns the index of number in PocketOrder.
func PocketIndexOf(number int) (int, bool) {
	i, ok := pocketIndex[number]
	return i, ok
}

// NormalizeAngle maps any finite angle into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, TwoPi)
	if a < 0 {
		a += TwoPi
	}
	// math.Mod of a tiny negative value can round up to exactly 2π.
	if a >= TwoPi {
		a = 0
	}
	return a
}

// RelativeAngle is the ball angle measured from the wheel's zero pocket,
// normalized to [0, 2π).
func RelativeAngle(ballAngle, wheelAngle float64) float64 {
	return NormalizeAngle(ballAngle - wheelAngle)
}

// ResolvePocket determines the pocket under the ball. Pocket k covers the
// relative angles [k*PocketWidth, (k+1)*PocketWidth). This is the only
// outcome rule; the timeout path uses it too.
func ResolvePocket(ballAngle, wheelAngle float64) (index int, number int) {
	rel := RelativeAngle(ballAngle, wheelAngle)
	index = int(math.Floor(rel/PocketWidth)) % NumPockets
	return index, PocketOrder[index]
}

// PocketCenter returns the absolute angle of the center of pocket index for
// the given wheel angle.
func PocketCenter(index int, wheelAngle float64) float64 {
	return NormalizeAngle(wheelAngle + float64(index)*PocketWidth + PocketWidth/2)
}

// Dozen returns 1, 2 or 3 for the dozen holding number, 0 for zero.
func Dozen(number int) int {
	if number < 1 || number > 36 {
		return 0
	}
	return (number-1)/12 + 1
}

// Column returns 1, 2 or 3 for the table column holding number, 0 for zero.
func Column(number int) int {
	if number < 1 || number > 36 {
		return 0
	}
	return (number-1)%3 + 1
}
