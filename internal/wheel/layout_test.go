package wheel

import (
	"math"
	"testing"
)

func TestPocketOrderIsPermutation(t *testing.T) {
	seen := make(map[int]bool, NumPockets)
	for i, n := range PocketOrder {
		if !ValidNumber(n) {
			t.Fatalf("pocket %d holds invalid number %d", i, n)
		}
		if seen[n] {
			t.Fatalf("number %d appears twice", n)
		}
		seen[n] = true

		idx, ok := PocketIndexOf(n)
		if !ok || idx != i {
			t.Errorf("PocketIndexOf(%d) = %d, %v; want %d, true", n, idx, ok, i)
		}
	}
	if len(seen) != NumPockets {
		t.Fatalf("expected %d numbers, got %d", NumPockets, len(seen))
	}
	if _, ok := PocketIndexOf(37); ok {
		t.Error("expected 37 to be off the wheel")
	}
}

func TestColorOf(t *testing.T) {
	tests := []struct {
		number int
		want   Color
	}{
		{0, Green},
		{1, Red},
		{2, Black},
		{10, Black},
		{11, Black},
		{19, Red},
		{28, Black},
		{36, Red},
	}
	for _, tt := range tests {
		if got := ColorOf(tt.number); got != tt.want {
			t.Errorf("ColorOf(%d) = %s, want %s", tt.number, got, tt.want)
		}
	}

	var red, black int
	for n := 1; n <= 36; n++ {
		switch ColorOf(n) {
		case Red:
			red++
		case Black:
			black++
		default:
			t.Errorf("number %d should not be green", n)
		}
	}
	if red != 18 || black != 18 {
		t.Errorf("expected 18 red and 18 black, got %d and %d", red, black)
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"full turn", TwoPi, 0},
		{"negative", -math.Pi / 2, 3 * math.Pi / 2},
		{"several turns", 4*TwoPi + 1, 1},
		{"negative turn", -TwoPi, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAngle(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("NormalizeAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if got := NormalizeAngle(-1e-18); got < 0 || got >= TwoPi {
		t.Errorf("tiny negative angle normalized out of range: %v", got)
	}
}

func TestResolvePocketRoundTrip(t *testing.T) {
	for _, wheelAngle := range []float64{0, 1.3, -2.7, 100.25} {
		for k := -40; k <= 80; k++ {
			ball := wheelAngle + float64(k)*PocketWidth + PocketWidth/2
			want := ((k % NumPockets) + NumPockets) % NumPockets

			idx, number := ResolvePocket(ball, wheelAngle)
			if idx != want {
				t.Fatalf("wheel=%v k=%d: index %d, want %d", wheelAngle, k, idx, want)
			}
			if number != PocketOrder[want] {
				t.Fatalf("wheel=%v k=%d: number %d, want %d", wheelAngle, k, number, PocketOrder[want])
			}
		}
	}
}

func TestPocketCenterResolvesToSamePocket(t *testing.T) {
	for _, wheelAngle := range []float64{0, 0.5, 3.9, 6.2} {
		for idx := 0; idx < NumPockets; idx++ {
			center := PocketCenter(idx, wheelAngle)
			if center < 0 || center >= TwoPi {
				t.Fatalf("center %v out of range", center)
			}
			got, _ := ResolvePocket(center, wheelAngle)
			if got != idx {
				t.Errorf("wheel=%v: center of pocket %d resolves to %d", wheelAngle, idx, got)
			}
		}
	}
}

func TestDozenAndColumn(t *testing.T) {
	tests := []struct {
		number int
		dozen  int
		column int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 2},
		{12, 1, 3},
		{13, 2, 1},
		{24, 2, 3},
		{25, 3, 1},
		{35, 3, 2},
		{36, 3, 3},
		{37, 0, 0},
	}
	for _, tt := range tests {
		if got := Dozen(tt.number); got != tt.dozen {
			t.Errorf("Dozen(%d) = %d, want %d", tt.number, got, tt.dozen)
		}
		if got := Column(tt.number); got != tt.column {
			t.Errorf("Column(%d) = %d, want %d", tt.number, got, tt.column)
		}
	}
}
