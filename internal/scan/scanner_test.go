package scan

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/MJE43/roulette-sim/internal/engine"
	"github.com/MJE43/roulette-sim/internal/games"
)

var testSeeds = engine.Seeds{Server: "server_seed_example", Client: "client_seed_example"}

func TestTargetEvaluator(t *testing.T) {
	tests := []struct {
		op     TargetOp
		v1, v2 float64
		metric float64
		want   bool
	}{
		{OpEqual, 17, 0, 17, true},
		{OpEqual, 17, 0, 18, false},
		{OpGreater, 30, 0, 30, false},
		{OpGreaterEqual, 30, 0, 30, true},
		{OpLess, 1, 0, 0, true},
		{OpLessEqual, 1, 0, 2, false},
		{OpBetween, 1, 12, 12, true},
		{OpBetween, 1, 12, 13, false},
		{OpOutside, 1, 36, 0, true},
		{OpOutside, 1, 36, 20, false},
		{TargetOp("near"), 1, 0, 1, false},
	}
	for _, tt := range tests {
		if got := NewTargetEvaluator(tt.op, tt.v1, tt.v2, 0).Matches(tt.metric); got != tt.want {
			t.Errorf("%s(%v, %v) on %v = %v, want %v", tt.op, tt.v1, tt.v2, tt.metric, got, tt.want)
		}
	}
}

func TestScanFindsEveryMatchingNonce(t *testing.T) {
	for _, game := range []string{"roulette", "roulette-instant"} {
		t.Run(game, func(t *testing.T) {
			req := ScanRequest{
				Game:       game,
				Seeds:      testSeeds,
				NonceStart: 1,
				NonceEnd:   120,
				TargetOp:   OpBetween,
				TargetVal:  1,
				TargetVal2: 12,
			}
			res, err := NewScanner(nil).Scan(context.Background(), req)
			if err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if res.Summary.TotalEvaluated != 120 {
				t.Fatalf("evaluated %d nonces, want 120", res.Summary.TotalEvaluated)
			}

			g, _ := games.Get(game)
			want := make(map[uint64]bool)
			for nonce := uint64(1); nonce <= 120; nonce++ {
				r, err := g.Evaluate(testSeeds, nonce, nil)
				if err != nil {
					t.Fatalf("Evaluate(%d): %v", nonce, err)
				}
				if r.Metric >= 1 && r.Metric <= 12 {
					want[nonce] = true
				}
			}

			if len(res.Hits) != len(want) {
				t.Fatalf("got %d hits, want %d", len(res.Hits), len(want))
			}
			for i, h := range res.Hits {
				if !want[h.Nonce] {
					t.Errorf("nonce %d reported but does not match", h.Nonce)
				}
				if i > 0 && res.Hits[i-1].Nonce >= h.Nonce {
					t.Fatalf("hits not in nonce order at %d", i)
				}
			}
			if len(res.Hits) > 0 && (res.Summary.MinMetric < 1 || res.Summary.MaxMetric > 12) {
				t.Errorf("summary out of target range: %+v", res.Summary)
			}
		})
	}
}

func TestScanLimitKeepsLowestNonces(t *testing.T) {
	req := ScanRequest{
		Game:       "roulette-instant",
		Seeds:      testSeeds,
		NonceStart: 0,
		NonceEnd:   2000,
		TargetOp:   OpGreaterEqual,
		TargetVal:  0,
		Limit:      10,
	}
	res, err := NewScanner(nil).Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Hits) != 10 {
		t.Fatalf("got %d hits, want 10", len(res.Hits))
	}
	for i, h := range res.Hits {
		if h.Nonce != uint64(i) {
			t.Errorf("hit %d has nonce %d", i, h.Nonce)
		}
	}
}

func TestScanValidation(t *testing.T) {
	base := ScanRequest{Game: "roulette", Seeds: testSeeds, NonceStart: 1, NonceEnd: 10, TargetOp: OpEqual}

	tests := []struct {
		name    string
		mutate  func(r *ScanRequest)
		wantErr error
	}{
		{"unknown game", func(r *ScanRequest) { r.Game = "keno" }, ErrGameNotFound},
		{"inverted range", func(r *ScanRequest) { r.NonceStart = 11 }, ErrInvalidRange},
		{"range too large", func(r *ScanRequest) { r.NonceEnd = r.NonceStart + MaxRange }, ErrInvalidRange},
		{"unknown op", func(r *ScanRequest) { r.TargetOp = "near" }, ErrInvalidOp},
		{"inverted between", func(r *ScanRequest) { r.TargetOp, r.TargetVal, r.TargetVal2 = OpBetween, 5, 1 }, ErrInvalidOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if _, err := NewScanner(nil).Scan(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Scan() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScanInvalidParamsFail(t *testing.T) {
	req := ScanRequest{
		Game: "roulette", Seeds: testSeeds, NonceStart: 1, NonceEnd: 5,
		TargetOp: OpEqual, Params: map[string]any{"tick_hz": "fast"},
	}
	if _, err := NewScanner(nil).Scan(context.Background(), req); !errors.Is(err, games.ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestScanTimeoutReturnsPartialResult(t *testing.T) {
	req := ScanRequest{
		Game:       "roulette",
		Seeds:      testSeeds,
		NonceStart: 0,
		NonceEnd:   MaxRange - 1,
		TargetOp:   OpEqual,
		TargetVal:  0,
		TimeoutMs:  1,
	}
	res, err := NewScanner(nil).Scan(context.Background(), req)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !res.Summary.TimedOut {
		t.Error("expected the scan to time out")
	}
	if res.Summary.TotalEvaluated >= MaxRange {
		t.Errorf("evaluated the whole range (%d) despite the timeout", res.Summary.TotalEvaluated)
	}
}

type parityGame struct{}

func (parityGame) Spec() games.GameSpec {
	return games.GameSpec{ID: "roulette", Name: "parity", MetricLabel: "parity"}
}

func (parityGame) Evaluate(_ engine.Seeds, nonce uint64, _ map[string]any) (games.GameResult, error) {
	return games.GameResult{Metric: float64(nonce % 2)}, nil
}

func TestScanOverrideReplacesRegisteredGame(t *testing.T) {
	s := NewScanner(nil)
	s.Override(parityGame{})

	res, err := s.Scan(context.Background(), ScanRequest{
		Game:       "roulette",
		Seeds:      testSeeds,
		NonceStart: 1,
		NonceEnd:   10,
		TargetOp:   OpEqual,
		TargetVal:  1,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Hits) != 5 {
		t.Fatalf("expected 5 odd nonces, got %d", len(res.Hits))
	}
	for i, h := range res.Hits {
		if h.Nonce != uint64(2*i+1) {
			t.Errorf("hit %d has nonce %d", i, h.Nonce)
		}
	}
}

func TestScanRangeAtTopOfNonceSpace(t *testing.T) {
	s := NewScanner(nil)
	s.batchSize = 4
	s.Override(parityGame{})

	res, err := s.Scan(context.Background(), ScanRequest{
		Game:       "roulette",
		Seeds:      testSeeds,
		NonceStart: math.MaxUint64 - 10,
		NonceEnd:   math.MaxUint64,
		TargetOp:   OpEqual,
		TargetVal:  1,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Summary.TotalEvaluated != 11 {
		t.Errorf("evaluated %d nonces, want 11", res.Summary.TotalEvaluated)
	}
	if len(res.Hits) != 6 {
		t.Fatalf("expected 6 odd nonces, got %d", len(res.Hits))
	}
	if first, last := res.Hits[0].Nonce, res.Hits[5].Nonce; first != math.MaxUint64-10 || last != math.MaxUint64 {
		t.Errorf("hits span %d..%d", first, last)
	}
}
