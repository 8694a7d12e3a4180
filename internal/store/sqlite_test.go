package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSaveAndGetRound(t *testing.T) {
	db := newTestDB(t)

	round := &Round{
		SessionID:      "session-1",
		Round:          7,
		WinningNumber:  17,
		PocketIndex:    8,
		Color:          "black",
		Elapsed:        11.5,
		Ticks:          690,
		ServerSeedHash: "abc",
		ClientSeed:     "client",
		Nonce:          42,
		TickHz:         60,
		Wagered:        decimal.NewFromInt(30),
		Returned:       decimal.NewFromInt(360),
		Balance:        decimal.RequireFromString("1330.5"),
		EngineVersion:  "test",
		Bets: []Bet{
			{Kind: "straight", Numbers: []int{17}, Amount: decimal.NewFromInt(10), Payout: decimal.NewFromInt(360), Won: true},
			{Kind: "red", Amount: decimal.NewFromInt(20), Payout: decimal.Zero},
		},
	}
	if err := db.SaveRound(round); err != nil {
		t.Fatalf("SaveRound: %v", err)
	}
	if round.ID == "" {
		t.Fatal("expected a generated ID")
	}

	got, err := db.GetRound(round.ID)
	if err != nil {
		t.Fatalf("GetRound: %v", err)
	}

	if got.WinningNumber != 17 || got.Round != 7 || got.Ticks != 690 || got.Nonce != 42 {
		t.Errorf("unexpected round %+v", got)
	}
	if !got.Balance.Equal(round.Balance) || !got.Net().Equal(decimal.NewFromInt(330)) {
		t.Errorf("balance %s net %s", got.Balance, got.Net())
	}
	if got.Forced {
		t.Error("forced should be false")
	}
	if len(got.Bets) != 2 {
		t.Fatalf("expected 2 bets, got %d", len(got.Bets))
	}
	if got.Bets[0].Numbers[0] != 17 || !got.Bets[0].Won || got.Bets[0].RoundID != round.ID {
		t.Errorf("unexpected first bet %+v", got.Bets[0])
	}
	if got.Bets[1].Numbers != nil || got.Bets[1].Won {
		t.Errorf("unexpected second bet %+v", got.Bets[1])
	}
}

func TestGetRoundNotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.GetRound("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRounds(t *testing.T) {
	db := newTestDB(t)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r := &Round{
			SessionID:     "s1",
			Round:         uint64(i + 1),
			WinningNumber: i % 2,
			Color:         "green",
			Forced:        i == 4,
			EngineVersion: "test",
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}
		if i == 2 {
			r.SessionID = "s2"
		}
		if err := db.SaveRound(r); err != nil {
			t.Fatalf("SaveRound: %v", err)
		}
	}

	tests := []struct {
		name       string
		query      RoundsQuery
		wantCount  int
		wantRounds int
		wantFirst  uint64
	}{
		{"all rounds", RoundsQuery{Page: 1, PerPage: 10}, 5, 5, 5},
		{"paged", RoundsQuery{Page: 2, PerPage: 2}, 5, 2, 3},
		{"by session", RoundsQuery{SessionID: "s1"}, 4, 4, 5},
		{"by number", RoundsQuery{Number: intPtr(1)}, 2, 2, 4},
		{"forced only", RoundsQuery{Forced: boolPtr(true)}, 1, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := db.ListRounds(tt.query)
			if err != nil {
				t.Fatalf("ListRounds failed: %v", err)
			}
			if result.TotalCount != tt.wantCount {
				t.Errorf("Expected total count %d, got %d", tt.wantCount, result.TotalCount)
			}
			if len(result.Rounds) != tt.wantRounds {
				t.Fatalf("Expected %d rounds, got %d", tt.wantRounds, len(result.Rounds))
			}
			if result.Rounds[0].Round != tt.wantFirst {
				t.Errorf("Expected newest round %d first, got %d", tt.wantFirst, result.Rounds[0].Round)
			}
		})
	}

	result, err := db.ListRounds(RoundsQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Page != 1 || result.PerPage != 50 || result.TotalPages != 1 {
		t.Errorf("unexpected defaults: page %d perPage %d pages %d", result.Page, result.PerPage, result.TotalPages)
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
