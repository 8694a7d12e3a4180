package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteDB) Ping() error {
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			winning_number INTEGER NOT NULL,
			pocket_index INTEGER NOT NULL,
			color TEXT NOT NULL,
			forced INTEGER NOT NULL DEFAULT 0,
			elapsed REAL NOT NULL,
			ticks INTEGER NOT NULL,
			engine_version TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS round_bets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			round_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			numbers TEXT NOT NULL DEFAULT '[]',
			value INTEGER NOT NULL DEFAULT 0,
			amount TEXT NOT NULL,
			payout TEXT NOT NULL,
			won INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (round_id) REFERENCES rounds(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_round_bets_round_id ON round_bets(round_id)`,
	}

	for _, migration := range baseMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("base migration failed: %w", err)
		}
	}

	// Columns added after the first schema.
	alterMigrations := []string{
		`ALTER TABLE rounds ADD COLUMN server_seed_hash TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE rounds ADD COLUMN client_seed TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE rounds ADD COLUMN nonce INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE rounds ADD COLUMN tick_hz REAL NOT NULL DEFAULT 60`,
		`ALTER TABLE rounds ADD COLUMN wagered TEXT NOT NULL DEFAULT '0'`,
		`ALTER TABLE rounds ADD COLUMN returned TEXT NOT NULL DEFAULT '0'`,
		`ALTER TABLE rounds ADD COLUMN balance TEXT NOT NULL DEFAULT '0'`,
	}

	for _, migration := range alterMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			// Re-running migrations hits columns that already exist.
			if !isDuplicateColumnError(err) {
				return fmt.Errorf("alter migration failed: %w", err)
			}
		}
	}

	indexMigrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_rounds_created_at ON rounds(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, round)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_number ON rounds(winning_number)`,
	}

	for _, migration := range indexMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("index migration failed: %w", err)
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}

// SaveRound saves a round and its bets in one transaction. An empty ID is
// filled with a new uuid.
func (s *SQLiteDB) SaveRound(round *Round) error {
	if round.ID == "" {
		round.ID = uuid.New().String()
	}
	if round.CreatedAt.IsZero() {
		round.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO rounds (
		id, session_id, round, winning_number, pocket_index, color, forced,
		elapsed, ticks, server_seed_hash, client_seed, nonce, tick_hz,
		wagered, returned, balance, engine_version, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.SessionID, round.Round, round.WinningNumber, round.PocketIndex,
		round.Color, boolToInt(round.Forced), round.Elapsed, round.Ticks,
		round.ServerSeedHash, round.ClientSeed, round.Nonce, round.TickHz,
		round.Wagered.String(), round.Returned.String(), round.Balance.String(),
		round.EngineVersion, round.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	if len(round.Bets) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO round_bets (round_id, kind, numbers, value, amount, payout, won)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range round.Bets {
			bet := &round.Bets[i]
			bet.RoundID = round.ID

			numbers, err := json.Marshal(nonNil(bet.Numbers))
			if err != nil {
				return err
			}
			res, err := stmt.Exec(round.ID, bet.Kind, string(numbers), bet.Value,
				bet.Amount.String(), bet.Payout.String(), boolToInt(bet.Won))
			if err != nil {
				return fmt.Errorf("insert bet: %w", err)
			}
			if bet.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

const roundColumns = `id, session_id, round, winning_number, pocket_index, color, forced,
	elapsed, ticks, server_seed_hash, client_seed, nonce, tick_hz,
	wagered, returned, balance, engine_version, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRound(row rowScanner) (*Round, error) {
	var r Round
	var forced int
	var wagered, returned, balance string

	err := row.Scan(
		&r.ID, &r.SessionID, &r.Round, &r.WinningNumber, &r.PocketIndex, &r.Color, &forced,
		&r.Elapsed, &r.Ticks, &r.ServerSeedHash, &r.ClientSeed, &r.Nonce, &r.TickHz,
		&wagered, &returned, &balance, &r.EngineVersion, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Forced = forced == 1
	if r.Wagered, err = decimal.NewFromString(wagered); err != nil {
		return nil, fmt.Errorf("round %s wagered: %w", r.ID, err)
	}
	if r.Returned, err = decimal.NewFromString(returned); err != nil {
		return nil, fmt.Errorf("round %s returned: %w", r.ID, err)
	}
	if r.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("round %s balance: %w", r.ID, err)
	}
	return &r, nil
}

// GetRound retrieves a round and its bets by ID
func (s *SQLiteDB) GetRound(id string) (*Round, error) {
	r, err := scanRound(s.db.QueryRow(`SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if r.Bets, err = s.getBets(id); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *SQLiteDB) getBets(roundID string) ([]Bet, error) {
	rows, err := s.db.Query(`SELECT id, round_id, kind, numbers, value, amount, payout, won
		FROM round_bets WHERE round_id = ? ORDER BY id`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []Bet
	for rows.Next() {
		var b Bet
		var numbers, amount, payout string
		var won int

		if err := rows.Scan(&b.ID, &b.RoundID, &b.Kind, &numbers, &b.Value, &amount, &payout, &won); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(numbers), &b.Numbers); err != nil {
			return nil, fmt.Errorf("bet %d numbers: %w", b.ID, err)
		}
		if len(b.Numbers) == 0 {
			b.Numbers = nil
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if b.Payout, err = decimal.NewFromString(payout); err != nil {
			return nil, err
		}
		b.Won = won == 1
		bets = append(bets, b)
	}

	return bets, rows.Err()
}

// ListRounds retrieves rounds newest first with pagination and filtering.
// Bets are not loaded; use GetRound for the full record.
func (s *SQLiteDB) ListRounds(query RoundsQuery) (*RoundsList, error) {
	var conds []string
	args := []interface{}{}

	if query.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, query.SessionID)
	}
	if query.Number != nil {
		conds = append(conds, "winning_number = ?")
		args = append(args, *query.Number)
	}
	if query.Forced != nil {
		conds = append(conds, "forced = ?")
		args = append(args, boolToInt(*query.Forced))
	}

	whereClause := ""
	if len(conds) > 0 {
		whereClause = "WHERE " + strings.Join(conds, " AND ")
	}

	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rounds "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.PerPage > 500 {
		query.PerPage = 500
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + roundColumns + ` FROM rounds ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	rounds := []Round{}
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}

	return &RoundsList{
		Rounds:     rounds,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(numbers []int) []int {
	if numbers == nil {
		return []int{}
	}
	return numbers
}
