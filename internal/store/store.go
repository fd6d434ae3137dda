// Package store implements SQLite persistence for sessions, turns,
// issues, map transitions, inventory, and summaries.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store is the single SQLite-backed persistence layer. All writes in a
// turn go through the pipeline's persist stage, so a single connection
// with WAL is sufficient.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// Open initializes the SQLite database at the given path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Opening store", zap.String("path", path))

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("Failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("Failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("Failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &Store{db: db, dbPath: path, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	sessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	// UNIQUE constraint on (session_id, turn_number) makes turn persistence
	// idempotent when a crashed turn is replayed.
	turnsTable := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		command TEXT NOT NULL,
		response TEXT NOT NULL,
		location TEXT NOT NULL,
		score INTEGER NOT NULL,
		moves INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_number)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	`

	summariesTable := `
	CREATE TABLE IF NOT EXISTS summaries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		through_turn INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_summaries_session ON summaries(session_id, kind);
	`

	// Issues are soft-deleted: closed=1 keeps them queryable for dedup.
	issuesTable := `
	CREATE TABLE IF NOT EXISTS issues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL,
		location TEXT,
		importance INTEGER NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0,
		created_turn INTEGER NOT NULL,
		closed_turn INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_issues_session ON issues(session_id, closed);
	`

	// First write wins: duplicate transitions are rejected by the UNIQUE
	// constraint and reported as not-inserted.
	transitionsTable := `
	CREATE TABLE IF NOT EXISTS map_transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		from_location TEXT NOT NULL,
		direction TEXT NOT NULL,
		to_location TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, from_location, direction)
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_session ON map_transitions(session_id);
	`

	inventoryTable := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		item TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, item)
	);
	`

	// Audit trail of the literal prompts a turn's stages sent.
	promptsTable := `
	CREATE TABLE IF NOT EXISTS prompts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		turn_number INTEGER NOT NULL,
		stage TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(session_id, turn_number, stage)
	);
	`

	for _, table := range []string{
		sessionsTable,
		turnsTable,
		summariesTable,
		issuesTable,
		transitionsTable,
		inventoryTable,
		promptsTable,
	} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Debug("Closing store")
	return s.db.Close()
}

// SessionInfo describes one persisted session.
type SessionInfo struct {
	ID        string
	CreatedAt time.Time
	Turns     int
	LastScore int
}

// CreateSession registers a session ID. Idempotent.
func (s *Store) CreateSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("INSERT OR IGNORE INTO sessions (id) VALUES (?)", id)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// SessionExists reports whether the session has been registered.
func (s *Store) SessionExists(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query session: %w", err)
	}
	return n > 0, nil
}

// ListSessions returns all sessions with turn counts and last score,
// newest first.
func (s *Store) ListSessions() ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT s.id, s.created_at,
		       COUNT(t.id),
		       COALESCE(MAX(CASE WHEN t.turn_number = sub.maxturn THEN t.score END), 0)
		FROM sessions s
		LEFT JOIN turns t ON t.session_id = s.id
		LEFT JOIN (SELECT session_id, MAX(turn_number) AS maxturn FROM turns GROUP BY session_id) sub
		       ON sub.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var created string
		if err := rows.Scan(&info.ID, &created, &info.Turns, &info.LastScore); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", created)
		out = append(out, info)
	}
	return out, rows.Err()
}
