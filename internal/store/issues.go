package store

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Issue is a tracked observation with an importance weight. Closed
// issues stay in the table (soft delete) so dedup can see them.
type Issue struct {
	ID          int64
	SessionID   string
	Content     string
	Location    string
	Importance  int
	Closed      bool
	CreatedTurn int
	ClosedTurn  int
}

const (
	// DefaultImportance stands in for a missing rating.
	DefaultImportance = 500
	minImportance     = 1
	maxImportance     = 1000
)

// ClampImportance saturates v into the valid range. Zero means the
// rating was never set and gets the default.
func ClampImportance(v int) int {
	switch {
	case v == 0:
		return DefaultImportance
	case v < minImportance:
		return minImportance
	case v > maxImportance:
		return maxImportance
	}
	return v
}

// AddIssue inserts a new open issue and returns its ID. Importance is
// clamped here so no caller can bypass the range rule.
func (s *Store) AddIssue(sessionID, content, location string, importance, createdTurn int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	importance = ClampImportance(importance)
	res, err := s.db.Exec(`
		INSERT INTO issues (session_id, content, location, importance, created_turn)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, content, location, importance, createdTurn)
	if err != nil {
		return 0, fmt.Errorf("failed to add issue: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read issue id: %w", err)
	}
	s.logger.Debug("Issue added",
		zap.Int64("id", id),
		zap.Int("importance", importance),
		zap.String("content", content))
	return id, nil
}

// CloseIssue soft-deletes an issue, recording the closing turn.
func (s *Store) CloseIssue(id int64, turn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE issues SET closed = 1, closed_turn = ? WHERE id = ? AND closed = 0",
		turn, id)
	if err != nil {
		return fmt.Errorf("failed to close issue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("issue %d not found or already closed", id)
	}
	s.logger.Debug("Issue closed", zap.Int64("id", id), zap.Int("turn", turn))
	return nil
}

// DecayIssues applies one decay step to every open issue in the
// session. The CAST truncates, so importance ratchets down to the
// integer floor and eventually reaches zero relevance in queries
// ordered by importance. Closed issues are untouched.
func (s *Store) DecayIssues(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE issues SET importance = CAST(importance * 0.9 AS INTEGER)
		WHERE session_id = ? AND closed = 0`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to decay issues: %w", err)
	}
	return nil
}

// TopIssues returns up to n issues ordered by importance descending.
// includeClosed widens the query for dedup checks; agent spawning
// always uses the open-only mode.
func (s *Store) TopIssues(sessionID string, n int, includeClosed bool) ([]Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, session_id, content, COALESCE(location, ''), importance,
		       closed, created_turn, COALESCE(closed_turn, 0)
		FROM issues WHERE session_id = ?`
	if !includeClosed {
		query += " AND closed = 0"
	}
	query += " ORDER BY importance DESC, id ASC LIMIT ?"

	rows, err := s.db.Query(query, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// OpenIssues returns all open issues for a session, importance
// descending.
func (s *Store) OpenIssues(sessionID string) ([]Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, session_id, content, COALESCE(location, ''), importance,
		       closed, created_turn, COALESCE(closed_turn, 0)
		FROM issues WHERE session_id = ? AND closed = 0
		ORDER BY importance DESC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open issues: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

// IssuesByLocation returns open issues recorded at a location.
func (s *Store) IssuesByLocation(sessionID, location string) ([]Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, session_id, content, COALESCE(location, ''), importance,
		       closed, created_turn, COALESCE(closed_turn, 0)
		FROM issues WHERE session_id = ? AND closed = 0 AND location = ?
		ORDER BY importance DESC, id ASC`, sessionID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues by location: %w", err)
	}
	defer rows.Close()
	return scanIssues(rows)
}

func scanIssues(rows *sql.Rows) ([]Issue, error) {
	var out []Issue
	for rows.Next() {
		var is Issue
		var closed int
		if err := rows.Scan(&is.ID, &is.SessionID, &is.Content, &is.Location,
			&is.Importance, &closed, &is.CreatedTurn, &is.ClosedTurn); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		is.Closed = closed != 0
		out = append(out, is)
	}
	return out, rows.Err()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
