package store

import (
	"fmt"

	"go.uber.org/zap"
)

// Turn is one persisted game turn.
type Turn struct {
	SessionID string
	Number    int
	Command   string
	Response  string
	Location  string
	Score     int
	Moves     int
}

// AppendTurn persists a turn. Re-appending the same turn number for a
// session is a no-op so a replayed turn cannot fork history.
func (s *Store) AppendTurn(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO turns
		(session_id, turn_number, command, response, location, score, moves)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Number, t.Command, t.Response, t.Location, t.Score, t.Moves)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	s.logger.Debug("Turn persisted",
		zap.Int("turn", t.Number),
		zap.String("location", t.Location),
		zap.Int("score", t.Score))
	return nil
}

// RecentTurns returns the last n turns for a session in ascending turn
// order.
func (s *Store) RecentTurns(sessionID string, n int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT session_id, turn_number, command, response, location, score, moves
		FROM (
			SELECT * FROM turns WHERE session_id = ?
			ORDER BY turn_number DESC LIMIT ?
		) ORDER BY turn_number ASC`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.SessionID, &t.Number, &t.Command, &t.Response,
			&t.Location, &t.Score, &t.Moves); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LatestTurnNumber returns MAX(turn_number) for the session, or 0 when
// no turns exist. Resumed sessions continue numbering from here.
func (s *Store) LatestTurnNumber(sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(
		"SELECT COALESCE(MAX(turn_number), 0) FROM turns WHERE session_id = ?",
		sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to query latest turn: %w", err)
	}
	return n, nil
}

// SaveSummary stores a summary of a given kind ("recent" or "long")
// through the given turn.
func (s *Store) SaveSummary(sessionID, kind, content string, throughTurn int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO summaries (session_id, kind, content, through_turn)
		VALUES (?, ?, ?, ?)`, sessionID, kind, content, throughTurn)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// LatestSummary returns the newest summary of a kind, or "" when none
// has been written yet.
func (s *Store) LatestSummary(sessionID, kind string) (string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content string
	var through int
	err := s.db.QueryRow(`
		SELECT content, through_turn FROM summaries
		WHERE session_id = ? AND kind = ?
		ORDER BY through_turn DESC, id DESC LIMIT 1`, sessionID, kind).
		Scan(&content, &through)
	if err != nil {
		if isNoRows(err) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("failed to query summary: %w", err)
	}
	return content, through, nil
}
