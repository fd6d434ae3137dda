package store

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Transition is one directed map edge. A to_location of BlockedMarker
// records a direction that was tried and did not move the player.
type Transition struct {
	From      string
	Direction string
	To        string
}

// BlockedMarker is the sentinel destination for impassable directions.
const BlockedMarker = "BLOCKED"

// AddTransition records a map edge. Returns false when the
// (from, direction) pair is already known; the first recording wins.
func (s *Store) AddTransition(sessionID, from, direction, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = strings.ToUpper(strings.TrimSpace(from))
	direction = strings.ToUpper(strings.TrimSpace(direction))
	to = strings.ToUpper(strings.TrimSpace(to))

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO map_transitions
		(session_id, from_location, direction, to_location)
		VALUES (?, ?, ?, ?)`, sessionID, from, direction, to)
	if err != nil {
		return false, fmt.Errorf("failed to add transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Debug("Map transition recorded",
			zap.String("from", from),
			zap.String("direction", direction),
			zap.String("to", to))
	}
	return n > 0, nil
}

// Transitions returns every recorded edge for the session, including
// blocked ones.
func (s *Store) Transitions(sessionID string) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT from_location, direction, to_location
		FROM map_transitions WHERE session_id = ?
		ORDER BY from_location, direction`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		if err := rows.Scan(&t.From, &t.Direction, &t.To); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
