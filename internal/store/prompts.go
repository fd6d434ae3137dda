package store

import (
	"fmt"
)

// SavePrompt records the literal prompt a pipeline stage sent for a
// turn. Re-saving the same stage of the same turn is a no-op, matching
// turn idempotency.
func (s *Store) SavePrompt(sessionID string, turn int, stage, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO prompts (session_id, turn_number, stage, content)
		VALUES (?, ?, ?, ?)`,
		sessionID, turn, stage, content)
	if err != nil {
		return fmt.Errorf("failed to save prompt: %w", err)
	}
	return nil
}

// PromptForTurn returns the stored prompt for a stage of a turn, or ""
// when none was recorded.
func (s *Store) PromptForTurn(sessionID string, turn int, stage string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content string
	err := s.db.QueryRow(`
		SELECT content FROM prompts
		WHERE session_id = ? AND turn_number = ? AND stage = ?`,
		sessionID, turn, stage).Scan(&content)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query prompt: %w", err)
	}
	return content, nil
}
