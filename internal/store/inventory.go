package store

import (
	"fmt"
	"strings"
)

// InventoryItems returns the cached inventory as a sorted-by-insertion
// list of lowercase item names.
func (s *Store) InventoryItems(sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT item FROM inventory_items WHERE session_id = ? ORDER BY id",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// AddInventoryItem caches a picked-up item. Idempotent.
func (s *Store) AddInventoryItem(sessionID, item string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item = normalizeItem(item)
	if item == "" {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO inventory_items (session_id, item) VALUES (?, ?)",
		sessionID, item)
	if err != nil {
		return fmt.Errorf("failed to add inventory item: %w", err)
	}
	return nil
}

// RemoveInventoryItem drops an item from the cache.
func (s *Store) RemoveInventoryItem(sessionID, item string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"DELETE FROM inventory_items WHERE session_id = ? AND item = ?",
		sessionID, normalizeItem(item))
	if err != nil {
		return fmt.Errorf("failed to remove inventory item: %w", err)
	}
	return nil
}

// ReplaceInventory overwrites the cache with an authoritative item set,
// as parsed from an INVENTORY response.
func (s *Store) ReplaceInventory(sessionID string, items []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM inventory_items WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear inventory: %w", err)
	}
	for _, item := range items {
		item = normalizeItem(item)
		if item == "" {
			continue
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO inventory_items (session_id, item) VALUES (?, ?)",
			sessionID, item); err != nil {
			return fmt.Errorf("failed to insert inventory item: %w", err)
		}
	}
	return tx.Commit()
}

func normalizeItem(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}
