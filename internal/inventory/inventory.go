// Package inventory caches the player's items and keeps the cache
// honest against game output.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
)

// ItemStore is the persistence surface the tracker needs.
type ItemStore interface {
	InventoryItems(sessionID string) ([]string, error)
	AddInventoryItem(sessionID, item string) error
	RemoveInventoryItem(sessionID, item string) error
	ReplaceInventory(sessionID string, items []string) error
}

// Change is the analyzer's verdict on what a turn did to the
// inventory.
type Change struct {
	ItemsAdded   []string `json:"items_added"`
	ItemsRemoved []string `json:"items_removed"`
	Reasoning    string   `json:"reasoning"`
}

// Tracker maintains the cached inventory for one session.
type Tracker struct {
	store     ItemStore
	sessionID string
	client    llm.Client
	logger    *zap.Logger
}

// NewTracker binds a tracker to one session.
func NewTracker(is ItemStore, sessionID string, client llm.Client, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: is, sessionID: sessionID, client: client, logger: logger}
}

// Items returns the cached inventory.
func (t *Tracker) Items() ([]string, error) {
	return t.store.InventoryItems(t.sessionID)
}

// ItemsText renders the cache for prompt context.
func (t *Tracker) ItemsText() (string, error) {
	items, err := t.Items()
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "empty-handed", nil
	}
	return strings.Join(items, ", "), nil
}

// Sync replaces the cache with an authoritative item list parsed from
// an INVENTORY response. Differences are logged, then the cache is
// overwritten wholesale.
func (t *Tracker) Sync(gameItems []string) error {
	cached, err := t.Items()
	if err != nil {
		return err
	}

	cachedSet := map[string]bool{}
	for _, item := range cached {
		cachedSet[item] = true
	}
	gameSet := map[string]bool{}
	for _, item := range gameItems {
		gameSet[strings.ToLower(strings.TrimSpace(item))] = true
	}
	for item := range gameSet {
		if !cachedSet[item] {
			t.logger.Debug("Inventory sync gained item", zap.String("item", item))
		}
	}
	for item := range cachedSet {
		if !gameSet[item] {
			t.logger.Debug("Inventory sync lost item", zap.String("item", item))
		}
	}

	return t.store.ReplaceInventory(t.sessionID, gameItems)
}

// AnalyzeTurn asks the fast model what a turn did to the inventory.
// Non-item commands short-circuit to an empty change without a model
// call.
func (t *Tracker) AnalyzeTurn(ctx context.Context, command, response string) (*Change, error) {
	if t.client == nil || !mightChangeInventory(command, response) {
		return &Change{}, nil
	}

	var change Change
	err := llm.CompleteStructured(ctx, t.client, llm.Request{
		Tier: llm.TierFast,
		System: "You track a text adventure player's inventory. Report only items actually gained or lost this turn. " +
			"TAKE/GET that succeeded adds the item. DROP/PUT/GIVE/THROW that succeeded removes it. " +
			"A failed action (\"You can't\", \"Taken?\" jokes, refusals) changes nothing. " +
			"Examining, reading, opening, or moving things changes nothing.",
		Prompt: fmt.Sprintf(
			"Command: %s\nGame response: %s\n\nRespond as JSON: {\"items_added\": [...], \"items_removed\": [...], \"reasoning\": string}",
			command, response),
	}, &change)
	if err != nil {
		return nil, fmt.Errorf("inventory analysis failed: %w", err)
	}
	return &change, nil
}

// Apply writes an analyzer verdict to the cache.
func (t *Tracker) Apply(change *Change) error {
	if change == nil {
		return nil
	}
	for _, item := range change.ItemsAdded {
		if err := t.store.AddInventoryItem(t.sessionID, item); err != nil {
			return err
		}
	}
	for _, item := range change.ItemsRemoved {
		if err := t.store.RemoveInventoryItem(t.sessionID, item); err != nil {
			return err
		}
	}
	return nil
}

var itemVerbs = []string{
	"TAKE", "GET", "GRAB", "PICK", "DROP", "PUT", "GIVE", "THROW",
	"INSERT", "REMOVE", "WEAR", "EAT", "DRINK", "TIE", "ATTACH",
}

// mightChangeInventory filters out turns that cannot have touched the
// inventory, sparing a model call.
func mightChangeInventory(command, response string) bool {
	cmd := strings.ToUpper(command)
	for _, verb := range itemVerbs {
		if strings.HasPrefix(cmd, verb+" ") || cmd == verb {
			return true
		}
	}
	resp := strings.ToUpper(response)
	return strings.Contains(resp, "TAKEN") || strings.Contains(resp, "DROPPED")
}

// ParseInventoryResponse extracts item names from an INVENTORY
// response. Returns nil and false when the text is not an inventory
// listing.
func ParseInventoryResponse(response string) ([]string, bool) {
	lower := strings.ToLower(response)
	if strings.Contains(lower, "empty-handed") || strings.Contains(lower, "empty handed") {
		return []string{}, true
	}
	idx := strings.Index(lower, "you are carrying:")
	if idx < 0 {
		return nil, false
	}

	var items []string
	for _, line := range strings.Split(response[idx:], "\n")[1:] {
		item := strings.TrimSpace(line)
		if item == "" {
			break
		}
		item = strings.TrimSuffix(item, ".")
		items = append(items, stripArticle(item))
	}
	return items, true
}

func stripArticle(item string) string {
	lower := strings.ToLower(strings.TrimSpace(item))
	for _, art := range []string{"a ", "an ", "the ", "some "} {
		if strings.HasPrefix(lower, art) {
			return strings.TrimSpace(lower[len(art):])
		}
	}
	return lower
}
