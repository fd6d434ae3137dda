package inventory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zorkagent/internal/store"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "inv.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	return NewTracker(s, "sess", nil, zap.NewNop())
}

func TestSyncReplacesCache(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.Apply(&Change{ItemsAdded: []string{"sword", "lantern"}}))
	require.NoError(t, tr.Sync([]string{"lantern", "leaflet"}))

	items, err := tr.Items()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lantern", "leaflet"}, items)
}

func TestApplyChange(t *testing.T) {
	tr := newTestTracker(t)

	require.NoError(t, tr.Apply(&Change{ItemsAdded: []string{"rope"}}))
	require.NoError(t, tr.Apply(&Change{ItemsAdded: []string{"knife"}, ItemsRemoved: []string{"rope"}}))

	items, err := tr.Items()
	require.NoError(t, err)
	assert.Equal(t, []string{"knife"}, items)
}

func TestItemsTextEmpty(t *testing.T) {
	tr := newTestTracker(t)
	text, err := tr.ItemsText()
	require.NoError(t, err)
	assert.Equal(t, "empty-handed", text)
}

func TestAnalyzeTurnSkipsNonItemCommands(t *testing.T) {
	tr := newTestTracker(t) // nil client: a model call would fail loudly

	change, err := tr.AnalyzeTurn(context.Background(), "GO NORTH", "Forest")
	require.NoError(t, err)
	assert.Empty(t, change.ItemsAdded)
	assert.Empty(t, change.ItemsRemoved)
}

func TestMightChangeInventory(t *testing.T) {
	tests := []struct {
		command  string
		response string
		want     bool
	}{
		{"TAKE LAMP", "Taken.", true},
		{"take lamp", "Taken.", true},
		{"DROP SWORD", "Dropped.", true},
		{"GO NORTH", "Forest", false},
		{"LOOK", "West of House", false},
		{"PUSH BUTTON", "Taken aback, you hear a click. Something was taken.", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mightChangeInventory(tt.command, tt.response), "%q", tt.command)
	}
}

func TestParseInventoryResponse(t *testing.T) {
	response := "You are carrying:\n  A brass lantern\n  An elvish sword\n  The jewel-encrusted egg"
	items, ok := ParseInventoryResponse(response)
	require.True(t, ok)
	assert.Equal(t, []string{"brass lantern", "elvish sword", "jewel-encrusted egg"}, items)
}

func TestParseInventoryResponseEmptyHanded(t *testing.T) {
	items, ok := ParseInventoryResponse("You are empty-handed.")
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestParseInventoryResponseNotAnInventory(t *testing.T) {
	_, ok := ParseInventoryResponse("West of House. You are standing in an open field.")
	assert.False(t, ok)
}
