package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	return s
}

func TestAppendTurnIdempotent(t *testing.T) {
	s := newTestStore(t)

	turn := Turn{SessionID: "sess", Number: 1, Command: "LOOK", Response: "West of House", Location: "West of House", Score: 0, Moves: 1}
	require.NoError(t, s.AppendTurn(turn))

	// Replaying the same turn number must not fork history.
	turn.Response = "different"
	require.NoError(t, s.AppendTurn(turn))

	turns, err := s.RecentTurns("sess", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "West of House", turns[0].Response)
}

func TestLatestTurnNumber(t *testing.T) {
	s := newTestStore(t)

	n, err := s.LatestTurnNumber("sess")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.AppendTurn(Turn{SessionID: "sess", Number: i, Command: "LOOK", Response: "r", Location: "L", Score: 0, Moves: i}))
	}
	n, err = s.LatestTurnNumber("sess")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecentTurnsWindowAscending(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 20; i++ {
		require.NoError(t, s.AppendTurn(Turn{SessionID: "sess", Number: i, Command: "LOOK", Response: "r", Location: "L", Score: i, Moves: i}))
	}
	turns, err := s.RecentTurns("sess", 5)
	require.NoError(t, err)
	require.Len(t, turns, 5)
	assert.Equal(t, 16, turns[0].Number)
	assert.Equal(t, 20, turns[4].Number)
}

func TestClampImportance(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultImportance},
		{-5, 1},
		{1001, 1000},
		{1500, 1000},
		{1, 1},
		{1000, 1000},
		{500, 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampImportance(tt.in), "input %d", tt.in)
	}
}

func TestSavePromptFirstWriteWins(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SavePrompt("sess", 3, "decision", "the literal prompt"))
	// Replaying the stage is a no-op, like replaying a turn.
	require.NoError(t, s.SavePrompt("sess", 3, "decision", "a different prompt"))

	content, err := s.PromptForTurn("sess", 3, "decision")
	require.NoError(t, err)
	assert.Equal(t, "the literal prompt", content)

	missing, err := s.PromptForTurn("sess", 4, "decision")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestIssueDecayFloorsAndSkipsClosed(t *testing.T) {
	s := newTestStore(t)

	open, err := s.AddIssue("sess", "open issue", "", 10, 1)
	require.NoError(t, err)
	closed, err := s.AddIssue("sess", "closed issue", "", 10, 1)
	require.NoError(t, err)
	require.NoError(t, s.CloseIssue(closed, 2))

	require.NoError(t, s.DecayIssues("sess"))

	issues, err := s.TopIssues("sess", 10, true)
	require.NoError(t, err)
	byID := map[int64]Issue{}
	for _, is := range issues {
		byID[is.ID] = is
	}
	// 10 * 0.9 = 9.0 floors to 9; closed issue stays at 10.
	assert.Equal(t, 9, byID[open].Importance)
	assert.Equal(t, 10, byID[closed].Importance)
}

func TestTopIssuesTwoModes(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddIssue("sess", "keep", "", 900, 1)
	require.NoError(t, err)
	id, err := s.AddIssue("sess", "done", "", 800, 1)
	require.NoError(t, err)
	require.NoError(t, s.CloseIssue(id, 2))

	open, err := s.TopIssues("sess", 10, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "keep", open[0].Content)

	all, err := s.TopIssues("sess", 10, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCloseIssueTwiceFails(t *testing.T) {
	s := newTestStore(t)
	id, err := s.AddIssue("sess", "x", "", 500, 1)
	require.NoError(t, err)
	require.NoError(t, s.CloseIssue(id, 2))
	assert.Error(t, s.CloseIssue(id, 3))
}

func TestAddTransitionFirstWriteWins(t *testing.T) {
	s := newTestStore(t)

	inserted, err := s.AddTransition("sess", "West of House", "north", "North of House")
	require.NoError(t, err)
	assert.True(t, inserted)

	// Later contradictory observation is rejected.
	inserted, err = s.AddTransition("sess", "west of house", "NORTH", "Forest")
	require.NoError(t, err)
	assert.False(t, inserted)

	trans, err := s.Transitions("sess")
	require.NoError(t, err)
	require.Len(t, trans, 1)
	assert.Equal(t, "WEST OF HOUSE", trans[0].From)
	assert.Equal(t, "NORTH", trans[0].Direction)
	assert.Equal(t, "NORTH OF HOUSE", trans[0].To)
}

func TestInventoryReplaceAndDiff(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddInventoryItem("sess", "Brass Lantern"))
	require.NoError(t, s.AddInventoryItem("sess", "brass lantern")) // dup after normalize
	require.NoError(t, s.AddInventoryItem("sess", "sword"))

	items, err := s.InventoryItems("sess")
	require.NoError(t, err)
	assert.Equal(t, []string{"brass lantern", "sword"}, items)

	require.NoError(t, s.RemoveInventoryItem("sess", "SWORD"))
	items, err = s.InventoryItems("sess")
	require.NoError(t, err)
	assert.Equal(t, []string{"brass lantern"}, items)

	require.NoError(t, s.ReplaceInventory("sess", []string{"leaflet", "rope"}))
	items, err = s.InventoryItems("sess")
	require.NoError(t, err)
	assert.Equal(t, []string{"leaflet", "rope"}, items)
}

func TestSummaries(t *testing.T) {
	s := newTestStore(t)

	content, through, err := s.LatestSummary("sess", "recent")
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Equal(t, 0, through)

	require.NoError(t, s.SaveSummary("sess", "recent", "first", 10))
	require.NoError(t, s.SaveSummary("sess", "recent", "second", 20))

	content, through, err = s.LatestSummary("sess", "recent")
	require.NoError(t, err)
	assert.Equal(t, "second", content)
	assert.Equal(t, 20, through)
}
