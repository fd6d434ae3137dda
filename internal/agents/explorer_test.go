package agents

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zorkagent/internal/mapping"
	"zorkagent/internal/store"
)

func newExplorerFixture(t *testing.T) (*Explorer, *mapping.Mapper) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "exp.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	m := mapping.NewMapper(s, "sess", zap.NewNop())
	return NewExplorer(m, zap.NewNop()), m
}

func TestExplorerPrefersMentionedDirection(t *testing.T) {
	e, _ := newExplorerFixture(t)

	tc := TurnContext{
		Location: "Clearing",
		Response: "You are in a clearing. A narrow trail winds southwest.",
	}
	p, err := e.Propose(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "GO SOUTHWEST", p.Command)
	assert.Equal(t, "SOUTHWEST", p.Direction)
	assert.Equal(t, 10, p.UnexploredCount)
	// Bucket 75 for >=6 unexplored, +20 mentioned, capped at 95.
	assert.Equal(t, 95, p.Confidence)
}

func TestExplorerFirstUntriedWhenNothingMentioned(t *testing.T) {
	e, m := newExplorerFixture(t)
	require.NoError(t, m.ObserveTurn("GO NORTH", "Clearing", "Forest", "NORTH"))

	tc := TurnContext{Location: "Clearing", Response: "A featureless clearing."}
	p, err := e.Propose(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "GO SOUTH", p.Command)
	assert.Equal(t, 9, p.UnexploredCount)
	assert.Equal(t, 75, p.Confidence)
}

func TestExplorerConfidenceBuckets(t *testing.T) {
	tests := []struct {
		unexplored int
		mentioned  bool
		want       int
	}{
		{10, false, 75},
		{6, false, 75},
		{5, false, 65},
		{4, false, 65},
		{3, false, 55},
		{2, false, 55},
		{1, false, 45},
		{1, true, 65},
		{6, true, 95},
		{4, true, 85},
	}
	for _, tt := range tests {
		got := explorerConfidence(tt.unexplored, tt.mentioned)
		assert.Equal(t, tt.want, got, "unexplored=%d mentioned=%v", tt.unexplored, tt.mentioned)
	}
}

func TestExplorerAbstainsWhenFullyMapped(t *testing.T) {
	e, m := newExplorerFixture(t)
	for _, dir := range explorerOrder {
		require.NoError(t, m.ObserveTurn("GO "+dir, "Hub", "Hub", ""))
	}

	tc := TurnContext{Location: "Hub", Response: "A hub."}
	p, err := e.Propose(context.Background(), tc)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestExplorerSkipsBlockedDirections(t *testing.T) {
	e, m := newExplorerFixture(t)
	// NORTH was tried and blocked.
	require.NoError(t, m.ObserveTurn("GO NORTH", "Cave", "Cave", ""))

	tc := TurnContext{Location: "Cave", Response: "A dark cave."}
	p, err := e.Propose(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "GO SOUTH", p.Command)
}
