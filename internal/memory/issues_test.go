package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/store"
)

type dedupLLM struct {
	duplicate bool
	calls     int
}

func (d *dedupLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	d.calls++
	out, _ := json.Marshal(map[string]any{"duplicate": d.duplicate, "reason": "test"})
	return string(out), nil
}

func (d *dedupLLM) Close() error { return nil }

func newTestTracker(t *testing.T, client llm.Client) *Tracker {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "mem.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	return NewTracker(s, "sess", client, zap.NewNop())
}

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"the trapdoor is locked", "The trapdoor is locked", true},
		{"the trapdoor is locked", "the trapdoor is locked tight", true},
		{"key", "there is a key somewhere in the forest", false},
		{"completely different", "nothing alike here at all", false},
		{"", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSimilar(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestAddFuzzyDedup(t *testing.T) {
	tr := newTestTracker(t, nil)

	id, added, err := tr.Add(context.Background(), "the trapdoor is locked", "Cellar", 700, 1)
	require.NoError(t, err)
	assert.True(t, added)

	dupID, added, err := tr.Add(context.Background(), "The trapdoor is locked!", "Cellar", 700, 2)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, id, dupID)
}

func TestAddSemanticDedup(t *testing.T) {
	client := &dedupLLM{duplicate: true}
	tr := newTestTracker(t, client)

	_, added, err := tr.Add(context.Background(), "the grating is locked", "", 600, 1)
	require.NoError(t, err)
	require.True(t, added)
	// First insert has nothing to compare against.
	assert.Equal(t, 0, client.calls)

	_, added, err = tr.Add(context.Background(), "a locked grate blocks the way down", "", 600, 2)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, client.calls)
}

func TestAddDedupSeesClosedIssues(t *testing.T) {
	tr := newTestTracker(t, nil)

	id, added, err := tr.Add(context.Background(), "the egg is fragile", "", 400, 1)
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, tr.Close(id, 2))

	_, added, err = tr.Add(context.Background(), "the egg is fragile", "", 400, 3)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestAddEmptyContentIgnored(t *testing.T) {
	tr := newTestTracker(t, nil)
	_, added, err := tr.Add(context.Background(), "   ", "", 500, 1)
	require.NoError(t, err)
	assert.False(t, added)
}

func TestTopOrdering(t *testing.T) {
	tr := newTestTracker(t, nil)

	_, _, err := tr.Add(context.Background(), "minor detail about scenery", "", 100, 1)
	require.NoError(t, err)
	_, _, err = tr.Add(context.Background(), "the troll blocks the passage", "", 900, 1)
	require.NoError(t, err)

	top, err := tr.Top(1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "the troll blocks the passage", top[0].Content)
}

func TestAtLocation(t *testing.T) {
	tr := newTestTracker(t, nil)

	_, _, err := tr.Add(context.Background(), "rope tied to the railing", "Dome Room", 500, 1)
	require.NoError(t, err)
	_, _, err = tr.Add(context.Background(), "painting on the wall", "Gallery", 500, 1)
	require.NoError(t, err)

	issues, err := tr.AtLocation("Dome Room")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "rope tied to the railing", issues[0].Content)
}

func TestSplitCriterion(t *testing.T) {
	desc, crit := SplitCriterion("open the trapdoor — the trapdoor is open")
	assert.Equal(t, "open the trapdoor", desc)
	assert.Equal(t, "the trapdoor is open", crit)

	desc, crit = SplitCriterion("the lantern is running low")
	assert.Empty(t, desc)
	assert.Equal(t, "the lantern is running low", crit)
}
