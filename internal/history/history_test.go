package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/store"
)

type cannedLLM struct {
	responses []string
	calls     int
}

func (c *cannedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	if c.calls < len(c.responses) {
		c.calls++
		return c.responses[c.calls-1], nil
	}
	c.calls++
	return "summary", nil
}

func (c *cannedLLM) Close() error { return nil }

func newTestHistory(t *testing.T, client llm.Client) *History {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "hist.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	return New(s, "sess", client, zap.NewNop())
}

func TestRenderTurnsFormat(t *testing.T) {
	turns := []store.Turn{
		{Number: 3, Location: "Kitchen", Score: 10, Command: "TAKE KNIFE", Response: "Taken."},
	}
	want := "Turn #3 (at Kitchen) [Score: 10]\n  Player: TAKE KNIFE\n  Game: Taken."
	assert.Equal(t, want, RenderTurns(turns))
}

func TestRecentTextEmpty(t *testing.T) {
	h := newTestHistory(t, nil)
	text, err := h.RecentText(5)
	require.NoError(t, err)
	assert.Equal(t, "no turns recorded yet", text)
}

func TestResumeNumbering(t *testing.T) {
	h := newTestHistory(t, nil)

	n, err := h.LatestTurnNumber()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, h.Append(store.Turn{Number: 1, Command: "LOOK", Response: "r", Location: "L"}))
	require.NoError(t, h.Append(store.Turn{Number: 2, Command: "LOOK", Response: "r", Location: "L"}))

	n, err = h.LatestTurnNumber()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSummarizePersistsBothKinds(t *testing.T) {
	client := &cannedLLM{responses: []string{"recent summary", "long summary"}}
	h := newTestHistory(t, client)

	require.NoError(t, h.Append(store.Turn{Number: 1, Command: "LOOK", Response: "West of House", Location: "West of House"}))
	require.NoError(t, h.Summarize(context.Background(), 1))

	full, err := h.FullSummary()
	require.NoError(t, err)
	assert.Contains(t, full, "long summary")
	assert.Contains(t, full, "recent summary")
}

func TestFullSummaryEmptySession(t *testing.T) {
	h := newTestHistory(t, nil)
	full, err := h.FullSummary()
	require.NoError(t, err)
	assert.Equal(t, "the adventure has just begun", full)
}

func TestShouldSummarize(t *testing.T) {
	assert.False(t, ShouldSummarize(0))
	assert.False(t, ShouldSummarize(7))
	assert.True(t, ShouldSummarize(15))
	assert.True(t, ShouldSummarize(30))
}
