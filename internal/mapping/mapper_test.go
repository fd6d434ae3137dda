package mapping

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zorkagent/internal/store"
)

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "map.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSession("sess"))
	return NewMapper(s, "sess", zap.NewNop())
}

func TestObserveTurnRecordsMovement(t *testing.T) {
	m := newTestMapper(t)

	require.NoError(t, m.ObserveTurn("GO NORTH", "West of House", "North of House", "NORTH"))

	path, err := m.Path("West of House", "North of House")
	require.NoError(t, err)
	assert.Equal(t, []string{"NORTH"}, path)
}

func TestObserveTurnRecordsBlocked(t *testing.T) {
	m := newTestMapper(t)

	// Directional command, same location: blocked.
	require.NoError(t, m.ObserveTurn("GO EAST", "West of House", "West of House", ""))

	exits, err := m.KnownExits("West of House")
	require.NoError(t, err)
	assert.Equal(t, store.BlockedMarker, exits["EAST"])
}

func TestObserveTurnIgnoresNonMovement(t *testing.T) {
	m := newTestMapper(t)

	// Non-directional command at the same location teaches nothing.
	require.NoError(t, m.ObserveTurn("TAKE LAMP", "Kitchen", "Kitchen", ""))

	exits, err := m.KnownExits("Kitchen")
	require.NoError(t, err)
	assert.Empty(t, exits)
}

func TestObserveTurnPrefersReportedDirection(t *testing.T) {
	m := newTestMapper(t)

	// "ENTER WINDOW" is not parseable, but the game reported the move.
	require.NoError(t, m.ObserveTurn("ENTER WINDOW", "Behind House", "Kitchen", "WEST"))

	path, err := m.Path("Behind House", "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, []string{"WEST"}, path)
}

func TestUnexploredDirectionsMentionedFirst(t *testing.T) {
	m := newTestMapper(t)

	require.NoError(t, m.ObserveTurn("GO NORTH", "Clearing", "Forest", "NORTH"))

	dirs, err := m.UnexploredDirections("Clearing", "There is a path to the southwest.")
	require.NoError(t, err)
	require.NotEmpty(t, dirs)
	assert.Equal(t, "SOUTHWEST", dirs[0])
	assert.NotContains(t, dirs, "NORTH")
}

func TestKnownLocationsExcludesBlockedMarker(t *testing.T) {
	m := newTestMapper(t)

	require.NoError(t, m.ObserveTurn("GO NORTH", "A", "B", "NORTH"))
	require.NoError(t, m.ObserveTurn("GO SOUTH", "B", "B", ""))

	locs, err := m.KnownLocations()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, locs)
}

func TestRender(t *testing.T) {
	m := newTestMapper(t)

	out, err := m.Render()
	require.NoError(t, err)
	assert.Equal(t, "no map data recorded yet", out)

	require.NoError(t, m.ObserveTurn("GO NORTH", "A", "B", "NORTH"))
	out, err = m.Render()
	require.NoError(t, err)
	assert.Equal(t, "A -> NORTH: B", out)
}
