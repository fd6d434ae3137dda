// Package mapping tracks the discovered game map and answers
// pathfinding queries over it.
package mapping

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/store"
)

// TransitionStore is the persistence surface the mapper needs.
type TransitionStore interface {
	AddTransition(sessionID, from, direction, to string) (bool, error)
	Transitions(sessionID string) ([]store.Transition, error)
}

// Mapper observes turns and maintains the session's map.
type Mapper struct {
	store     TransitionStore
	sessionID string
	logger    *zap.Logger
}

// NewMapper binds a mapper to one session.
func NewMapper(ts TransitionStore, sessionID string, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{store: ts, sessionID: sessionID, logger: logger}
}

// ObserveTurn records what a turn taught us about the map. A move that
// changed location records the edge; a directional command that did
// not move the player records a blocked edge. The game's reported
// movement direction takes precedence over parsing the command.
func (m *Mapper) ObserveTurn(command, prevLocation, newLocation, reportedDirection string) error {
	direction := CanonicalDirection(reportedDirection)
	if direction == "" {
		direction = ExtractDirection(command)
	}
	if direction == "" || prevLocation == "" {
		return nil
	}

	if !strings.EqualFold(strings.TrimSpace(prevLocation), strings.TrimSpace(newLocation)) {
		_, err := m.store.AddTransition(m.sessionID, prevLocation, direction, newLocation)
		return err
	}

	// Tried to move, stayed put: the direction is impassable from here.
	if ExtractDirection(command) != "" {
		_, err := m.store.AddTransition(m.sessionID, prevLocation, direction, store.BlockedMarker)
		return err
	}
	return nil
}

// Path finds the direction sequence between two locations.
func (m *Mapper) Path(from, to string) ([]string, error) {
	transitions, err := m.store.Transitions(m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	return FindPath(transitions, from, to), nil
}

// KnownExits returns the directions already mapped from a location,
// with their destination (or the blocked marker).
func (m *Mapper) KnownExits(location string) (map[string]string, error) {
	transitions, err := m.store.Transitions(m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	location = strings.ToUpper(strings.TrimSpace(location))
	exits := map[string]string{}
	for _, t := range transitions {
		if t.From == location {
			exits[t.Direction] = t.To
		}
	}
	return exits, nil
}

// UnexploredDirections returns candidate directions from a location
// that have not been tried, with directions mentioned in the current
// response text ordered first.
func (m *Mapper) UnexploredDirections(location, responseText string) ([]string, error) {
	exits, err := m.KnownExits(location)
	if err != nil {
		return nil, err
	}

	mentioned := map[string]bool{}
	for _, dir := range MentionedDirections(responseText) {
		mentioned[dir] = true
	}

	var first, rest []string
	for _, dir := range Directions {
		if _, tried := exits[dir]; tried {
			continue
		}
		if mentioned[dir] {
			first = append(first, dir)
		} else {
			rest = append(rest, dir)
		}
	}
	return append(first, rest...), nil
}

// KnownLocations returns every mapped location name, sorted.
func (m *Mapper) KnownLocations() ([]string, error) {
	transitions, err := m.store.Transitions(m.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transitions: %w", err)
	}
	seen := map[string]bool{}
	for _, t := range transitions {
		seen[t.From] = true
		if t.To != store.BlockedMarker {
			seen[t.To] = true
		}
	}
	out := make([]string, 0, len(seen))
	for loc := range seen {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out, nil
}

// Render dumps the map as one line per edge for the map subcommand
// and for prompt context.
func (m *Mapper) Render() (string, error) {
	transitions, err := m.store.Transitions(m.sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load transitions: %w", err)
	}
	if len(transitions) == 0 {
		return "no map data recorded yet", nil
	}
	var b strings.Builder
	for _, t := range transitions {
		if t.To == store.BlockedMarker {
			fmt.Fprintf(&b, "%s -> %s: blocked\n", t.From, t.Direction)
			continue
		}
		fmt.Fprintf(&b, "%s -> %s: %s\n", t.From, t.Direction, t.To)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
