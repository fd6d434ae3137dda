package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"zorkagent/internal/mapping"
)

// explorerOrder is the deterministic candidate order: cardinals,
// diagonals, vertical. Directions mentioned in the current response
// jump this queue.
var explorerOrder = []string{
	"NORTH", "SOUTH", "EAST", "WEST",
	"NORTHEAST", "NORTHWEST", "SOUTHEAST", "SOUTHWEST",
	"UP", "DOWN",
}

// Explorer proposes movement into unmapped territory. At most one
// explorer runs per turn.
type Explorer struct {
	mapper *mapping.Mapper
	logger *zap.Logger
}

// NewExplorer builds the explorer.
func NewExplorer(mapper *mapping.Mapper, logger *zap.Logger) *Explorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Explorer{mapper: mapper, logger: logger}
}

func (e *Explorer) Name() string { return "explorer" }

// Propose picks the best untried direction, or abstains when every
// direction from here has been mapped.
func (e *Explorer) Propose(ctx context.Context, tc TurnContext) (*Proposal, error) {
	exits, err := e.mapper.KnownExits(tc.Location)
	if err != nil {
		return nil, err
	}

	mentioned := map[string]bool{}
	for _, dir := range mapping.MentionedDirections(tc.Response) {
		mentioned[dir] = true
	}

	direction := ""
	unexplored := 0
	for _, dir := range explorerOrder {
		if _, tried := exits[dir]; tried {
			continue
		}
		unexplored++
		if direction == "" || (mentioned[dir] && !mentioned[direction]) {
			direction = dir
		}
	}
	if direction == "" {
		return nil, nil
	}

	confidence := explorerConfidence(unexplored, mentioned[direction])
	return &Proposal{
		Kind:       KindExplorer,
		Source:     e.Name(),
		Command:    "GO " + direction,
		Confidence: confidence,
		Reason: fmt.Sprintf("%d direction(s) from %s are untried; %s",
			unexplored, tc.Location, explainPick(direction, mentioned[direction])),
		Direction:       direction,
		UnexploredCount: unexplored,
	}, nil
}

// explorerConfidence buckets on how much is left to explore, with a
// bonus for a direction the game itself mentioned, capped at 95.
func explorerConfidence(unexplored int, mentioned bool) int {
	var confidence int
	switch {
	case unexplored >= 6:
		confidence = 75
	case unexplored >= 4:
		confidence = 65
	case unexplored >= 2:
		confidence = 55
	default:
		confidence = 45
	}
	if mentioned {
		confidence += 20
	}
	if confidence > 95 {
		confidence = 95
	}
	return confidence
}

func explainPick(direction string, mentioned bool) string {
	if mentioned {
		return direction + " is mentioned in the room description"
	}
	return direction + " is the first untried direction"
}
