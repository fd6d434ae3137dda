// Package agents implements the specialist agents that research the
// game state each turn and emit command proposals.
package agents

import (
	"context"
	"fmt"

	"zorkagent/internal/store"
)

// Kind tags a proposal variant. The arbiter never inspects agent
// types, only this tag and the variant fields.
type Kind string

const (
	KindLoop        Kind = "loop"
	KindIssue       Kind = "issue"
	KindInteraction Kind = "interaction"
	KindExplorer    Kind = "explorer"
)

// Proposal is one agent's suggested command with its evidence.
type Proposal struct {
	Kind       Kind
	Source     string
	Command    string
	Confidence int // 0-100
	Reason     string

	// Issue proposals carry the issue they serve.
	Issue *store.Issue

	// Explorer proposals carry the chosen direction and how many
	// directions remain untried at the location.
	Direction       string
	UnexploredCount int

	// Loop proposals carry the detected loop kind.
	LoopKind string
}

func (p *Proposal) String() string {
	return fmt.Sprintf("[%s/%s] %q (confidence %d): %s",
		p.Kind, p.Source, p.Command, p.Confidence, p.Reason)
}

// TurnContext is the immutable snapshot of game state agents research
// against. Agents never write stores; all writes happen in the
// pipeline's persist stage.
type TurnContext struct {
	SessionID  string
	TurnNumber int
	Location   string
	Response   string
	Score      int

	// Recent turns, oldest first. The current location is the last
	// turn's location.
	Recent []store.Turn

	Inventory []string
	Summary   string
}

// Agent researches a turn and proposes a command, or abstains by
// returning a nil proposal.
type Agent interface {
	Name() string
	Propose(ctx context.Context, tc TurnContext) (*Proposal, error)
}
