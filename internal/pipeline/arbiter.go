// Package pipeline runs the per-turn decision pipeline: spawn,
// research, decide, execute, close issues, observe, persist.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/agents"
	"zorkagent/internal/llm"
)

// adventurerSystem is the free-form decision prompt used when no
// specialist produced a proposal.
const adventurerSystem = "You are playing Zork One. Your goal is to explore the world, solve puzzles, " +
	"collect treasures, and reach the full score of 350 points. You respond with exactly one game " +
	"command in imperative syntax, like GO NORTH, TAKE LAMP, or OPEN MAILBOX."

// Decision is the arbiter's structured verdict.
type Decision struct {
	Command        string `json:"command"`
	Reason         string `json:"reason"`
	MovedDirection string `json:"movedDirection"`

	// Prompt is the literal prompt that produced the decision, kept
	// for the audit trail.
	Prompt string `json:"-"`
}

// Validate rejects a decision without a command.
func (d *Decision) Validate() error {
	if strings.TrimSpace(d.Command) == "" {
		return fmt.Errorf("arbiter decision missing command")
	}
	return nil
}

// Arbiter selects the turn's command from the agents' proposals.
type Arbiter struct {
	client llm.Client
	logger *zap.Logger
}

// NewArbiter builds the arbiter.
func NewArbiter(client llm.Client, logger *zap.Logger) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{client: client, logger: logger}
}

// OrderProposals sorts proposals into the fixed prompt order: loop
// breakers first, then issues, interactions, and the explorer last.
// Within a kind the original order is kept.
func OrderProposals(proposals []agents.Proposal) []agents.Proposal {
	rank := map[agents.Kind]int{
		agents.KindLoop:        0,
		agents.KindIssue:       1,
		agents.KindInteraction: 2,
		agents.KindExplorer:    3,
	}
	ordered := make([]agents.Proposal, 0, len(proposals))
	for tier := 0; tier <= 3; tier++ {
		for _, p := range proposals {
			if rank[p.Kind] == tier {
				ordered = append(ordered, p)
			}
		}
	}
	return ordered
}

// ExpectedValue computes the guidance number shown to the arbiter for
// a proposal. Issue proposals weigh importance against confidence;
// explorer proposals weigh how much is left to find.
func ExpectedValue(p agents.Proposal) float64 {
	switch p.Kind {
	case agents.KindIssue:
		if p.Issue == nil {
			return 0
		}
		return float64(p.Issue.Importance) / 1000 * float64(p.Confidence) / 100 * 100
	case agents.KindExplorer:
		return float64(p.UnexploredCount) / 10 * float64(p.Confidence) / 100 * 50
	default:
		return float64(p.Confidence)
	}
}

// Decide picks the command for this turn. With proposals in hand the
// smart model arbitrates among them; with none it falls back to the
// free-form adventurer decision. The literal prompt is carried on the
// decision so the persist stage can store it.
func (a *Arbiter) Decide(ctx context.Context, tc agents.TurnContext, proposals []agents.Proposal, researchContext string) (*Decision, error) {
	if len(proposals) == 0 {
		return a.freeForm(ctx, tc, researchContext)
	}

	ordered := OrderProposals(proposals)
	var list strings.Builder
	for i, p := range ordered {
		fmt.Fprintf(&list, "%d. [%s] command %q, confidence %d, expected value %.1f\n   %s\n",
			i+1, p.Kind, p.Command, p.Confidence, ExpectedValue(p), p.Reason)
	}

	req := llm.Request{
		Tier: llm.TierSmart,
		System: "You arbitrate between specialist proposals for the next move in Zork One. " +
			"Loop-breaking proposals exist because the player is demonstrably stuck; override them only " +
			"with a concrete reason. Expected value is guidance, not a rule. Pick exactly one command, " +
			"normally from the proposals. Set movedDirection to the direction when the command is a move, else empty.",
		Prompt: fmt.Sprintf(
			"Location: %s\nScore: %d\nInventory: %s\n\n%s\n\nResearch context:\n%s\n\nProposals:\n%s\nRecent turns:\n%s\n\nRespond as JSON: {\"command\": string, \"reason\": string, \"movedDirection\": string}",
			tc.Location, tc.Score, joinOr(tc.Inventory, "empty-handed"), tc.Summary,
			researchContext, list.String(), renderRecent(tc)),
	}

	var decision Decision
	if err := llm.CompleteStructured(ctx, a.client, req, &decision); err != nil {
		return nil, err
	}
	decision.Command = strings.ToUpper(strings.TrimSpace(decision.Command))
	decision.Prompt = req.System + "\n\n" + req.Prompt
	a.logger.Info("Arbiter decided",
		zap.String("command", decision.Command),
		zap.String("reason", decision.Reason),
		zap.Int("proposals", len(proposals)))
	return &decision, nil
}

func (a *Arbiter) freeForm(ctx context.Context, tc agents.TurnContext, researchContext string) (*Decision, error) {
	req := llm.Request{
		Tier:   llm.TierSmart,
		System: adventurerSystem,
		Prompt: fmt.Sprintf(
			"Location: %s\nScore: %d\nInventory: %s\n\n%s\n\nResearch context:\n%s\n\nCurrent description:\n%s\n\nRecent turns:\n%s\n\nWhat is your next command? Respond as JSON: {\"command\": string, \"reason\": string, \"movedDirection\": string}",
			tc.Location, tc.Score, joinOr(tc.Inventory, "empty-handed"), tc.Summary,
			researchContext, tc.Response, renderRecent(tc)),
	}

	var decision Decision
	if err := llm.CompleteStructured(ctx, a.client, req, &decision); err != nil {
		return nil, err
	}
	decision.Command = strings.ToUpper(strings.TrimSpace(decision.Command))
	decision.Prompt = req.System + "\n\n" + req.Prompt
	a.logger.Info("Arbiter decided free-form", zap.String("command", decision.Command))
	return &decision, nil
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func renderRecent(tc agents.TurnContext) string {
	turns := tc.Recent
	if len(turns) > 8 {
		turns = turns[len(turns)-8:]
	}
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Turn #%d (at %s) [Score: %d]\n  Player: %s\n  Game: %s\n",
			t.Number, t.Location, t.Score, t.Command, t.Response)
	}
	if b.Len() == 0 {
		return "none yet"
	}
	return strings.TrimRight(b.String(), "\n")
}
