package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/agents"
	"zorkagent/internal/history"
	"zorkagent/internal/llm"
)

// History lookups the research pass may run.
const (
	lookupRecentTurns = "get_recent_turns"
	lookupFullSummary = "get_full_summary"
)

type historyLookup struct {
	Name  string `json:"name"`
	Turns int    `json:"turns"`
}

type researchPlan struct {
	Lookups []historyLookup `json:"lookups"`
}

// Validate rejects lookups that do not exist. An empty plan is valid;
// the digest then records that nothing was fetched.
func (p *researchPlan) Validate() error {
	for _, l := range p.Lookups {
		switch l.Name {
		case lookupRecentTurns, lookupFullSummary:
		default:
			return fmt.Errorf("unknown history lookup %q", l.Name)
		}
	}
	return nil
}

// Researcher runs the decision-level research pass: one bounded round
// where the model picks history lookups, the results of which are
// joined into a digest for the arbiter. It is independent of the
// specialists' own research.
type Researcher struct {
	client  llm.Client
	history *history.History
	logger  *zap.Logger
}

// NewResearcher builds the researcher.
func NewResearcher(client llm.Client, hist *history.History, logger *zap.Logger) *Researcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Researcher{client: client, history: hist, logger: logger}
}

// Digest asks the model which history lookups matter right now, runs
// them, and joins the results.
func (r *Researcher) Digest(ctx context.Context, tc agents.TurnContext) (string, error) {
	var plan researchPlan
	err := llm.CompleteStructured(ctx, r.client, llm.Request{
		Tier: llm.TierFast,
		System: "You gather history context for the player's next move decision. Pick which lookups " +
			"to run: get_recent_turns (give a turn count) shows raw recent play, get_full_summary " +
			"shows the condensed session narrative. Run only what the current situation calls for.",
		Prompt: fmt.Sprintf(
			"Location: %s\nScore: %d\nCurrent description:\n%s\n\nRespond as JSON: "+
				`{"lookups": [{"name": "get_recent_turns", "turns": 5}, {"name": "get_full_summary"}]}`,
			tc.Location, tc.Score, tc.Response),
	}, &plan)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, l := range plan.Lookups {
		switch l.Name {
		case lookupRecentTurns:
			n := l.Turns
			if n < 1 || n > 20 {
				n = 5
			}
			text, err := r.history.RecentText(n)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s result:\n%s", lookupRecentTurns, text))
		case lookupFullSummary:
			text, err := r.history.FullSummary()
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s result:\n%s", lookupFullSummary, text))
		}
	}
	if len(parts) == 0 {
		return "No lookups executed.", nil
	}
	digest := strings.Join(parts, "\n\n")
	r.logger.Debug("Research digest gathered",
		zap.Int("lookups", len(plan.Lookups)),
		zap.Int("size", len(digest)))
	return digest, nil
}
