package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/memory"
	"zorkagent/internal/store"
)

// Closure is the closer's verdict that one issue is resolved.
type Closure struct {
	IssueID int64
	Content string
	Reason  string
}

// Closer retires issues whose acceptance criterion the last few turns
// fully satisfy.
type Closer struct {
	client llm.Client
	logger *zap.Logger
}

// NewCloser builds the closer.
func NewCloser(client llm.Client, logger *zap.Logger) *Closer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Closer{client: client, logger: logger}
}

type closeVerdict struct {
	Closed bool   `json:"closed"`
	Reason string `json:"reason"`
}

// Evaluate checks every open issue against the evidence turns (the
// last 5 raw turns including the one just executed) and returns the
// issues to close. Nothing is written here; the persist stage applies
// the closures.
func (c *Closer) Evaluate(ctx context.Context, issues []store.Issue, evidence []store.Turn) ([]Closure, error) {
	if c.client == nil || len(issues) == 0 || len(evidence) == 0 {
		return nil, nil
	}
	if len(evidence) > 5 {
		evidence = evidence[len(evidence)-5:]
	}

	var turns strings.Builder
	for _, t := range evidence {
		fmt.Fprintf(&turns, "Turn #%d (at %s) [Score: %d]\n  Player: %s\n  Game: %s\n",
			t.Number, t.Location, t.Score, t.Command, t.Response)
	}

	var closures []Closure
	for _, issue := range issues {
		_, criterion := memory.SplitCriterion(issue.Content)

		var verdict closeVerdict
		err := llm.CompleteStructured(ctx, c.client, llm.Request{
			Tier: llm.TierFast,
			System: "You judge whether a tracked issue in a text adventure is fully resolved. " +
				"Close only when the acceptance criterion is COMPLETELY satisfied by the evidence. " +
				"Partial progress, intent, or attempts never close an issue.",
			Prompt: fmt.Sprintf(
				"Issue: %s\nAcceptance criterion: %s\n\nEvidence (raw recent turns):\n%s\nRespond as JSON: {\"closed\": bool, \"reason\": string}",
				issue.Content, criterion, turns.String()),
		}, &verdict)
		if err != nil {
			// One bad verdict must not block the others.
			c.logger.Warn("Issue close check failed",
				zap.Int64("issue", issue.ID), zap.Error(err))
			continue
		}
		if verdict.Closed {
			closures = append(closures, Closure{
				IssueID: issue.ID,
				Content: issue.Content,
				Reason:  verdict.Reason,
			})
		}
	}
	return closures, nil
}
