// Package analysis produces the strategic overview report from the
// session's summaries, issues, and map.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/history"
	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/memory"
)

// Analyst composes strategic reports over one session's state.
type Analyst struct {
	client llm.Client
	hist   *history.History
	issues *memory.Tracker
	mapper *mapping.Mapper
	logger *zap.Logger
}

// NewAnalyst builds the analyst.
func NewAnalyst(client llm.Client, hist *history.History, issues *memory.Tracker, mapper *mapping.Mapper, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{client: client, hist: hist, issues: issues, mapper: mapper, logger: logger}
}

// StrategicAnalysis renders a short report: where the playthrough
// stands, what blocks progress, and what to pursue next.
func (a *Analyst) StrategicAnalysis(ctx context.Context) (string, error) {
	summary, err := a.hist.FullSummary()
	if err != nil {
		return "", fmt.Errorf("failed to load summary: %w", err)
	}
	top, err := a.issues.Top(10)
	if err != nil {
		return "", fmt.Errorf("failed to load issues: %w", err)
	}
	locations, err := a.mapper.KnownLocations()
	if err != nil {
		return "", fmt.Errorf("failed to load map: %w", err)
	}

	var issueList strings.Builder
	for _, is := range top {
		fmt.Fprintf(&issueList, "- (importance %d) %s\n", is.Importance, is.Content)
	}
	issuesText := issueList.String()
	if issuesText == "" {
		issuesText = "none tracked\n"
	}

	report, err := a.client.Complete(ctx, llm.Request{
		Tier: llm.TierFast,
		System: "You are a strategy advisor for a text adventure playthrough. " +
			"Write a short report: current standing, the biggest blockers, and the three most promising next objectives.",
		Prompt: fmt.Sprintf(
			"Progress summary:\n%s\n\nOpen issues:\n%s\nLocations mapped: %d (%s)",
			summary, issuesText, len(locations), strings.Join(locations, ", ")),
	})
	if err != nil {
		return "", fmt.Errorf("strategic analysis failed: %w", err)
	}
	return report, nil
}
