// Package history renders and summarizes the persisted turn record.
package history

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/store"
)

// TurnStore is the persistence surface history needs.
type TurnStore interface {
	AppendTurn(t store.Turn) error
	RecentTurns(sessionID string, n int) ([]store.Turn, error)
	LatestTurnNumber(sessionID string) (int, error)
	SaveSummary(sessionID, kind, content string, throughTurn int) error
	LatestSummary(sessionID, kind string) (string, int, error)
}

const (
	// SummaryKindRecent is the rolling window summary of the last
	// summaryWindow turns.
	SummaryKindRecent = "recent"
	// SummaryKindLong is the whole-session running summary.
	SummaryKindLong = "long"

	summaryWindow = 15
)

// History reads and writes the turn record for one session.
type History struct {
	store     TurnStore
	sessionID string
	client    llm.Client
	logger    *zap.Logger
}

// New binds a history to one session.
func New(ts TurnStore, sessionID string, client llm.Client, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{store: ts, sessionID: sessionID, client: client, logger: logger}
}

// Append persists one turn.
func (h *History) Append(t store.Turn) error {
	t.SessionID = h.sessionID
	return h.store.AppendTurn(t)
}

// Recent returns the last n turns, oldest first.
func (h *History) Recent(n int) ([]store.Turn, error) {
	return h.store.RecentTurns(h.sessionID, n)
}

// LatestTurnNumber returns the highest persisted turn number, 0 for a
// fresh session. Resumed sessions continue from here.
func (h *History) LatestTurnNumber() (int, error) {
	return h.store.LatestTurnNumber(h.sessionID)
}

// RenderTurns renders turns in the fixed evidence format agents quote
// from.
func RenderTurns(turns []store.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Turn #%d (at %s) [Score: %d]\n  Player: %s\n  Game: %s\n",
			t.Number, t.Location, t.Score, t.Command, t.Response)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecentText renders the last n turns for prompt context.
func (h *History) RecentText(n int) (string, error) {
	turns, err := h.Recent(n)
	if err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "no turns recorded yet", nil
	}
	return RenderTurns(turns), nil
}

// FullSummary combines the long-running summary with the recent
// window summary for prompt context.
func (h *History) FullSummary() (string, error) {
	long, _, err := h.store.LatestSummary(h.sessionID, SummaryKindLong)
	if err != nil {
		return "", err
	}
	recent, _, err := h.store.LatestSummary(h.sessionID, SummaryKindRecent)
	if err != nil {
		return "", err
	}

	var parts []string
	if long != "" {
		parts = append(parts, "Story so far: "+long)
	}
	if recent != "" {
		parts = append(parts, "Recently: "+recent)
	}
	if len(parts) == 0 {
		return "the adventure has just begun", nil
	}
	return strings.Join(parts, "\n\n"), nil
}

// Summarize refreshes the rolling and long-running summaries through
// the given turn. Called from the persist stage every summaryWindow
// turns.
func (h *History) Summarize(ctx context.Context, throughTurn int) error {
	if h.client == nil {
		return nil
	}

	turns, err := h.Recent(summaryWindow)
	if err != nil {
		return fmt.Errorf("failed to load turns for summary: %w", err)
	}
	if len(turns) == 0 {
		return nil
	}

	recent, err := h.client.Complete(ctx, llm.Request{
		Tier:   llm.TierFast,
		System: "You summarize text adventure progress. Be factual and brief.",
		Prompt: fmt.Sprintf(
			"Summarize these game turns in 3-5 sentences. Focus on locations visited, items gained or lost, puzzles encountered, and score changes.\n\n%s",
			RenderTurns(turns)),
	})
	if err != nil {
		return fmt.Errorf("failed to summarize recent turns: %w", err)
	}
	if err := h.store.SaveSummary(h.sessionID, SummaryKindRecent, recent, throughTurn); err != nil {
		return err
	}

	long, _, err := h.store.LatestSummary(h.sessionID, SummaryKindLong)
	if err != nil {
		return err
	}
	prompt := fmt.Sprintf(
		"Fold the new events into the running summary of a text adventure playthrough. Keep it under 10 sentences, keep unresolved puzzles and important items.\n\nRunning summary:\n%s\n\nNew events:\n%s",
		long, recent)
	if long == "" {
		prompt = fmt.Sprintf("Start a running summary of a text adventure playthrough from these events, under 10 sentences:\n\n%s", recent)
	}
	updated, err := h.client.Complete(ctx, llm.Request{
		Tier:   llm.TierFast,
		System: "You maintain a running summary of a text adventure playthrough.",
		Prompt: prompt,
	})
	if err != nil {
		return fmt.Errorf("failed to update long summary: %w", err)
	}
	if err := h.store.SaveSummary(h.sessionID, SummaryKindLong, updated, throughTurn); err != nil {
		return err
	}

	h.logger.Debug("Summaries refreshed", zap.Int("through_turn", throughTurn))
	return nil
}

// ShouldSummarize reports whether the persist stage should refresh
// summaries at this turn.
func ShouldSummarize(turnNumber int) bool {
	return turnNumber > 0 && turnNumber%summaryWindow == 0
}
