// Package memory manages the issue list: observations worth acting
// on, weighted by importance and decayed as they go stale.
package memory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/store"
)

// IssueStore is the persistence surface the tracker needs.
type IssueStore interface {
	AddIssue(sessionID, content, location string, importance, createdTurn int) (int64, error)
	CloseIssue(id int64, turn int) error
	DecayIssues(sessionID string) error
	TopIssues(sessionID string, n int, includeClosed bool) ([]store.Issue, error)
	OpenIssues(sessionID string) ([]store.Issue, error)
	IssuesByLocation(sessionID, location string) ([]store.Issue, error)
}

// Tracker adds, queries, and retires issues for one session.
type Tracker struct {
	store     IssueStore
	sessionID string
	client    llm.Client
	logger    *zap.Logger
}

// NewTracker binds a tracker to one session. The client may be nil,
// which disables the semantic dedup gate (fuzzy matching still runs).
func NewTracker(is IssueStore, sessionID string, client llm.Client, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: is, sessionID: sessionID, client: client, logger: logger}
}

// Add inserts a new issue unless it duplicates a tracked one. The
// fuzzy gate runs first; the LLM semantic gate runs only when fuzzy
// matching passes, so obvious duplicates never cost a model call.
// Returns the issue ID and whether an insert happened.
func (t *Tracker) Add(ctx context.Context, content, location string, importance, createdTurn int) (int64, bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, false, nil
	}

	// Dedup looks at closed issues too: a resolved issue must not be
	// reopened by re-observing the same fact.
	existing, err := t.store.TopIssues(t.sessionID, 200, true)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load issues for dedup: %w", err)
	}

	for _, is := range existing {
		if IsSimilar(content, is.Content) {
			t.logger.Debug("Issue rejected by fuzzy dedup",
				zap.String("new", content),
				zap.String("existing", is.Content))
			return is.ID, false, nil
		}
	}

	if t.client != nil && len(existing) > 0 {
		dup, err := t.semanticDuplicate(ctx, content, existing)
		if err != nil {
			// Dedup is advisory; a transport failure must not lose the
			// observation.
			t.logger.Warn("Semantic dedup failed, keeping issue", zap.Error(err))
		} else if dup {
			t.logger.Debug("Issue rejected by semantic dedup", zap.String("new", content))
			return 0, false, nil
		}
	}

	id, err := t.store.AddIssue(t.sessionID, content, location, importance, createdTurn)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// IsSimilar reports a fuzzy content match: exact after normalization,
// or containment where the shorter string is at least 80% of the
// longer one's length.
func IsSimilar(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(longer) == 0 {
		return true
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	return float64(len(shorter))/float64(len(longer)) >= 0.8
}

type dedupVerdict struct {
	Duplicate bool   `json:"duplicate"`
	Reason    string `json:"reason"`
}

func (t *Tracker) semanticDuplicate(ctx context.Context, content string, existing []store.Issue) (bool, error) {
	var list strings.Builder
	for _, is := range existing {
		fmt.Fprintf(&list, "- %s\n", is.Content)
	}

	var verdict dedupVerdict
	err := llm.CompleteStructured(ctx, t.client, llm.Request{
		Tier:   llm.TierFast,
		System: "You detect duplicate observations in a text adventure agent's notes. Two notes are duplicates when they describe the same fact or goal, even with different wording.",
		Prompt: fmt.Sprintf(
			"Is the new note a duplicate of any tracked note?\n\nNew note: %s\n\nTracked notes:\n%s\nRespond as JSON: {\"duplicate\": bool, \"reason\": string}",
			content, list.String()),
	}, &verdict)
	if err != nil {
		return false, err
	}
	return verdict.Duplicate, nil
}

// Decay applies one importance decay step to all open issues. Called
// exactly once per turn from the persist stage.
func (t *Tracker) Decay() error {
	return t.store.DecayIssues(t.sessionID)
}

// Close retires an issue at the given turn.
func (t *Tracker) Close(id int64, turn int) error {
	return t.store.CloseIssue(id, turn)
}

// Top returns the n most important open issues.
func (t *Tracker) Top(n int) ([]store.Issue, error) {
	return t.store.TopIssues(t.sessionID, n, false)
}

// Open returns all open issues, importance descending.
func (t *Tracker) Open() ([]store.Issue, error) {
	return t.store.OpenIssues(t.sessionID)
}

// AtLocation returns open issues recorded at a location.
func (t *Tracker) AtLocation(location string) ([]store.Issue, error) {
	return t.store.IssuesByLocation(t.sessionID, location)
}

// SplitCriterion parses issue content written as
// "description — acceptance criterion". Without the separator the
// whole content is the criterion.
func SplitCriterion(content string) (description, criterion string) {
	if i := strings.Index(content, "—"); i >= 0 {
		description = strings.TrimSpace(content[:i])
		criterion = strings.TrimSpace(content[i+len("—"):])
		if criterion == "" {
			criterion = content
		}
		return description, criterion
	}
	return "", strings.TrimSpace(content)
}
