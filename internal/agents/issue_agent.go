package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/memory"
	"zorkagent/internal/store"
)

// relevancePairs relate an obstacle word in issue content to the
// items that typically solve it.
var relevancePairs = map[string][]string{
	"lock":  {"key"},
	"dark":  {"lamp", "lantern", "torch"},
	"troll": {"sword"},
	"water": {"boat"},
}

// IssueAgent works one open issue: it researches how reachable the
// issue is and whether the right items are held, then asks the model
// for the next command toward it.
type IssueAgent struct {
	issue   store.Issue
	mapper  *mapping.Mapper
	tracker *memory.Tracker
	client  llm.Client
	logger  *zap.Logger
}

// NewIssueAgent builds an agent for one issue.
func NewIssueAgent(issue store.Issue, mapper *mapping.Mapper, tracker *memory.Tracker, client llm.Client, logger *zap.Logger) *IssueAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueAgent{issue: issue, mapper: mapper, tracker: tracker, client: client, logger: logger}
}

func (a *IssueAgent) Name() string {
	return fmt.Sprintf("issue-%d", a.issue.ID)
}

// research is the deterministic phase: pathfinding and item relevance
// gathered before any model call.
type research struct {
	path          []string // nil: unknown route; empty: already there
	pathText      string
	relevantItems []string
	localNotes    []store.Issue
}

func (a *IssueAgent) research(tc TurnContext) (*research, error) {
	r := &research{}

	if a.issue.Location != "" {
		path, err := a.mapper.Path(tc.Location, a.issue.Location)
		if err != nil {
			return nil, err
		}
		r.path = path
		r.pathText = mapping.PathSummary(path)
	} else {
		r.path = []string{}
		r.pathText = "the issue is not tied to a location"
	}

	r.relevantItems = RelevantItems(a.issue.Content, tc.Inventory)

	if a.tracker != nil && a.issue.Location != "" {
		notes, err := a.tracker.AtLocation(a.issue.Location)
		if err != nil {
			return nil, err
		}
		r.localNotes = notes
	}
	return r, nil
}

// RelevantItems returns held items that the issue content suggests a
// use for, by the fixed obstacle-to-item pairs plus direct mention.
func RelevantItems(content string, inventory []string) []string {
	lower := strings.ToLower(content)
	var wanted []string
	for obstacle, items := range relevancePairs {
		if strings.Contains(lower, obstacle) {
			wanted = append(wanted, items...)
		}
	}

	var out []string
	for _, held := range inventory {
		heldLower := strings.ToLower(held)
		if strings.Contains(lower, heldLower) {
			out = append(out, held)
			continue
		}
		for _, want := range wanted {
			if strings.Contains(heldLower, want) {
				out = append(out, held)
				break
			}
		}
	}
	return out
}

type issuePlan struct {
	Command    string `json:"command"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

func (v *issuePlan) Validate() error {
	if strings.TrimSpace(v.Command) == "" {
		return fmt.Errorf("issue plan missing command")
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range", v.Confidence)
	}
	return nil
}

// Propose researches the issue and asks the model for the next
// command toward it. An issue whose location cannot be routed to is
// not actionable and the agent abstains.
func (a *IssueAgent) Propose(ctx context.Context, tc TurnContext) (*Proposal, error) {
	r, err := a.research(tc)
	if err != nil {
		return nil, err
	}

	if a.issue.Location != "" && r.path == nil {
		a.logger.Debug("Issue unreachable, abstaining",
			zap.Int64("issue", a.issue.ID),
			zap.String("location", a.issue.Location))
		return nil, nil
	}

	var notes strings.Builder
	for _, n := range r.localNotes {
		if n.ID != a.issue.ID {
			fmt.Fprintf(&notes, "- %s\n", n.Content)
		}
	}
	notesText := notes.String()
	if notesText == "" {
		notesText = "none"
	}
	items := strings.Join(r.relevantItems, ", ")
	if items == "" {
		items = "none"
	}

	var plan issuePlan
	err = llm.CompleteStructured(ctx, a.client, llm.Request{
		Tier: llm.TierFast,
		System: "You work one tracked issue in a text adventure. Propose the single next game command " +
			"that makes progress on it. Calibrate confidence: route known and a relevant item held, 85-95; " +
			"route known but no relevant item, 60-70; making progress from here without moving, up to 80. " +
			"Commands are imperative game syntax like TAKE LAMP, GO NORTH, UNLOCK GRATE WITH KEY.",
		Prompt: fmt.Sprintf(
			"Issue (importance %d): %s\n\nCurrent location: %s\nRoute to the issue: %s\nRelevant items held: %s\nOther notes at that location:\n%s\nRecent turns:\n%s\n\nRespond as JSON: {\"command\": string, \"confidence\": 0-100, \"reason\": string}",
			a.issue.Importance, a.issue.Content, tc.Location, r.pathText, items,
			notesText, renderTurnsForPrompt(lastTurns(tc.Recent, 5))),
	}, &plan)
	if err != nil {
		return nil, err
	}

	issue := a.issue
	return &Proposal{
		Kind:       KindIssue,
		Source:     a.Name(),
		Command:    strings.ToUpper(strings.TrimSpace(plan.Command)),
		Confidence: plan.Confidence,
		Reason:     plan.Reason,
		Issue:      &issue,
	}, nil
}

func lastTurns(turns []store.Turn, n int) []store.Turn {
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}
