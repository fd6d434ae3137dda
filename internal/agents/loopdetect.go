package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/store"
)

// Loop kinds reported in proposals.
const (
	LoopStuckLocation   = "stuck_location"
	LoopOscillating     = "oscillating"
	LoopRepeatedAction  = "repeated_action"
	LoopScoreStagnation = "score_stagnation"
)

// deterministicLoopConfidence is fixed: a rule that fired is evidence,
// not a guess.
const deterministicLoopConfidence = 98

// LoopDetector finds behavioral loops in recent history. Deterministic
// rules run first; the model only sees turns none of them explain.
type LoopDetector struct {
	mapper *mapping.Mapper
	client llm.Client
	logger *zap.Logger
}

// NewLoopDetector builds the detector. The client may be nil, which
// disables the LLM fallback.
func NewLoopDetector(mapper *mapping.Mapper, client llm.Client, logger *zap.Logger) *LoopDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoopDetector{mapper: mapper, client: client, logger: logger}
}

func (d *LoopDetector) Name() string { return "loop-detector" }

// Propose checks the four loop rules in order and emits a
// loop-breaking command for the first that fires.
func (d *LoopDetector) Propose(ctx context.Context, tc TurnContext) (*Proposal, error) {
	if kind, reason := DetectLoop(tc); kind != "" {
		command, how, err := d.breakingAction(kind, tc)
		if err != nil {
			return nil, err
		}
		return &Proposal{
			Kind:       KindLoop,
			Source:     d.Name(),
			Command:    command,
			Confidence: deterministicLoopConfidence,
			Reason:     reason + " Breaking the loop by " + how + ".",
			LoopKind:   kind,
		}, nil
	}

	if d.client == nil || len(tc.Recent) < 6 {
		return nil, nil
	}
	return d.llmFallback(ctx, tc)
}

// DetectLoop applies the deterministic rules and returns the loop kind
// and an evidence-citing reason, or "" when no rule fires.
func DetectLoop(tc TurnContext) (kind, reason string) {
	if k, r := detectStuckLocation(tc); k != "" {
		return k, r
	}
	if k, r := detectOscillating(tc); k != "" {
		return k, r
	}
	if k, r := detectRepeatedAction(tc); k != "" {
		return k, r
	}
	return detectScoreStagnation(tc)
}

// stuck_location: the current location appears in 5 or more
// consecutive trailing turns.
func detectStuckLocation(tc TurnContext) (string, string) {
	count := 0
	for i := len(tc.Recent) - 1; i >= 0; i-- {
		if !strings.EqualFold(tc.Recent[i].Location, tc.Location) {
			break
		}
		count++
	}
	if count < 5 {
		return "", ""
	}
	first := tc.Recent[len(tc.Recent)-count].Number
	last := tc.Recent[len(tc.Recent)-1].Number
	return LoopStuckLocation, fmt.Sprintf(
		"Stuck at %s for %d consecutive turns (turns %d-%d) with commands like %s.",
		tc.Location, count, first, last, quoteTrailingCommands(tc.Recent, 3))
}

// oscillating: exactly 2 distinct locations over the last 6 turns with
// at least 3 location changes between consecutive turns.
func detectOscillating(tc TurnContext) (string, string) {
	if len(tc.Recent) < 6 {
		return "", ""
	}
	window := tc.Recent[len(tc.Recent)-6:]
	distinct := map[string]bool{}
	changes := 0
	for i, t := range window {
		distinct[strings.ToUpper(t.Location)] = true
		if i > 0 && !strings.EqualFold(t.Location, window[i-1].Location) {
			changes++
		}
	}
	if len(distinct) != 2 || changes < 3 {
		return "", ""
	}
	locs := make([]string, 0, 2)
	for loc := range distinct {
		locs = append(locs, loc)
	}
	if locs[0] > locs[1] {
		locs[0], locs[1] = locs[1], locs[0]
	}
	return LoopOscillating, fmt.Sprintf(
		"Oscillating between %s and %s: %d location changes over turns %d-%d.",
		locs[0], locs[1], changes, window[0].Number, window[len(window)-1].Number)
}

// repeated_action: the same (location, command) pair occurs 3 or more
// times in the last 5 turns, and the player is still at that location.
func detectRepeatedAction(tc TurnContext) (string, string) {
	if len(tc.Recent) == 0 {
		return "", ""
	}
	window := tc.Recent
	if len(window) > 5 {
		window = window[len(window)-5:]
	}
	type pair struct{ loc, cmd string }
	counts := map[pair][]int{}
	for _, t := range window {
		p := pair{strings.ToUpper(t.Location), strings.ToUpper(strings.TrimSpace(t.Command))}
		counts[p] = append(counts[p], t.Number)
	}
	for p, turns := range counts {
		if len(turns) >= 3 && strings.EqualFold(p.loc, tc.Location) {
			return LoopRepeatedAction, fmt.Sprintf(
				"Repeated %q at %s %d times (turns %v) without leaving.",
				p.cmd, p.loc, len(turns), turns)
		}
	}
	return "", ""
}

// score_stagnation: the score has not changed for 8 turns and at most
// 2 distinct locations were visited over the last 12.
func detectScoreStagnation(tc TurnContext) (string, string) {
	if len(tc.Recent) < 12 {
		return "", ""
	}
	last8 := tc.Recent[len(tc.Recent)-8:]
	for _, t := range last8 {
		if t.Score != last8[0].Score {
			return "", ""
		}
	}
	last12 := tc.Recent[len(tc.Recent)-12:]
	distinct := map[string]bool{}
	for _, t := range last12 {
		distinct[strings.ToUpper(t.Location)] = true
	}
	if len(distinct) > 2 {
		return "", ""
	}
	return LoopScoreStagnation, fmt.Sprintf(
		"Score frozen at %d for 8 turns (through turn %d) while visiting only %d location(s) over the last 12 turns.",
		last8[0].Score, last8[len(last8)-1].Number, len(distinct))
}

// breakingAction picks the command that escapes the loop: an untried
// exit first, then a cardinal not in recent commands, then a
// kind-specific fallback.
func (d *LoopDetector) breakingAction(kind string, tc TurnContext) (command, how string, err error) {
	if d.mapper != nil {
		unexplored, err := d.mapper.UnexploredDirections(tc.Location, tc.Response)
		if err != nil {
			return "", "", err
		}
		if len(unexplored) > 0 {
			dir := unexplored[0]
			return "GO " + dir, "trying the untried exit " + dir, nil
		}
	}

	recentCommands := map[string]bool{}
	for _, t := range tc.Recent {
		recentCommands[strings.ToUpper(strings.TrimSpace(t.Command))] = true
	}
	for _, dir := range []string{"NORTH", "SOUTH", "EAST", "WEST"} {
		cmd := "GO " + dir
		if !recentCommands[cmd] && !recentCommands[dir] {
			return cmd, "moving " + dir + ", which was not tried recently", nil
		}
	}

	switch kind {
	case LoopRepeatedAction:
		return "LOOK", "re-examining the surroundings", nil
	case LoopScoreStagnation:
		return "INVENTORY", "taking stock of carried items", nil
	default:
		return "EXAMINE SURROUNDINGS", "examining the surroundings for missed detail", nil
	}
}

type loopVerdict struct {
	LoopDetected bool   `json:"loopDetected"`
	Command      string `json:"command"`
	Confidence   int    `json:"confidence"`
	Reason       string `json:"reason"`
}

func (v *loopVerdict) Validate() error {
	if v.LoopDetected && strings.TrimSpace(v.Command) == "" {
		return fmt.Errorf("loop verdict missing command")
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range", v.Confidence)
	}
	return nil
}

func (d *LoopDetector) llmFallback(ctx context.Context, tc TurnContext) (*Proposal, error) {
	var exitList []string
	if d.mapper != nil {
		exits, err := d.mapper.KnownExits(tc.Location)
		if err != nil {
			return nil, err
		}
		for dir, to := range exits {
			exitList = append(exitList, fmt.Sprintf("%s to %s", dir, to))
		}
	}
	sort.Strings(exitList)
	exitsText := strings.Join(exitList, "; ")
	if exitsText == "" {
		exitsText = "none mapped"
	}

	var verdict loopVerdict
	err := llm.CompleteStructured(ctx, d.client, llm.Request{
		Tier: llm.TierFast,
		System: "You watch a text adventure player's recent turns for unproductive behavioral loops " +
			"that simple rules miss. Only flag a loop when the evidence is strong.",
		Prompt: fmt.Sprintf(
			"Recent turns:\n%s\n\nCurrent location: %s\nKnown exits: %s\n\nIs the player looping? Respond as JSON: "+
				"{\"loopDetected\": bool, \"command\": string, \"confidence\": 0-100, \"reason\": string}",
			renderTurnsForPrompt(lastTurns(tc.Recent, 10)), tc.Location, exitsText),
	}, &verdict)
	if err != nil {
		return nil, err
	}
	if !verdict.LoopDetected {
		return nil, nil
	}
	return &Proposal{
		Kind:       KindLoop,
		Source:     d.Name(),
		Command:    strings.ToUpper(strings.TrimSpace(verdict.Command)),
		Confidence: verdict.Confidence,
		Reason:     verdict.Reason,
		LoopKind:   "llm_detected",
	}, nil
}

func quoteTrailingCommands(turns []store.Turn, n int) string {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	quoted := make([]string, len(turns))
	for i, t := range turns {
		quoted[i] = fmt.Sprintf("%q", t.Command)
	}
	return strings.Join(quoted, ", ")
}

func renderTurnsForPrompt(turns []store.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "Turn #%d (at %s) [Score: %d]\n  Player: %s\n  Game: %s\n",
			t.Number, t.Location, t.Score, t.Command, t.Response)
	}
	return strings.TrimRight(b.String(), "\n")
}
