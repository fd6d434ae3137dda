package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
)

// Interactor spots objects in the current response worth acting on.
// Deterministic patterns run first; the model only sees responses no
// pattern explains.
type Interactor struct {
	client llm.Client
	logger *zap.Logger
}

// NewInteractor builds the agent. The client may be nil, which
// disables the LLM fallback.
func NewInteractor(client llm.Client, logger *zap.Logger) *Interactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interactor{client: client, logger: logger}
}

func (a *Interactor) Name() string { return "interactor" }

var (
	takeablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)there is an? ([a-z][a-z -]*?) here`),
		regexp.MustCompile(`(?i)you (?:can )?see an? ([a-z][a-z -]*?)(?:[.,]| here)`),
		regexp.MustCompile(`(?i)an? ([a-z][a-z -]*?) (?:sits|lies|rests)`),
	}
	closedPattern = regexp.MustCompile(`(?i)the ([a-z][a-z -]*?) is closed`)
	lockedPattern = regexp.MustCompile(`(?i)the ([a-z][a-z -]*?) is (?:locked|securely fastened)`)

	// Fixtures that match the takeable patterns but are not objects.
	structuralWords = map[string]bool{
		"door": true, "room": true, "hallway": true, "corridor": true,
		"wall": true, "floor": true, "ceiling": true, "house": true,
		"path": true, "staircase": true, "stairway": true,
	}

	// Mechanism noun to its operating verb.
	mechanismVerbs = []struct{ noun, verb string }{
		{"button", "PRESS"},
		{"lever", "PULL"},
		{"dial", "TURN"},
		{"switch", "FLIP"},
		{"knob", "TURN"},
	}
)

// Propose parses the current response for actionable objects.
func (a *Interactor) Propose(ctx context.Context, tc TurnContext) (*Proposal, error) {
	if p := a.deterministicParse(tc); p != nil {
		return p, nil
	}
	if a.client == nil {
		return nil, nil
	}
	return a.llmFallback(ctx, tc)
}

// deterministicParse applies the fixed patterns in precedence order:
// locked things first (a key in hand is the strongest signal), then
// closed containers, mechanisms, and takeable objects.
func (a *Interactor) deterministicParse(tc TurnContext) *Proposal {
	text := tc.Response

	if m := lockedPattern.FindStringSubmatch(text); m != nil {
		object := strings.ToUpper(strings.TrimSpace(m[1]))
		if holdsKey(tc.Inventory) {
			return a.proposal("UNLOCK "+object+" WITH KEY", 95,
				fmt.Sprintf("The %s is locked and a key is in the inventory.", strings.ToLower(object)))
		}
		return a.proposal("EXAMINE "+object, 60,
			fmt.Sprintf("The %s is locked and no key is held; examining it may reveal how to open it.", strings.ToLower(object)))
	}

	if m := closedPattern.FindStringSubmatch(text); m != nil {
		object := strings.ToUpper(strings.TrimSpace(m[1]))
		return a.proposal("OPEN "+object, 85,
			fmt.Sprintf("The %s is closed and may hold something useful.", strings.ToLower(object)))
	}

	lower := strings.ToLower(text)
	for _, mech := range mechanismVerbs {
		if containsNoun(lower, mech.noun) {
			noun := strings.ToUpper(mech.noun)
			return a.proposal(mech.verb+" "+noun, 80,
				fmt.Sprintf("A %s is present; operating it is cheap and often reveals state changes.", mech.noun))
		}
	}

	for _, pattern := range takeablePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		object := strings.TrimSpace(m[1])
		if isStructural(object) {
			continue
		}
		return a.proposal("TAKE "+strings.ToUpper(object), 90,
			fmt.Sprintf("A %s is visible here and worth carrying.", object))
	}

	return nil
}

func (a *Interactor) proposal(command string, confidence int, reason string) *Proposal {
	return &Proposal{
		Kind:       KindInteraction,
		Source:     a.Name(),
		Command:    command,
		Confidence: confidence,
		Reason:     reason,
	}
}

// isStructural rejects fixtures whose final word is a room feature.
func isStructural(object string) bool {
	words := strings.Fields(strings.ToLower(object))
	if len(words) == 0 {
		return true
	}
	return structuralWords[words[len(words)-1]]
}

func containsNoun(lowerText, noun string) bool {
	idx := strings.Index(lowerText, noun)
	if idx < 0 {
		return false
	}
	end := idx + len(noun)
	beforeOK := idx == 0 || !isLetter(lowerText[idx-1])
	afterOK := end == len(lowerText) || !isLetter(lowerText[end])
	return beforeOK && afterOK
}

func isLetter(b byte) bool { return b >= 'a' && b <= 'z' }

func holdsKey(inventory []string) bool {
	for _, item := range inventory {
		if strings.Contains(strings.ToLower(item), "key") {
			return true
		}
	}
	return false
}

type interactionIdea struct {
	Actionable bool   `json:"actionable"`
	Command    string `json:"command"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

func (v *interactionIdea) Validate() error {
	if v.Actionable && strings.TrimSpace(v.Command) == "" {
		return fmt.Errorf("interaction idea missing command")
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range", v.Confidence)
	}
	return nil
}

func (a *Interactor) llmFallback(ctx context.Context, tc TurnContext) (*Proposal, error) {
	var idea interactionIdea
	err := llm.CompleteStructured(ctx, a.client, llm.Request{
		Tier: llm.TierFast,
		System: "You spot objects worth interacting with in text adventure room descriptions. " +
			"Suggest one concrete game command, or mark nothing actionable. Never suggest movement.",
		Prompt: fmt.Sprintf(
			"Room description:\n%s\n\nInventory: %s\n\nRespond as JSON: "+
				"{\"actionable\": bool, \"command\": string, \"confidence\": 0-100, \"reason\": string}",
			tc.Response, strings.Join(tc.Inventory, ", ")),
	}, &idea)
	if err != nil {
		return nil, err
	}
	if !idea.Actionable {
		return nil, nil
	}
	return a.proposal(strings.ToUpper(strings.TrimSpace(idea.Command)), idea.Confidence, idea.Reason), nil
}
