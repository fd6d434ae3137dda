package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/store"
)

// Observation is at most one new issue per turn.
type Observation struct {
	Remember           string `json:"remember"`
	RememberImportance int    `json:"rememberImportance"`
	Item               string `json:"item"`
}

// Observer watches the executed turn for one fact worth tracking.
type Observer struct {
	client llm.Client
	logger *zap.Logger
}

// NewObserver builds the observer.
func NewObserver(client llm.Client, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{client: client, logger: logger}
}

// Observe asks the fast model whether this turn revealed a fact worth
// tracking. Directional and exploration information is the map's job
// and is filtered out even when the model offers it. Returns nil when
// there is nothing to remember.
func (o *Observer) Observe(ctx context.Context, command, response, location string, tracked []store.Issue) (*Observation, error) {
	if o.client == nil {
		return nil, nil
	}

	var trackedList strings.Builder
	for _, is := range tracked {
		fmt.Fprintf(&trackedList, "- %s\n", is.Content)
	}
	trackedText := trackedList.String()
	if trackedText == "" {
		trackedText = "none\n"
	}

	var obs Observation
	err := llm.CompleteStructured(ctx, o.client, llm.Request{
		Tier: llm.TierFast,
		System: "You watch a text adventure turn for at most ONE new fact worth remembering: a puzzle, " +
			"an obstacle, a useful or dangerous object, a hint. Phrase it as \"description — acceptance criterion\" " +
			"using an em-dash. Never record exits, directions, or where passages lead; the map tracks those. " +
			"Never repeat an already-tracked note. Leave remember empty when the turn taught nothing new. " +
			"rememberImportance is 1-1000.",
		Prompt: fmt.Sprintf(
			"Location: %s\nCommand: %s\nGame response:\n%s\n\nAlready tracked:\n%s\nRespond as JSON: {\"remember\": string, \"rememberImportance\": int, \"item\": string}",
			location, command, response, trackedText),
	}, &obs)
	if err != nil {
		return nil, err
	}

	obs.Remember = strings.TrimSpace(obs.Remember)
	if obs.Remember == "" && strings.TrimSpace(obs.Item) != "" {
		obs.Remember = fmt.Sprintf("there is a %s at %s — the %s has been taken or used",
			strings.ToLower(obs.Item), location, strings.ToLower(obs.Item))
		if obs.RememberImportance == 0 {
			obs.RememberImportance = store.DefaultImportance
		}
	}
	if obs.Remember == "" {
		return nil, nil
	}
	if IsDirectional(obs.Remember) {
		o.logger.Debug("Observation dropped as directional", zap.String("remember", obs.Remember))
		return nil, nil
	}
	return &obs, nil
}

// IsDirectional reports whether a note is really map knowledge:
// it names a direction in exit-listing phrasing.
func IsDirectional(content string) bool {
	if len(mapping.MentionedDirections(content)) == 0 {
		return false
	}
	lower := strings.ToLower(content)
	for _, marker := range []string{"exit", "leads", "path", "passage", "can go", "door to the", "way "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
