// Package llm abstracts the LLM providers behind a two-tier client
// with a retry wrapper implementing the per-attempt timeout contract.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Tier selects which configured model serves a request.
type Tier int

const (
	// TierFast runs specialist agents and per-turn analyzers.
	TierFast Tier = iota
	// TierSmart runs the arbiter and free-form decisions.
	TierSmart
)

// Request is one completion request.
type Request struct {
	Tier   Tier
	System string
	Prompt string
	// JSON forces the provider into JSON output mode. Set by
	// CompleteStructured; callers of Complete leave it false.
	JSON bool
}

// ErrValidation marks malformed structured output from the model. It
// is a distinct failure class from transport errors and is not
// retried; the caller must surface it loudly.
var ErrValidation = errors.New("llm response validation failed")

// ErrEmptyResponse marks a completion with no usable text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Client is the provider-independent completion interface.
type Client interface {
	// Complete returns the raw text completion.
	Complete(ctx context.Context, req Request) (string, error)
	// Close releases provider resources.
	Close() error
}

// CompleteStructured requests JSON output and decodes it into out,
// which must be a pointer. Decode failures wrap ErrValidation.
func CompleteStructured(ctx context.Context, c Client, req Request, out any) error {
	req.JSON = true
	text, err := c.Complete(ctx, req)
	if err != nil {
		return err
	}
	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %v (raw: %.200s)", ErrValidation, err, cleaned)
	}
	if v, ok := out.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return nil
}

// stripFences removes markdown code fences some models wrap around
// JSON despite JSON output mode.
func stripFences(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		if i := strings.LastIndex(t, "```"); i >= 0 {
			t = t[:i]
		}
	}
	return strings.TrimSpace(t)
}
