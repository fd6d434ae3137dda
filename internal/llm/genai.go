package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"zorkagent/internal/config"
)

// GenAIClient serves completions from the Gemini API.
type GenAIClient struct {
	client     *genai.Client
	fastModel  string
	smartModel string
}

// NewGenAIClient creates a Gemini-backed client.
func NewGenAIClient(ctx context.Context, cfg config.LLMConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIClient{
		client:     client,
		fastModel:  cfg.FastModel,
		smartModel: cfg.SmartModel,
	}, nil
}

func (c *GenAIClient) model(tier Tier) string {
	if tier == TierSmart {
		return c.smartModel
	}
	return c.fastModel
}

// Complete sends one completion request to Gemini.
func (c *GenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx,
		c.model(req.Tier),
		genai.Text(req.Prompt),
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("genai completion failed: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Close releases the underlying client.
func (c *GenAIClient) Close() error {
	// genai.Client does not expose a Close method; nothing to release.
	return nil
}
