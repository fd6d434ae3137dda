package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"zorkagent/internal/config"
)

// OpenAIClient serves completions from OpenAI or any OpenAI-compatible
// endpoint (set base_url in config for local servers).
type OpenAIClient struct {
	client     *openai.Client
	fastModel  string
	smartModel string
}

// NewOpenAIClient creates an OpenAI-backed client.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		fastModel:  cfg.FastModel,
		smartModel: cfg.SmartModel,
	}, nil
}

func (c *OpenAIClient) model(tier Tier) string {
	if tier == TierSmart {
		return c.smartModel
	}
	return c.fastModel
}

// Complete sends one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:    c.model(req.Tier),
		Messages: messages,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the HTTP client needs no teardown.
func (c *OpenAIClient) Close() error { return nil }
