package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"zorkagent/internal/config"
)

// New builds the configured provider wrapped in the retry policy.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	var inner Client
	var err error

	switch cfg.Provider {
	case "gemini":
		inner, err = NewGenAIClient(ctx, cfg)
	case "openai":
		inner, err = NewOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid llm timeout: %w", err)
	}
	return NewRetryClient(inner, timeout, cfg.MaxAttempts, logger), nil
}
