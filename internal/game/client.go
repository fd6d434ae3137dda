// Package game implements the HTTP client for the remote text
// adventure service. The service keeps all game state keyed by session
// ID; this client just plays commands.
package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// TurnOutcome is the game's answer to one command.
type TurnOutcome struct {
	Response              string `json:"response"`
	LocationName          string `json:"locationName"`
	Moves                 int    `json:"moves"`
	Score                 int    `json:"score"`
	PreviousLocationName  string `json:"previousLocationName"`
	LastMovementDirection string `json:"lastMovementDirection"`
}

type playRequest struct {
	Input     string `json:"Input"`
	SessionID string `json:"SessionId"`
}

// Client talks to the game collaborator service.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client bound to one game session.
func NewClient(baseURL, sessionID string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Play sends one command and returns the game's outcome.
func (c *Client) Play(ctx context.Context, command string) (*TurnOutcome, error) {
	body, err := json.Marshal(playRequest{Input: command, SessionID: c.sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode play request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build play request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending command to game", zap.String("command", command))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("game request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("game returned status %d: %s", resp.StatusCode, data)
	}

	var outcome TurnOutcome
	if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
		return nil, fmt.Errorf("failed to decode game response: %w", err)
	}

	c.logger.Debug("Game responded",
		zap.String("location", outcome.LocationName),
		zap.Int("score", outcome.Score),
		zap.Int("moves", outcome.Moves))
	return &outcome, nil
}
