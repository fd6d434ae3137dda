// Package session runs the autonomous play loop for one game session.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"zorkagent/internal/config"
	"zorkagent/internal/display"
	"zorkagent/internal/game"
	"zorkagent/internal/history"
	"zorkagent/internal/inventory"
	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/memory"
	"zorkagent/internal/pipeline"
	"zorkagent/internal/store"
)

// Runner owns one session's collaborators and its play loop.
type Runner struct {
	sessionID string
	cfg       *config.Config
	store     *store.Store
	pipe      *pipeline.Pipeline
	history   *history.History
	renderer  *display.Renderer
	logger    *zap.Logger
}

// NewRunner wires a session. An empty sessionID starts a new session;
// a known one resumes it.
func NewRunner(ctx context.Context, cfg *config.Config, st *store.Store, client llm.Client, renderer *display.Renderer, sessionID string, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
		logger.Info("Starting new session", zap.String("session", sessionID))
	} else {
		exists, err := st.SessionExists(sessionID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("unknown session %q", sessionID)
		}
		logger.Info("Resuming session", zap.String("session", sessionID))
	}
	if err := st.CreateSession(sessionID); err != nil {
		return nil, err
	}

	gameClient := game.NewClient(cfg.Game.BaseURL, sessionID, cfg.GameTimeout(), logger.Named("game"))
	mapper := mapping.NewMapper(st, sessionID, logger.Named("map"))
	hist := history.New(st, sessionID, client, logger.Named("history"))
	issues := memory.NewTracker(st, sessionID, client, logger.Named("issues"))
	items := inventory.NewTracker(st, sessionID, client, logger.Named("inventory"))

	pipe := pipeline.New(pipeline.Deps{
		SessionID:   sessionID,
		Client:      client,
		Game:        gameClient,
		Mapper:      mapper,
		History:     hist,
		Issues:      issues,
		Items:       items,
		Prompts:     st,
		MaxIssues:   cfg.Play.MaxIssues,
		RecentTurns: cfg.Play.RecentTurns,
		Logger:      logger.Named("pipeline"),
	})

	return &Runner{
		sessionID: sessionID,
		cfg:       cfg,
		store:     st,
		pipe:      pipe,
		history:   hist,
		renderer:  renderer,
		logger:    logger,
	}, nil
}

// SessionID returns the session this runner plays.
func (r *Runner) SessionID() string { return r.sessionID }

// Run plays up to cfg.Play.Turns turns. A cancelled context stops
// cleanly after the in-flight turn; a failed turn terminates the loop
// with full context in the logs.
func (r *Runner) Run(ctx context.Context) error {
	resumedFrom, err := r.history.LatestTurnNumber()
	if err != nil {
		return err
	}
	if r.renderer != nil {
		r.renderer.Banner(r.sessionID, resumedFrom)
	}

	if err := r.pipe.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	played := 0
	lastScore := 0
	for played < r.cfg.Play.Turns {
		if ctx.Err() != nil {
			r.logger.Info("Stopping on cancellation", zap.Int("turns_played", played))
			break
		}

		result, err := r.pipe.RunTurn(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				r.logger.Info("Turn interrupted", zap.Int("turns_played", played))
				break
			}
			// A turn that cannot complete leaves the stores consistent
			// (persist is all-at-the-end), so terminating is safe.
			r.logger.Error("Turn failed, terminating session loop",
				zap.String("session", r.sessionID),
				zap.Int("turns_played", played),
				zap.Error(err))
			return fmt.Errorf("turn failed: %w", err)
		}

		played++
		lastScore = result.Outcome.Score
		if r.renderer != nil {
			r.renderer.Turn(result)
		}
	}

	if r.renderer != nil {
		r.renderer.Farewell(played, lastScore)
	}
	return nil
}
