package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zorkagent/internal/agents"
	"zorkagent/internal/game"
	"zorkagent/internal/history"
	"zorkagent/internal/inventory"
	"zorkagent/internal/llm"
	"zorkagent/internal/mapping"
	"zorkagent/internal/memory"
	"zorkagent/internal/store"
)

// GamePlayer is the game client surface the pipeline needs.
type GamePlayer interface {
	Play(ctx context.Context, command string) (*game.TurnOutcome, error)
}

// PromptStore persists the audit trail of the prompts a turn used.
type PromptStore interface {
	SavePrompt(sessionID string, turn int, stage, content string) error
}

// SpawnResult is the immutable output of the spawn stage.
type SpawnResult struct {
	Agents []agents.Agent
}

// ResearchResult is the immutable output of the research fan-out.
type ResearchResult struct {
	Proposals []agents.Proposal
}

// ExecuteResult is the immutable output of the execute stage.
type ExecuteResult struct {
	Command string
	Outcome *game.TurnOutcome
}

// TurnResult summarizes one completed turn for the caller.
type TurnResult struct {
	Number      int
	Command     string
	Reason      string
	Outcome     *game.TurnOutcome
	Proposals   []agents.Proposal
	Closures    []Closure
	Observation *Observation
}

// Pipeline wires the per-turn stages over injected collaborators.
type Pipeline struct {
	sessionID string
	client    llm.Client
	game      GamePlayer
	mapper     *mapping.Mapper
	history    *history.History
	issues     *memory.Tracker
	items      *inventory.Tracker
	prompts    PromptStore
	researcher *Researcher
	arbiter    *Arbiter
	closer     *Closer
	observer   *Observer

	maxIssues   int
	recentTurns int
	logger      *zap.Logger
}

// Deps bundles the pipeline's collaborators.
type Deps struct {
	SessionID string
	Client    llm.Client
	Game      GamePlayer
	Mapper    *mapping.Mapper
	History   *history.History
	Issues    *memory.Tracker
	Items     *inventory.Tracker
	Prompts   PromptStore

	MaxIssues   int
	RecentTurns int
	Logger      *zap.Logger
}

// New builds a pipeline.
func New(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.RecentTurns <= 0 {
		d.RecentTurns = 15
	}
	return &Pipeline{
		sessionID:   d.SessionID,
		client:      d.Client,
		game:        d.Game,
		mapper:      d.Mapper,
		history:     d.History,
		issues:      d.Issues,
		items:       d.Items,
		prompts:     d.Prompts,
		researcher:  NewResearcher(d.Client, d.History, logger.Named("research")),
		arbiter:     NewArbiter(d.Client, logger.Named("arbiter")),
		closer:      NewCloser(d.Client, logger.Named("closer")),
		observer:    NewObserver(d.Client, logger.Named("observer")),
		maxIssues:   d.MaxIssues,
		recentTurns: d.RecentTurns,
		logger:      logger,
	}
}

// RunTurn executes one full turn. Stores are only written in the
// persist step at the end; everything before it reads a consistent
// snapshot.
func (p *Pipeline) RunTurn(ctx context.Context) (*TurnResult, error) {
	tc, err := p.snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	spawned, err := p.spawnAgents(tc)
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	research, err := p.research(ctx, tc, spawned)
	if err != nil {
		return nil, fmt.Errorf("research: %w", err)
	}

	digest, err := p.researcher.Digest(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("research context: %w", err)
	}

	decision, err := p.arbiter.Decide(ctx, tc, research.Proposals, digest)
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}

	executed, err := p.execute(ctx, decision.Command)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	turn := store.Turn{
		SessionID: p.sessionID,
		Number:    tc.TurnNumber,
		Command:   executed.Command,
		Response:  executed.Outcome.Response,
		Location:  executed.Outcome.LocationName,
		Score:     executed.Outcome.Score,
		Moves:     executed.Outcome.Moves,
	}

	closures, err := p.closeIssues(ctx, tc, turn)
	if err != nil {
		return nil, fmt.Errorf("close issues: %w", err)
	}

	observation, err := p.observe(ctx, turn)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}

	if err := p.persist(ctx, tc, turn, executed, decision, closures, observation); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}

	return &TurnResult{
		Number:      turn.Number,
		Command:     executed.Command,
		Reason:      decision.Reason,
		Outcome:     executed.Outcome,
		Proposals:   research.Proposals,
		Closures:    closures,
		Observation: observation,
	}, nil
}

// snapshot reads the immutable turn context from the stores. The
// current location, response, and score come from the last persisted
// turn; the session bootstrap guarantees one exists.
func (p *Pipeline) snapshot() (agents.TurnContext, error) {
	recent, err := p.history.Recent(p.recentTurns)
	if err != nil {
		return agents.TurnContext{}, err
	}
	if len(recent) == 0 {
		return agents.TurnContext{}, fmt.Errorf("no turns recorded; session was not bootstrapped")
	}
	last := recent[len(recent)-1]

	items, err := p.items.Items()
	if err != nil {
		return agents.TurnContext{}, err
	}
	summary, err := p.history.FullSummary()
	if err != nil {
		return agents.TurnContext{}, err
	}

	return agents.TurnContext{
		SessionID:  p.sessionID,
		TurnNumber: last.Number + 1,
		Location:   last.Location,
		Response:   last.Response,
		Score:      last.Score,
		Recent:     recent,
		Inventory:  items,
		Summary:    summary,
	}, nil
}

// spawnAgents builds this turn's agent set: the loop detector, one
// agent per top open issue, the interactor, and at most one explorer.
func (p *Pipeline) spawnAgents(tc agents.TurnContext) (*SpawnResult, error) {
	var spawned []agents.Agent

	spawned = append(spawned, agents.NewLoopDetector(p.mapper, p.client, p.logger.Named("loop")))

	top, err := p.issues.Top(p.maxIssues)
	if err != nil {
		return nil, err
	}
	for _, issue := range top {
		spawned = append(spawned, agents.NewIssueAgent(issue, p.mapper, p.issues, p.client, p.logger.Named("issue")))
	}

	spawned = append(spawned, agents.NewInteractor(p.client, p.logger.Named("interactor")))
	spawned = append(spawned, agents.NewExplorer(p.mapper, p.logger.Named("explorer")))

	p.logger.Debug("Agents spawned",
		zap.Int("count", len(spawned)),
		zap.Int("issues", len(top)))
	return &SpawnResult{Agents: spawned}, nil
}

// research fans agents out in parallel and joins before any decision
// is made. An agent error fails the turn; retries already happened
// inside the LLM client.
func (p *Pipeline) research(ctx context.Context, tc agents.TurnContext, spawned *SpawnResult) (*ResearchResult, error) {
	results := make([]*agents.Proposal, len(spawned.Agents))

	g, gctx := errgroup.WithContext(ctx)
	for i, agent := range spawned.Agents {
		g.Go(func() error {
			proposal, err := agent.Propose(gctx, tc)
			if err != nil {
				return fmt.Errorf("agent %s: %w", agent.Name(), err)
			}
			results[i] = proposal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var proposals []agents.Proposal
	for _, r := range results {
		if r != nil {
			proposals = append(proposals, *r)
		}
	}
	for _, prop := range proposals {
		p.logger.Debug("Proposal", zap.String("proposal", prop.String()))
	}
	return &ResearchResult{Proposals: proposals}, nil
}

func (p *Pipeline) execute(ctx context.Context, command string) (*ExecuteResult, error) {
	outcome, err := p.game.Play(ctx, command)
	if err != nil {
		return nil, err
	}
	return &ExecuteResult{Command: command, Outcome: outcome}, nil
}

func (p *Pipeline) closeIssues(ctx context.Context, tc agents.TurnContext, executed store.Turn) ([]Closure, error) {
	open, err := p.issues.Open()
	if err != nil {
		return nil, err
	}
	evidence := append(append([]store.Turn{}, tc.Recent...), executed)
	return p.closer.Evaluate(ctx, open, evidence)
}

func (p *Pipeline) observe(ctx context.Context, executed store.Turn) (*Observation, error) {
	tracked, err := p.issues.Open()
	if err != nil {
		return nil, err
	}
	return p.observer.Observe(ctx, executed.Command, executed.Response, executed.Location, tracked)
}

// persist is the single writer for the turn: history, decision prompt,
// map, issue closes, the new observation, decay, inventory, and
// summaries, in that order. The observation goes in before decay so
// the just-created issue takes the turn's decay like every other open
// issue; this ordering is an invariant, not an accident.
func (p *Pipeline) persist(ctx context.Context, tc agents.TurnContext, turn store.Turn, executed *ExecuteResult, decision *Decision, closures []Closure, observation *Observation) error {
	if err := p.history.Append(turn); err != nil {
		return err
	}

	if p.prompts != nil && decision.Prompt != "" {
		if err := p.prompts.SavePrompt(p.sessionID, turn.Number, "decision", decision.Prompt); err != nil {
			return err
		}
	}

	prev := executed.Outcome.PreviousLocationName
	if prev == "" {
		prev = tc.Location
	}
	if err := p.mapper.ObserveTurn(executed.Command, prev, executed.Outcome.LocationName,
		executed.Outcome.LastMovementDirection); err != nil {
		return err
	}

	for _, closure := range closures {
		if err := p.issues.Close(closure.IssueID, turn.Number); err != nil {
			return err
		}
		p.logger.Info("Issue closed",
			zap.Int64("issue", closure.IssueID),
			zap.String("content", closure.Content),
			zap.String("reason", closure.Reason))
	}

	if observation != nil {
		_, added, err := p.issues.Add(ctx, observation.Remember, turn.Location,
			observation.RememberImportance, turn.Number)
		if err != nil {
			return err
		}
		if added {
			p.logger.Info("New issue tracked",
				zap.String("content", observation.Remember),
				zap.Int("importance", store.ClampImportance(observation.RememberImportance)))
		}
	}

	if err := p.issues.Decay(); err != nil {
		return err
	}

	if items, ok := inventory.ParseInventoryResponse(executed.Outcome.Response); ok {
		if err := p.items.Sync(items); err != nil {
			return err
		}
	} else {
		change, err := p.items.AnalyzeTurn(ctx, executed.Command, executed.Outcome.Response)
		if err != nil {
			p.logger.Warn("Inventory analysis failed", zap.Error(err))
		} else if err := p.items.Apply(change); err != nil {
			return err
		}
	}

	if history.ShouldSummarize(turn.Number) {
		if err := p.history.Summarize(ctx, turn.Number); err != nil {
			p.logger.Warn("Summary refresh failed", zap.Error(err))
		}
	}
	return nil
}

// Bootstrap seeds a fresh session: LOOK establishes the starting
// location as turn 1, INVENTORY as turn 2 gives the authoritative
// starting item set.
func (p *Pipeline) Bootstrap(ctx context.Context) error {
	latest, err := p.history.LatestTurnNumber()
	if err != nil {
		return err
	}
	if latest > 0 {
		return nil
	}

	look, err := p.game.Play(ctx, "LOOK")
	if err != nil {
		return fmt.Errorf("bootstrap LOOK: %w", err)
	}
	if err := p.history.Append(store.Turn{
		SessionID: p.sessionID,
		Number:    1,
		Command:   "LOOK",
		Response:  look.Response,
		Location:  look.LocationName,
		Score:     look.Score,
		Moves:     look.Moves,
	}); err != nil {
		return err
	}

	inv, err := p.game.Play(ctx, "INVENTORY")
	if err != nil {
		return fmt.Errorf("bootstrap INVENTORY: %w", err)
	}
	if items, ok := inventory.ParseInventoryResponse(inv.Response); ok {
		if err := p.items.Sync(items); err != nil {
			return err
		}
	}
	if err := p.history.Append(store.Turn{
		SessionID: p.sessionID,
		Number:    2,
		Command:   "INVENTORY",
		Response:  inv.Response,
		Location:  firstNonEmpty(inv.LocationName, look.LocationName),
		Score:     inv.Score,
		Moves:     inv.Moves,
	}); err != nil {
		return err
	}

	p.logger.Info("Session bootstrapped",
		zap.String("location", look.LocationName),
		zap.Int("score", look.Score))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
