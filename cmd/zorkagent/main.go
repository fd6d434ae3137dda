package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zorkagent/internal/analysis"
	"zorkagent/internal/config"
	"zorkagent/internal/display"
	"zorkagent/internal/history"
	"zorkagent/internal/llm"
	"zorkagent/internal/logging"
	"zorkagent/internal/mapping"
	"zorkagent/internal/memory"
	"zorkagent/internal/session"
	"zorkagent/internal/store"
)

var (
	// Global flags
	configPath string
	sessionID  string
	turns      int
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "zorkagent",
	Short: "zorkagent - autonomous multi-agent text adventure player",
	Long: `zorkagent plays Zork One on its own.

Each turn, specialist agents research the game state in parallel (open
issues, unexplored exits, interactable objects, behavioral loops) and
propose commands; an arbiter picks one, the game executes it, and the
outcome updates the persistent map, issue list, and inventory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the game autonomously",
	Long: `Starts or resumes a session and plays turns until the configured
count is reached or the process is interrupted. Ctrl-C finishes the
in-flight turn and stops cleanly.`,
	RunE: runPlay,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted sessions",
	RunE:  runSessions,
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Dump the discovered map for a session",
	RunE:  runMap,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print a strategic analysis of a session",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "zorkagent.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "session ID (empty starts a new session)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	playCmd.Flags().IntVarP(&turns, "turns", "n", 0, "turns to play (overrides config)")

	rootCmd.AddCommand(playCmd, sessionsCmd, mapCmd, analyzeCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	if turns > 0 {
		cfg.Play.Turns = turns
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := llm.New(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		return err
	}
	defer client.Close()

	renderer := display.NewRenderer(os.Stdout)
	runner, err := session.NewRunner(ctx, cfg, st, client, renderer, sessionID, logger.Named("session"))
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

func runSessions(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}
	for _, info := range sessions {
		fmt.Printf("%s  turns=%d  score=%d  created=%s\n",
			info.ID, info.Turns, info.LastScore, info.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	if sessionID == "" {
		return fmt.Errorf("--session is required")
	}
	st, err := store.Open(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	mapper := mapping.NewMapper(st, sessionID, logger.Named("map"))
	rendered, err := mapper.Render()
	if err != nil {
		return err
	}
	fmt.Println(rendered)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if sessionID == "" {
		return fmt.Errorf("--session is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage.DatabasePath, logger.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := llm.New(ctx, cfg.LLM, logger.Named("llm"))
	if err != nil {
		return err
	}
	defer client.Close()

	hist := history.New(st, sessionID, client, logger.Named("history"))
	issues := memory.NewTracker(st, sessionID, client, logger.Named("issues"))
	mapper := mapping.NewMapper(st, sessionID, logger.Named("map"))
	analyst := analysis.NewAnalyst(client, hist, issues, mapper, logger.Named("analysis"))

	report, err := analyst.StrategicAnalysis(ctx)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
