package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all zorkagent configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Game collaborator service
	Game GameConfig `yaml:"game"`

	// Session play loop
	Play PlayConfig `yaml:"play"`

	// SQLite persistence
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the LLM provider and the two model tiers.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // openai-compatible endpoints only

	// FastModel handles specialist agents and per-turn analyzers.
	// SmartModel handles the arbiter and free-form decisions.
	FastModel  string `yaml:"fast_model"`
	SmartModel string `yaml:"smart_model"`

	// Retry contract
	Timeout     string `yaml:"timeout"`      // per-attempt timeout
	MaxAttempts int    `yaml:"max_attempts"` // bounded retries
}

// GameConfig configures the remote game service client.
type GameConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// PlayConfig configures the autonomous play loop.
type PlayConfig struct {
	Turns       int `yaml:"turns"`        // turns per invocation
	MaxIssues   int `yaml:"max_issues"`   // issue agents spawned per turn
	RecentTurns int `yaml:"recent_turns"` // history window fed to agents
}

// StorageConfig configures the SQLite store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures zap output.
type LoggingConfig struct {
	Level   string `yaml:"level"` // debug, info, warn, error
	File    string `yaml:"file"`  // optional JSON sink path
	Console bool   `yaml:"console"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "gemini",
			FastModel:   "gemini-2.5-flash",
			SmartModel:  "gemini-2.5-pro",
			Timeout:     "60s",
			MaxAttempts: 4,
		},
		Game: GameConfig{
			BaseURL: "http://localhost:8000/Prod/ZorkOne",
			Timeout: "30s",
		},
		Play: PlayConfig{
			Turns:       100,
			MaxIssues:   5,
			RecentTurns: 15,
		},
		Storage: StorageConfig{
			DatabasePath: "zorkagent.db",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads a YAML config file, applies env overrides, and validates.
// A missing file returns defaults with env overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment variables over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("ZORKAGENT_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("ZORKAGENT_GAME_URL"); v != "" {
		c.Game.BaseURL = v
	}
	if v := os.Getenv("ZORKAGENT_DB"); v != "" {
		c.Storage.DatabasePath = v
	}
}

// Validate checks field ranges and duration syntax.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.FastModel == "" || c.LLM.SmartModel == "" {
		return fmt.Errorf("llm fast_model and smart_model are required")
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm max_attempts must be >= 1, got %d", c.LLM.MaxAttempts)
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("invalid llm timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Game.Timeout); err != nil {
		return fmt.Errorf("invalid game timeout: %w", err)
	}
	if c.Game.BaseURL == "" {
		return fmt.Errorf("game base_url is required")
	}
	if c.Play.Turns < 1 {
		return fmt.Errorf("play turns must be >= 1, got %d", c.Play.Turns)
	}
	if c.Play.MaxIssues < 0 {
		return fmt.Errorf("play max_issues must be >= 0, got %d", c.Play.MaxIssues)
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}
	return nil
}

// LLMTimeout returns the parsed per-attempt timeout.
func (c *Config) LLMTimeout() time.Duration {
	d, _ := time.ParseDuration(c.LLM.Timeout)
	return d
}

// GameTimeout returns the parsed game request timeout.
func (c *Config) GameTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Game.Timeout)
	return d
}
