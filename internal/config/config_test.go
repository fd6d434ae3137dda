package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 4, cfg.LLM.MaxAttempts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Play.Turns, cfg.Play.Turns)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `
llm:
  provider: openai
  fast_model: gpt-4o-mini
  smart_model: gpt-4o
play:
  turns: 7
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.FastModel)
	assert.Equal(t, 7, cfg.Play.Turns)
	// Untouched sections keep defaults.
	assert.Equal(t, Default().Game.BaseURL, cfg.Game.BaseURL)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ZORKAGENT_GAME_URL", "http://example.test/zork")
	t.Setenv("ZORKAGENT_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/zork", cfg.Game.BaseURL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "frobnicator" }},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }},
		{"zero attempts", func(c *Config) { c.LLM.MaxAttempts = 0 }},
		{"zero turns", func(c *Config) { c.Play.Turns = 0 }},
		{"empty db path", func(c *Config) { c.Storage.DatabasePath = "" }},
		{"empty game url", func(c *Config) { c.Game.BaseURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
