package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-3.5-turbo-16k", cfg.LLM.Model)
	assert.Equal(t, "cl100k_base", cfg.Tokens.Encoding)
	assert.Equal(t, cfg.LLM.Model, cfg.Tokens.RemoteModel)
	assert.Equal(t, 16000, cfg.Budget.SafeEnvelope)
	assert.Equal(t, 10000, cfg.Budget.ExactQuestionHistoryTokens)
	assert.Equal(t, 3, cfg.Questions.Count)
	assert.False(t, cfg.Formatter.ExpandRanges)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: file-model
budget:
  safe_envelope: 12000
guard_rails:
  DOCUMENT_SUMMARY:
    max_tokens: 700
formatter:
  expand_ranges: true
`), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_TEMPERATURE", "0.7")
	t.Setenv("TOKEN_COUNT_TIMEOUT", "250")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-model", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.Key)
	assert.Equal(t, 12000, cfg.Budget.SafeEnvelope)
	assert.Equal(t, 500, cfg.Budget.ResponseBuffer)
	assert.Equal(t, 700, cfg.GuardRails["DOCUMENT_SUMMARY"].MaxTokens)
	require.NotNil(t, cfg.GuardRails["default"].Temperature)
	assert.InDelta(t, 0.7, *cfg.GuardRails["default"].Temperature, 1e-9)
	assert.Equal(t, 250, cfg.Tokens.CountTimeoutMs)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr)
	assert.True(t, cfg.Formatter.ExpandRanges)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
