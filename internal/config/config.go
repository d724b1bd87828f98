package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM        LLMConfig                  `yaml:"llm"`
	Tokens     TokensConfig               `yaml:"tokens"`
	Budget     BudgetConfig               `yaml:"budget"`
	GuardRails map[string]GuardRailConfig `yaml:"guard_rails"`
	Questions  QuestionsConfig            `yaml:"questions"`
	Formatter  FormatterConfig            `yaml:"formatter"`
	Server     ServerConfig               `yaml:"server"`
	Database   DatabaseConfig             `yaml:"database"`
	Log        LogConfig                  `yaml:"log"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type TokensConfig struct {
	Encoding       string `yaml:"encoding"`
	CountTimeoutMs int    `yaml:"count_timeout_ms"`
	RemoteModel    string `yaml:"remote_model"`
}

type BudgetConfig struct {
	SafeEnvelope               int `yaml:"safe_envelope"`
	ResponseBuffer             int `yaml:"response_buffer"`
	ChunkTokens                int `yaml:"chunk_tokens"`
	HistoryTokens              int `yaml:"history_tokens"`
	DocumentHistoryTokens      int `yaml:"document_history_tokens"`
	ExactQuestionHistoryTokens int `yaml:"exact_question_history_tokens"`
	MapMaxTokens               int `yaml:"map_max_tokens"`
	ConsolidateMaxTokens       int `yaml:"consolidate_max_tokens"`
	KeywordTopN                int `yaml:"keyword_top_n"`
	ElisionPrefix              int `yaml:"elision_prefix"`
}

// GuardRailConfig overrides a built-in guard rail. Zero fields keep the built-in value.
type GuardRailConfig struct {
	Prompt            string   `yaml:"prompt"`
	MaxTokens         int      `yaml:"max_tokens"`
	Temperature       *float64 `yaml:"temperature"`
	Seed              *int     `yaml:"seed"`
	UseEmptyHistory   *bool    `yaml:"use_empty_history"`
	SkipHistoryUpdate *bool    `yaml:"skip_history_update"`
}

type QuestionsConfig struct {
	Count          int `yaml:"count"`
	RetryAttempts  int `yaml:"retry_attempts"`
	RetryInitialMs int `yaml:"retry_initial_ms"`
}

type FormatterConfig struct {
	ExpandRanges bool `yaml:"expand_ranges"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
}

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

const (
	defaultModel          = "gpt-3.5-turbo-16k"
	defaultEncoding       = "cl100k_base"
	defaultCountTimeoutMs = 5000
	defaultAddr           = "localhost:8080"
	defaultSessionTTL     = 60
	defaultLogLevel       = "debug"
)

// LoadConfig reads the YAML file at path (a missing file yields defaults),
// loads .env and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
	default:
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.Key = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if n, err := strconv.Atoi(os.Getenv("TOKEN_COUNT_TIMEOUT")); err == nil && n > 0 {
		c.Tokens.CountTimeoutMs = n
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = "localhost:" + v
	}
	if v := os.Getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.overrideDefaultRail(func(g *GuardRailConfig) { g.MaxTokens = n })
		}
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.overrideDefaultRail(func(g *GuardRailConfig) { g.Temperature = &f })
		}
	}
}

// environment values only tune the fallback rail, the per-type rails stay deterministic
func (c *Config) overrideDefaultRail(fn func(*GuardRailConfig)) {
	if c.GuardRails == nil {
		c.GuardRails = make(map[string]GuardRailConfig)
	}
	g := c.GuardRails["default"]
	fn(&g)
	c.GuardRails["default"] = g
}

// ApplyDefaults fills every zero value with its reference default.
func (c *Config) ApplyDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	if c.Tokens.Encoding == "" {
		c.Tokens.Encoding = defaultEncoding
	}
	if c.Tokens.CountTimeoutMs <= 0 {
		c.Tokens.CountTimeoutMs = defaultCountTimeoutMs
	}
	if c.Tokens.RemoteModel == "" {
		c.Tokens.RemoteModel = c.LLM.Model
	}

	b := &c.Budget
	setDefault(&b.SafeEnvelope, 16000)
	setDefault(&b.ResponseBuffer, 500)
	setDefault(&b.ChunkTokens, 12000)
	setDefault(&b.HistoryTokens, 8000)
	setDefault(&b.DocumentHistoryTokens, 8000)
	setDefault(&b.ExactQuestionHistoryTokens, 10000)
	setDefault(&b.MapMaxTokens, 120)
	setDefault(&b.ConsolidateMaxTokens, 200)
	setDefault(&b.KeywordTopN, 10)
	setDefault(&b.ElisionPrefix, 200)

	setDefault(&c.Questions.Count, 3)
	setDefault(&c.Questions.RetryAttempts, 5)
	setDefault(&c.Questions.RetryInitialMs, 100)

	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	setDefault(&c.Server.SessionTTLMinutes, defaultSessionTTL)

	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	setDefault(&c.Log.MaxSizeMB, 10)
	setDefault(&c.Log.MaxBackups, 3)
	setDefault(&c.Log.MaxAgeDays, 28)
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Default returns a configuration holding only reference defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
