package llmservice

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"ask-ai/internal/config"
	"ask-ai/internal/models"
)

var ErrNotConfigured = errors.New("llm backend is not configured")

// LangChain is a Backend over a langchaingo model.
type LangChain struct {
	llm   llms.Model
	model string
}

// New creates an OpenAI-compatible backend from config.
func New(llmConfig *config.LLMConfig) (*LangChain, error) {
	if llmConfig == nil || llmConfig.Key == "" {
		return nil, ErrNotConfigured
	}
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Initializing LLM")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(llm, llmConfig.Model), nil
}

func NewWithModel(llm llms.Model, model string) *LangChain {
	return &LangChain{llm: llm, model: model}
}

// Invoke sends the guard-rail prompt as the system message, then history,
// then the caller's messages.
func (c *LangChain) Invoke(ctx context.Context, prompt string, messages []models.Exchange, params Params) (Result, error) {
	content := BuildMessages(prompt, messages)

	resp, err := c.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(params.MaxTokens),
		llms.WithTemperature(params.Temperature),
		llms.WithSeed(params.Seed),
	)
	if err != nil {
		return Result{}, err
	}
	if resp == nil {
		return Result{Kind: Unparseable}, nil
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return NewResult(resp), nil
	}
	return Text(resp.Choices[0].Content), nil
}

func (c *LangChain) CountTokens(ctx context.Context, text string) (int, error) {
	return RemoteCounter(c.model).CountTokens(ctx, text)
}

// RemoteCounter counts tokens for the named model with langchaingo's
// tiktoken binding, which may fetch encoding files over the network on
// first use.
type RemoteCounter string

func (m RemoteCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return llms.CountTokens(string(m), text), nil
}

// BuildMessages maps a prompt and exchanges onto langchaingo message content.
func BuildMessages(prompt string, messages []models.Exchange) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages)+1)
	out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, prompt))
	for _, m := range messages {
		switch m.Role {
		case models.RoleAssistant:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, models.PreviousAssistantPrefix+m.Content))
		default:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		}
	}
	return out
}
