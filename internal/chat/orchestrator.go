package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ask-ai/internal/config"
	"ask-ai/internal/guardrail"
	"ask-ai/internal/history"
	"ask-ai/internal/llmservice"
	"ask-ai/internal/metrics"
	"ask-ai/internal/models"
	"ask-ai/internal/tokens"
)

const (
	consolidationTemperature = 0.0
	consolidationSeed        = 42
)

// Orchestrator runs one request through guard rail, budget, chunking, model
// call and history update.
type Orchestrator struct {
	backend llmservice.Backend
	rails   *guardrail.Registry
	counter tokens.Counter
	history *history.Manager
	budget  config.BudgetConfig
	metrics *metrics.Metrics
}

type Option func(*Orchestrator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithBudget(b config.BudgetConfig) Option {
	return func(o *Orchestrator) { o.budget = b }
}

// NewOrchestrator wires the pipeline. A nil backend is allowed; every call
// then fails with ErrBackendUnavailable.
func NewOrchestrator(backend llmservice.Backend, rails *guardrail.Registry, counter tokens.Counter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		rails:   rails,
		counter: counter,
		budget:  config.Default().Budget,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.history = history.NewManager(counter, o.budget.ElisionPrefix)
	return o
}

func (o *Orchestrator) Counter() tokens.Counter {
	return o.counter
}

// Policy is the history policy of a request type: the rail's flags plus the
// effective history budget.
func (o *Orchestrator) Policy(t models.RequestType) history.Options {
	rail := o.rails.Lookup(t)
	return history.Options{
		UseEmpty:   rail.UseEmptyHistory,
		SkipUpdate: rail.SkipHistoryUpdate,
		MaxTokens:  o.historyBudget(t),
	}
}

// document-bearing requests get a larger floor since history and document
// share the same envelope
func (o *Orchestrator) historyBudget(t models.RequestType) int {
	budget := o.budget.HistoryTokens
	if t == models.DocumentContextualQuestionExactly {
		budget = o.budget.ExactQuestionHistoryTokens
	}
	if t.IsDocumentBearing() {
		budget = max(budget, o.budget.DocumentHistoryTokens)
	}
	return budget
}

// Turn is the outcome of Send.
type Turn struct {
	Response string            `json:"response"`
	History  []models.Exchange `json:"history"`
}

// Send trims hist per policy, completes the request and returns the
// response together with the updated history. hist is never modified.
func (o *Orchestrator) Send(ctx context.Context, hist []models.Exchange, t models.RequestType, content string, policy history.Options) (Turn, error) {
	if strings.TrimSpace(content) == "" {
		return Turn{}, ErrEmptyMessage
	}

	var sent []models.Exchange
	if !policy.UseEmpty {
		sent = o.history.Trim(ctx, hist, policy.MaxTokens)
	}

	text, err := o.Complete(ctx, t, content, sent)
	if err != nil {
		return Turn{History: hist}, err
	}

	if policy.SkipUpdate {
		return Turn{Response: text, History: hist}, nil
	}
	return Turn{Response: text, History: o.history.Append(hist, content, text, t)}, nil
}

// Complete is the stateless half of Send: the caller owns and has already
// trimmed hist.
func (o *Orchestrator) Complete(ctx context.Context, t models.RequestType, message string, hist []models.Exchange) (string, error) {
	if o.backend == nil {
		return "", ErrBackendUnavailable
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	rail := o.rails.Lookup(t)
	messageTokens := o.counter.Estimate(ctx, message)
	promptTokens := o.counter.Estimate(ctx, rail.Prompt)
	total := messageTokens + promptTokens + o.budget.ResponseBuffer

	logger := log.With().Str("request_type", t.String()).Int("tokens", total).Logger()
	if t == models.DocumentContextualQuestionExactly {
		histTokens := 0
		for _, e := range hist {
			histTokens += o.counter.Estimate(ctx, e.Content)
		}
		logger.Debug().
			Int("message_tokens", messageTokens).
			Int("prompt_tokens", promptTokens).
			Int("history_len", len(hist)).
			Int("history_tokens", histTokens).
			Msg("Contextual question request")
	}

	if total <= o.budget.SafeEnvelope {
		return o.invoke(ctx, t, rail.Prompt, withMessage(hist, message), paramsOf(rail))
	}

	if t.IsKeywordExtraction() {
		logger.Info().Msg("Request exceeds safe envelope, extracting keywords per chunk")
		o.metrics.ChunkedInput("map_reduce")
		return o.mapReduce(ctx, t, rail, message)
	}

	logger.Warn().Msg("Request exceeds safe envelope, processing the first chunk only")
	o.metrics.ChunkedInput("truncate")
	first := ""
	for chunk := range tokens.Chunks(ctx, o.counter, message, o.budget.ChunkTokens) {
		first = chunk
		break
	}
	return o.invoke(ctx, t, rail.Prompt+models.TruncationNotice, withMessage(hist, first), paramsOf(rail))
}

func (o *Orchestrator) mapReduce(ctx context.Context, t models.RequestType, rail guardrail.GuardRail, message string) (string, error) {
	chunks := tokens.Chunk(ctx, o.counter, message, o.budget.ChunkTokens)

	params := paramsOf(rail)
	params.MaxTokens = o.budget.MapMaxTokens

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		prompt := rail.Prompt + fmt.Sprintf(models.ChunkInstructionTemplate, i+1, len(chunks))
		text, err := o.invoke(ctx, t, prompt, withMessage(nil, chunk), params)
		if err != nil {
			return "", err
		}
		partials = append(partials, text)
		log.Debug().Str("request_type", t.String()).Int("chunk", i+1).Int("chunks", len(chunks)).Msg("Extracted keywords from chunk")
	}

	prompt := fmt.Sprintf(models.ConsolidationPromptTemplate, o.budget.KeywordTopN)
	msg := fmt.Sprintf(models.ConsolidationMessageTemplate, o.budget.KeywordTopN, strings.Join(partials, models.ConsolidationSeparator))
	return o.invoke(ctx, t, prompt, withMessage(nil, msg), llmservice.Params{
		MaxTokens:   o.budget.ConsolidateMaxTokens,
		Temperature: consolidationTemperature,
		Seed:        consolidationSeed,
	})
}

func (o *Orchestrator) invoke(ctx context.Context, t models.RequestType, prompt string, messages []models.Exchange, params llmservice.Params) (string, error) {
	start := time.Now()
	res, err := o.backend.Invoke(ctx, prompt, messages, params)
	elapsed := time.Since(start)
	if err != nil {
		o.metrics.ModelCall(t.String(), "error", elapsed.Seconds())
		log.Error().Err(err).Str("request_type", t.String()).Dur("elapsed", elapsed).Msg("Model call failed")
		return "", &RequestError{RequestType: t, Err: err}
	}
	o.metrics.ModelCall(t.String(), res.Kind.String(), elapsed.Seconds())
	log.Debug().Str("request_type", t.String()).Str("kind", res.Kind.String()).Dur("elapsed", elapsed).Msg("Model call finished")
	return res.String(), nil
}

func paramsOf(g guardrail.GuardRail) llmservice.Params {
	return llmservice.Params{MaxTokens: g.MaxTokens, Temperature: g.Temperature, Seed: g.Seed}
}

func withMessage(hist []models.Exchange, message string) []models.Exchange {
	out := make([]models.Exchange, 0, len(hist)+1)
	out = append(out, hist...)
	return append(out, models.Exchange{Role: models.RoleHuman, Content: message})
}
