package tokens

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"

	"ask-ai/internal/metrics"
)

const (
	DefaultEncoding = tokenizer.Cl100kBase
	DefaultTimeout  = 5000 * time.Millisecond

	charsPerToken = 4
	slowCount     = time.Second
)

type Method string

const (
	MethodLocal     Method = "local"
	MethodRemote    Method = "remote"
	MethodHeuristic Method = "heuristic"
)

// Counter estimates the token count of a text.
type Counter interface {
	Estimate(ctx context.Context, text string) int
}

// RemoteCounter is a backend able to count tokens, usually over the network.
type RemoteCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

var errCountTimeout = errors.New("token counting timed out")

// Estimator counts tokens with a local BPE codec, falling back to a remote
// counter bounded by a timeout and finally to a character heuristic.
type Estimator struct {
	encoding tokenizer.Encoding
	useLocal bool
	codec    tokenizer.Codec
	remote   RemoteCounter
	timeout  time.Duration
	metrics  *metrics.Metrics
}

type Option func(*Estimator)

func WithEncoding(name string) Option {
	return func(e *Estimator) {
		if name != "" {
			e.encoding = tokenizer.Encoding(name)
		}
	}
}

// WithoutLocal disables the local codec so only the remote and heuristic paths remain.
func WithoutLocal() Option {
	return func(e *Estimator) { e.useLocal = false }
}

func WithRemote(r RemoteCounter) Option {
	return func(e *Estimator) { e.remote = r }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Estimator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Estimator) { e.metrics = m }
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		encoding: DefaultEncoding,
		useLocal: true,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.useLocal {
		codec, err := tokenizer.Get(e.encoding)
		if err != nil {
			log.Warn().Err(err).Str("encoding", string(e.encoding)).Msg("Local tokenizer unavailable, relying on fallback counting")
		} else {
			e.codec = codec
		}
	}
	return e
}

// Estimate always returns a usable count.
func (e *Estimator) Estimate(ctx context.Context, text string) int {
	n, _ := e.Count(ctx, text)
	return n
}

// Count returns the token count together with the method that produced it.
func (e *Estimator) Count(ctx context.Context, text string) (int, Method) {
	if e.codec != nil {
		_, toks, err := e.codec.Encode(text)
		if err == nil {
			e.metrics.TokenEstimate(string(MethodLocal))
			return len(toks), MethodLocal
		}
		log.Warn().Err(err).Msg("Local token counting failed")
	}

	if e.remote != nil {
		n, err := e.countRemote(ctx, text)
		if err == nil {
			e.metrics.TokenEstimate(string(MethodRemote))
			return n, MethodRemote
		}
		if errors.Is(err, errCountTimeout) {
			log.Error().Err(err).Dur("timeout", e.timeout).Msg("Remote token counting is timing out, consider the local tokenizer")
		} else {
			log.Warn().Err(err).Msg("Token counting failed, using character estimation")
		}
	}

	e.metrics.TokenEstimate(string(MethodHeuristic))
	return Heuristic(text), MethodHeuristic
}

func (e *Estimator) countRemote(ctx context.Context, text string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		n, err := e.remote.CountTokens(ctx, text)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if d := time.Since(start); d > slowCount {
			log.Warn().Dur("duration", d).Int("tokens", r.n).Msg("Slow token counting detected")
		}
		return r.n, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, errCountTimeout
		}
		return 0, ctx.Err()
	}
}

// Heuristic approximates tokens as ceil(characters / 4).
func Heuristic(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// HeuristicCounter is a Counter backed only by Heuristic.
type HeuristicCounter struct{}

func (HeuristicCounter) Estimate(_ context.Context, text string) int {
	return Heuristic(text)
}
