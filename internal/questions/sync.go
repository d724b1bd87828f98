package questions

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"ask-ai/internal/metrics"
	"ask-ai/internal/models"
)

const (
	DefaultAttempts        = 5
	DefaultInitialInterval = 100 * time.Millisecond
)

var (
	ErrSlotsUnavailable = errors.New("question slots were never registered")

	errNoSlots = errors.New("no slots registered yet")
	bulletRe   = regexp.MustCompile(models.BulletSplitRegex)
)

// Report describes the outcome of one sync.
type Report struct {
	Parsed      int      `json:"parsed"`
	Bound       int      `json:"bound"`
	Unfilled    int      `json:"unfilled"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Syncer binds generated contextual questions to their panel slots.
type Syncer struct {
	attempts int
	initial  time.Duration
	metrics  *metrics.Metrics
}

func NewSyncer(attempts int, initial time.Duration, m *metrics.Metrics) *Syncer {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if initial <= 0 {
		initial = DefaultInitialInterval
	}
	return &Syncer{attempts: attempts, initial: initial, metrics: m}
}

// ParseQuestions splits a bulleted list into trimmed, non-empty questions.
func ParseQuestions(raw string) []string {
	var out []string
	for _, seg := range bulletRe.Split(raw, -1) {
		if q := strings.TrimSpace(seg); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Sync parses raw and binds the questions, in order, to the exact
// contextual-question slots of b. It waits with backoff while the board has
// no slots and gives up with ErrSlotsUnavailable.
func (s *Syncer) Sync(ctx context.Context, raw string, b *Board) (Report, error) {
	parsed := ParseQuestions(raw)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.initial
	_, err := backoff.Retry(ctx, func() (int, error) {
		n := b.Len()
		if n == 0 {
			return 0, errNoSlots
		}
		return n, nil
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(s.attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().Err(err).Dur("retry_in", next).Msg("Waiting for question slots")
		}),
	)
	if err != nil {
		log.Warn().Err(err).Int("attempts", s.attempts).Msg("Question slots unavailable")
		return Report{Parsed: len(parsed), Diagnostics: []string{ErrSlotsUnavailable.Error()}}, fmt.Errorf("%w: %v", ErrSlotsUnavailable, err)
	}

	report := b.bind(parsed)
	s.metrics.SlotMisses(report.Unfilled)
	for _, d := range report.Diagnostics {
		log.Warn().Int("parsed", report.Parsed).Msg(d)
	}
	log.Debug().Int("parsed", report.Parsed).Int("bound", report.Bound).Msg("Synced contextual questions")
	return report, nil
}

func (b *Board) bind(parsed []string) Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := Report{Parsed: len(parsed)}
	var group []*Slot
	index := 0
	for _, slot := range b.slots {
		if slot.Config.RequestType != models.DocumentContextualQuestionExactly {
			continue
		}
		group = append(group, slot)
		if index < len(parsed) {
			slot.Text = parsed[index]
			slot.Config.Content = parsed[index]
			report.Bound++
		} else {
			report.Unfilled++
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("question %d is missing, slot keeps its placeholder", index+1))
		}
		index++
	}
	b.group = group
	return report
}
