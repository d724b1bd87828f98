package history

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"ask-ai/internal/helper"
	"ask-ai/internal/models"
	"ask-ai/internal/tokens"
)

const DefaultElisionPrefix = 200

var questionRe = regexp.MustCompile(models.QuestionLabelRegex)

// Options is the per-call history policy.
type Options struct {
	// UseEmpty sends no history at all.
	UseEmpty bool
	// SkipUpdate leaves the history untouched after the round trip.
	SkipUpdate bool
	// MaxTokens bounds the trimmed history.
	MaxTokens int
}

// Manager trims and extends conversation histories. Histories are plain
// slices; every method returns a new slice and never mutates its input.
type Manager struct {
	counter       tokens.Counter
	elisionPrefix int
}

func NewManager(counter tokens.Counter, elisionPrefix int) *Manager {
	if elisionPrefix <= 0 {
		elisionPrefix = DefaultElisionPrefix
	}
	return &Manager{counter: counter, elisionPrefix: elisionPrefix}
}

// Trim returns the longest suffix of history whose estimated cost fits maxTokens.
func (m *Manager) Trim(ctx context.Context, history []models.Exchange, maxTokens int) []models.Exchange {
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := m.counter.Estimate(ctx, history[i].Content)
		if total+cost > maxTokens {
			break
		}
		total += cost
		start = i
	}

	if start < len(history) {
		log.Debug().Int("kept", len(history)-start).Int("dropped", start).Int("tokens", total).Msg("Trimmed history")
	}
	return slices.Clone(history[start:])
}

// Append returns history extended with one human/assistant pair. For
// document-bearing request types only the question is stored.
func (m *Manager) Append(history []models.Exchange, humanContent, assistantContent string, t models.RequestType) []models.Exchange {
	out := make([]models.Exchange, 0, len(history)+2)
	out = append(out, history...)
	return append(out,
		models.Exchange{Role: models.RoleHuman, Content: m.HumanContent(humanContent, t)},
		models.Exchange{Role: models.RoleAssistant, Content: assistantContent},
	)
}

// HumanContent is what gets stored for the human side of an exchange.
func (m *Manager) HumanContent(message string, t models.RequestType) string {
	if !t.IsDocumentBearing() {
		return message
	}
	if q, ok := ExtractQuestion(message); ok {
		return q
	}
	if len(message) > m.elisionPrefix {
		return helper.Truncate(message, m.elisionPrefix) + models.ElisionMarker
	}
	return message
}

// ExtractQuestion finds the text between a "Question:" or "Human Question:"
// label and the "Document Content:" delimiter.
func ExtractQuestion(message string) (string, bool) {
	m := questionRe.FindStringSubmatch(message)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
