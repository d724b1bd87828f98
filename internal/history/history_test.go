package history

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ask-ai/internal/models"
	"ask-ai/internal/tokens"
)

func exchanges(sizes ...int) []models.Exchange {
	out := make([]models.Exchange, len(sizes))
	for i, n := range sizes {
		role := models.RoleHuman
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		out[i] = models.Exchange{Role: role, Content: strings.Repeat("x", n*4)}
	}
	return out
}

func cost(h []models.Exchange) int {
	total := 0
	for _, e := range h {
		total += tokens.Heuristic(e.Content)
	}
	return total
}

func TestTrimKeepsLongestFittingSuffix(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	ctx := context.Background()

	tests := []struct {
		name   string
		sizes  []int
		budget int
		want   int
	}{
		{"empty history", nil, 100, 0},
		{"everything fits", []int{10, 10, 10}, 30, 3},
		{"oldest dropped", []int{10, 10, 10}, 25, 2},
		{"stops at first overflow", []int{1, 50, 5, 5}, 20, 2},
		{"newest too large", []int{1, 1, 100}, 50, 0},
		{"zero budget", []int{1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := exchanges(tt.sizes...)
			got := m.Trim(ctx, h, tt.budget)
			require.Len(t, got, tt.want)
			assert.Equal(t, h[len(h)-tt.want:], got)
			assert.LessOrEqual(t, cost(got), tt.budget)
			if tt.want < len(h) {
				assert.Greater(t, cost(h[len(h)-tt.want-1:]), tt.budget)
			}
		})
	}
}

func TestTrimDoesNotAlias(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	h := exchanges(1, 1)
	got := m.Trim(context.Background(), h, 10)
	got[0].Content = "changed"
	assert.NotEqual(t, "changed", h[0].Content)
}

func TestAppendDocumentQuestionStoresQuestionOnly(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	msg := "Question: What is the term?\n\nDocument Content:\n" + strings.Repeat("d", 5000)

	h := m.Append(nil, msg, "Five years [2].", models.DocumentQuestion)
	require.Len(t, h, 2)
	assert.Equal(t, models.Exchange{Role: models.RoleHuman, Content: "What is the term?"}, h[0])
	assert.Equal(t, models.Exchange{Role: models.RoleAssistant, Content: "Five years [2]."}, h[1])
}

func TestAppendHistoryQuestionLabel(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	msg := fmt.Sprintf(models.HistoryQuestionMessageTemplate, "What did you ask before?", "<<PAGE_BREAK>> Page 1\nbody")

	h := m.Append(nil, msg, "ok", models.DocumentHistoryQuestion)
	assert.Equal(t, "What did you ask before?", h[0].Content)
}

func TestAppendElidesUnlabelledDocument(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	doc := strings.Repeat("d", 5000)

	h := m.Append(nil, doc, "summary", models.DocumentSummary)
	assert.Equal(t, strings.Repeat("d", 200)+models.ElisionMarker, h[0].Content)

	short := m.Append(nil, "tiny doc", "summary", models.DocumentSummary)
	assert.Equal(t, "tiny doc", short[0].Content)
}

func TestAppendNonDocumentKeepsMessage(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	sel := strings.Repeat("s", 1000)

	h := m.Append(exchanges(1, 1), sel, "summary", models.SelectedTextSummary)
	require.Len(t, h, 4)
	assert.Equal(t, sel, h[2].Content)
}

func TestAppendDoesNotMutateInput(t *testing.T) {
	m := NewManager(tokens.HeuristicCounter{}, 0)
	base := make([]models.Exchange, 0, 10)
	base = append(base, exchanges(1, 1)...)

	a := m.Append(base, "a", "A", models.Default)
	b := m.Append(base, "b", "B", models.Default)
	assert.Equal(t, "a", a[2].Content)
	assert.Equal(t, "b", b[2].Content)
}

func TestExtractQuestion(t *testing.T) {
	q, ok := ExtractQuestion("Question: multi\nline?\n\nDocument Content:\nbody")
	assert.True(t, ok)
	assert.Equal(t, "multi\nline?", q)

	_, ok = ExtractQuestion("Question: no delimiter here")
	assert.False(t, ok)
}
