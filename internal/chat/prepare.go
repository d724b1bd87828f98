package chat

import (
	"fmt"
	"strings"

	"ask-ai/internal/document"
	"ask-ai/internal/models"
)

// PrepareMessage builds the user content of a request. Whole-document types
// send the document text as-is, question types prefix the question, and a
// selection summary sends only the selection.
func PrepareMessage(t models.RequestType, question string, doc *document.Text) (string, error) {
	question = strings.TrimSpace(question)

	switch t {
	case models.SelectedTextSummary, models.Default:
		if question == "" {
			return "", ErrEmptyMessage
		}
		return question, nil
	}

	if !doc.Valid() {
		return "", ErrNoDocument
	}

	switch t {
	case models.DocumentContextualQuestionExactly, models.DocumentQuestion:
		if question == "" {
			return "", ErrEmptyMessage
		}
		return fmt.Sprintf(models.QuestionMessageTemplate, question, doc.Content), nil
	case models.DocumentHistoryQuestion:
		if question == "" {
			return "", ErrEmptyMessage
		}
		return fmt.Sprintf(models.HistoryQuestionMessageTemplate, question, doc.Content), nil
	}
	return doc.Content, nil
}

var (
	summarizationWords = []string{"summarize", "summary", "summarization"}
	areaWords          = []string{"text", "paragraph", "area"}
	selectionWords     = []string{"selected", "selection", "highlighted"}
	historyWords       = []string{"history", "previous", "generated", "earlier", "asked", "before", "questions"}
)

const (
	NoticeSelectFirst   = "Please select text in the document first."
	NoticeSpecifyTarget = "Please specify if you want to summarize the entire document or selected text."
	NoticeAskQuestion   = "Please ask a question first."
)

// Intent is the routing decision for a free-text question. When Notice is
// set no request should be made and Notice is shown instead.
type Intent struct {
	Type   models.RequestType `json:"promptType,omitempty"`
	Notice string             `json:"notice,omitempty"`
}

// RouteIntent picks the request type for a typed question. selection is the
// currently selected document text, if any.
func RouteIntent(question, selection string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return Intent{Notice: NoticeAskQuestion}
	}

	if containsAny(q, summarizationWords) {
		switch {
		case strings.Contains(q, "document") && !containsAny(q, areaWords):
			return Intent{Type: models.DocumentSummary}
		case containsAny(q, selectionWords):
			if strings.TrimSpace(selection) == "" {
				return Intent{Notice: NoticeSelectFirst}
			}
			return Intent{Type: models.SelectedTextSummary}
		default:
			return Intent{Notice: NoticeSpecifyTarget}
		}
	}

	if containsAny(q, historyWords) {
		return Intent{Type: models.DocumentHistoryQuestion}
	}
	return Intent{Type: models.DocumentQuestion}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
