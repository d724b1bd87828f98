package models

import "strings"

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Exchange is one turn of a conversation.
type Exchange struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// RequestType selects the guard rail, history policy and formatting policy of a request.
type RequestType string

const (
	DocumentSummary                   RequestType = "DOCUMENT_SUMMARY"
	DocumentKeywords                  RequestType = "DOCUMENT_KEYWORDS"
	DocumentQuestion                  RequestType = "DOCUMENT_QUESTION"
	DocumentContextualQuestions       RequestType = "DOCUMENT_CONTEXTUAL_QUESTIONS"
	DocumentContextualQuestionExactly RequestType = "DOCUMENT_CONTEXTUAL_QUESTION_EXACTLY"
	DocumentHistoryQuestion           RequestType = "DOCUMENT_HISTORY_QUESTION"
	SelectedTextSummary               RequestType = "SELECTED_TEXT_SUMMARY"
	Default                           RequestType = "default"
)

const documentPrefix = "DOCUMENT_"

// IsDocumentBearing reports whether requests of this type carry the document text.
func (t RequestType) IsDocumentBearing() bool {
	return strings.Contains(string(t), documentPrefix)
}

// IsKeywordExtraction reports whether oversized input is handled by chunk map/reduce.
func (t RequestType) IsKeywordExtraction() bool {
	return strings.Contains(strings.ToLower(string(t)), "keywords")
}

// IsWholeDocument reports whether the request sends the full document without a question.
func (t RequestType) IsWholeDocument() bool {
	switch t {
	case DocumentSummary, DocumentKeywords, DocumentContextualQuestions:
		return true
	}
	return false
}

func (t RequestType) String() string {
	return string(t)
}
