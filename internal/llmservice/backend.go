package llmservice

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"ask-ai/internal/models"
)

// Params are the generation parameters of one model call.
type Params struct {
	MaxTokens   int
	Temperature float64
	Seed        int
}

// Backend is the language-model service the pipeline talks to.
type Backend interface {
	Invoke(ctx context.Context, prompt string, messages []models.Exchange, params Params) (Result, error)
}

type ResultKind int

const (
	PlainText ResultKind = iota
	StructuredContent
	Unparseable
)

func (k ResultKind) String() string {
	switch k {
	case PlainText:
		return "plain_text"
	case StructuredContent:
		return "structured_content"
	default:
		return "unparseable"
	}
}

// Result is a model reply classified once at the backend boundary.
type Result struct {
	Kind ResultKind
	Text string
	Raw  []byte
}

func Text(s string) Result {
	return Result{Kind: PlainText, Text: s}
}

// NewResult classifies a raw backend value: strings are plain text, objects
// carrying "content" or "kwargs.content" are structured, anything else is
// kept serialized.
func NewResult(raw any) Result {
	switch v := raw.(type) {
	case nil:
		return Result{Kind: Unparseable}
	case string:
		return Text(v)
	case []byte:
		return classifyJSON(v)
	case json.RawMessage:
		return classifyJSON(v)
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return Result{Kind: Unparseable}
	}
	return classifyJSON(b)
}

func classifyJSON(b []byte) Result {
	if !gjson.ValidBytes(b) {
		return Result{Kind: Unparseable, Raw: b}
	}
	root := gjson.ParseBytes(b)
	if root.Type == gjson.String {
		return Text(root.String())
	}
	if c := root.Get("content"); c.Exists() && c.Type != gjson.Null {
		return Result{Kind: StructuredContent, Text: c.String(), Raw: b}
	}
	if c := root.Get("kwargs.content"); c.Exists() && c.String() != "" {
		return Result{Kind: StructuredContent, Text: c.String(), Raw: b}
	}
	if root.Type == gjson.Null {
		return Result{Kind: Unparseable}
	}
	return Result{Kind: Unparseable, Raw: b}
}

// String is the plain display string of the result.
func (r Result) String() string {
	switch r.Kind {
	case PlainText, StructuredContent:
		return r.Text
	}
	if len(r.Raw) > 0 {
		return string(r.Raw)
	}
	return models.NoResponseText
}
