package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ask-ai/internal/chat"
	"ask-ai/internal/config"
	"ask-ai/internal/guardrail"
	"ask-ai/internal/llmservice"
	"ask-ai/internal/metrics"
	"ask-ai/internal/models"
	"ask-ai/internal/tokens"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBackend struct {
	mu       sync.Mutex
	prompts  []string
	messages [][]models.Exchange
	reply    func(prompt string) (llmservice.Result, error)
}

func (f *fakeBackend) Invoke(_ context.Context, prompt string, messages []models.Exchange, _ llmservice.Params) (llmservice.Result, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.messages = append(f.messages, messages)
	f.mu.Unlock()
	return f.reply(prompt)
}

func (f *fakeBackend) lastMessages() []models.Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

var questionsRail = guardrail.NewRegistry(nil).Lookup(models.DocumentContextualQuestions).Prompt

func scriptedBackend() *fakeBackend {
	return &fakeBackend{reply: func(prompt string) (llmservice.Result, error) {
		if prompt == questionsRail {
			return llmservice.Text("• What is the budget?\n• Who approved it?\n• When does it start?"), nil
		}
		return llmservice.Text("Five million [1]."), nil
	}}
}

func newTestServer(t *testing.T, backend llmservice.Backend) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Questions.RetryInitialMs = 1
	m := metrics.New()

	orch := chat.NewOrchestrator(backend, guardrail.NewRegistry(nil), tokens.HeuristicCounter{}, chat.WithMetrics(m))
	svc := chat.NewService(orch, cfg, m, nil)
	return New(svc, tokens.NewEstimator(tokens.WithoutLocal()), NewSessionStore(time.Hour), m)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat(t *testing.T) {
	b := scriptedBackend()
	s := newTestServer(t, b)

	w := do(t, s, http.MethodPost, "/api/chat", gin.H{
		"message":    "Question: budget?\n\nDocument Content:\n<<PAGE_BREAK>> Page 1\nFive million\n\n",
		"promptType": "DOCUMENT_QUESTION",
		"history":    []models.Exchange{{Role: models.RoleHuman, Content: "hi"}, {Role: models.RoleAssistant, Content: "hello"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Five million [1].", decode(t, w)["response"])
	assert.Len(t, b.lastMessages(), 3)
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(t, scriptedBackend())

	w := do(t, s, http.MethodPost, "/api/chat", gin.H{"promptType": "DOCUMENT_QUESTION"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message is required", decode(t, w)["error"])

	w = do(t, s, http.MethodPost, "/api/chat", gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatBackendUnavailable(t *testing.T) {
	var b llmservice.Backend
	s := newTestServer(t, b)
	w := do(t, s, http.MethodPost, "/api/chat", gin.H{"message": "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "not available")
}

func TestChatBackendFailure(t *testing.T) {
	b := &fakeBackend{reply: func(string) (llmservice.Result, error) {
		return llmservice.Result{}, errors.New("upstream 503")
	}}
	s := newTestServer(t, b)
	w := do(t, s, http.MethodPost, "/api/chat", gin.H{"message": "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "An error occurred while processing your request", decode(t, w)["error"])
}

func TestTokenCount(t *testing.T) {
	s := newTestServer(t, scriptedBackend())

	w := do(t, s, http.MethodPost, "/api/token-count", gin.H{"text": "abcdefgh"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, float64(2), out["tokenCount"])
	assert.Equal(t, "heuristic", out["method"])
	assert.Equal(t, float64(8), out["textLength"])

	w = do(t, s, http.MethodPost, "/api/token-count", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Text is required", decode(t, w)["error"])
}

func TestFormat(t *testing.T) {
	s := newTestServer(t, scriptedBackend())
	w := do(t, s, http.MethodPost, "/api/format", gin.H{"promptType": "DOCUMENT_KEYWORDS", "text": "• Budget [1][1]• Board [9]", "pageCount": 2})
	require.Equal(t, http.StatusOK, w.Code)
	formatted := decode(t, w)["formatted"].(string)
	assert.Equal(t, 1, strings.Count(formatted, `data-page="1"`))
	assert.Contains(t, formatted, "[9]")
	assert.NotContains(t, formatted, `data-page="9"`)
}

func TestIntent(t *testing.T) {
	s := newTestServer(t, scriptedBackend())
	w := do(t, s, http.MethodPost, "/api/intent", gin.H{"question": "Summarize the document"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DOCUMENT_SUMMARY", decode(t, w)["promptType"])
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/sessions", gin.H{
		"filename": "report.pdf",
		"pages":    []string{"Budget is five million.", "Approved by the board."},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, ok := decode(t, w)["sessionId"].(string)
	require.True(t, ok)
	return id
}

func TestSessionLifecycle(t *testing.T) {
	b := scriptedBackend()
	s := newTestServer(t, b)
	id := createSession(t, s)

	w := do(t, s, http.MethodGet, "/api/sessions/"+id+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board struct {
		Generation uint64 `json:"generation"`
		Slots      []struct {
			Text       string `json:"text"`
			PromptType string `json:"promptType"`
		} `json:"slots"`
		Group []any `json:"group"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &board))
	assert.Equal(t, uint64(1), board.Generation)
	require.Len(t, board.Slots, 6)
	assert.Equal(t, "Who approved it?", board.Slots[4].Text)
	assert.Len(t, board.Group, 3)

	// clicking a generated question routes to its slot's request type
	w = do(t, s, http.MethodPost, "/api/sessions/"+id+"/ask", gin.H{"question": "Who approved it?"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, "Five million [1].", out["response"])
	assert.Contains(t, out["formatted"], `data-page="1"`)
	assert.True(t, strings.HasPrefix(b.lastMessages()[len(b.lastMessages())-1].Content, "Question: Who approved it?"))

	w = do(t, s, http.MethodGet, "/api/sessions/"+id+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		History []models.Exchange `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.History, 4)
	assert.Equal(t, "Who approved it?", hist.History[2].Content)

	w = do(t, s, http.MethodPut, "/api/sessions/"+id+"/document", gin.H{"filename": "other.txt", "pageCount": 1, "text": "<<PAGE_BREAK>> Page 1\nNew text\n\n"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["generation"])

	w = do(t, s, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, http.MethodGet, "/api/sessions/"+id+"/questions", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskNotice(t *testing.T) {
	s := newTestServer(t, scriptedBackend())
	id := createSession(t, s)

	w := do(t, s, http.MethodPost, "/api/sessions/"+id+"/ask", gin.H{"question": "Summarize the selected text"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Please select text in the document first.", decode(t, w)["notice"])
}

func TestCreateSessionRequiresDocument(t *testing.T) {
	s := newTestServer(t, scriptedBackend())
	w := do(t, s, http.MethodPost, "/api/sessions", gin.H{"filename": "empty.pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionSurvivesQuestionFailure(t *testing.T) {
	b := &fakeBackend{reply: func(string) (llmservice.Result, error) {
		return llmservice.Result{}, errors.New("down")
	}}
	s := newTestServer(t, b)

	w := do(t, s, http.MethodPost, "/api/sessions", gin.H{"filename": "a.txt", "pages": []string{"text"}})
	require.Equal(t, http.StatusCreated, w.Code)
	out := decode(t, w)
	assert.NotEmpty(t, out["questionsError"])
	assert.Equal(t, 1, s.sessions.Count())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, scriptedBackend())
	do(t, s, http.MethodPost, "/api/chat", gin.H{"message": "hi"})

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "askai_model_calls_total")
}
