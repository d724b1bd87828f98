package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"ask-ai/internal/chat"
	"ask-ai/internal/document"
	"ask-ai/internal/helper"
	"ask-ai/internal/models"
	"ask-ai/internal/questions"
)

const (
	msgMessageRequired = "Message is required"
	msgTextRequired    = "Text is required"
	msgChatFailed      = "An error occurred while processing your request"
	msgSessionNotFound = "Session not found"
)

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Message    string             `json:"message" binding:"required"`
	PromptType models.RequestType `json:"promptType"`
	History    []models.Exchange  `json:"history"`
}

// handleChat is the stateless endpoint: the caller sends already trimmed history.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMessageRequired})
		return
	}
	if req.PromptType == "" {
		req.PromptType = models.Default
	}

	text, err := s.svc.Orchestrator().Complete(c.Request.Context(), req.PromptType, req.Message, req.History)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": text})
}

type tokenCountRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleTokenCount(c *gin.Context) {
	var req tokenCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgTextRequired})
		return
	}

	n, method := s.counter.Count(c.Request.Context(), req.Text)
	log.Debug().
		Str("ip", c.ClientIP()).
		Int("tokens", n).
		Int("length", utf8.RuneCountInString(req.Text)).
		Str("preview", helper.Truncate(req.Text, 50)).
		Msg("Token count request")

	c.JSON(http.StatusOK, gin.H{
		"tokenCount": n,
		"method":     method,
		"textLength": utf8.RuneCountInString(req.Text),
	})
}

type formatRequest struct {
	PromptType models.RequestType `json:"promptType"`
	Text       string             `json:"text"`
	PageCount  int                `json:"pageCount" binding:"gte=0"`
}

func (s *Server) handleFormat(c *gin.Context) {
	var req formatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"formatted": s.svc.Format(req.PromptType, req.Text, req.PageCount)})
}

type intentRequest struct {
	Question  string `json:"question"`
	Selection string `json:"selection"`
}

func (s *Server) handleIntent(c *gin.Context) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat.RouteIntent(req.Question, req.Selection))
}

type documentRequest struct {
	Filename  string   `json:"filename"`
	PageCount int      `json:"pageCount"`
	Text      string   `json:"text"`
	Pages     []string `json:"pages"`
}

func (s *Server) buildDocument(c *gin.Context) (*document.Text, bool) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}

	if len(req.Pages) > 0 {
		doc, err := document.Build(c.Request.Context(), newPagesViewer(req.Filename, req.Pages))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return nil, false
		}
		return doc, true
	}

	doc := &document.Text{Filename: req.Filename, PageCount: req.PageCount, Content: req.Text}
	if !doc.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "pages, or text with a positive pageCount, are required"})
		return nil, false
	}
	return doc, true
}

type loadResponse struct {
	SessionID      string           `json:"sessionId"`
	Generation     uint64           `json:"generation"`
	Questions      questions.Report `json:"questions"`
	Slots          []questions.View `json:"slots"`
	QuestionsError string           `json:"questionsError,omitempty"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	doc, ok := s.buildDocument(c)
	if !ok {
		return
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	sess := chat.NewSession(id)
	s.sessions.Save(sess)

	c.JSON(http.StatusCreated, s.load(c, sess, doc))
}

func (s *Server) handleLoadDocument(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	doc, ok := s.buildDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.load(c, sess, doc))
}

// question generation failures do not fail the load, the panel keeps its placeholders
func (s *Server) load(c *gin.Context, sess *chat.Session, doc *document.Text) loadResponse {
	report, err := s.svc.Load(c.Request.Context(), sess, doc)
	snap := sess.Snapshot()
	resp := loadResponse{
		SessionID:  sess.ID,
		Generation: snap.Generation,
		Questions:  report,
		Slots:      snap.Board.Slots(),
	}
	if err != nil {
		resp.QuestionsError = err.Error()
	}
	return resp
}

type askRequest struct {
	PromptType        models.RequestType `json:"promptType"`
	Question          string             `json:"question"`
	Selection         string             `json:"selection"`
	UseEmptyHistory   *bool              `json:"useEmptyHistory"`
	SkipHistoryUpdate *bool              `json:"skipHistoryUpdate"`
}

func (s *Server) handleAsk(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	q := chat.Question{
		Type:              req.PromptType,
		Text:              req.Question,
		UseEmptyHistory:   req.UseEmptyHistory,
		SkipHistoryUpdate: req.SkipHistoryUpdate,
	}
	if q.Type == "" {
		// a clicked panel question carries its own request type
		if cfg, found := sess.Board().Find(strings.TrimSpace(req.Question)); found {
			q.Type, q.Text = cfg.RequestType, cfg.Content
		} else {
			intent := chat.RouteIntent(req.Question, req.Selection)
			if intent.Notice != "" {
				c.JSON(http.StatusOK, gin.H{"notice": intent.Notice})
				return
			}
			q.Type = intent.Type
		}
	}
	if q.Type == models.SelectedTextSummary && req.Selection != "" {
		q.Text = req.Selection
	}

	ans, err := s.svc.Ask(c.Request.Context(), sess, q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (s *Server) handleQuestions(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"generation": snap.Generation,
		"slots":      snap.Board.Slots(),
		"group":      snap.Board.Group(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"generation": sess.Generation(),
		"history":    sess.History(),
	})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) session(c *gin.Context) (*chat.Session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: msgSessionNotFound})
		return nil, false
	}
	return sess, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, errorResponse{Error: msgMessageRequired})
	case errors.Is(err, chat.ErrNoDocument):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrStaleSession):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, chat.ErrBackendUnavailable):
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Chat request failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: msgChatFailed})
	}
}
