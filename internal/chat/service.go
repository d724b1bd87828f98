package chat

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"ask-ai/internal/config"
	"ask-ai/internal/document"
	"ask-ai/internal/metrics"
	"ask-ai/internal/models"
	"ask-ai/internal/questions"
	"ask-ai/internal/response"
)

// Recorder persists completed turns. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(ctx context.Context, sessionID string, generation uint64, t models.RequestType, human, assistant string) error
}

// Service runs session-bound requests: message preparation, orchestration,
// formatting and contextual-question sync.
type Service struct {
	orch      *Orchestrator
	syncer    *questions.Syncer
	slotCount int
	format    []response.Option
	recorder  Recorder
	metrics   *metrics.Metrics
}

func NewService(orch *Orchestrator, cfg *config.Config, m *metrics.Metrics, recorder Recorder) *Service {
	return &Service{
		orch:      orch,
		syncer:    questions.NewSyncer(cfg.Questions.RetryAttempts, time.Duration(cfg.Questions.RetryInitialMs)*time.Millisecond, m),
		slotCount: cfg.Questions.Count,
		format:    []response.Option{response.WithRangeExpansion(cfg.Formatter.ExpandRanges)},
		recorder:  recorder,
		metrics:   m,
	}
}

func (s *Service) Orchestrator() *Orchestrator {
	return s.orch
}

// Question is a session-bound request. Nil policy fields keep the request
// type's defaults.
type Question struct {
	Type              models.RequestType `json:"promptType"`
	Text              string             `json:"question"`
	UseEmptyHistory   *bool              `json:"useEmptyHistory,omitempty"`
	SkipHistoryUpdate *bool              `json:"skipHistoryUpdate,omitempty"`
}

type Answer struct {
	Response   string `json:"response"`
	Formatted  string `json:"formatted"`
	Generation uint64 `json:"generation"`
}

// Ask runs q against the session's current document and history.
func (s *Service) Ask(ctx context.Context, sess *Session, q Question) (Answer, error) {
	snap := sess.Snapshot()

	message, err := PrepareMessage(q.Type, q.Text, snap.Document)
	if err != nil {
		return Answer{}, err
	}

	policy := s.orch.Policy(q.Type)
	if q.UseEmptyHistory != nil {
		policy.UseEmpty = *q.UseEmptyHistory
	}
	if q.SkipHistoryUpdate != nil {
		policy.SkipUpdate = *q.SkipHistoryUpdate
	}

	turn, err := s.orch.Send(ctx, snap.History, q.Type, message, policy)
	if err != nil {
		return Answer{}, err
	}

	if err := sess.commit(snap.Generation, turn.History[len(snap.History):]); err != nil {
		s.metrics.StaleResponse()
		log.Warn().Str("session", sess.ID).Uint64("generation", snap.Generation).Str("request_type", q.Type.String()).Msg("Discarding response for a replaced document")
		return Answer{}, err
	}
	s.record(ctx, sess.ID, snap.Generation, q.Type, q.Text, turn.Response)

	pageCount := 0
	if snap.Document != nil {
		pageCount = snap.Document.PageCount
	}
	return Answer{
		Response:   turn.Response,
		Formatted:  response.NewFormatter(pageCount, s.format...).Format(q.Type, turn.Response),
		Generation: snap.Generation,
	}, nil
}

// Load binds doc to the session, then generates contextual questions once
// and syncs them into the new question panel. Question generation failures
// leave the placeholders in place and are returned alongside a usable session.
func (s *Service) Load(ctx context.Context, sess *Session, doc *document.Text) (questions.Report, error) {
	if !doc.Valid() {
		return questions.Report{}, ErrNoDocument
	}
	gen := sess.Reset(doc, s.slotCount)
	log.Info().Str("session", sess.ID).Str("file", doc.Filename).Int("pages", doc.PageCount).Uint64("generation", gen).Msg("Document loaded")

	ans, err := s.Ask(ctx, sess, Question{Type: models.DocumentContextualQuestions})
	if err != nil {
		if !errors.Is(err, ErrStaleSession) {
			log.Error().Err(err).Str("session", sess.ID).Msg("Failed to generate contextual questions")
		}
		return questions.Report{}, err
	}

	snap := sess.Snapshot()
	if snap.Generation != ans.Generation {
		s.metrics.StaleResponse()
		return questions.Report{}, ErrStaleSession
	}
	return s.syncer.Sync(ctx, ans.Response, snap.Board)
}

// Format applies the response formatter for a document of pageCount pages.
func (s *Service) Format(t models.RequestType, text string, pageCount int) string {
	return response.NewFormatter(pageCount, s.format...).Format(t, text)
}

func (s *Service) record(ctx context.Context, sessionID string, gen uint64, t models.RequestType, human, assistant string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, sessionID, gen, t, human, assistant); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to record transcript")
	}
}
