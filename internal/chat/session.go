package chat

import (
	"sync"
	"time"

	"ask-ai/internal/document"
	"ask-ai/internal/models"
	"ask-ai/internal/questions"
)

// Session is one conversation over one loaded document. Loading a new
// document replaces document, history and question board at once and bumps
// the generation; responses started under an older generation are dropped.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	generation uint64
	doc        *document.Text
	history    []models.Exchange
	board      *questions.Board
}

func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now(), board: questions.NewBoard()}
}

// Snapshot is a consistent view of a session at one generation.
type Snapshot struct {
	Generation uint64
	Document   *document.Text
	History    []models.Exchange
	Board      *questions.Board
}

// Reset binds doc to the session with an empty history and a fresh default
// question panel of slotCount contextual slots.
func (s *Session) Reset(doc *document.Text, slotCount int) uint64 {
	board := questions.NewBoard()
	board.RegisterDefaults(slotCount)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.doc = doc
	s.history = nil
	s.board = board
	return s.generation
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Generation: s.generation,
		Document:   s.doc,
		History:    s.history[:len(s.history):len(s.history)],
		Board:      s.board,
	}
}

func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Session) History() []models.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Exchange, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Board() *questions.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// commit appends exchanges produced under generation gen.
func (s *Session) commit(gen uint64, exchanges []models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return ErrStaleSession
	}
	s.history = append(s.history, exchanges...)
	return nil
}
