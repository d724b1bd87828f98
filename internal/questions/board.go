package questions

import (
	"sync"

	"ask-ai/internal/models"
)

const (
	SlotInfo     = "info"
	SlotQuestion = "question"

	PlaceholderText = "Loading..."
)

// SlotConfig is the configuration a panel item was rendered from.
type SlotConfig struct {
	Type        string             `json:"type"`
	Content     string             `json:"content"`
	RequestType models.RequestType `json:"promptType"`
}

// Slot is a rendered panel item paired with its configuration.
type Slot struct {
	Config *SlotConfig `json:"config"`
	Text   string      `json:"text"`
}

// Board is the ordered collection of question slots of one panel.
type Board struct {
	mu    sync.Mutex
	slots []*Slot
	group []*Slot
}

func NewBoard() *Board {
	return &Board{}
}

// Register appends a slot rendered from cfg.
func (b *Board) Register(cfg SlotConfig) *Slot {
	c := cfg
	s := &Slot{Config: &c, Text: cfg.Content}

	b.mu.Lock()
	b.slots = append(b.slots, s)
	b.mu.Unlock()
	return s
}

// RegisterDefaults renders the suggested-questions panel: summary, keywords
// and count contextual-question placeholders.
func (b *Board) RegisterDefaults(count int) {
	b.Register(SlotConfig{Type: SlotInfo, Content: "Here are some suggested questions to get you started:"})
	b.Register(SlotConfig{Type: SlotQuestion, Content: "Summarize Document", RequestType: models.DocumentSummary})
	b.Register(SlotConfig{Type: SlotQuestion, Content: "List Keywords", RequestType: models.DocumentKeywords})
	for i := 0; i < count; i++ {
		b.Register(SlotConfig{Type: SlotQuestion, Content: PlaceholderText, RequestType: models.DocumentContextualQuestionExactly})
	}
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.slots)
}

// View is a copy of a slot safe to hand out.
type View struct {
	Type        string             `json:"type"`
	Text        string             `json:"text"`
	Content     string             `json:"content"`
	RequestType models.RequestType `json:"promptType"`
}

func (b *Board) Slots() []View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return views(b.slots)
}

// Group returns the slots gathered under one container by the last sync.
func (b *Board) Group() []View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return views(b.group)
}

// Find returns the configuration of the first question slot whose display
// text equals text.
func (b *Board) Find(text string) (SlotConfig, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.slots {
		if s.Config.Type == SlotQuestion && s.Text == text {
			return *s.Config, true
		}
	}
	return SlotConfig{}, false
}

func views(slots []*Slot) []View {
	out := make([]View, len(slots))
	for i, s := range slots {
		out[i] = View{Type: s.Config.Type, Text: s.Text, Content: s.Config.Content, RequestType: s.Config.RequestType}
	}
	return out
}
