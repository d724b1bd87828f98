package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"ask-ai/internal/config"
	"ask-ai/internal/models"
)

var ErrNoDSN = errors.New("database dsn is not configured")

// Transcript is one stored side of a conversation turn.
type Transcript struct {
	bun.BaseModel `bun:"table:transcripts,alias:t"`
	ID            int64              `bun:"id,pk,autoincrement"`
	SessionID     string             `bun:"session_id,notnull"`
	Generation    uint64             `bun:"generation,notnull"`
	RequestType   models.RequestType `bun:"request_type,notnull"`
	Role          models.Role        `bun:"role,notnull"`
	Content       string             `bun:"content,notnull"`
	CreatedAt     time.Time          `bun:"created_at,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Transcript)(nil)).IfNotExists().Exec(ctx)
	return err
}

func DropTranscripts(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Transcript)(nil)).IfExists().Exec(ctx)
	return err
}

// Store records conversation turns. It satisfies chat.Recorder.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects, creates the table if needed and returns a ready store.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	db := NewDB(sqldb, cfg.Debug)
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("Transcript store ready")
	return NewStore(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func turnRows(sessionID string, generation uint64, t models.RequestType, human, assistant string) []Transcript {
	return []Transcript{
		{SessionID: sessionID, Generation: generation, RequestType: t, Role: models.RoleHuman, Content: human},
		{SessionID: sessionID, Generation: generation, RequestType: t, Role: models.RoleAssistant, Content: assistant},
	}
}

// Record stores both sides of a turn in one insert.
func (s *Store) Record(ctx context.Context, sessionID string, generation uint64, t models.RequestType, human, assistant string) error {
	rows := turnRows(sessionID, generation, t, human, assistant)
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Transcripts returns a session's turns in insertion order.
func (s *Store) Transcripts(ctx context.Context, sessionID string) ([]Transcript, error) {
	var rows []Transcript
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("id ASC").
		Scan(ctx)
	return rows, err
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.NewDelete().Model((*Transcript)(nil)).Where("session_id = ?", sessionID).Exec(ctx)
	return err
}
