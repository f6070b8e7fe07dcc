package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/studydesk/studydesk-api/internal/model"
)

// NewDB creates a new MySQL database connection pool with the given DSN.
// The DSN is normalized so DATETIME columns scan into time.Time in UTC and
// UPDATE reports matched rather than changed rows.
func NewDB(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Store is the process-wide handle over every collection. It is opened once
// at startup, passed to the services and closed on shutdown.
type Store struct {
	db *sql.DB

	Users  *UserRepository
	Tasks  *DocumentRepository[model.Task, *model.Task]
	Events *DocumentRepository[model.CalendarEvent, *model.CalendarEvent]
	Notes  *DocumentRepository[model.Note, *model.Note]
	Exams  *DocumentRepository[model.ExamItem, *model.ExamItem]
	Words  *DocumentRepository[model.WordCard, *model.WordCard]
}

// NewStore wires every repository over one connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		Users:  NewUserRepository(db),
		Tasks:  NewDocumentRepository[model.Task](db, model.KindTask),
		Events: NewDocumentRepository[model.CalendarEvent](db, model.KindEvent),
		Notes:  NewDocumentRepository[model.Note](db, model.KindNote),
		Exams:  NewDocumentRepository[model.ExamItem](db, model.KindExam),
		Words:  NewDocumentRepository[model.WordCard](db, model.KindWord),
	}
}

// Open connects to MySQL, applies pending migrations and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := NewDB(dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return NewStore(db), nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
