package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/studydesk/studydesk-api/internal/model"
)

var ErrDocumentNotFound = errors.New("document not found")

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DocumentRepository stores one kind of owned document. The document body is
// kept as a JSON column; owner, ordering key and creation time live in their
// own indexed columns.
type DocumentRepository[T any, PT model.Doc[T]] struct {
	db    *sql.DB
	table string
}

// NewDocumentRepository creates a repository over the table of kind.
func NewDocumentRepository[T any, PT model.Doc[T]](db *sql.DB, kind model.Kind) *DocumentRepository[T, PT] {
	return &DocumentRepository[T, PT]{db: db, table: kind.Table}
}

// Insert stores a new document.
func (r *DocumentRepository[T, PT]) Insert(ctx context.Context, doc *T) error {
	return r.insert(ctx, r.db, doc)
}

// InsertMany stores all documents in a single transaction: either every
// document is stored or none is.
func (r *DocumentRepository[T, PT]) InsertMany(ctx context.Context, docs []*T) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if err := r.insert(ctx, tx, doc); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *DocumentRepository[T, PT]) insert(ctx context.Context, ex execer, doc *T) error {
	d := PT(doc)
	meta := d.Base()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", r.table, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, data, sort_at, created_at) VALUES (?, ?, ?, ?, ?)`, r.table)
	_, err = ex.ExecContext(ctx, query,
		meta.ID, meta.UserID, data, d.SortTime().UTC(), meta.CreatedAt.UTC(),
	)
	return err
}

// Get retrieves a document by id regardless of its owner; ownership is
// checked by the caller so a foreign document can be told apart from a
// missing one.
func (r *DocumentRepository[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf(`SELECT id, user_id, data, created_at FROM %s WHERE id = ?`, r.table)

	doc, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	return doc, nil
}

// ListByOwner retrieves all documents of a user, most recent first.
func (r *DocumentRepository[T, PT]) ListByOwner(ctx context.Context, userID string) ([]*T, error) {
	query := fmt.Sprintf(`SELECT id, user_id, data, created_at FROM %s
		WHERE user_id = ? ORDER BY sort_at DESC, created_at DESC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*T{}
	for rows.Next() {
		doc, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Update replaces the body of an existing document owned by the document's user.
func (r *DocumentRepository[T, PT]) Update(ctx context.Context, doc *T) error {
	d := PT(doc)
	meta := d.Base()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", r.table, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET data = ?, sort_at = ? WHERE id = ? AND user_id = ?`, r.table)
	result, err := r.db.ExecContext(ctx, query, data, d.SortTime().UTC(), meta.ID, meta.UserID)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// Delete removes a document owned by userID.
func (r *DocumentRepository[T, PT]) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND user_id = ?`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DocumentRepository[T, PT]) scan(row rowScanner) (*T, error) {
	var (
		meta model.Meta
		data []byte
	)
	if err := row.Scan(&meta.ID, &meta.UserID, &data, &meta.CreatedAt); err != nil {
		return nil, err
	}

	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding %s document %s: %w", r.table, meta.ID, err)
	}
	*PT(doc).Base() = meta

	return doc, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
