// Package memstore keeps every collection in process memory. It backs the
// service and handler tests and the STORE=memory development mode; data is
// lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/repository"
)

// Store mirrors repository.Store over in-memory collections.
type Store struct {
	Users  *Users
	Tasks  *Documents[model.Task, *model.Task]
	Events *Documents[model.CalendarEvent, *model.CalendarEvent]
	Notes  *Documents[model.Note, *model.Note]
	Exams  *Documents[model.ExamItem, *model.ExamItem]
	Words  *Documents[model.WordCard, *model.WordCard]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Users:  NewUsers(),
		Tasks:  NewDocuments[model.Task](),
		Events: NewDocuments[model.CalendarEvent](),
		Notes:  NewDocuments[model.Note](),
		Exams:  NewDocuments[model.ExamItem](),
		Words:  NewDocuments[model.WordCard](),
	}
}

// Close is a no-op kept for parity with repository.Store.
func (s *Store) Close() error { return nil }

// Users is an in-memory credential store with the same unique constraints
// as the users table.
type Users struct {
	mu   sync.RWMutex
	byID map[string]model.User
}

func NewUsers() *Users {
	return &Users{byID: make(map[string]model.User)}
}

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, existing := range u.byID {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateUser
		}
	}
	if _, ok := u.byID[user.ID]; ok {
		return repository.ErrDuplicateUser
	}

	u.byID[user.ID] = *user
	return nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	for _, existing := range u.byID {
		if strings.EqualFold(existing.Email, email) {
			found := existing
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (u *Users) GetByID(_ context.Context, id string) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	existing, ok := u.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &existing, nil
}

type row struct {
	meta   model.Meta
	sortAt time.Time
	data   []byte
}

// Documents is an in-memory collection of one document kind. Documents are
// stored encoded so callers never share memory with the store.
type Documents[T any, PT model.Doc[T]] struct {
	mu   sync.RWMutex
	rows map[string]row
}

func NewDocuments[T any, PT model.Doc[T]]() *Documents[T, PT] {
	return &Documents[T, PT]{rows: make(map[string]row)}
}

func (d *Documents[T, PT]) Insert(_ context.Context, doc *T) error {
	r, err := encode[T, PT](doc)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.rows[r.meta.ID]; ok {
		return fmt.Errorf("duplicate document id %s", r.meta.ID)
	}
	d.rows[r.meta.ID] = r
	return nil
}

func (d *Documents[T, PT]) InsertMany(_ context.Context, docs []*T) error {
	encoded := make([]row, 0, len(docs))
	seen := make(map[string]bool, len(docs))
	for _, doc := range docs {
		r, err := encode[T, PT](doc)
		if err != nil {
			return err
		}
		if seen[r.meta.ID] {
			return fmt.Errorf("duplicate document id %s", r.meta.ID)
		}
		seen[r.meta.ID] = true
		encoded = append(encoded, r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range encoded {
		if _, ok := d.rows[r.meta.ID]; ok {
			return fmt.Errorf("duplicate document id %s", r.meta.ID)
		}
	}
	for _, r := range encoded {
		d.rows[r.meta.ID] = r
	}
	return nil
}

func (d *Documents[T, PT]) Get(_ context.Context, id string) (*T, error) {
	d.mu.RLock()
	r, ok := d.rows[id]
	d.mu.RUnlock()

	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	return decode[T, PT](r)
}

func (d *Documents[T, PT]) ListByOwner(_ context.Context, userID string) ([]*T, error) {
	d.mu.RLock()
	owned := make([]row, 0)
	for _, r := range d.rows {
		if r.meta.UserID == userID {
			owned = append(owned, r)
		}
	}
	d.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].sortAt.Equal(owned[j].sortAt) {
			return owned[i].sortAt.After(owned[j].sortAt)
		}
		return owned[i].meta.CreatedAt.After(owned[j].meta.CreatedAt)
	})

	docs := make([]*T, 0, len(owned))
	for _, r := range owned {
		doc, err := decode[T, PT](r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (d *Documents[T, PT]) Update(_ context.Context, doc *T) error {
	r, err := encode[T, PT](doc)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.rows[r.meta.ID]
	if !ok || existing.meta.UserID != r.meta.UserID {
		return repository.ErrDocumentNotFound
	}
	r.meta.CreatedAt = existing.meta.CreatedAt
	d.rows[r.meta.ID] = r
	return nil
}

func (d *Documents[T, PT]) Delete(_ context.Context, id, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.rows[id]
	if !ok || existing.meta.UserID != userID {
		return repository.ErrDocumentNotFound
	}
	delete(d.rows, id)
	return nil
}

func encode[T any, PT model.Doc[T]](doc *T) (row, error) {
	d := PT(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return row{}, err
	}
	return row{meta: *d.Base(), sortAt: d.SortTime(), data: data}, nil
}

func decode[T any, PT model.Doc[T]](r row) (*T, error) {
	doc := new(T)
	if err := json.Unmarshal(r.data, doc); err != nil {
		return nil, err
	}
	*PT(doc).Base() = r.meta
	return doc, nil
}
