package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/repository"
	"github.com/studydesk/studydesk-api/internal/schema"
)

// MaxBatchSize bounds a single batch import.
const MaxBatchSize = 1000

// DocumentStore persists one kind of owned document.
type DocumentStore[T any] interface {
	Insert(ctx context.Context, doc *T) error
	InsertMany(ctx context.Context, docs []*T) error
	Get(ctx context.Context, id string) (*T, error)
	ListByOwner(ctx context.Context, userID string) ([]*T, error)
	Update(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id, userID string) error
}

// ResourceService implements the owned-document rules shared by every
// resource kind: schema validation, ownership checks and partial updates.
type ResourceService[T any, PT model.Doc[T]] struct {
	kind      model.Kind
	store     DocumentStore[T]
	validator *schema.Validator
	now       func() time.Time
}

// NewResourceService creates a service for kind backed by store.
func NewResourceService[T any, PT model.Doc[T]](kind model.Kind, store DocumentStore[T], validator *schema.Validator) *ResourceService[T, PT] {
	return &ResourceService[T, PT]{
		kind:      kind,
		store:     store,
		validator: validator,
		now:       time.Now,
	}
}

// Kind reports the collection served.
func (s *ResourceService[T, PT]) Kind() model.Kind { return s.kind }

// List returns the caller's documents, most recent first.
func (s *ResourceService[T, PT]) List(ctx context.Context, userID string) ([]*T, error) {
	docs, err := s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return docs, nil
}

// Create validates body and stores it as a new document owned by userID.
func (s *ResourceService[T, PT]) Create(ctx context.Context, userID string, body []byte) (*T, error) {
	doc, err := s.build(userID, body, "")
	if err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, doc); err != nil {
		return nil, storeError(err)
	}
	return doc, nil
}

// CreateMany imports a JSON array of documents. Every item is validated
// before anything is stored, and the items are stored atomically: one bad
// item rejects the whole batch.
func (s *ResourceService[T, PT]) CreateMany(ctx context.Context, userID string, body []byte) ([]*T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil || items == nil {
		return nil, invalid("body", "must be a JSON array")
	}
	if len(items) == 0 {
		return nil, invalid("body", "must contain at least one item")
	}
	if len(items) > MaxBatchSize {
		return nil, invalid("body", fmt.Sprintf("must contain at most %d items", MaxBatchSize))
	}

	docs := make([]*T, 0, len(items))
	var verr ValidationError
	for i, item := range items {
		doc, err := s.build(userID, item, fmt.Sprintf("[%d].", i))
		if err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return nil, err
			}
			verr.Fields = append(verr.Fields, ve.Fields...)
			continue
		}
		docs = append(docs, doc)
	}
	if len(verr.Fields) > 0 {
		return nil, &verr
	}

	if err := s.store.InsertMany(ctx, docs); err != nil {
		return nil, storeError(err)
	}
	return docs, nil
}

// Update overlays the keys present in body onto the stored document. Omitted
// fields keep their values; the owner, id and creation time never change.
func (s *ResourceService[T, PT]) Update(ctx context.Context, userID, id string, body []byte) (*T, error) {
	patch, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	meta := *PT(existing).Base()

	current, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	merged, err := decodeObject(current)
	if err != nil {
		return nil, err
	}
	for k, v := range patch {
		merged[k] = v
	}

	doc, err := s.decode(merged, "")
	if err != nil {
		return nil, err
	}
	*PT(doc).Base() = meta

	if err := s.store.Update(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}
	return doc, nil
}

// Delete removes a document owned by userID. Deleting twice yields ErrNotFound.
func (s *ResourceService[T, PT]) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return ErrNotFound
		}
		return storeError(err)
	}
	return nil
}

// owned loads a document and checks that userID owns it.
func (s *ResourceService[T, PT]) owned(ctx context.Context, userID, id string) (*T, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError(err)
	}

	if PT(doc).Base().UserID != userID {
		return nil, ErrForbidden
	}
	return doc, nil
}

// build turns a client payload into a new document owned by userID.
func (s *ResourceService[T, PT]) build(userID string, body []byte, prefix string) (*T, error) {
	obj, err := decodeObject(body)
	if err != nil {
		return nil, prefixed(err, prefix)
	}

	doc, err := s.decode(obj, prefix)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d := PT(doc)
	if df, ok := any(d).(model.Defaulter); ok {
		df.ApplyDefaults(now)
	}
	*d.Base() = model.Meta{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
	}
	return doc, nil
}

// decode validates obj against the kind's schema and cross-field checks.
func (s *ResourceService[T, PT]) decode(obj map[string]json.RawMessage, prefix string) (*T, error) {
	for _, k := range model.MetaKeys {
		delete(obj, k)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}

	fields, err := s.validator.Validate(s.kind.Name, raw)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, prefixed(&ValidationError{Fields: fields}, prefix)
	}

	doc := new(T)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, prefixed(invalid("body", "contains a malformed value"), prefix)
	}

	if c, ok := any(PT(doc)).(model.Checker); ok {
		if fields := c.Check(); len(fields) > 0 {
			return nil, prefixed(&ValidationError{Fields: fields}, prefix)
		}
	}
	return doc, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, invalid("body", "must be a JSON object")
	}
	return obj, nil
}

func prefixed(err error, prefix string) error {
	var ve *ValidationError
	if prefix == "" || !errors.As(err, &ve) {
		return err
	}
	fields := make([]model.FieldError, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = model.FieldError{Field: prefix + f.Field, Message: f.Message}
	}
	return &ValidationError{Fields: fields}
}
