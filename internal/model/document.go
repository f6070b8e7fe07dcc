package model

import "time"

// Meta is the ownership envelope carried by every stored document.
type Meta struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// Base gives generic code access to the envelope of an embedding document.
func (m *Meta) Base() *Meta { return m }

// MetaKeys are the JSON keys a client may never set.
var MetaKeys = []string{"id", "user", "created_at"}

// Document is a user-owned record stored in a per-kind collection.
type Document interface {
	Base() *Meta
	// SortTime is the key lists are ordered by, newest first.
	SortTime() time.Time
}

// Doc constrains a type parameter to a pointer to a Document struct.
type Doc[T any] interface {
	*T
	Document
}

// Defaulter is implemented by documents that fill optional fields on create.
type Defaulter interface {
	ApplyDefaults(now time.Time)
}

// Checker is implemented by documents with cross-field rules a JSON schema
// cannot express.
type Checker interface {
	Check() []FieldError
}

// FieldError describes one violated input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Kind names a resource collection. Name is both the route segment and the
// schema id; Label names a single record in messages.
type Kind struct {
	Name  string
	Table string
	Label string
}

var (
	KindTask  = Kind{Name: "tasks", Table: "tasks", Label: "task"}
	KindEvent = Kind{Name: "calendar", Table: "calendar_events", Label: "event"}
	KindNote  = Kind{Name: "notes", Table: "notes", Label: "note"}
	KindExam  = Kind{Name: "exam", Table: "exam_items", Label: "exam item"}
	KindWord  = Kind{Name: "words", Table: "word_cards", Label: "word"}
)

// Kinds lists every resource collection.
var Kinds = []Kind{KindTask, KindEvent, KindNote, KindExam, KindWord}
