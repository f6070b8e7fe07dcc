package model

import "time"

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	DefaultNoteCategory = "Uncategorized"
)

// Task is a card on the task board.
type Task struct {
	Meta
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Date        time.Time  `json:"date"`
}

func (t *Task) SortTime() time.Time { return t.Date }

func (t *Task) ApplyDefaults(now time.Time) {
	if t.Status == "" {
		t.Status = TaskTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Date.IsZero() {
		t.Date = now
	}
}

// CalendarEvent is a time span shown on the calendar.
type CalendarEvent struct {
	Meta
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Description string    `json:"description"`
}

func (e *CalendarEvent) SortTime() time.Time { return e.Start }

func (e *CalendarEvent) Check() []FieldError {
	if e.End.Before(e.Start) {
		return []FieldError{{Field: "end", Message: "end must not be before start"}}
	}
	return nil
}

// Note is a titled free-text note.
type Note struct {
	Meta
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Category string    `json:"category"`
	Tags     []string  `json:"tags"`
	Date     time.Time `json:"date"`
}

func (n *Note) SortTime() time.Time { return n.Date }

func (n *Note) ApplyDefaults(now time.Time) {
	if n.Category == "" {
		n.Category = DefaultNoteCategory
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.Date.IsZero() {
		n.Date = now
	}
}

// ExamItem is one question of the quiz mode.
type ExamItem struct {
	Meta
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Options  []string  `json:"options"`
	Subject  string    `json:"subject"`
	Date     time.Time `json:"date"`
}

func (x *ExamItem) SortTime() time.Time { return x.Date }

func (x *ExamItem) ApplyDefaults(now time.Time) {
	if x.Options == nil {
		x.Options = []string{}
	}
	if x.Date.IsZero() {
		x.Date = now
	}
}

// WordCard is a vocabulary flashcard.
type WordCard struct {
	Meta
	Word    string    `json:"word"`
	Meaning string    `json:"meaning"`
	Date    time.Time `json:"date"`
}

func (w *WordCard) SortTime() time.Time { return w.Date }

func (w *WordCard) ApplyDefaults(now time.Time) {
	if w.Date.IsZero() {
		w.Date = now
	}
}

// DeleteResponse confirms a removed document.
type DeleteResponse struct {
	Message string `json:"msg"`
	ID      string `json:"id"`
}
