package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/studydesk-api/internal/model"
)

func fieldNames(fields []model.FieldError) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return names
}

func TestNewLoadsEverySchema(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	for _, k := range model.Kinds {
		assert.True(t, v.HasSchema(k.Name), "missing schema for %s", k.Name)
	}
	assert.True(t, v.HasSchema("register"))
	assert.True(t, v.HasSchema("login"))
	assert.False(t, v.HasSchema("unknown"))
}

func TestValidate(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name       string
		schema     string
		doc        string
		wantFields []string
	}{
		{
			name:   "valid note",
			schema: "notes",
			doc:    `{"title":"t","content":"c","tags":["go"]}`,
		},
		{
			name:       "note missing every required field",
			schema:     "notes",
			doc:        `{}`,
			wantFields: []string{"content", "title"},
		},
		{
			name:       "note with empty title and bad tag type",
			schema:     "notes",
			doc:        `{"title":"","content":"c","tags":[1]}`,
			wantFields: []string{"tags.0", "title"},
		},
		{
			name:       "task with unknown status",
			schema:     "tasks",
			doc:        `{"title":"t","status":"blocked"}`,
			wantFields: []string{"status"},
		},
		{
			name:       "event with malformed start",
			schema:     "calendar",
			doc:        `{"title":"t","start":"tomorrow","end":"2026-01-01T10:00:00Z"}`,
			wantFields: []string{"start"},
		},
		{
			name:   "valid event",
			schema: "calendar",
			doc:    `{"title":"t","start":"2026-01-01T09:00:00Z","end":"2026-01-01T10:00:00.5Z"}`,
		},
		{
			name:       "word card missing meaning",
			schema:     "words",
			doc:        `{"word":"apple"}`,
			wantFields: []string{"meaning"},
		},
		{
			name:       "register with bad email and short password",
			schema:     "register",
			doc:        `{"username":"u1","email":"not-an-email","password":"123"}`,
			wantFields: []string{"email", "password"},
		},
		{
			name:       "note with a key in the wrong case",
			schema:     "notes",
			doc:        `{"title":"t","content":"c","Category":"work"}`,
			wantFields: []string{"Category"},
		},
		{
			name:       "task with an undeclared field",
			schema:     "tasks",
			doc:        `{"title":"t","owner":"someone"}`,
			wantFields: []string{"owner"},
		},
		{
			name:       "array instead of object",
			schema:     "exam",
			doc:        `[]`,
			wantFields: []string{"body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := v.Validate(tt.schema, []byte(tt.doc))
			require.NoError(t, err)

			if len(tt.wantFields) == 0 {
				assert.Empty(t, fields)
				return
			}
			assert.Equal(t, tt.wantFields, fieldNames(fields))
		})
	}
}

func TestValidateRequiredMessage(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	fields, err := v.Validate("words", []byte(`{"meaning":"m"}`))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, model.FieldError{Field: "word", Message: "is required"}, fields[0])
}

func TestValidateUnknownPropertyMessage(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	fields, err := v.Validate("words", []byte(`{"word":"w","meaning":"m","Word":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, []model.FieldError{{Field: "Word", Message: "is not allowed"}}, fields)
}

func TestValidateStruct(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	fields, err := v.ValidateStruct("login", model.LoginRequest{Email: "u1@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"password"}, fieldNames(fields))
}

func TestValidateUnknownSchema(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	_, err = v.Validate("nope", []byte(`{}`))
	assert.Error(t, err)
}
