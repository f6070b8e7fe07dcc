package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studydesk/studydesk-api/internal/crypto"
	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/repository/memstore"
	"github.com/studydesk/studydesk-api/internal/schema"
	"github.com/studydesk/studydesk-api/internal/service"
)

type testAPI struct {
	t      *testing.T
	router http.Handler
	tokens *crypto.TokenService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	validator, err := schema.New()
	require.NoError(t, err)
	hasher, err := crypto.NewHasher(crypto.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	tokens := crypto.NewTokenService("test-secret", time.Hour)
	store := memstore.New()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := NewRouter(ctx, RouterOptions{
		Tokens:        tokens,
		AuthRateRPS:   1000,
		AuthRateBurst: 1000,
	}, Services{
		Auth:   service.NewAuthService(store.Users, hasher, tokens, validator),
		Tasks:  service.NewResourceService[model.Task](model.KindTask, store.Tasks, validator),
		Events: service.NewResourceService[model.CalendarEvent](model.KindEvent, store.Events, validator),
		Notes:  service.NewResourceService[model.Note](model.KindNote, store.Notes, validator),
		Exams:  service.NewResourceService[model.ExamItem](model.KindExam, store.Exams, validator),
		Words:  service.NewResourceService[model.WordCard](model.KindWord, store.Words, validator),
	})

	return &testAPI{t: t, router: router, tokens: tokens}
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	a.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// login registers username and returns a token for it.
func (a *testAPI) login(username string) string {
	a.t.Helper()

	email := username + "@x.com"
	rec := a.do(http.MethodPost, "/api/auth/register", "",
		`{"username":"`+username+`","email":"`+email+`","password":"secret1"}`)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"secret1"}`)
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNoteRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	rec := api.do(http.MethodPost, "/api/notes", token, `{"title":"t","content":"c"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created model.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "t", created.Title)

	rec = api.do(http.MethodGet, "/api/notes", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var notes []model.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, created.ID, notes[0].ID)
	assert.Equal(t, "t", notes[0].Title)
	assert.Equal(t, "c", notes[0].Content)
	assert.Equal(t, created.UserID, notes[0].UserID)
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	rec := api.do(http.MethodGet, "/api/auth", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "u1", user.Username)
	assert.Equal(t, "u1@x.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "argon2id")
}

func TestLegacyTokenHeader(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("x-auth-token", token)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUnauthenticated(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/auth", "/api/tasks", "/api/calendar", "/api/notes", "/api/exam", "/api/words"} {
		rec := api.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		rec = api.do(http.MethodGet, path, "not-a-token", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisterErrors(t *testing.T) {
	api := newTestAPI(t)
	api.login("u1")

	rec := api.do(http.MethodPost, "/api/auth/register", "", `{"username":"u2","email":"u1@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrDuplicateIdentity.Error(), decodeError(t, rec).Error)

	rec = api.do(http.MethodPost, "/api/auth/register", "", `{"username":"u2","email":"bad","password":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Len(t, body.Fields, 2)
	assert.Equal(t, "email", body.Fields[0].Field)
	assert.Equal(t, "password", body.Fields[1].Field)

	rec = api.do(http.MethodPost, "/api/auth/register", "", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "body", decodeError(t, rec).Fields[0].Field)
}

func TestLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	api.login("u1")

	wrong := api.do(http.MethodPost, "/api/auth/login", "", `{"email":"u1@x.com","password":"wrong-password"}`)
	unknown := api.do(http.MethodPost, "/api/auth/login", "", `{"email":"nobody@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestCreateValidation(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	rec := api.do(http.MethodPost, "/api/notes", token, `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "validation failed", body.Error)
	require.Len(t, body.Fields, 2)
	assert.Equal(t, "content", body.Fields[0].Field)
	assert.Equal(t, "title", body.Fields[1].Field)
}

func TestUpdateAndDelete(t *testing.T) {
	api := newTestAPI(t)
	owner := api.login("u1")
	other := api.login("u2")

	rec := api.do(http.MethodPost, "/api/tasks", owner, `{"title":"write report","priority":"high"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var task model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	path := "/api/tasks/" + task.ID

	rec = api.do(http.MethodPut, path, other, `{"title":"hijacked"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPut, path, owner, `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.TaskDone, updated.Status)
	assert.Equal(t, "write report", updated.Title)
	assert.Equal(t, model.PriorityHigh, updated.Priority)

	rec = api.do(http.MethodDelete, path, other, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodDelete, path, owner, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted model.DeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, "task removed", deleted.Message)
	assert.Equal(t, task.ID, deleted.ID)

	rec = api.do(http.MethodDelete, path, owner, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPut, "/api/tasks/not-a-uuid", owner, `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWordsBatch(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	rec := api.do(http.MethodPost, "/api/words/batch", token, `[{"word":"apple","meaning":"fruit"},{"word":"pear"}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "[1].meaning", body.Fields[0].Field)

	rec = api.do(http.MethodGet, "/api/words", token, "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodPost, "/api/words/batch", token, `[{"word":"apple","meaning":"fruit"},{"word":"pear","meaning":"fruit"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var words []model.WordCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &words))
	assert.Len(t, words, 2)

	rec = api.do(http.MethodGet, "/api/words", token, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &words))
	assert.Len(t, words, 2)
}

func TestBodyTooLarge(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	big := `{"title":"t","content":"` + string(bytes.Repeat([]byte("a"), maxBodyBytes)) + `"}`
	rec := api.do(http.MethodPost, "/api/notes", token, big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListCompressed(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("u1")

	rec := api.do(http.MethodPost, "/api/exam", token, `{"question":"2+2","answer":"4","options":["3","4"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/exam", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept-Encoding", "gzip")
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)

	var items []model.ExamItem
	require.NoError(t, json.Unmarshal(plain, &items))
	require.Len(t, items, 1)
	assert.Equal(t, []string{"3", "4"}, items[0].Options)
}
