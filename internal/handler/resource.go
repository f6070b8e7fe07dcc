package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"

	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/service"
)

// ResourceHandler serves the CRUD routes of one document kind.
type ResourceHandler[T any, PT model.Doc[T]] struct {
	service *service.ResourceService[T, PT]
}

// NewResourceHandler creates a new ResourceHandler.
func NewResourceHandler[T any, PT model.Doc[T]](svc *service.ResourceService[T, PT]) *ResourceHandler[T, PT] {
	return &ResourceHandler[T, PT]{service: svc}
}

// Routes mounts the kind's routes on r:
//
//	GET    /         list, gzip-compressed when the client accepts it
//	POST   /         create
//	PUT    /{id}     partial update
//	DELETE /{id}     delete
func (h *ResourceHandler[T, PT]) Routes(r chi.Router) {
	r.Method(http.MethodGet, "/", handlers.CompressHandler(http.HandlerFunc(h.HandleList)))
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

// HandleList handles GET /api/<kind> requests.
func (h *ResourceHandler[T, PT]) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := userOrAbort(w, r)
	if !ok {
		return
	}

	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// HandleCreate handles POST /api/<kind> requests.
func (h *ResourceHandler[T, PT]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userOrAbort(w, r)
	if !ok {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.service.Create(r.Context(), userID, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// HandleBatch handles POST /api/<kind>/batch requests.
func (h *ResourceHandler[T, PT]) HandleBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := userOrAbort(w, r)
	if !ok {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	docs, err := h.service.CreateMany(r.Context(), userID, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, docs)
}

// HandleUpdate handles PUT /api/<kind>/{id} requests.
func (h *ResourceHandler[T, PT]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userOrAbort(w, r)
	if !ok {
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// HandleDelete handles DELETE /api/<kind>/{id} requests.
func (h *ResourceHandler[T, PT]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userOrAbort(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteResponse{
		Message: fmt.Sprintf("%s removed", h.service.Kind().Label),
		ID:      id,
	})
}
