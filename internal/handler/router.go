package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/studydesk/studydesk-api/internal/crypto"
	"github.com/studydesk/studydesk-api/internal/middleware"
	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/service"
)

// Services bundles the business logic the router dispatches to.
type Services struct {
	Auth   *service.AuthService
	Tasks  *service.ResourceService[model.Task, *model.Task]
	Events *service.ResourceService[model.CalendarEvent, *model.CalendarEvent]
	Notes  *service.ResourceService[model.Note, *model.Note]
	Exams  *service.ResourceService[model.ExamItem, *model.ExamItem]
	Words  *service.ResourceService[model.WordCard, *model.WordCard]
}

// RouterOptions configures the cross-cutting middleware.
type RouterOptions struct {
	Tokens         *crypto.TokenService
	AllowedOrigins []string
	AuthRateRPS    float64
	AuthRateBurst  int
}

// NewRouter builds the HTTP API. ctx bounds background work such as the
// rate limiter's cleanup.
func NewRouter(ctx context.Context, opts RouterOptions, svc Services) http.Handler {
	authHandler := NewAuthHandler(svc.Auth)
	words := NewResourceHandler(svc.Words)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ctx, opts.AuthRateRPS, opts.AuthRateBurst))
		r.Post("/api/auth/register", authHandler.HandleRegister)
		r.Post("/api/auth/login", authHandler.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(opts.Tokens))
		r.Get("/api/auth", authHandler.HandleMe)

		r.Route("/api/tasks", NewResourceHandler(svc.Tasks).Routes)
		r.Route("/api/calendar", NewResourceHandler(svc.Events).Routes)
		r.Route("/api/notes", NewResourceHandler(svc.Notes).Routes)
		r.Route("/api/exam", NewResourceHandler(svc.Exams).Routes)
		r.Route("/api/words", func(r chi.Router) {
			words.Routes(r)
			r.Post("/batch", words.HandleBatch)
		})
	})

	return r
}
