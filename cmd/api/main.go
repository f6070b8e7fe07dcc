package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studydesk/studydesk-api/internal/config"
	"github.com/studydesk/studydesk-api/internal/crypto"
	"github.com/studydesk/studydesk-api/internal/handler"
	"github.com/studydesk/studydesk-api/internal/model"
	"github.com/studydesk/studydesk-api/internal/repository"
	"github.com/studydesk/studydesk-api/internal/repository/memstore"
	"github.com/studydesk/studydesk-api/internal/schema"
	"github.com/studydesk/studydesk-api/internal/service"
)

// stores is the backend selected by STORE.
type stores struct {
	io.Closer
	users  service.UserStore
	tasks  service.DocumentStore[model.Task]
	events service.DocumentStore[model.CalendarEvent]
	notes  service.DocumentStore[model.Note]
	exams  service.DocumentStore[model.ExamItem]
	words  service.DocumentStore[model.WordCard]
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		s := memstore.New()
		return &stores{Closer: s, users: s.Users, tasks: s.Tasks, events: s.Events, notes: s.Notes, exams: s.Exams, words: s.Words}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s, err := repository.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return &stores{Closer: s, users: s.Users, tasks: s.Tasks, events: s.Events, notes: s.Notes, exams: s.Exams, words: s.Words}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		stop()
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled or the listener fails. Every
// resource it opens is released before it returns.
func run(ctx context.Context, cfg config.Config) error {
	validator, err := schema.New()
	if err != nil {
		return fmt.Errorf("loading schemas: %w", err)
	}

	hasher, err := crypto.NewHasher(cfg.HashParams())
	if err != nil {
		return fmt.Errorf("initializing password hasher: %w", err)
	}
	tokens := crypto.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	router := handler.NewRouter(ctx, handler.RouterOptions{
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins(),
		AuthRateRPS:    cfg.AuthRateRPS,
		AuthRateBurst:  cfg.AuthRateBurst,
	}, handler.Services{
		Auth:   service.NewAuthService(st.users, hasher, tokens, validator),
		Tasks:  service.NewResourceService[model.Task](model.KindTask, st.tasks, validator),
		Events: service.NewResourceService[model.CalendarEvent](model.KindEvent, st.events, validator),
		Notes:  service.NewResourceService[model.Note](model.KindNote, st.notes, validator),
		Exams:  service.NewResourceService[model.ExamItem](model.KindExam, st.exams, validator),
		Words:  service.NewResourceService[model.WordCard](model.KindWord, st.words, validator),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
