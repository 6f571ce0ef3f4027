package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/AlekseyZapadovnikov/code-review/conf"
	"github.com/AlekseyZapadovnikov/code-review/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Address string
	server  *http.Server

	router  *chi.Mux
	reviews ReviewService
	jobs    Jobs
}

// New конструирует HTTP-сервер на базе chi и регистрирует все маршруты.
func New(cfg conf.HttpServConf, reviews ReviewService, jobs Jobs) *Server {
	servAdres := cfg.GetAddress()
	mux := chi.NewMux()
	srv := &Server{
		Address: servAdres,
		router:  mux,
		reviews: reviews,
		jobs:    jobs,
	}
	srv.server = &http.Server{
		Addr:              servAdres,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv.setupRoutes()

	return srv
}

// Start запускает HTTP-сервер и блокирует поток до остановки.
func (s *Server) Start() error {
	slog.Info("server starting", "address", s.server.Addr)
	return s.server.ListenAndServe()
}

// setupRoutes настраивает middleware и HTTP-маршруты.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	// Простейший health-check.
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Интерактивное ревью от имени текущего пользователя.
	s.router.Route("/scopes/{scope}/subjects/{id}", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/review", s.handleReviewOverview)
		r.Post("/review", s.handleMarkReviewed)
		r.Post("/startReview", s.handleStartReview)
		r.Get("/fastTrack", s.handleCheckFastTrack)
		r.Post("/fastTrack", s.handleFastTrack)
	})

	// Ручной запуск джоб.
	s.router.Post("/jobs/assign", s.handleRunJob("assign", s.jobs.Assign))
	s.router.Post("/jobs/check", s.handleRunJob("check", s.jobs.Check))
}

// Shutdown останавливает HTTP-сервер с таймаутом на корректное завершение.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ---------- утилитарные функции ----------

// writeJSON сериализует структуру в JSON-ответ с нужным статусом.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// mapDomainError переводит доменные ошибки в HTTP-статусы и коды ответа.
// Детали неизвестных ошибок остаются в логе сервера.
func mapDomainError(err error) (status int, code, msg string) {
	if err == nil {
		return http.StatusOK, "", ""
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, string(INVALIDREQUEST), err.Error()
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, string(INVALIDQUERY), err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, string(NOTFOUND), err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, string(UNAUTHORIZED), err.Error()
	case errors.Is(err, domain.ErrNotInReview):
		return http.StatusConflict, string(NOTINREVIEW), err.Error()
	case errors.Is(err, domain.ErrFastTrackDenied):
		return http.StatusConflict, string(FASTTRACKDENIED), err.Error()
	case errors.Is(err, domain.ErrTransitionUnavailable):
		return http.StatusConflict, string(TRANSITIONUNAVAILABLE), err.Error()
	case errors.Is(err, domain.ErrNoCandidate):
		return http.StatusConflict, string(NOCANDIDATE), err.Error()
	case errors.Is(err, domain.ErrConfig):
		return http.StatusInternalServerError, string(CONFIGURATIONERROR), err.Error()
	default:
		slog.Error("unmapped domain error", "err", err.Error())
		return http.StatusInternalServerError, string(INTERNALERROR), "internal error"
	}
}
