package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"

	"github.com/go-chi/chi/v5"
)

// UserHeader заголовок с идентификатором текущего пользователя.
const UserHeader = "X-User-Id"

type userCtxKey struct{}

// requireUser кладёт текущего пользователя в контекст запроса.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			writeError(w, http.StatusUnauthorized, string(UNAUTHORIZED), UserHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
	})
}

// currentUser возвращает пользователя, положенного requireUser.
func currentUser(r *http.Request) string {
	user, _ := r.Context().Value(userCtxKey{}).(string)
	return user
}

// handleReviewOverview отдаёт состояние ревью объекта.
func (s *Server) handleReviewOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.reviews.Overview(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "id"), currentUser(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

// handleMarkReviewed отмечает ревизии просмотренными.
func (s *Server) handleMarkReviewed(w http.ResponseWriter, r *http.Request) {
	var p models.PostReviewJSONBody
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, string(INVALIDPAYLOAD), "invalid json payload")
		return
	}
	if !p.All && len(p.Revisions) == 0 && p.WorkflowAction == models.WorkflowActionNone && p.Comment == "" {
		writeError(w, http.StatusBadRequest, string(MISSINGPARAM), "revisions, all, workflowAction or comment is required")
		return
	}

	err := s.reviews.MarkReviewed(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "id"), currentUser(r), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartReview закрепляет объект за текущим пользователем.
func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.StartReview(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "id"), currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckFastTrack проверяет условие fast-track.
func (s *Server) handleCheckFastTrack(w http.ResponseWriter, r *http.Request) {
	check, err := s.reviews.CheckFastTrack(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// handleFastTrack выполняет fast-track ревью.
func (s *Server) handleFastTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.reviews.FastTrack(r.Context(), chi.URLParam(r, "scope"), chi.URLParam(r, "id"), currentUser(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRunJob запускает джобу и возвращает её статус; ошибка джобы передаётся в статусе.
func (s *Server) handleRunJob(name string, job Job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job == nil {
			writeError(w, http.StatusNotFound, string(NOTFOUND), "job "+name+" is not configured")
			return
		}
		writeJSON(w, http.StatusOK, job.Run(r.Context()))
	}
}
