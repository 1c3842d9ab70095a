// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements difficult-conversation practice history endpoints.
//
// Routes handled:
//   - GET    /api/conversations      -> ListConversations
//   - GET    /api/conversations/{id} -> GetConversation
//   - DELETE /api/conversations/{id} -> DeleteConversation
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/repository"
)

// PracticeHandler handles practice-history HTTP requests.
// New history rows are created by the analysis endpoint, not here.
type PracticeHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(queries *repository.Queries, logger *slog.Logger) *PracticeHandler {
	return &PracticeHandler{
		queries: queries,
		logger:  logger,
	}
}

// RegisterRoutes registers practice-history routes on the provided mux.
func (h *PracticeHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/conversations", requireUser(http.HandlerFunc(h.ListConversations)))
	mux.Handle("GET /api/conversations/{id}", requireUser(http.HandlerFunc(h.GetConversation)))
	mux.Handle("DELETE /api/conversations/{id}", requireUser(http.HandlerFunc(h.DeleteConversation)))
}

// ListConversations returns the caller's practice history, newest first.
func (h *PracticeHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	convos, err := h.queries.ListDifficultConversations(r.Context(), user.ID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if convos == nil {
		convos = []domain.DifficultConversation{}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"conversations": convos})
}

// GetConversation returns one practice record with its full feedback.
func (h *PracticeHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid conversation id"))
		return
	}

	convo, err := h.queries.GetDifficultConversation(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, convo)
}

// DeleteConversation removes a practice record.
func (h *PracticeHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid conversation id"))
		return
	}

	deleted, err := h.queries.DeleteDifficultConversation(r.Context(), id, user.ID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if !deleted {
		NotFoundResponse(w, r, h.logger)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"deleted": true})
}
