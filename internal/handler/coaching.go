// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements coaching session and conversation endpoints.
//
// Routes handled:
//   - GET    /api/coaching/sessions       -> ListSessions
//   - POST   /api/coaching/sessions       -> CreateSession
//   - GET    /api/coaching/sessions/{id}  -> GetSession
//   - PUT    /api/coaching/sessions/{id}  -> UpdateSession
//   - DELETE /api/coaching/sessions/{id}  -> DeleteSession
//   - GET    /api/coaching/conversations  -> ListConversations
//   - POST   /api/coaching/conversations  -> SaveConversation
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/repository"
)

// CoachingHandler handles coaching session HTTP requests.
//
// These are plain CRUD surfaces over the caller's own rows, so the handler
// talks to the query layer directly.
type CoachingHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewCoachingHandler creates a new CoachingHandler.
func NewCoachingHandler(queries *repository.Queries, logger *slog.Logger) *CoachingHandler {
	return &CoachingHandler{
		queries: queries,
		logger:  logger,
	}
}

// RegisterRoutes registers coaching routes on the provided mux.
func (h *CoachingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/coaching/sessions", requireUser(http.HandlerFunc(h.ListSessions)))
	mux.Handle("POST /api/coaching/sessions", requireUser(http.HandlerFunc(h.CreateSession)))
	mux.Handle("GET /api/coaching/sessions/{id}", requireUser(http.HandlerFunc(h.GetSession)))
	mux.Handle("PUT /api/coaching/sessions/{id}", requireUser(http.HandlerFunc(h.UpdateSession)))
	mux.Handle("DELETE /api/coaching/sessions/{id}", requireUser(http.HandlerFunc(h.DeleteSession)))
	mux.Handle("GET /api/coaching/conversations", requireUser(http.HandlerFunc(h.ListConversations)))
	mux.Handle("POST /api/coaching/conversations", requireUser(http.HandlerFunc(h.SaveConversation)))
}

// =============================================================================
// Request Types
// =============================================================================

type sessionRequest struct {
	SessionType    *string  `json:"session_type"`
	Challenge      *string  `json:"challenge"`
	DesiredOutcome *string  `json:"desired_outcome"`
	Insights       []string `json:"insights"`
	ActionItems    []string `json:"action_items"`
	Feedback       *string  `json:"feedback"`
	SessionMinutes *int     `json:"session_duration"`
}

func (req *sessionRequest) toParams() domain.CoachingSessionParams {
	return domain.CoachingSessionParams{
		SessionType:    req.SessionType,
		Challenge:      req.Challenge,
		DesiredOutcome: req.DesiredOutcome,
		Insights:       req.Insights,
		ActionItems:    req.ActionItems,
		Feedback:       req.Feedback,
		SessionMinutes: req.SessionMinutes,
	}
}

type conversationRequest struct {
	AssistantID string          `json:"assistant_id"`
	ThreadID    string          `json:"thread_id"`
	State       json.RawMessage `json:"conversation_state"`
	IsActive    *bool           `json:"is_active"`
}

// =============================================================================
// Session Handlers
// =============================================================================

// ListSessions returns the caller's coaching sessions, newest first.
func (h *CoachingHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	sessions, err := h.queries.ListCoachingSessions(r.Context(), user.ID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []domain.CoachingSession{}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// CreateSession records a coaching session.
func (h *CoachingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session, err := h.queries.CreateCoachingSession(r.Context(), user.ID, req.toParams())
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, session)
}

// GetSession returns one of the caller's sessions.
func (h *CoachingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid session id"))
		return
	}

	session, err := h.queries.GetCoachingSession(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, session)
}

// UpdateSession patches one of the caller's sessions.
func (h *CoachingHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid session id"))
		return
	}

	var req sessionRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session, err := h.queries.UpdateCoachingSession(r.Context(), id, user.ID, req.toParams())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, session)
}

// DeleteSession removes one of the caller's sessions.
func (h *CoachingHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid session id"))
		return
	}

	deleted, err := h.queries.DeleteCoachingSession(r.Context(), id, user.ID)
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

// =============================================================================
// Conversation Handlers
// =============================================================================

// ListConversations returns the caller's saved conversation threads.
func (h *CoachingHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	convos, err := h.queries.ListCoachingConversations(r.Context(), user.ID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if convos == nil {
		convos = []domain.CoachingConversation{}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"conversations": convos})
}

// SaveConversation upserts a conversation thread. The state document is
// opaque to the server; the client owns its shape.
func (h *CoachingHandler) SaveConversation(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req conversationRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.ThreadID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "thread_id is required"))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	convo, err := h.queries.UpsertCoachingConversation(r.Context(), repository.UpsertConversationParams{
		UserID:        user.ID,
		AssistantID:   req.AssistantID,
		ThreadID:      req.ThreadID,
		State:         req.State,
		IsActive:      isActive,
		LastMessageAt: time.Now(),
	})
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, convo)
}
