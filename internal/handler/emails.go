// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements email draft endpoints.
//
// Routes handled:
//   - GET    /api/emails      -> ListDrafts
//   - POST   /api/emails      -> CreateDraft
//   - GET    /api/emails/{id} -> GetDraft
//   - PUT    /api/emails/{id} -> UpdateDraft
//   - DELETE /api/emails/{id} -> DeleteDraft
package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/repository"
)

// EmailHandler handles email draft HTTP requests.
type EmailHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(queries *repository.Queries, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{
		queries: queries,
		logger:  logger,
	}
}

// RegisterRoutes registers email draft routes on the provided mux.
func (h *EmailHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/emails", requireUser(http.HandlerFunc(h.ListDrafts)))
	mux.Handle("POST /api/emails", requireUser(http.HandlerFunc(h.CreateDraft)))
	mux.Handle("GET /api/emails/{id}", requireUser(http.HandlerFunc(h.GetDraft)))
	mux.Handle("PUT /api/emails/{id}", requireUser(http.HandlerFunc(h.UpdateDraft)))
	mux.Handle("DELETE /api/emails/{id}", requireUser(http.HandlerFunc(h.DeleteDraft)))
}

// =============================================================================
// Request Types
// =============================================================================

type draftRequest struct {
	Subject   *string `json:"subject"`
	Recipient *string `json:"recipient"`
	Content   *string `json:"content"`
	Type      *string `json:"type"`
}

// =============================================================================
// Handlers
// =============================================================================

// ListDrafts returns the caller's email drafts, newest first.
func (h *EmailHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	drafts, err := h.queries.ListEmailDrafts(r.Context(), user.ID)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if drafts == nil {
		drafts = []domain.EmailDraft{}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"emails": drafts})
}

// CreateDraft saves an email draft.
func (h *EmailHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	content := ""
	if req.Content != nil {
		content = *req.Content
	}
	if strings.TrimSpace(content) == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Content is required"))
		return
	}

	subject, recipient := "", ""
	if req.Subject != nil {
		subject = *req.Subject
	}
	if req.Recipient != nil {
		recipient = *req.Recipient
	}

	draft, err := h.queries.CreateEmailDraft(r.Context(), user.ID, subject, recipient, content, req.Type)
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, draft)
}

// GetDraft returns one of the caller's drafts.
func (h *EmailHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid draft id"))
		return
	}

	draft, err := h.queries.GetEmailDraft(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, draft)
}

// UpdateDraft patches one of the caller's drafts.
func (h *EmailHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid draft id"))
		return
	}

	var req draftRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	draft, err := h.queries.UpdateEmailDraft(r.Context(), id, user.ID, domain.EmailDraftParams{
		Subject:   req.Subject,
		Recipient: req.Recipient,
		Content:   req.Content,
		Type:      req.Type,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			NotFoundResponse(w, r, h.logger)
			return
		}
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, draft)
}

// DeleteDraft removes one of the caller's drafts.
func (h *EmailHandler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid draft id"))
		return
	}

	deleted, err := h.queries.DeleteEmailDraft(r.Context(), id, user.ID)
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
