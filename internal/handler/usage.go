// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements the usage-limit endpoints.
//
// Routes handled:
//   - GET  /api/usage-limits           -> GetUsage
//   - POST /api/usage-limits/increment -> IncrementUsage
//   - GET  /api/usage-limits/all       -> ListAllUsage (admin)
//   - PUT  /api/usage-limits/{userId}  -> OverrideUsage (admin)
package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/service"
)

// UsageHandler handles usage-limit HTTP requests.
type UsageHandler struct {
	usage         service.UsageService
	subscriptions service.SubscriptionService
	logger        *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usage service.UsageService, subscriptions service.SubscriptionService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		usage:         usage,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// RegisterRoutes registers usage routes on the provided mux.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/usage-limits", requireUser(http.HandlerFunc(h.GetUsage)))
	mux.Handle("POST /api/usage-limits/increment", requireUser(http.HandlerFunc(h.IncrementUsage)))
	mux.Handle("GET /api/usage-limits/all", requireAdmin(http.HandlerFunc(h.ListAllUsage)))
	mux.Handle("PUT /api/usage-limits/{userId}", requireAdmin(http.HandlerFunc(h.OverrideUsage)))
}

// =============================================================================
// Request / Response Types
// =============================================================================

type usageResponse struct {
	Usage  *domain.UsageRecord       `json:"usage"`
	Limits map[domain.ActionType]int `json:"limits"`
	Tier   domain.Tier               `json:"tier"`
}

type incrementRequest struct {
	Type string `json:"type"`
}

type overrideRequest struct {
	EmailGenerationsToday       *int `json:"email_generations_today"`
	CoachingSessionsToday       *int `json:"coaching_sessions_today"`
	DifficultConversationsToday *int `json:"difficult_conversations_today"`
	ResetAll                    bool `json:"reset_all"`
}

// =============================================================================
// Handlers
// =============================================================================

// GetUsage returns the caller's current usage counters.
// Reading is the only operation that applies the daily reset.
func (h *UsageHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	record, err := h.usage.GetCurrentUsage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tier, err := h.subscriptions.CurrentTier(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, usageResponse{
		Usage:  record,
		Limits: domain.FreeTierLimits,
		Tier:   tier,
	})
}

// IncrementUsage bumps one of the caller's counters.
// It never creates a missing ledger row and never resets.
func (h *UsageHandler) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req incrementRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	record, err := h.usage.Increment(r.Context(), user.ID, domain.ActionType(req.Type))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"usage": record})
}

// ListAllUsage returns the per-user aggregate view for the admin dashboard.
func (h *UsageHandler) ListAllUsage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.usage.ListUserStats(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"users": stats})
}

// OverrideUsage applies an admin patch to a user's counters.
func (h *UsageHandler) OverrideUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Invalid user id"))
		return
	}

	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	record, err := h.usage.Override(r.Context(), userID, domain.UsageOverride{
		EmailGenerationsToday:       req.EmailGenerationsToday,
		CoachingSessionsToday:       req.CoachingSessionsToday,
		DifficultConversationsToday: req.DifficultConversationsToday,
		ResetAll:                    req.ResetAll,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("usage override applied",
		"admin_id", auth.GetUser(r.Context()).ID,
		"user_id", userID,
		"reset_all", req.ResetAll,
	)

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"usage": record})
}
