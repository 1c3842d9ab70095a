// Package handler contains HTTP handlers for the Leading with Heart API.
//
// Route:
//   - GET /api/quick-tips -> ListTips
package handler

import (
	"log/slog"
	"net/http"

	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/repository"
)

// TipsHandler serves the curated leadership quick tips.
type TipsHandler struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewTipsHandler creates a new TipsHandler.
func NewTipsHandler(queries *repository.Queries, logger *slog.Logger) *TipsHandler {
	return &TipsHandler{
		queries: queries,
		logger:  logger,
	}
}

// RegisterRoutes registers tip routes on the provided mux. Tips are public;
// no authentication required.
func (h *TipsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quick-tips", h.ListTips)
}

// ListTips returns the active tips, newest first.
func (h *TipsHandler) ListTips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.queries.ListActiveQuickTips(r.Context())
	if err != nil {
		InternalErrorResponse(w, r, h.logger, err)
		return
	}
	if tips == nil {
		tips = []domain.QuickTip{}
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{"tips": tips})
}
