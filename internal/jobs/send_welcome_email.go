// Package jobs contains background job handlers run by the worker.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leadwithheart/coach/internal/email"
	"github.com/leadwithheart/coach/internal/repository"
	"github.com/leadwithheart/coach/internal/worker"
)

// SendWelcomeEmailHandler delivers the welcome email for new signups. The
// payload carries only the user ID; the address and display name are read
// fresh so a pre-send profile edit is reflected.
type SendWelcomeEmailHandler struct {
	queries *repository.Queries
	mailer  email.EmailService
	logger  *slog.Logger
}

// NewSendWelcomeEmailHandler creates a new handler for welcome email jobs.
func NewSendWelcomeEmailHandler(
	queries *repository.Queries,
	mailer email.EmailService,
	logger *slog.Logger,
) *SendWelcomeEmailHandler {
	return &SendWelcomeEmailHandler{
		queries: queries,
		mailer:  mailer,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *SendWelcomeEmailHandler) Type() string {
	return worker.JobTypeSendWelcomeEmail
}

// Handle sends the welcome email for the user named in the payload.
func (h *SendWelcomeEmailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SendWelcomeEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	user, err := h.queries.GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Account deleted before the job ran; nothing to send.
			return worker.NewPermanentError(fmt.Errorf("user not found: %w", err))
		}
		return fmt.Errorf("fetch user: %w", err)
	}

	profile, err := h.queries.GetProfileByUserID(ctx, p.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("fetch profile: %w", err)
	}

	if err := h.mailer.SendWelcomeEmail(ctx, user.Email, user.DisplayName(profile)); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	h.logger.Info("Welcome email sent", "user_id", p.UserID)
	return nil
}
