package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmailDraft is a generated or hand-written leadership email saved by a
// user. Type is a free-form category ("general", "feedback", "recognition").
type EmailDraft struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Subject   string    `json:"subject"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailDraftParams carries create/update input. Nil fields are left
// unchanged on update.
type EmailDraftParams struct {
	Subject   *string
	Recipient *string
	Content   *string
	Type      *string
}
