package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CoachingSession is one saved coaching engagement: the challenge the user
// brought, the outcome they wanted, and what the session produced.
type CoachingSession struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	SessionType    string     `json:"session_type"`
	Challenge      string     `json:"challenge"`
	DesiredOutcome string     `json:"desired_outcome"`
	Insights       []string   `json:"insights"`
	ActionItems    []string   `json:"action_items"`
	Feedback       string     `json:"feedback,omitempty"`
	SessionMinutes *int       `json:"session_duration,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CoachingSessionParams carries create/update input for a session. Nil
// fields are left unchanged on update and defaulted on create.
type CoachingSessionParams struct {
	SessionType    *string
	Challenge      *string
	DesiredOutcome *string
	Insights       []string
	ActionItems    []string
	Feedback       *string
	SessionMinutes *int
}

// CoachingConversation tracks an ongoing AI chat thread. State is an opaque
// JSON document owned by the client; the server only stores and returns it.
type CoachingConversation struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	AssistantID   string          `json:"assistant_id"`
	ThreadID      string          `json:"thread_id"`
	State         json.RawMessage `json:"conversation_state"`
	IsActive      bool            `json:"is_active"`
	LastMessageAt *time.Time      `json:"last_message_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
