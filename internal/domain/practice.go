package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DifficultConversation is one completed practice run: the setup the user
// chose, the dialogue they held with the AI counterpart, and the analysis
// that came back.
//
// KeyStrengths and ImprovementAreas are short bullet lists; the structured
// analysis blobs (metrics, detailed feedback, next steps, dialogue) are
// stored as raw JSON documents shaped by the client and the AI provider.
type DifficultConversation struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	RelationshipType   string          `json:"relationship_type"`
	ConversationTopic  string          `json:"conversation_topic"`
	DesiredOutcome     string          `json:"desired_outcome"`
	CommunicationStyle string          `json:"communication_style"`
	AdditionalContext  string          `json:"additional_context,omitempty"`
	Feedback           string          `json:"feedback,omitempty"`
	DetailedFeedback   json.RawMessage `json:"detailed_feedback,omitempty"`
	PerformanceMetrics json.RawMessage `json:"performance_metrics,omitempty"`
	KeyStrengths       []string        `json:"key_strengths"`
	ImprovementAreas   []string        `json:"improvement_areas"`
	NextSteps          json.RawMessage `json:"actionable_next_steps,omitempty"`
	Scenario           string          `json:"scenario,omitempty"`
	IntensityLevel     string          `json:"intensity_level,omitempty"`
	Role               string          `json:"role,omitempty"`
	DialogueHistory    json.RawMessage `json:"dialogue_history,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ConversationAnalysis is the distilled result of an AI practice analysis.
type ConversationAnalysis struct {
	Summary          string   `json:"summary"`
	KeyStrengths     []string `json:"key_strengths"`
	ImprovementAreas []string `json:"improvement_areas"`
	Score            int      `json:"score"`
}
