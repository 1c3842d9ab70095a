package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadwithheart/coach/internal/domain"
)

const practiceColumns = `id, user_id, relationship_type, conversation_topic, desired_outcome, communication_style,
	additional_context, feedback, detailed_feedback, performance_metrics, key_strengths, improvement_areas,
	actionable_next_steps, scenario, intensity_level, role, dialogue_history, created_at, updated_at`

const listDifficultConversations = `
SELECT ` + practiceColumns + `
FROM difficult_conversation_history
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListDifficultConversations(ctx context.Context, userID uuid.UUID) ([]domain.DifficultConversation, error) {
	rows, err := q.db.QueryContext(ctx, listDifficultConversations, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convos []domain.DifficultConversation
	for rows.Next() {
		c, err := scanDifficultConversation(rows)
		if err != nil {
			return nil, err
		}
		convos = append(convos, *c)
	}
	return convos, rows.Err()
}

const getDifficultConversation = `
SELECT ` + practiceColumns + `
FROM difficult_conversation_history
WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetDifficultConversation(ctx context.Context, id, userID uuid.UUID) (*domain.DifficultConversation, error) {
	row := q.db.QueryRowContext(ctx, getDifficultConversation, id, userID)
	return scanDifficultConversation(row)
}

// CreateDifficultConversationParams carries a full practice record.
type CreateDifficultConversationParams struct {
	UserID             uuid.UUID
	RelationshipType   string
	ConversationTopic  string
	DesiredOutcome     string
	CommunicationStyle string
	AdditionalContext  string
	Feedback           string
	DetailedFeedback   json.RawMessage
	PerformanceMetrics json.RawMessage
	KeyStrengths       []string
	ImprovementAreas   []string
	NextSteps          json.RawMessage
	Scenario           string
	IntensityLevel     string
	Role               string
	DialogueHistory    json.RawMessage
}

const createDifficultConversation = `
INSERT INTO difficult_conversation_history (
	user_id, relationship_type, conversation_topic, desired_outcome, communication_style,
	additional_context, feedback, detailed_feedback, performance_metrics,
	key_strengths, improvement_areas, actionable_next_steps,
	scenario, intensity_level, role, dialogue_history
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9::jsonb, $10, $11, $12::jsonb, $13, $14, $15, $16::jsonb)
RETURNING ` + practiceColumns

func (q *Queries) CreateDifficultConversation(ctx context.Context, p CreateDifficultConversationParams) (*domain.DifficultConversation, error) {
	row := q.db.QueryRowContext(ctx, createDifficultConversation,
		p.UserID, p.RelationshipType, p.ConversationTopic, p.DesiredOutcome, p.CommunicationStyle,
		domain.ToNullString(p.AdditionalContext),
		domain.ToNullString(p.Feedback),
		nullJSON(p.DetailedFeedback),
		nullJSON(p.PerformanceMetrics),
		pq.Array(orEmpty(p.KeyStrengths)),
		pq.Array(orEmpty(p.ImprovementAreas)),
		nullJSON(p.NextSteps),
		domain.ToNullString(p.Scenario),
		domain.ToNullString(p.IntensityLevel),
		domain.ToNullString(p.Role),
		nullJSON(p.DialogueHistory),
	)
	return scanDifficultConversation(row)
}

const deleteDifficultConversation = `
DELETE FROM difficult_conversation_history
WHERE id = $1 AND user_id = $2
`

func (q *Queries) DeleteDifficultConversation(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, deleteDifficultConversation, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanDifficultConversation(row interface {
	Scan(dest ...interface{}) error
}) (*domain.DifficultConversation, error) {
	var (
		c                 domain.DifficultConversation
		additionalContext sql.NullString
		feedback          sql.NullString
		detailedFeedback  []byte
		metrics           []byte
		nextSteps         []byte
		scenario          sql.NullString
		intensity         sql.NullString
		role              sql.NullString
		dialogue          []byte
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.RelationshipType, &c.ConversationTopic, &c.DesiredOutcome, &c.CommunicationStyle,
		&additionalContext, &feedback, &detailedFeedback, &metrics,
		pq.Array(&c.KeyStrengths), pq.Array(&c.ImprovementAreas),
		&nextSteps, &scenario, &intensity, &role, &dialogue,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.AdditionalContext = domain.NullStringValue(additionalContext)
	c.Feedback = domain.NullStringValue(feedback)
	c.DetailedFeedback = json.RawMessage(detailedFeedback)
	c.PerformanceMetrics = json.RawMessage(metrics)
	c.NextSteps = json.RawMessage(nextSteps)
	c.Scenario = domain.NullStringValue(scenario)
	c.IntensityLevel = domain.NullStringValue(intensity)
	c.Role = domain.NullStringValue(role)
	c.DialogueHistory = json.RawMessage(dialogue)
	return &c, nil
}
