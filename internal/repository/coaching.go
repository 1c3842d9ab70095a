package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/leadwithheart/coach/internal/domain"
)

const sessionColumns = `id, user_id, session_type, challenge, desired_outcome, insights, action_items, feedback, session_duration, created_at, updated_at`

const listCoachingSessions = `
SELECT ` + sessionColumns + `
FROM coaching_sessions
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListCoachingSessions(ctx context.Context, userID uuid.UUID) ([]domain.CoachingSession, error) {
	rows, err := q.db.QueryContext(ctx, listCoachingSessions, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.CoachingSession
	for rows.Next() {
		s, err := scanCoachingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

const getCoachingSession = `
SELECT ` + sessionColumns + `
FROM coaching_sessions
WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetCoachingSession(ctx context.Context, id, userID uuid.UUID) (*domain.CoachingSession, error) {
	row := q.db.QueryRowContext(ctx, getCoachingSession, id, userID)
	return scanCoachingSession(row)
}

const createCoachingSession = `
INSERT INTO coaching_sessions (user_id, session_type, challenge, desired_outcome, insights, action_items, feedback, session_duration)
VALUES ($1, COALESCE($2, 'general'), COALESCE($3, ''), COALESCE($4, ''), $5, $6, $7, $8)
RETURNING ` + sessionColumns

func (q *Queries) CreateCoachingSession(ctx context.Context, userID uuid.UUID, p domain.CoachingSessionParams) (*domain.CoachingSession, error) {
	row := q.db.QueryRowContext(ctx, createCoachingSession,
		userID,
		nullString(p.SessionType),
		nullString(p.Challenge),
		nullString(p.DesiredOutcome),
		pq.Array(orEmpty(p.Insights)),
		pq.Array(orEmpty(p.ActionItems)),
		nullString(p.Feedback),
		nullInt(p.SessionMinutes),
	)
	return scanCoachingSession(row)
}

const updateCoachingSession = `
UPDATE coaching_sessions SET
	session_type = COALESCE($3, session_type),
	challenge = COALESCE($4, challenge),
	desired_outcome = COALESCE($5, desired_outcome),
	insights = COALESCE($6, insights),
	action_items = COALESCE($7, action_items),
	feedback = COALESCE($8, feedback),
	session_duration = COALESCE($9, session_duration),
	updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + sessionColumns

func (q *Queries) UpdateCoachingSession(ctx context.Context, id, userID uuid.UUID, p domain.CoachingSessionParams) (*domain.CoachingSession, error) {
	row := q.db.QueryRowContext(ctx, updateCoachingSession,
		id, userID,
		nullString(p.SessionType),
		nullString(p.Challenge),
		nullString(p.DesiredOutcome),
		nullArray(p.Insights),
		nullArray(p.ActionItems),
		nullString(p.Feedback),
		nullInt(p.SessionMinutes),
	)
	return scanCoachingSession(row)
}

const deleteCoachingSession = `
DELETE FROM coaching_sessions
WHERE id = $1 AND user_id = $2
`

func (q *Queries) DeleteCoachingSession(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, deleteCoachingSession, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanCoachingSession(row interface {
	Scan(dest ...interface{}) error
}) (*domain.CoachingSession, error) {
	var (
		s        domain.CoachingSession
		feedback sql.NullString
		minutes  sql.NullInt32
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.SessionType, &s.Challenge, &s.DesiredOutcome,
		pq.Array(&s.Insights), pq.Array(&s.ActionItems),
		&feedback, &minutes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Feedback = domain.NullStringValue(feedback)
	if minutes.Valid {
		m := int(minutes.Int32)
		s.SessionMinutes = &m
	}
	return &s, nil
}

const conversationColumns = `id, user_id, assistant_id, thread_id, conversation_state, is_active, last_message_at, created_at, updated_at`

const listCoachingConversations = `
SELECT ` + conversationColumns + `
FROM coaching_conversations
WHERE user_id = $1
ORDER BY last_message_at DESC NULLS LAST, created_at DESC
`

func (q *Queries) ListCoachingConversations(ctx context.Context, userID uuid.UUID) ([]domain.CoachingConversation, error) {
	rows, err := q.db.QueryContext(ctx, listCoachingConversations, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convos []domain.CoachingConversation
	for rows.Next() {
		c, err := scanCoachingConversation(rows)
		if err != nil {
			return nil, err
		}
		convos = append(convos, *c)
	}
	return convos, rows.Err()
}

// UpsertConversationParams carries client-owned thread state.
type UpsertConversationParams struct {
	UserID        uuid.UUID
	AssistantID   string
	ThreadID      string
	State         json.RawMessage
	IsActive      bool
	LastMessageAt time.Time
}

const upsertCoachingConversation = `
INSERT INTO coaching_conversations (user_id, assistant_id, thread_id, conversation_state, is_active, last_message_at)
VALUES ($1, $2, $3, COALESCE($4, '{}'::jsonb), $5, $6)
ON CONFLICT (user_id, thread_id) DO UPDATE SET
	conversation_state = EXCLUDED.conversation_state,
	is_active = EXCLUDED.is_active,
	last_message_at = EXCLUDED.last_message_at,
	updated_at = now()
RETURNING ` + conversationColumns

func (q *Queries) UpsertCoachingConversation(ctx context.Context, p UpsertConversationParams) (*domain.CoachingConversation, error) {
	row := q.db.QueryRowContext(ctx, upsertCoachingConversation,
		p.UserID, p.AssistantID, p.ThreadID, nullJSON(p.State), p.IsActive, p.LastMessageAt,
	)
	return scanCoachingConversation(row)
}

func scanCoachingConversation(row interface {
	Scan(dest ...interface{}) error
}) (*domain.CoachingConversation, error) {
	var (
		c           domain.CoachingConversation
		assistantID sql.NullString
		threadID    sql.NullString
		state       []byte
		lastMessage sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &assistantID, &threadID, &state, &c.IsActive, &lastMessage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.AssistantID = domain.NullStringValue(assistantID)
	c.ThreadID = domain.NullStringValue(threadID)
	c.State = json.RawMessage(state)
	c.LastMessageAt = domain.NullTimeValue(lastMessage)
	return &c, nil
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

// nullArray returns a NULL parameter for a nil slice so COALESCE keeps the
// stored value on partial updates.
func nullArray(ss []string) interface{} {
	if ss == nil {
		return nil
	}
	return pq.Array(ss)
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
