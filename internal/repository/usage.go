package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
)

const usageColumns = `user_id, email_generations_today, coaching_sessions_today, difficult_conversations_today,
	email_generations_last_reset, coaching_sessions_last_reset, difficult_conversations_last_reset, updated_at`

const getUsageByUserID = `
SELECT ` + usageColumns + `
FROM users_limits
WHERE user_id = $1
`

func (q *Queries) GetUsageByUserID(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, getUsageByUserID, userID)
	return scanUsage(row)
}

const createUsage = `
INSERT INTO users_limits (
	user_id, email_generations_today, coaching_sessions_today, difficult_conversations_today,
	email_generations_last_reset, coaching_sessions_last_reset, difficult_conversations_last_reset
)
VALUES ($1, 0, 0, 0, now(), now(), now())
ON CONFLICT (user_id) DO NOTHING
`

// CreateUsage inserts a zeroed ledger row for the user. Racing inserts are
// harmless; the statement is a no-op when the row already exists.
func (q *Queries) CreateUsage(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, createUsage, userID)
	return err
}

// counterColumns maps actions to their counter column. Column names come
// from this fixed table, never from request input.
var counterColumns = map[domain.ActionType]string{
	domain.ActionEmail:                 "email_generations_today",
	domain.ActionCoaching:              "coaching_sessions_today",
	domain.ActionDifficultConversation: "difficult_conversations_today",
}

// IncrementUsage bumps one counter in a single atomic statement. It returns
// sql.ErrNoRows when the user has no ledger row; it never creates one.
func (q *Queries) IncrementUsage(ctx context.Context, userID uuid.UUID, action domain.ActionType) (*domain.UsageRecord, error) {
	col, ok := counterColumns[action]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", action)
	}
	query := fmt.Sprintf(`
UPDATE users_limits SET
	%[1]s = %[1]s + 1,
	updated_at = now()
WHERE user_id = $1
RETURNING `+usageColumns, col)
	row := q.db.QueryRowContext(ctx, query, userID)
	return scanUsage(row)
}

const resetUsage = `
INSERT INTO users_limits (
	user_id, email_generations_today, coaching_sessions_today, difficult_conversations_today,
	email_generations_last_reset, coaching_sessions_last_reset, difficult_conversations_last_reset
)
VALUES ($1, 0, 0, 0, now(), now(), now())
ON CONFLICT (user_id) DO UPDATE SET
	email_generations_today = 0,
	coaching_sessions_today = 0,
	difficult_conversations_today = 0,
	email_generations_last_reset = now(),
	coaching_sessions_last_reset = now(),
	difficult_conversations_last_reset = now(),
	updated_at = now()
RETURNING ` + usageColumns

// ResetUsage zeroes all three counters and stamps all three resets in one
// statement, creating the row if it does not exist yet.
func (q *Queries) ResetUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, resetUsage, userID)
	return scanUsage(row)
}

const overrideUsage = `
INSERT INTO users_limits (
	user_id, email_generations_today, coaching_sessions_today, difficult_conversations_today,
	email_generations_last_reset, coaching_sessions_last_reset, difficult_conversations_last_reset
)
VALUES ($1, COALESCE($2, 0), COALESCE($3, 0), COALESCE($4, 0), now(), now(), now())
ON CONFLICT (user_id) DO UPDATE SET
	email_generations_today = COALESCE($2, users_limits.email_generations_today),
	coaching_sessions_today = COALESCE($3, users_limits.coaching_sessions_today),
	difficult_conversations_today = COALESCE($4, users_limits.difficult_conversations_today),
	updated_at = now()
RETURNING ` + usageColumns

// OverrideUsage patches the supplied counters, leaving omitted counters and
// every reset stamp untouched. Missing rows are created with omitted
// counters defaulting to zero.
func (q *Queries) OverrideUsage(ctx context.Context, userID uuid.UUID, o domain.UsageOverride) (*domain.UsageRecord, error) {
	row := q.db.QueryRowContext(ctx, overrideUsage,
		userID,
		nullInt(o.EmailGenerationsToday),
		nullInt(o.CoachingSessionsToday),
		nullInt(o.DifficultConversationsToday),
	)
	return scanUsage(row)
}

const listUserUsageStats = `
SELECT
	u.id, u.email, COALESCE(p.full_name, ''),
	COALESCE(l.email_generations_today, 0),
	COALESCE(l.coaching_sessions_today, 0),
	COALESCE(l.difficult_conversations_today, 0),
	l.email_generations_last_reset,
	COALESCE(s.status, 'free'),
	COALESCE(s.plan, 'free'),
	s.current_period_end
FROM users u
LEFT JOIN profiles p ON p.user_id = u.id
LEFT JOIN users_limits l ON l.user_id = u.id
LEFT JOIN subscriptions s ON s.user_id = u.id
ORDER BY u.email ASC
`

// ListUserUsageStats returns the admin aggregate rows, sorted by email.
// DerivedTier is left for the service to fill in.
func (q *Queries) ListUserUsageStats(ctx context.Context) ([]domain.UserUsageStats, error) {
	rows, err := q.db.QueryContext(ctx, listUserUsageStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []domain.UserUsageStats
	for rows.Next() {
		var (
			s         domain.UserUsageStats
			lastReset sql.NullTime
			periodEnd sql.NullTime
		)
		err := rows.Scan(
			&s.UserID, &s.Email, &s.FullName,
			&s.EmailGenerationsToday,
			&s.CoachingSessionsToday,
			&s.DifficultConversationsToday,
			&lastReset,
			&s.SubscriptionStatus,
			&s.SubscriptionPlan,
			&periodEnd,
		)
		if err != nil {
			return nil, err
		}
		s.LastReset = domain.NullTimeValue(lastReset)
		s.SubscriptionExpiresAt = domain.NullTimeValue(periodEnd)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanUsage(row *sql.Row) (*domain.UsageRecord, error) {
	var (
		r             domain.UsageRecord
		emailReset    sql.NullTime
		coachingReset sql.NullTime
		convoReset    sql.NullTime
	)
	err := row.Scan(
		&r.UserID,
		&r.EmailGenerationsToday,
		&r.CoachingSessionsToday,
		&r.DifficultConversationsToday,
		&emailReset,
		&coachingReset,
		&convoReset,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if emailReset.Valid {
		r.EmailGenerationsLastReset = emailReset.Time
	}
	if coachingReset.Valid {
		r.CoachingSessionsLastReset = coachingReset.Time
	}
	if convoReset.Valid {
		r.DifficultConvosLastReset = convoReset.Time
	}
	return &r, nil
}
