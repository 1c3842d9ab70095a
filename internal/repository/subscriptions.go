package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
)

const subscriptionColumns = `id, user_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_end, created_at, updated_at`

const createFreeSubscription = `
INSERT INTO subscriptions (user_id, plan, status)
VALUES ($1, 'free', 'free')
RETURNING ` + subscriptionColumns

func (q *Queries) CreateFreeSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, createFreeSubscription, userID)
	return scanSubscription(row)
}

const getSubscriptionByUserID = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1
`

func (q *Queries) GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionByUserID, userID)
	return scanSubscription(row)
}

const getSubscriptionByStripeCustomerID = `
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE stripe_customer_id = $1
`

func (q *Queries) GetSubscriptionByStripeCustomerID(ctx context.Context, customerID string) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionByStripeCustomerID, customerID)
	return scanSubscription(row)
}

// UpsertSubscriptionParams mirrors the webhook payload fields we persist.
type UpsertSubscriptionParams struct {
	UserID               uuid.UUID
	Plan                 domain.SubscriptionPlan
	Status               domain.SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
}

const upsertSubscription = `
INSERT INTO subscriptions (user_id, plan, status, stripe_customer_id, stripe_subscription_id, current_period_end)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
	plan = EXCLUDED.plan,
	status = EXCLUDED.status,
	stripe_customer_id = COALESCE(NULLIF(EXCLUDED.stripe_customer_id, ''), subscriptions.stripe_customer_id),
	stripe_subscription_id = COALESCE(NULLIF(EXCLUDED.stripe_subscription_id, ''), subscriptions.stripe_subscription_id),
	current_period_end = EXCLUDED.current_period_end,
	updated_at = now()
RETURNING ` + subscriptionColumns

func (q *Queries) UpsertSubscription(ctx context.Context, p UpsertSubscriptionParams) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, upsertSubscription,
		p.UserID, p.Plan, p.Status,
		domain.ToNullString(p.StripeCustomerID),
		domain.ToNullString(p.StripeSubscriptionID),
		domain.ToNullTime(p.CurrentPeriodEnd),
	)
	return scanSubscription(row)
}

const resetSubscriptionToFree = `
UPDATE subscriptions SET
	plan = 'free',
	status = 'free',
	stripe_subscription_id = NULL,
	current_period_end = NULL,
	updated_at = now()
WHERE user_id = $1
RETURNING ` + subscriptionColumns

// ResetSubscriptionToFree downgrades the row after a Stripe cancellation.
// The customer id is kept so a later re-subscribe reuses it.
func (q *Queries) ResetSubscriptionToFree(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	row := q.db.QueryRowContext(ctx, resetSubscriptionToFree, userID)
	return scanSubscription(row)
}

const setStripeCustomerID = `
UPDATE subscriptions SET
	stripe_customer_id = $2,
	updated_at = now()
WHERE user_id = $1
`

func (q *Queries) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	_, err := q.db.ExecContext(ctx, setStripeCustomerID, userID, customerID)
	return err
}

func scanSubscription(row *sql.Row) (*domain.Subscription, error) {
	var (
		s          domain.Subscription
		customerID sql.NullString
		subID      sql.NullString
		periodEnd  sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &customerID, &subID, &periodEnd, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.StripeCustomerID = domain.NullStringValue(customerID)
	s.StripeSubscriptionID = domain.NullStringValue(subID)
	s.CurrentPeriodEnd = domain.NullTimeValue(periodEnd)
	return &s, nil
}
