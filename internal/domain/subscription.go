package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the possible states of a user's subscription
// as reported by Stripe, plus the local "free" state for users who have never
// checked out.
type SubscriptionStatus string

const (
	SubscriptionStatusFree     SubscriptionStatus = "free"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// SubscriptionPlan represents the pricing plan of a subscription.
type SubscriptionPlan string

const (
	SubscriptionPlanFree SubscriptionPlan = "free"
	SubscriptionPlanPro  SubscriptionPlan = "pro"
)

// Tier is the effective entitlement a user holds right now. It is derived,
// never stored.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

// Subscription is the locally stored mirror of a user's billing state.
// Stripe webhooks keep it current; it may lag reality, which is why
// entitlement checks go through DeriveTier rather than reading Plan
// directly.
type Subscription struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	Plan                 SubscriptionPlan
	Status               SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ExpiryTolerance is how far past current_period_end a subscription is still
// honored. Stripe timestamps are second-granular and webhook delivery lags a
// little, so a row that expired within the last second is treated as current.
const ExpiryTolerance = time.Second

// DeriveTier computes the effective tier for a subscription row at the given
// instant. A nil subscription (user has no row) is FREE. A subscription is
// PRO when its status is active or trialing, or its plan is pro, unless its
// period end has passed by more than ExpiryTolerance.
//
// DeriveTier is a pure function: it never mutates the row, and stale rows
// are corrected only by the billing webhook.
func DeriveTier(sub *Subscription, now time.Time) Tier {
	if sub == nil {
		return TierFree
	}
	isPro := sub.Status == SubscriptionStatusActive ||
		sub.Status == SubscriptionStatusTrialing ||
		sub.Plan == SubscriptionPlanPro
	if !isPro {
		return TierFree
	}
	if sub.CurrentPeriodEnd != nil && now.Sub(*sub.CurrentPeriodEnd) > ExpiryTolerance {
		return TierFree
	}
	return TierPro
}
