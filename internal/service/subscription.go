package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionUpdate carries the fields a Stripe subscription event maps to.
type SubscriptionUpdate struct {
	UserID               uuid.UUID
	Status               domain.SubscriptionStatus
	StripeCustomerID     string
	StripeSubscriptionID string
	CurrentPeriodEnd     *time.Time
}

// SubscriptionService keeps the local subscription mirror current and
// answers entitlement questions.
type SubscriptionService interface {
	// GetByUserID returns the user's subscription row, or nil when the
	// user has never had one.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)

	// CurrentTier derives the user's effective tier right now.
	CurrentTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error)

	// ApplyStripeUpdate upserts the row from a subscription event. The
	// plan becomes pro while the status is active or trialing, free
	// otherwise.
	ApplyStripeUpdate(ctx context.Context, update SubscriptionUpdate) (*domain.Subscription, error)

	// Downgrade resets the row to free/free after a Stripe cancellation.
	Downgrade(ctx context.Context, userID uuid.UUID) error

	// UserIDForCustomer resolves the user a webhook event belongs to,
	// trying the stored customer id first and the customer email second.
	UserIDForCustomer(ctx context.Context, customerID, email string) (uuid.UUID, error)

	// LinkCustomer stores the Stripe customer id on the user's row.
	LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string) error
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	queries *repository.Queries
	logger  *slog.Logger
	now     func() time.Time
}

func NewSubscriptionService(queries *repository.Queries, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *subscriptionService) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	const op = "SubscriptionService.GetByUserID"

	sub, err := s.queries.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.Internal(err, op, "Failed to load subscription")
	}
	return sub, nil
}

func (s *subscriptionService) CurrentTier(ctx context.Context, userID uuid.UUID) (domain.Tier, error) {
	sub, err := s.GetByUserID(ctx, userID)
	if err != nil {
		return domain.TierFree, err
	}
	return domain.DeriveTier(sub, s.now()), nil
}

func (s *subscriptionService) ApplyStripeUpdate(ctx context.Context, update SubscriptionUpdate) (*domain.Subscription, error) {
	const op = "SubscriptionService.ApplyStripeUpdate"

	plan := domain.SubscriptionPlanFree
	if update.Status == domain.SubscriptionStatusActive || update.Status == domain.SubscriptionStatusTrialing {
		plan = domain.SubscriptionPlanPro
	}

	sub, err := s.queries.UpsertSubscription(ctx, repository.UpsertSubscriptionParams{
		UserID:               update.UserID,
		Plan:                 plan,
		Status:               update.Status,
		StripeCustomerID:     update.StripeCustomerID,
		StripeSubscriptionID: update.StripeSubscriptionID,
		CurrentPeriodEnd:     update.CurrentPeriodEnd,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to upsert subscription")
	}

	s.logger.Info("subscription updated",
		"user_id", update.UserID,
		"status", update.Status,
		"plan", plan,
	)
	return sub, nil
}

func (s *subscriptionService) Downgrade(ctx context.Context, userID uuid.UUID) error {
	const op = "SubscriptionService.Downgrade"

	if _, err := s.queries.ResetSubscriptionToFree(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No row to downgrade; nothing to do.
			return nil
		}
		return domain.Internal(err, op, "Failed to downgrade subscription")
	}
	s.logger.Info("subscription downgraded to free", "user_id", userID)
	return nil
}

func (s *subscriptionService) UserIDForCustomer(ctx context.Context, customerID, email string) (uuid.UUID, error) {
	const op = "SubscriptionService.UserIDForCustomer"

	if customerID != "" {
		sub, err := s.queries.GetSubscriptionByStripeCustomerID(ctx, customerID)
		if err == nil {
			return sub.UserID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.Internal(err, op, "Failed to look up customer")
		}
	}

	if email != "" {
		user, err := s.queries.GetUserByEmail(ctx, email)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.Internal(err, op, "Failed to look up user by email")
		}
	}

	return uuid.Nil, domain.NotFound(op, "user for customer", customerID)
}

func (s *subscriptionService) LinkCustomer(ctx context.Context, userID uuid.UUID, customerID string) error {
	const op = "SubscriptionService.LinkCustomer"

	if err := s.queries.SetStripeCustomerID(ctx, userID, customerID); err != nil {
		return domain.Internal(err, op, "Failed to store customer id")
	}
	return nil
}

// Interface compliance check
var _ SubscriptionService = (*subscriptionService)(nil)
