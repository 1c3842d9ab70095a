package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/metrics"
)

// =============================================================================
// Store Interface
// =============================================================================

// UsageStore is the storage surface the usage service needs. It is
// satisfied by *repository.Queries; tests supply an in-memory fake.
//
// Every mutation is a single atomic statement at the storage layer, which is
// what lets the service stay lock-free under concurrent requests.
type UsageStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUsageByUserID(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)
	CreateUsage(ctx context.Context, userID uuid.UUID) error
	IncrementUsage(ctx context.Context, userID uuid.UUID, action domain.ActionType) (*domain.UsageRecord, error)
	ResetUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)
	OverrideUsage(ctx context.Context, userID uuid.UUID, o domain.UsageOverride) (*domain.UsageRecord, error)
	ListUserUsageStats(ctx context.Context) ([]domain.UserUsageStats, error)
	GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// UsageService meters the three daily-limited features.
type UsageService interface {
	// GetCurrentUsage returns the caller's ledger row, creating it if
	// absent and applying the lazy daily reset if the row is stale.
	// This is the only path that resets counters.
	GetCurrentUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)

	// Fetch returns the ledger row as stored, creating it if absent.
	// It never resets.
	Fetch(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)

	// Increment bumps one counter atomically.
	// Returns domain.EINVALID for an unknown action type.
	// Returns domain.ENOTFOUND when the user has no ledger row; it never
	// creates one.
	Increment(ctx context.Context, userID uuid.UUID, action domain.ActionType) (*domain.UsageRecord, error)

	// CheckAllowance reports whether the user may perform the action right
	// now: PRO users always may; FREE users may while today's counter is
	// under the free-tier limit. The lazy reset is applied first.
	CheckAllowance(ctx context.Context, userID uuid.UUID, action domain.ActionType) error

	// ListUserStats returns the admin aggregate view, sorted by email,
	// with each row's entitlement derived (never read from the stored
	// plan).
	ListUserStats(ctx context.Context) ([]domain.UserUsageStats, error)

	// Override applies an admin patch to a user's ledger row. The target
	// user must exist. ResetAll zeroes everything and wins over supplied
	// values; otherwise only supplied counters change. The reset policy is
	// bypassed entirely.
	Override(ctx context.Context, userID uuid.UUID, o domain.UsageOverride) (*domain.UsageRecord, error)
}

// =============================================================================
// Implementation
// =============================================================================

type usageService struct {
	store  UsageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewUsageService creates a new UsageService instance.
func NewUsageService(store UsageStore, logger *slog.Logger) UsageService {
	return &usageService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (s *usageService) GetCurrentUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	const op = "UsageService.GetCurrentUsage"

	record, err := s.fetchOrCreate(ctx, op, userID)
	if err != nil {
		return nil, err
	}

	if record.NeedsReset(s.now()) {
		record, err = s.store.ResetUsage(ctx, userID)
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to reset usage counters")
		}
		metrics.UsageResetsTotal.Inc()
		s.logger.Info("daily usage counters reset", "user_id", userID)
	}

	return record, nil
}

func (s *usageService) Fetch(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	const op = "UsageService.Fetch"
	return s.fetchOrCreate(ctx, op, userID)
}

func (s *usageService) fetchOrCreate(ctx context.Context, op string, userID uuid.UUID) (*domain.UsageRecord, error) {
	record, err := s.store.GetUsageByUserID(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to load usage record")
	}

	// No row yet; create one and re-read. The insert is a no-op if another
	// request won the race.
	if err := s.store.CreateUsage(ctx, userID); err != nil {
		return nil, domain.Internal(err, op, "Failed to create usage record")
	}
	record, err = s.store.GetUsageByUserID(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage record")
	}
	return record, nil
}

func (s *usageService) Increment(ctx context.Context, userID uuid.UUID, action domain.ActionType) (*domain.UsageRecord, error) {
	const op = "UsageService.Increment"

	if !domain.ValidActionType(string(action)) {
		return nil, domain.Invalid(op, "Invalid usage type")
	}

	record, err := s.store.IncrementUsage(ctx, userID, action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "usage record", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to increment usage")
	}

	metrics.UsageIncrementsTotal.WithLabelValues(string(action)).Inc()
	return record, nil
}

func (s *usageService) CheckAllowance(ctx context.Context, userID uuid.UUID, action domain.ActionType) error {
	const op = "UsageService.CheckAllowance"

	if !domain.ValidActionType(string(action)) {
		return domain.Invalid(op, "Invalid usage type")
	}

	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Internal(err, op, "Failed to load subscription")
	}
	if domain.DeriveTier(sub, s.now()) == domain.TierPro {
		return nil
	}

	record, err := s.GetCurrentUsage(ctx, userID)
	if err != nil {
		return err
	}
	if record.Count(action) >= domain.FreeTierLimits[action] {
		return domain.PaymentRequired(op, "Daily limit reached. Upgrade to Pro for unlimited access.")
	}
	return nil
}

func (s *usageService) ListUserStats(ctx context.Context) ([]domain.UserUsageStats, error) {
	const op = "UsageService.ListUserStats"

	stats, err := s.store.ListUserUsageStats(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage stats")
	}

	now := s.now()
	for i := range stats {
		sub := statSubscription(&stats[i])
		stats[i].DerivedTier = domain.DeriveTier(sub, now)
	}
	return stats, nil
}

// statSubscription rebuilds just enough of a subscription row for tier
// derivation. Users who never checked out have no row and derive FREE.
func statSubscription(s *domain.UserUsageStats) *domain.Subscription {
	if s.SubscriptionStatus == "" && s.SubscriptionPlan == "" {
		return nil
	}
	return &domain.Subscription{
		Plan:             domain.SubscriptionPlan(s.SubscriptionPlan),
		Status:           domain.SubscriptionStatus(s.SubscriptionStatus),
		CurrentPeriodEnd: s.SubscriptionExpiresAt,
	}
}

func (s *usageService) Override(ctx context.Context, userID uuid.UUID, o domain.UsageOverride) (*domain.UsageRecord, error) {
	const op = "UsageService.Override"

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}

	if o.ResetAll {
		record, err := s.store.ResetUsage(ctx, userID)
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to reset usage counters")
		}
		metrics.UsageResetsTotal.Inc()
		s.logger.Info("admin reset usage counters", "user_id", userID)
		return record, nil
	}

	for _, v := range []*int{o.EmailGenerationsToday, o.CoachingSessionsToday, o.DifficultConversationsToday} {
		if v != nil && *v < 0 {
			return nil, domain.Invalid(op, "Counter values must be non-negative")
		}
	}

	record, err := s.store.OverrideUsage(ctx, userID, o)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to override usage counters")
	}
	s.logger.Info("admin override applied", "user_id", userID)
	return record, nil
}

// Interface compliance check
var _ UsageService = (*usageService)(nil)
