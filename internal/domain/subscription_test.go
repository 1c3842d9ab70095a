package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeriveTier(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	future := now.Add(24 * time.Hour)
	atTolerance := now.Add(-ExpiryTolerance)
	pastTolerance := now.Add(-ExpiryTolerance - time.Millisecond)
	longExpired := now.Add(-72 * time.Hour)

	sub := func(plan SubscriptionPlan, status SubscriptionStatus, end *time.Time) *Subscription {
		return &Subscription{
			ID:               uuid.New(),
			UserID:           uuid.New(),
			Plan:             plan,
			Status:           status,
			CurrentPeriodEnd: end,
		}
	}

	tests := []struct {
		name string
		sub  *Subscription
		want Tier
	}{
		{
			name: "no subscription row",
			sub:  nil,
			want: TierFree,
		},
		{
			name: "free plan free status",
			sub:  sub(SubscriptionPlanFree, SubscriptionStatusFree, nil),
			want: TierFree,
		},
		{
			name: "active status",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusActive, &future),
			want: TierPro,
		},
		{
			name: "trialing status",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusTrialing, &future),
			want: TierPro,
		},
		{
			name: "pro plan with canceled status",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusCanceled, &future),
			want: TierPro,
		},
		{
			name: "free plan with past_due status",
			sub:  sub(SubscriptionPlanFree, SubscriptionStatusPastDue, &future),
			want: TierFree,
		},
		{
			name: "active with no period end",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusActive, nil),
			want: TierPro,
		},
		{
			name: "expired exactly at tolerance boundary",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusActive, &atTolerance),
			want: TierPro,
		},
		{
			name: "expired just past tolerance",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusActive, &pastTolerance),
			want: TierFree,
		},
		{
			name: "long expired pro plan",
			sub:  sub(SubscriptionPlanPro, SubscriptionStatusCanceled, &longExpired),
			want: TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTier(tt.sub, now))
		})
	}
}

func TestDeriveTierDoesNotMutate(t *testing.T) {
	end := time.Now().Add(-time.Hour)
	sub := &Subscription{
		Plan:             SubscriptionPlanPro,
		Status:           SubscriptionStatusActive,
		CurrentPeriodEnd: &end,
	}
	before := *sub

	got := DeriveTier(sub, time.Now())

	assert.Equal(t, TierFree, got)
	assert.Equal(t, before, *sub)
}
