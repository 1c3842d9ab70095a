// Package domain contains core business types and interfaces.
//
// This file defines the daily usage ledger types and the free-tier limits
// for the three metered features.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType identifies which metered feature a usage increment belongs to.
type ActionType string

const (
	ActionEmail                 ActionType = "email"
	ActionCoaching              ActionType = "coaching"
	ActionDifficultConversation ActionType = "difficult_conversation"
)

// ValidActionType reports whether s names a known metered action.
func ValidActionType(s string) bool {
	switch ActionType(s) {
	case ActionEmail, ActionCoaching, ActionDifficultConversation:
		return true
	}
	return false
}

// FreeTierLimits holds the daily allowance per action for FREE users.
// PRO users are unmetered.
var FreeTierLimits = map[ActionType]int{
	ActionEmail:                 10,
	ActionCoaching:              5,
	ActionDifficultConversation: 3,
}

// UsageRecord is one user's daily usage ledger row. Each counter carries its
// own last-reset stamp, but all three reset together: staleness is keyed off
// EmailGenerationsLastReset alone.
//
// A zero last-reset time means the stamp was never written (legacy rows) and
// the record counts as stale.
type UsageRecord struct {
	UserID                      uuid.UUID `json:"user_id"`
	EmailGenerationsToday       int       `json:"email_generations_today"`
	CoachingSessionsToday       int       `json:"coaching_sessions_today"`
	DifficultConversationsToday int       `json:"difficult_conversations_today"`
	EmailGenerationsLastReset   time.Time `json:"email_generations_last_reset"`
	CoachingSessionsLastReset   time.Time `json:"coaching_sessions_last_reset"`
	DifficultConvosLastReset    time.Time `json:"difficult_conversations_last_reset"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// Count returns the counter for the given action.
func (r *UsageRecord) Count(action ActionType) int {
	switch action {
	case ActionEmail:
		return r.EmailGenerationsToday
	case ActionCoaching:
		return r.CoachingSessionsToday
	case ActionDifficultConversation:
		return r.DifficultConversationsToday
	}
	return 0
}

// NeedsReset reports whether the record's counters belong to an earlier
// calendar day than now, in now's location. A missing reset stamp always
// needs a reset.
func (r *UsageRecord) NeedsReset(now time.Time) bool {
	if r.EmailGenerationsLastReset.IsZero() {
		return true
	}
	return !SameCalendarDay(r.EmailGenerationsLastReset.In(now.Location()), now)
}

// SameCalendarDay reports whether a and b fall on the same calendar date.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// UsageOverride is an admin patch to a user's usage record. Nil counter
// fields are left unchanged. ResetAll wins over everything else.
type UsageOverride struct {
	EmailGenerationsToday       *int
	CoachingSessionsToday       *int
	DifficultConversationsToday *int
	ResetAll                    bool
}

// UserUsageStats is one row of the admin aggregate view: a user joined with
// their usage record and derived entitlement.
type UserUsageStats struct {
	UserID                      uuid.UUID  `json:"userId"`
	Email                       string     `json:"email"`
	FullName                    string     `json:"fullName"`
	EmailGenerationsToday       int        `json:"emailGenerationsToday"`
	CoachingSessionsToday       int        `json:"coachingSessionsToday"`
	DifficultConversationsToday int        `json:"difficultConversationsToday"`
	LastReset                   *time.Time `json:"lastReset"`
	SubscriptionStatus          string     `json:"subscriptionStatus"`
	SubscriptionPlan            string     `json:"subscriptionPlan"`
	SubscriptionExpiresAt       *time.Time `json:"subscriptionExpiresAt"`
	DerivedTier                 Tier       `json:"derivedTier"`
}
