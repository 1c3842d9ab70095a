// Package auth provides JWT access tokens and authentication context
// helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/leadwithheart/coach/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userContextKey is the key used to store the authenticated user in context.
	userContextKey contextKey = "user"

	// profileContextKey is the key used to store the user's profile in context.
	profileContextKey contextKey = "profile"
)

// GetUser retrieves the authenticated user from the context.
//
// Returns nil if no user is authenticated.
//
// Usage:
//
//	user := auth.GetUser(r.Context())
//	if user == nil {
//	    // Handle unauthenticated request
//	}
func GetUser(ctx context.Context) *domain.User {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserFromRequest retrieves the authenticated user from the request context.
//
// This is a convenience wrapper around GetUser that takes the request directly.
func GetUserFromRequest(r *http.Request) *domain.User {
	return GetUser(r.Context())
}

// GetProfile retrieves the authenticated user's profile from the context.
func GetProfile(ctx context.Context) *domain.Profile {
	profile, ok := ctx.Value(profileContextKey).(*domain.Profile)
	if !ok {
		return nil
	}
	return profile
}

// SetUser stores a user and their profile in the context.
//
// This is typically called by authentication middleware after validating
// an access token.
func SetUser(ctx context.Context, user *domain.User, profile *domain.Profile) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, profileContextKey, profile)
}
