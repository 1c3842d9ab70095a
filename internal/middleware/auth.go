// Package middleware contains HTTP middleware for the Leading with Heart API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/handler"
	"github.com/leadwithheart/coach/internal/repository"
)

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides bearer-token authentication middleware.
//
// This struct holds dependencies needed by auth middleware functions.
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	tokens  *auth.TokenIssuer
	queries *repository.Queries
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(tokens *auth.TokenIssuer, queries *repository.Queries, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:  tokens,
		queries: queries,
		logger:  logger,
	}
}

// =============================================================================
// WithUser Middleware
// =============================================================================

// WithUser is middleware that attempts to load the user from the
// Authorization header.
//
// This middleware:
// 1. Looks for a "Bearer <token>" Authorization header
// 2. If found, verifies the token and loads the user and profile
// 3. Stores both in the request context
// 4. Continues to the next handler regardless of authentication status
//
// The user can be retrieved in handlers using:
//
//	user := auth.GetUser(r.Context())
//
// Flow:
//
//	Request -> WithUser -> Handler
//	           |
//	           +-> Read Authorization header
//	           +-> Verify token (if header exists)
//	           +-> Set user in context (if valid)
//	           +-> Call next handler (always)
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			// No credentials - continue without user
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.tokens.Verify(token)
		if err != nil {
			// Invalid or expired token - continue without user;
			// RequireUser rejects downstream if the route needs auth.
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.queries.GetUserByID(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		// Profile may not exist for legacy accounts; that's fine.
		profile, err := m.queries.GetProfileByUserID(r.Context(), userID)
		if err != nil {
			profile = nil
		}

		ctx := auth.SetUser(r.Context(), user, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// RequireUser Middleware
// =============================================================================

// RequireUser is middleware that requires an authenticated user.
//
// IMPORTANT: This middleware must be used AFTER WithUser in the middleware chain.
//
// Usage:
//
//	mux.Handle("GET /api/usage-limits", authMw.WithUser(authMw.RequireUser(usageHandler)))
//
// Flow:
//
//	Request -> WithUser -> RequireUser -> Handler
//	                       |
//	                       +-> Check context for user
//	                       +-> If no user: 401 JSON error
//	                       +-> If user exists: call next handler
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// RequireAdmin Middleware
// =============================================================================

// RequireAdmin is middleware that requires an authenticated admin user.
//
// Admin status lives on the profile's is_admin flag. Use AFTER WithUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}

		profile := auth.GetProfile(r.Context())
		if profile == nil || !profile.IsAdmin {
			handler.ForbiddenResponse(w, r, m.logger, "Admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
// Returns "" when the header is missing or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// in the slice is the outermost (runs first on request, last on response).
//
// Example:
//
//	stack := Stack(loggingMw, authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /api/usage-limits", stack(usageHandler))
//
// This is equivalent to:
//
//	mux.Handle("GET /api/usage-limits",
//	    loggingMw(authMw.WithUser(authMw.RequireUser(usageHandler))))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// =============================================================================
// Compile-time checks
// =============================================================================

// Ensure middleware functions have correct signature
var (
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).WithUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireUser
	_ func(http.Handler) http.Handler = (&AuthMiddleware{}).RequireAdmin
)
