package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestLogger creates a logger that discards output for testing.
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors in tests
	}))
}

// newTestAuthMiddleware creates an AuthMiddleware for testing.
//
// The queries dependency is nil: every path under test either never reaches
// the database (missing or invalid token) or injects the user directly into
// the request context.
func newTestAuthMiddleware() *AuthMiddleware {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthMiddleware(tokens, nil, newTestLogger())
}

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "test@example.com",
	}
}

// =============================================================================
// WithUser Middleware Tests (P0)
// =============================================================================

func TestWithUser_NoHeader_ContinuesWithoutUser(t *testing.T) {
	mw := newTestAuthMiddleware()

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		// Verify user is nil
		if user := auth.GetUser(r.Context()); user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}

		w.WriteHeader(http.StatusOK)
	})

	// Create request without Authorization header
	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	// Wrap handler with middleware
	mw.WithUser(handler).ServeHTTP(rec, req)

	// Verify handler was called
	if !handlerCalled {
		t.Error("handler was not called")
	}

	// Verify response is successful
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestWithUser_InvalidToken_ContinuesWithoutUser(t *testing.T) {
	mw := newTestAuthMiddleware()

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true

		if user := auth.GetUser(r.Context()); user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}

		w.WriteHeader(http.StatusOK)
	})

	// Token signed with a different secret must not authenticate
	otherIssuer := auth.NewTokenIssuer("other-secret", time.Hour)
	token, err := otherIssuer.Issue(uuid.New(), "test@example.com")
	if err != nil {
		t.Fatalf("issuing token: %v", err)
	}

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.WithUser(handler).ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("handler was not called")
	}
}

func TestWithUser_MalformedHeader_ContinuesWithoutUser(t *testing.T) {
	mw := newTestAuthMiddleware()

	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", "abc123"},
		{"wrong scheme", "Basic abc123"},
		{"empty value", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				if user := auth.GetUser(r.Context()); user != nil {
					t.Errorf("expected nil user, got %+v", user)
				}
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			mw.WithUser(handler).ServeHTTP(rec, req)

			if !handlerCalled {
				t.Error("handler was not called")
			}
		})
	}
}

// =============================================================================
// RequireUser Middleware Tests (P0)
// =============================================================================

func TestRequireUser_WithUser_ContinuesToHandler(t *testing.T) {
	mw := newTestAuthMiddleware()

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	// Create request with user in context
	req := httptest.NewRequest("GET", "/api/usage-limits", nil)
	ctx := auth.SetUser(req.Context(), testUser(), nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	mw.RequireUser(handler).ServeHTTP(rec, req)

	// Verify handler was called
	if !handlerCalled {
		t.Error("handler was not called")
	}

	// Verify response is successful
	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireUser_NoUser_Returns401(t *testing.T) {
	mw := newTestAuthMiddleware()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/usage-limits", nil)
	rec := httptest.NewRecorder()

	mw.RequireUser(handler).ServeHTTP(rec, req)

	// Verify 401 Unauthorized
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Verify JSON response
	contentType := rec.Header().Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
}

// =============================================================================
// RequireAdmin Middleware Tests
// =============================================================================

func TestRequireAdmin_AdminUser_Continues(t *testing.T) {
	mw := newTestAuthMiddleware()

	user := testUser()
	profile := &domain.Profile{UserID: user.ID, IsAdmin: true}

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/usage-limits/all", nil)
	ctx := auth.SetUser(req.Context(), user, profile)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	mw.RequireAdmin(handler).ServeHTTP(rec, req)

	if !handlerCalled {
		t.Error("expected handler to be called for admin user")
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAdmin_NonAdminUser_Returns403(t *testing.T) {
	mw := newTestAuthMiddleware()

	user := testUser()
	profile := &domain.Profile{UserID: user.ID, IsAdmin: false}

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/usage-limits/all", nil)
	ctx := auth.SetUser(req.Context(), user, profile)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	mw.RequireAdmin(handler).ServeHTTP(rec, req)

	if handlerCalled {
		t.Error("expected handler NOT to be called for non-admin user")
	}

	if rec.Code != http.StatusForbidden {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireAdmin_MissingProfile_Returns403(t *testing.T) {
	mw := newTestAuthMiddleware()

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/usage-limits/all", nil)
	ctx := auth.SetUser(req.Context(), testUser(), nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	mw.RequireAdmin(handler).ServeHTTP(rec, req)

	if handlerCalled {
		t.Error("expected handler NOT to be called without a profile")
	}

	if rec.Code != http.StatusForbidden {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireAdmin_NoUser_Returns401(t *testing.T) {
	mw := newTestAuthMiddleware()

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/usage-limits/all", nil)
	rec := httptest.NewRecorder()

	mw.RequireAdmin(handler).ServeHTTP(rec, req)

	if handlerCalled {
		t.Error("expected handler NOT to be called when user is not in context")
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// =============================================================================
// Header Parsing Tests
// =============================================================================

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"well formed", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing", "", ""},
		{"no token", "Bearer", ""},
		{"wrong scheme", "Basic abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
