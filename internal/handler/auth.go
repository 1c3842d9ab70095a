// Package handler contains HTTP handlers for the Leading with Heart API.
//
// This file implements authentication and profile handlers.
//
// Routes handled:
//   - POST /api/auth/signup           -> Signup
//   - POST /api/auth/signin           -> Signin
//   - POST /api/auth/forgot-password  -> ForgotPassword
//   - POST /api/auth/reset-password   -> ResetPassword
//   - GET  /api/auth/me               -> Me
//   - PUT  /api/profile               -> UpdateProfile
package handler

import (
	"log/slog"
	"net/http"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/service"
)

// AuthHandler handles signup, signin, and profile HTTP requests.
type AuthHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers auth routes on the provided mux.
// Signup, signin, and the password reset endpoints are public and carry
// their own rate limits; me and profile require authentication.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, limitSignup, limitSignin, limitReset, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/auth/signup", limitSignup(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/auth/signin", limitSignin(http.HandlerFunc(h.Signin)))
	mux.Handle("POST /api/auth/forgot-password", limitReset(http.HandlerFunc(h.ForgotPassword)))
	mux.Handle("POST /api/auth/reset-password", limitReset(http.HandlerFunc(h.ResetPassword)))
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Me)))
	mux.Handle("PUT /api/profile", requireUser(http.HandlerFunc(h.UpdateProfile)))
}

// =============================================================================
// Request / Response Types
// =============================================================================

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID      string           `json:"id"`
	Email   string           `json:"email"`
	Profile *profileResponse `json:"profile,omitempty"`
}

type profileResponse struct {
	FullName  string `json:"fullName"`
	RoleTitle string `json:"roleTitle"`
	Company   string `json:"company"`
	TeamSize  int    `json:"teamSize"`
	IsAdmin   bool   `json:"isAdmin"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(user *domain.User, profile *domain.Profile) userResponse {
	resp := userResponse{
		ID:    user.ID.String(),
		Email: user.Email,
	}
	if profile != nil {
		resp.Profile = &profileResponse{
			FullName:  profile.FullName,
			RoleTitle: profile.RoleTitle,
			Company:   profile.Company,
			TeamSize:  profile.TeamSize,
			IsAdmin:   profile.IsAdmin,
		}
	}
	return resp
}

// =============================================================================
// Handlers
// =============================================================================

// Signup creates a new account and returns an access token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User, result.Profile),
	})
}

// Signin authenticates a user and returns an access token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User, result.Profile),
	})
}

// ForgotPassword emails a reset link. The response is identical whether or
// not the address has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "If that email has an account, a reset link is on its way.",
	})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Reset token is required"))
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"message": "Password updated. You can sign in with your new password.",
	})
}

// Me returns the authenticated user and their profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	profile := auth.GetProfile(r.Context())

	respondJSON(w, h.logger, http.StatusOK, toUserResponse(user, profile))
}

// UpdateProfile patches the caller's profile. Absent fields are unchanged.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req struct {
		FullName  *string `json:"fullName"`
		RoleTitle *string `json:"roleTitle"`
		Company   *string `json:"company"`
		TeamSize  *int    `json:"teamSize"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	profile, err := h.userService.UpdateProfile(r.Context(), domain.ProfileUpdateParams{
		UserID:    user.ID,
		FullName:  req.FullName,
		RoleTitle: req.RoleTitle,
		Company:   req.Company,
		TeamSize:  req.TeamSize,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, toUserResponse(user, profile))
}
