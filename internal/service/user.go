// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadwithheart/coach/internal/auth"
	"github.com/leadwithheart/coach/internal/domain"
	"github.com/leadwithheart/coach/internal/email"
	"github.com/leadwithheart/coach/internal/repository"
	"github.com/leadwithheart/coach/internal/worker"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 provides good security (~250ms on modern hardware) while being
	// fast enough for login flows. NIST recommends cost 10+.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime to prevent
	// accidental weakening. If you need to change it, do so here and redeploy.
	BcryptCost = 12

	// MinPasswordLength is the minimum password length.
	// NIST SP 800-63B recommends 8+ characters minimum.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72

	// PasswordResetTokenTTL is how long a reset link stays valid.
	PasswordResetTokenTTL = time.Hour
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for account operations.
type UserService interface {
	// Register creates a new account: user, empty profile, free
	// subscription, and zeroed usage ledger in one transaction.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error)

	// Login authenticates a user and issues a fresh access token.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)

	// GetByID retrieves a user and their profile.
	// Returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, *domain.Profile, error)

	// UpdateProfile updates the caller's profile.
	// Returns domain.ENOTFOUND if the profile does not exist.
	UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) (*domain.Profile, error)

	// RequestPasswordReset issues a reset token and emails it to the
	// address, if an account exists. It succeeds either way so callers
	// cannot probe for registered emails.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes a reset token and sets a new password.
	// Returns domain.EUNAUTHORIZED for unknown or expired tokens.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	db      *sql.DB
	queries *repository.Queries
	tokens  *auth.TokenIssuer
	mailer  email.EmailService
	logger  *slog.Logger
}

// NewUserService creates a new UserService instance.
//
// The *sql.DB handle is used for the registration transaction; everything
// else goes through queries.
func NewUserService(db *sql.DB, queries *repository.Queries, tokens *auth.TokenIssuer, mailer email.EmailService, logger *slog.Logger) UserService {
	return &userService{
		db:      db,
		queries: queries,
		tokens:  tokens,
		mailer:  mailer,
		logger:  logger,
	}
}

// Register creates a new account.
//
// Flow:
// 1. Validate input (email format, password strength)
// 2. Check if email already exists
// 3. Hash the password with bcrypt
// 4. Insert user + profile + free subscription + usage ledger in one tx
// 5. Issue an access token and send the welcome email (best effort)
//
// Security Considerations:
// - Timing attacks are mitigated by hashing even on duplicate email
// - The raw password is never logged or stored
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.AuthResult, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.FullName = strings.TrimSpace(params.FullName)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	// Check if email already exists
	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		// User exists - hash anyway to keep timing constant
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	user, err := qtx.CreateUser(ctx, params.Email, string(passwordHash))
	if err != nil {
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	profile, err := qtx.CreateProfile(ctx, user.ID, params.FullName)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create profile")
	}

	if _, err := qtx.CreateFreeSubscription(ctx, user.ID); err != nil {
		return nil, domain.Internal(err, op, "Failed to create subscription")
	}

	if err := qtx.CreateUsage(ctx, user.ID); err != nil {
		return nil, domain.Internal(err, op, "Failed to create usage record")
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "Failed to commit registration")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue access token")
	}

	// The welcome email goes through the job queue so SMTP hiccups never
	// block registration.
	if _, err := worker.EnqueueSendWelcomeEmail(ctx, s.queries, user.ID); err != nil {
		s.logger.Warn("failed to enqueue welcome email", "user_id", user.ID, "error", err)
	}

	user.PasswordHash = ""
	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)

	return &domain.AuthResult{User: user, Profile: profile, Token: token}, nil
}

// Login authenticates a user by email and password.
//
// Security Considerations:
// - Constant-time password comparison via bcrypt
// - Generic error message prevents email enumeration
func (s *userService) Login(ctx context.Context, loginEmail, password string) (*domain.AuthResult, error) {
	const op = "UserService.Login"

	loginEmail = strings.ToLower(strings.TrimSpace(loginEmail))

	user, err := s.queries.GetUserByEmail(ctx, loginEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Use a dummy hash to maintain constant time
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW" // bcrypt hash of "dummy"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	profile, err := s.queries.GetProfileByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to retrieve profile")
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to issue access token")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID)

	return &domain.AuthResult{User: user, Profile: profile, Token: token}, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, *domain.Profile, error) {
	const op = "UserService.GetByID"

	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.NotFound(op, "user", id.String())
		}
		return nil, nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	profile, err := s.queries.GetProfileByUserID(ctx, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.Internal(err, op, "Failed to retrieve profile")
	}

	user.PasswordHash = ""
	return user, profile, nil
}

func (s *userService) UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) (*domain.Profile, error) {
	const op = "UserService.UpdateProfile"

	profile, err := s.queries.UpdateProfile(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "profile", params.UserID.String())
		}
		return nil, domain.Internal(err, op, "Failed to update profile")
	}
	return profile, nil
}

// =============================================================================
// Password Reset
// =============================================================================

// RequestPasswordReset issues a reset token for the address.
//
// Security Considerations:
// - Only the SHA-256 of the token is stored; the raw token exists in the
//   email alone
// - Unknown addresses return success to prevent enumeration
func (s *userService) RequestPasswordReset(ctx context.Context, address string) error {
	const op = "UserService.RequestPasswordReset"

	address = strings.ToLower(strings.TrimSpace(address))
	if err := validateEmail(address); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}

	user, err := s.queries.GetUserByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return domain.Internal(err, op, "Failed to look up account")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return domain.Internal(err, op, "Failed to generate reset token")
	}
	token := hex.EncodeToString(raw)

	// One live token per user.
	if err := s.queries.DeletePasswordResetTokens(ctx, user.ID); err != nil {
		return domain.Internal(err, op, "Failed to clear old reset tokens")
	}
	if err := s.queries.CreatePasswordResetToken(ctx, hashToken(token), user.ID, time.Now().Add(PasswordResetTokenTTL)); err != nil {
		return domain.Internal(err, op, "Failed to store reset token")
	}

	profile, err := s.queries.GetProfileByUserID(ctx, user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.Internal(err, op, "Failed to load profile")
	}

	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.DisplayName(profile), token); err != nil {
		return domain.Internal(err, op, "Failed to send reset email")
	}

	s.logger.Info("password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "UserService.ResetPassword"

	if err := validatePassword(newPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	userID, expiresAt, err := s.queries.GetPasswordResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Unauthorized(op, "Invalid or expired reset token")
		}
		return domain.Internal(err, op, "Failed to look up reset token")
	}
	if time.Now().After(expiresAt) {
		return domain.Unauthorized(op, "Invalid or expired reset token")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash password")
	}

	if err := s.queries.UpdateUserPassword(ctx, userID, string(passwordHash)); err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}
	if err := s.queries.DeletePasswordResetTokens(ctx, userID); err != nil {
		s.logger.Warn("failed to clear reset tokens", "user_id", userID, "error", err)
	}

	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Validation Helpers
// =============================================================================

func validateEmail(address string) error {
	if address == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return errors.New("email address is malformed")
	}
	return nil
}

// validatePassword enforces minimum password requirements: length bounds
// plus at least one letter and one digit.
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must be at most 72 characters")
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return errors.New("password must contain at least one letter and one number")
	}
	if commonPasswords[strings.ToLower(password)] {
		return errors.New("password is too common")
	}
	return nil
}

// commonPasswords is a small denylist of passwords that pass the character
// rules but show up constantly in credential dumps.
var commonPasswords = map[string]bool{
	"password1":   true,
	"password123": true,
	"qwerty123":   true,
	"letmein1":    true,
	"welcome1":    true,
	"admin123":    true,
	"abc12345":    true,
	"iloveyou1":   true,
}

// Interface compliance check
var _ UserService = (*userService)(nil)
