// Package email provides transactional email sending for Leading with Heart.
//
// This package defines an EmailService interface with implementations for:
// - SMTP (Mailhog in development, any standard SMTP relay in production)
// - NoopEmailService when SMTP is not configured
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the interface for sending transactional emails.
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendWelcomeEmail greets a newly registered user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	SendWelcomeEmail(ctx context.Context, to, name string) error

	// SendPasswordResetEmail sends a password reset link to a user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw reset token to include in the link
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@leadwithheart.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Leading with Heart"
)

// =============================================================================
// No-op Implementation
// =============================================================================

// NoopEmailService silently drops all email. Used when SMTP is not
// configured so registration keeps working in local setups.
type NoopEmailService struct{}

func (NoopEmailService) SendWelcomeEmail(ctx context.Context, to, name string) error { return nil }

func (NoopEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	return nil
}

var _ EmailService = NoopEmailService{}
