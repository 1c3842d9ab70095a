// Package domain contains core business types and interfaces.
//
// This file defines the User and Profile domain types for authentication
// and account management. These types are separate from the repository
// models to allow for business logic enrichment and to decouple the domain
// layer from the database layer.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents a registered user of the platform.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the coaching-relevant details a user fills in after signup.
// It is created as an empty row during registration and edited later.
type Profile struct {
	UserID    uuid.UUID
	FullName  string
	RoleTitle string
	Company   string
	TeamSize  int
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the profile's full name, falling back to the email.
func (u *User) DisplayName(p *Profile) string {
	if p != nil && p.FullName != "" {
		return p.FullName
	}
	return u.Email
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, will be hashed by service
	FullName string // Optional
}

// AuthResult contains the result of a successful signup or signin.
type AuthResult struct {
	User    *User
	Profile *Profile
	Token   string // Signed JWT, returned to the client once per login
}

// ProfileUpdateParams contains parameters for updating a user's profile.
// Nil fields are left unchanged.
type ProfileUpdateParams struct {
	UserID    uuid.UUID
	FullName  *string
	RoleTitle *string
	Company   *string
	TeamSize  *int
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// NullBoolValue safely extracts a bool from sql.NullBool.
func NullBoolValue(nb sql.NullBool) bool {
	if nb.Valid {
		return nb.Bool
	}
	return false
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
