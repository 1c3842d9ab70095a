package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
)

const createUser = `
INSERT INTO users (email, password_hash)
VALUES ($1, $2)
RETURNING id, email, password_hash, created_at, updated_at
`

func (q *Queries) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, createUser, email, passwordHash)
	return scanUser(row)
}

const getUserByID = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	return scanUser(row)
}

const getUserByEmail = `
SELECT id, email, password_hash, created_at, updated_at
FROM users
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const createProfile = `
INSERT INTO profiles (user_id, full_name)
VALUES ($1, $2)
RETURNING user_id, full_name, role_title, company, team_size, is_admin, created_at, updated_at
`

func (q *Queries) CreateProfile(ctx context.Context, userID uuid.UUID, fullName string) (*domain.Profile, error) {
	row := q.db.QueryRowContext(ctx, createProfile, userID, fullName)
	return scanProfile(row)
}

const getProfileByUserID = `
SELECT user_id, full_name, role_title, company, team_size, is_admin, created_at, updated_at
FROM profiles
WHERE user_id = $1
`

func (q *Queries) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfileByUserID, userID)
	return scanProfile(row)
}

const updateProfile = `
UPDATE profiles SET
	full_name = COALESCE($2, full_name),
	role_title = COALESCE($3, role_title),
	company = COALESCE($4, company),
	team_size = COALESCE($5, team_size),
	updated_at = now()
WHERE user_id = $1
RETURNING user_id, full_name, role_title, company, team_size, is_admin, created_at, updated_at
`

func (q *Queries) UpdateProfile(ctx context.Context, p domain.ProfileUpdateParams) (*domain.Profile, error) {
	row := q.db.QueryRowContext(ctx, updateProfile,
		p.UserID,
		nullString(p.FullName),
		nullString(p.RoleTitle),
		nullString(p.Company),
		nullInt(p.TeamSize),
	)
	return scanProfile(row)
}

func scanProfile(row *sql.Row) (*domain.Profile, error) {
	var (
		p         domain.Profile
		roleTitle sql.NullString
		company   sql.NullString
		teamSize  sql.NullInt32
	)
	err := row.Scan(&p.UserID, &p.FullName, &roleTitle, &company, &teamSize, &p.IsAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.RoleTitle = domain.NullStringValue(roleTitle)
	p.Company = domain.NullStringValue(company)
	if teamSize.Valid {
		p.TeamSize = int(teamSize.Int32)
	}
	return &p, nil
}

const updateUserPassword = `
UPDATE users SET password_hash = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateUserPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, userID, passwordHash)
	return err
}

const createPasswordResetToken = `
INSERT INTO password_reset_tokens (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)
`

func (q *Queries) CreatePasswordResetToken(ctx context.Context, tokenHash string, userID uuid.UUID, expiresAt time.Time) error {
	_, err := q.db.ExecContext(ctx, createPasswordResetToken, tokenHash, userID, expiresAt)
	return err
}

const getPasswordResetToken = `
SELECT user_id, expires_at
FROM password_reset_tokens
WHERE token_hash = $1
`

func (q *Queries) GetPasswordResetToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var (
		userID    uuid.UUID
		expiresAt time.Time
	)
	err := q.db.QueryRowContext(ctx, getPasswordResetToken, tokenHash).Scan(&userID, &expiresAt)
	return userID, expiresAt, err
}

const deletePasswordResetTokens = `
DELETE FROM password_reset_tokens
WHERE user_id = $1
`

func (q *Queries) DeletePasswordResetTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deletePasswordResetTokens, userID)
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt32 {
	if i == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*i), Valid: true}
}
