package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/leadwithheart/coach/internal/domain"
)

const emailColumns = `id, user_id, subject, recipient, content, type, created_at, updated_at`

const listEmailDrafts = `
SELECT ` + emailColumns + `
FROM emails
WHERE user_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListEmailDrafts(ctx context.Context, userID uuid.UUID) ([]domain.EmailDraft, error) {
	rows, err := q.db.QueryContext(ctx, listEmailDrafts, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []domain.EmailDraft
	for rows.Next() {
		var d domain.EmailDraft
		if err := rows.Scan(&d.ID, &d.UserID, &d.Subject, &d.Recipient, &d.Content, &d.Type, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

const getEmailDraft = `
SELECT ` + emailColumns + `
FROM emails
WHERE id = $1 AND user_id = $2
`

func (q *Queries) GetEmailDraft(ctx context.Context, id, userID uuid.UUID) (*domain.EmailDraft, error) {
	var d domain.EmailDraft
	err := q.db.QueryRowContext(ctx, getEmailDraft, id, userID).
		Scan(&d.ID, &d.UserID, &d.Subject, &d.Recipient, &d.Content, &d.Type, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const createEmailDraft = `
INSERT INTO emails (user_id, subject, recipient, content, type)
VALUES ($1, $2, $3, $4, COALESCE($5, 'general'))
RETURNING ` + emailColumns

func (q *Queries) CreateEmailDraft(ctx context.Context, userID uuid.UUID, subject, recipient, content string, draftType *string) (*domain.EmailDraft, error) {
	var d domain.EmailDraft
	err := q.db.QueryRowContext(ctx, createEmailDraft, userID, subject, recipient, content, nullString(draftType)).
		Scan(&d.ID, &d.UserID, &d.Subject, &d.Recipient, &d.Content, &d.Type, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const updateEmailDraft = `
UPDATE emails SET
	subject = COALESCE($3, subject),
	recipient = COALESCE($4, recipient),
	content = COALESCE($5, content),
	type = COALESCE($6, type),
	updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + emailColumns

func (q *Queries) UpdateEmailDraft(ctx context.Context, id, userID uuid.UUID, p domain.EmailDraftParams) (*domain.EmailDraft, error) {
	var d domain.EmailDraft
	err := q.db.QueryRowContext(ctx, updateEmailDraft, id, userID,
		nullString(p.Subject), nullString(p.Recipient), nullString(p.Content), nullString(p.Type)).
		Scan(&d.ID, &d.UserID, &d.Subject, &d.Recipient, &d.Content, &d.Type, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const deleteEmailDraft = `
DELETE FROM emails
WHERE id = $1 AND user_id = $2
`

func (q *Queries) DeleteEmailDraft(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx, deleteEmailDraft, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
