package repository

import (
	"context"

	"github.com/leadwithheart/coach/internal/domain"
)

const listActiveQuickTips = `
SELECT id, title, content, category, active, created_at
FROM quick_tips
WHERE active = true
ORDER BY created_at DESC
`

func (q *Queries) ListActiveQuickTips(ctx context.Context) ([]domain.QuickTip, error) {
	rows, err := q.db.QueryContext(ctx, listActiveQuickTips)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tips []domain.QuickTip
	for rows.Next() {
		var t domain.QuickTip
		if err := rows.Scan(&t.ID, &t.Title, &t.Content, &t.Category, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		tips = append(tips, t)
	}
	return tips, rows.Err()
}
