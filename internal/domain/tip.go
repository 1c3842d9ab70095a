package domain

import (
	"time"

	"github.com/google/uuid"
)

// QuickTip is a short piece of leadership advice shown on the dashboard.
// Tips are curated by admins; only active tips are served publicly.
type QuickTip struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
