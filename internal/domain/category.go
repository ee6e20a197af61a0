package domain

import "time"

// Category groups donations by purpose. Categories are never hard-deleted,
// only deactivated so historical donations keep their reference.
type Category struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryUpdate carries admin edits to a category. Nil means unchanged.
type CategoryUpdate struct {
	Name        *string
	Description *string
	IsActive    *bool
}
