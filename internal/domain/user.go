package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleOperator UserRole = "OPERATOR"
)

// ValidRole reports whether r is a known role.
func ValidRole(r UserRole) bool {
	return r == RoleAdmin || r == RoleOperator
}

// User represents an operator or administrator account.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user may manage users, categories and edits.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate carries admin edits to an account. Nil means unchanged.
type UserUpdate struct {
	Name         *string
	Role         *UserRole
	IsActive     *bool
	PasswordHash *string
}
