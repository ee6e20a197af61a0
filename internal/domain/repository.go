package domain

import "context"

// UserRepository defines access methods for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
}

// CategoryRepository handles donation category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context, activeOnly *bool) ([]Category, error)
	Update(ctx context.Context, id string, upd CategoryUpdate) (*Category, error)
}

// DonationRepository handles donation persistence.
type DonationRepository interface {
	Create(ctx context.Context, donation *Donation) (*Donation, error)
	GetByID(ctx context.Context, id string) (*Donation, error)
	List(ctx context.Context, filter DonationFilter) ([]Donation, int64, error)
	Update(ctx context.Context, id string, upd DonationUpdate) (*Donation, error)
	SetWhatsAppSent(ctx context.Context, id string, sent bool) error
	SetEmailSent(ctx context.Context, id string, sent bool) error
	SoftDelete(ctx context.Context, id, actorID, reason string) error
	Restore(ctx context.Context, id string) error
	Stats(ctx context.Context) (*StatsSummary, error)
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}
