package domain

import "time"

// Audit actions. The log is append-only; entries are never edited or removed.
const (
	AuditDonationCreated  = "donation.created"
	AuditDonationUpdated  = "donation.updated"
	AuditDonationDeleted  = "donation.deleted"
	AuditDonationRestored = "donation.restored"
	AuditReceiptEmailed   = "donation.receipt_emailed"
	AuditCategoryCreated  = "category.created"
	AuditCategoryUpdated  = "category.updated"
	AuditUserCreated      = "user.created"
	AuditUserUpdated      = "user.updated"
	AuditLoginSucceeded   = "auth.login"
)

// AuditEntry records one administrative or operator action.
type AuditEntry struct {
	ID          string
	ActorID     *string
	Action      string
	EntityType  string
	EntityID    *string
	Description string
	Metadata    map[string]any
	IP          string
	Country     string
	CreatedAt   time.Time
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	ActorID    string
	EntityType string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
