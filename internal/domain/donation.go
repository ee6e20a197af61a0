package domain

import "time"

// PaymentMethod enumerates the accepted payment channels.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentCheque       PaymentMethod = "CHEQUE"
)

// ValidPaymentMethod reports whether m is one of the fixed enum values.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentUPI, PaymentCheque:
		return true
	}
	return false
}

// Donation is a single recorded contribution. Amounts are stored in minor
// units (cents/paise) to avoid floating point drift.
type Donation struct {
	ID            string
	ReceiptNo     string
	DonorName     string
	DonorPhone    *string
	DonorEmail    *string
	DonorLocale   string
	AmountCents   int64
	CategoryID    string
	PaymentMethod PaymentMethod
	DonatedAt     time.Time
	OperatorID    string
	Notes         string
	WhatsAppSent  bool
	EmailSent     bool
	DeletedAt     *time.Time
	DeletedReason string
	DeletedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Deleted reports whether the donation is soft-deleted.
func (d Donation) Deleted() bool {
	return d.DeletedAt != nil
}

// DonationFilter narrows donation listings. Zero values mean "no constraint".
type DonationFilter struct {
	From           *time.Time
	To             *time.Time
	CategoryID     string
	OperatorID     string
	PaymentMethod  PaymentMethod
	MinAmountCents *int64
	MaxAmountCents *int64
	DonorSearch    string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// DonationUpdate carries admin field edits. Nil pointers leave the field
// untouched; a pointer to the empty string clears a nullable contact field.
type DonationUpdate struct {
	DonorName     *string
	DonorPhone    *string
	DonorEmail    *string
	AmountCents   *int64
	CategoryID    *string
	PaymentMethod *PaymentMethod
	DonatedAt     *time.Time
	Notes         *string
}

// CategorySummary aggregates donation totals for one category.
type CategorySummary struct {
	CategoryID   string
	CategoryName string
	Count        int64
	TotalCents   int64
}

// MethodSummary aggregates donation totals for one payment method.
type MethodSummary struct {
	Method     PaymentMethod
	Count      int64
	TotalCents int64
}

// StatsSummary is the admin dashboard aggregate.
type StatsSummary struct {
	TotalCount      int64
	TotalCents      int64
	Last30DayCount  int64
	Last30DayCents  int64
	ByCategory      []CategorySummary
	ByPaymentMethod []MethodSummary
	Recent          []Donation
}
