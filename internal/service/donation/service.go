// Package donation implements the intake workflow. Creation runs through
// named stages: validate, notify (WhatsApp, before anything is written),
// persist, then a detached email receipt. A failed confirmation means no
// donation row — the confirmation must land before the record exists.
package donation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"donation-server/internal/domain"
	"donation-server/internal/infra"
	"donation-server/internal/notify"
	"donation-server/internal/service/audit"
)

// Notifier is the WhatsApp confirmation contract.
type Notifier interface {
	HasCredentials() bool
	SendConfirmation(ctx context.Context, msg notify.Confirmation) (*notify.SendResult, error)
}

// ReceiptMailer is the email receipt contract.
type ReceiptMailer interface {
	HasCredentials() bool
	SendReceipt(ctx context.Context, r notify.Receipt) (string, error)
}

// Service orchestrates donation intake, edits, soft deletes and receipts.
type Service struct {
	donations  domain.DonationRepository
	categories domain.CategoryRepository
	whatsapp   Notifier
	mailer     ReceiptMailer
	audit      *audit.Recorder
	logger     infra.Logger
	orgName    string

	emailTimeout time.Duration
	background   sync.WaitGroup
}

// NewService wires the workflow dependencies.
func NewService(
	donations domain.DonationRepository,
	categories domain.CategoryRepository,
	whatsapp Notifier,
	mailer ReceiptMailer,
	auditRec *audit.Recorder,
	logger infra.Logger,
	orgName string,
) *Service {
	return &Service{
		donations:    donations,
		categories:   categories,
		whatsapp:     whatsapp,
		mailer:       mailer,
		audit:        auditRec,
		logger:       logger,
		orgName:      orgName,
		emailTimeout: 30 * time.Second,
	}
}

// Wait blocks until detached email sends have finished. Used on shutdown and
// by tests.
func (s *Service) Wait() {
	s.background.Wait()
}

// CreateInput is the validated intake payload.
type CreateInput struct {
	DonorName     string
	DonorPhone    string
	DonorEmail    string
	DonorLocale   string
	AmountCents   int64
	CategoryID    string
	PaymentMethod domain.PaymentMethod
	DonatedAt     time.Time
	Notes         string
	OperatorID    string
	SkipWhatsApp  bool
	IP            string
}

// CreateResult reports the created donation plus what the notify stage did.
type CreateResult struct {
	Donation          *domain.Donation
	WhatsAppDelivered bool
	TemplateFallback  bool
}

var phoneRe = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// Create runs the intake workflow. When a donor phone is present the WhatsApp
// confirmation is sent first; only after a confirmed delivery (or an explicit
// opt-out, or no phone at all) is the donation persisted. The email receipt is
// detached and never affects the created row.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	category, err := s.validateCreate(ctx, &in)
	if err != nil {
		return nil, err
	}

	var result CreateResult
	phone := strings.TrimSpace(in.DonorPhone)
	if phone != "" && !in.SkipWhatsApp {
		sent, err := s.whatsapp.SendConfirmation(ctx, notify.Confirmation{
			To:        phone,
			Locale:    in.DonorLocale,
			DonorName: in.DonorName,
			Amount:    FormatAmount(in.AmountCents),
			Category:  category.Name,
			OrgName:   s.orgName,
		})
		if err != nil {
			// Donation is NOT saved; the caller decides whether to retry.
			return nil, err
		}
		result.WhatsAppDelivered = true
		result.TemplateFallback = sent.UsedFallback
	}

	donatedAt := in.DonatedAt
	if donatedAt.IsZero() {
		donatedAt = time.Now()
	}
	created, err := s.donations.Create(ctx, &domain.Donation{
		DonorName:     in.DonorName,
		DonorPhone:    optional(phone),
		DonorEmail:    optional(strings.TrimSpace(in.DonorEmail)),
		DonorLocale:   in.DonorLocale,
		AmountCents:   in.AmountCents,
		CategoryID:    in.CategoryID,
		PaymentMethod: in.PaymentMethod,
		DonatedAt:     donatedAt,
		OperatorID:    in.OperatorID,
		Notes:         strings.TrimSpace(in.Notes),
		WhatsAppSent:  result.WhatsAppDelivered,
	})
	if err != nil {
		if result.WhatsAppDelivered {
			s.logger.Error().Err(err).
				Str("donor_phone", phone).
				Msg("donation persist failed after confirmed whatsapp delivery")
		}
		return nil, err
	}
	result.Donation = created

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:     &created.OperatorID,
		Action:      domain.AuditDonationCreated,
		EntityType:  "donation",
		EntityID:    &created.ID,
		Description: fmt.Sprintf("donation %s recorded for %s", created.ReceiptNo, created.DonorName),
		Metadata: map[string]any{
			"amount_cents":      created.AmountCents,
			"category_id":       created.CategoryID,
			"payment_method":    created.PaymentMethod,
			"whatsapp_sent":     result.WhatsAppDelivered,
			"template_fallback": result.TemplateFallback,
		},
		IP: in.IP,
	})

	if created.DonorEmail != nil {
		s.sendReceiptAsync(ctx, *created, category.Name, in.IP)
	}

	return &result, nil
}

func (s *Service) validateCreate(ctx context.Context, in *CreateInput) (*domain.Category, error) {
	in.DonorName = strings.TrimSpace(in.DonorName)
	if in.DonorName == "" {
		return nil, fmt.Errorf("%w: donor name is required", domain.ErrValidation)
	}
	if in.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !domain.ValidPaymentMethod(in.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, in.PaymentMethod)
	}
	if phone := strings.TrimSpace(in.DonorPhone); phone != "" && !phoneRe.MatchString(phone) {
		return nil, fmt.Errorf("%w: invalid donor phone", domain.ErrValidation)
	}
	if email := strings.TrimSpace(in.DonorEmail); email != "" && !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid donor email", domain.ErrValidation)
	}
	if in.OperatorID == "" {
		return nil, fmt.Errorf("%w: operator is required", domain.ErrValidation)
	}

	category, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown category", domain.ErrValidation)
		}
		return nil, err
	}
	if !category.IsActive {
		return nil, fmt.Errorf("%w: category %q is inactive", domain.ErrInactive, category.Name)
	}
	return category, nil
}

// sendReceiptAsync fires exactly one email attempt per creation. Failure only
// leaves email_sent=false; the manual resend endpoint covers retries.
func (s *Service) sendReceiptAsync(ctx context.Context, d domain.Donation, categoryName, ip string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emailTimeout)
		defer cancel()

		if err := s.deliverReceipt(sendCtx, d, categoryName, ip); err != nil {
			s.logger.Warn().Err(err).
				Str("donation_id", d.ID).
				Str("receipt_no", d.ReceiptNo).
				Msg("receipt email failed")
		}
	}()
}

func (s *Service) deliverReceipt(ctx context.Context, d domain.Donation, categoryName, ip string) error {
	if d.DonorEmail == nil {
		return fmt.Errorf("%w: donation has no donor email", domain.ErrValidation)
	}
	_, err := s.mailer.SendReceipt(ctx, notify.Receipt{
		To:        *d.DonorEmail,
		Locale:    d.DonorLocale,
		DonorName: d.DonorName,
		Amount:    FormatAmount(d.AmountCents),
		ReceiptNo: d.ReceiptNo,
		Category:  categoryName,
		Date:      d.DonatedAt.Format("2 January 2006"),
	})
	if err != nil {
		return err
	}
	if err := s.donations.SetEmailSent(ctx, d.ID, true); err != nil {
		return err
	}
	s.audit.Record(ctx, domain.AuditEntry{
		Action:      domain.AuditReceiptEmailed,
		EntityType:  "donation",
		EntityID:    &d.ID,
		Description: fmt.Sprintf("receipt %s emailed to %s", d.ReceiptNo, *d.DonorEmail),
		IP:          ip,
	})
	return nil
}

// ResendReceipt re-attempts the receipt email synchronously. This is the
// user-triggered retry; there are no internal retry loops.
func (s *Service) ResendReceipt(ctx context.Context, id, actorID, ip string) error {
	d, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Deleted() {
		return fmt.Errorf("%w: donation is deleted", domain.ErrValidation)
	}
	if d.DonorEmail == nil {
		return fmt.Errorf("%w: donation has no donor email", domain.ErrValidation)
	}
	categoryName := ""
	if cat, err := s.categories.GetByID(ctx, d.CategoryID); err == nil {
		categoryName = cat.Name
	}
	return s.deliverReceipt(ctx, *d, categoryName, ip)
}

// Update applies admin edits. A changed donor phone or email resets the
// corresponding sent flag so a fresh notification can be attempted; submitting
// the unchanged value is not an edit and leaves the flag alone.
func (s *Service) Update(ctx context.Context, id string, upd domain.DonationUpdate, actorID, ip string) (*domain.Donation, error) {
	current, err := s.donations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.AmountCents != nil && *upd.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if upd.PaymentMethod != nil && !domain.ValidPaymentMethod(*upd.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, *upd.PaymentMethod)
	}
	if upd.DonorPhone != nil {
		if p := strings.TrimSpace(*upd.DonorPhone); p != "" && !phoneRe.MatchString(p) {
			return nil, fmt.Errorf("%w: invalid donor phone", domain.ErrValidation)
		}
	}
	if upd.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *upd.CategoryID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown category", domain.ErrValidation)
			}
			return nil, err
		}
	}

	if upd.DonorPhone != nil && strValue(current.DonorPhone) == strings.TrimSpace(*upd.DonorPhone) {
		upd.DonorPhone = nil
	}
	if upd.DonorEmail != nil && strValue(current.DonorEmail) == strings.TrimSpace(*upd.DonorEmail) {
		upd.DonorEmail = nil
	}

	updated, err := s.donations.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:     &actorID,
		Action:      domain.AuditDonationUpdated,
		EntityType:  "donation",
		EntityID:    &updated.ID,
		Description: fmt.Sprintf("donation %s updated", updated.ReceiptNo),
		Metadata: map[string]any{
			"phone_changed": upd.DonorPhone != nil,
			"email_changed": upd.DonorEmail != nil,
		},
		IP: ip,
	})
	return updated, nil
}

// SoftDelete marks a donation deleted. A reason is mandatory.
func (s *Service) SoftDelete(ctx context.Context, id, reason, actorID, ip string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: a deletion reason is required", domain.ErrValidation)
	}
	if err := s.donations.SoftDelete(ctx, id, actorID, reason); err != nil {
		return err
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:     &actorID,
		Action:      domain.AuditDonationDeleted,
		EntityType:  "donation",
		EntityID:    &id,
		Description: "donation soft-deleted",
		Metadata:    map[string]any{"reason": reason},
		IP:          ip,
	})
	return nil
}

// Restore clears the soft-delete markers.
func (s *Service) Restore(ctx context.Context, id, actorID, ip string) error {
	if err := s.donations.Restore(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, domain.AuditEntry{
		ActorID:     &actorID,
		Action:      domain.AuditDonationRestored,
		EntityType:  "donation",
		EntityID:    &id,
		Description: "donation restored",
		IP:          ip,
	})
	return nil
}

// FormatAmount renders minor units as a plain decimal string ("1000.50").
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
