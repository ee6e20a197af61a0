package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"donation-server/internal/domain"
)

const donationColumns = "id, receipt_no, donor_name, donor_phone, donor_email, donor_locale, " +
	"amount_cents, category_id, payment_method, donated_at, operator_id, notes, " +
	"whatsapp_sent, email_sent, deleted_at, deleted_reason, deleted_by, created_at, updated_at"

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	db Querier
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(db Querier) *DonationRepositoryPG {
	return &DonationRepositoryPG{db: db}
}

// Create inserts a new donation record. The receipt number is allocated by
// the database so a failed notification never burns one.
func (r *DonationRepositoryPG) Create(ctx context.Context, d *domain.Donation) (*domain.Donation, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO donations (donor_name, donor_phone, donor_email, donor_locale, amount_cents,
                       category_id, payment_method, donated_at, operator_id, notes, whatsapp_sent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+donationColumns+`;
`, d.DonorName, d.DonorPhone, d.DonorEmail, d.DonorLocale, d.AmountCents,
		d.CategoryID, d.PaymentMethod, d.DonatedAt, d.OperatorID, d.Notes, d.WhatsAppSent)
	return scanDonation(row)
}

// GetByID fetches a donation by UUID, soft-deleted records included.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	row := r.db.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	return scanDonation(row)
}

// List returns donations matching the filter plus the unpaginated match count.
func (r *DonationRepositoryPG) List(ctx context.Context, filter domain.DonationFilter) ([]domain.Donation, int64, error) {
	conds := donationConds(filter)

	countQuery, countArgs, err := sq.Select("COUNT(*)").
		From("donations").
		PlaceholderFormat(sq.Dollar).
		Where(conds).
		ToSql()
	if err != nil {
		return nil, 0, mapError(err, "donation")
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, mapError(err, "donation")
	}

	builder := sq.Select(donationColumns).
		From("donations").
		PlaceholderFormat(sq.Dollar).
		Where(conds).
		OrderBy("donated_at DESC", "created_at DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, mapError(err, "donation")
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err, "donation")
	}
	defer rows.Close()

	var items []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "donation")
	}
	return items, total, nil
}

func donationConds(filter domain.DonationFilter) sq.And {
	conds := sq.And{}
	if !filter.IncludeDeleted {
		conds = append(conds, sq.Eq{"deleted_at": nil})
	}
	if filter.From != nil {
		conds = append(conds, sq.GtOrEq{"donated_at": *filter.From})
	}
	if filter.To != nil {
		conds = append(conds, sq.LtOrEq{"donated_at": *filter.To})
	}
	if filter.CategoryID != "" {
		conds = append(conds, sq.Eq{"category_id": filter.CategoryID})
	}
	if filter.OperatorID != "" {
		conds = append(conds, sq.Eq{"operator_id": filter.OperatorID})
	}
	if filter.PaymentMethod != "" {
		conds = append(conds, sq.Eq{"payment_method": filter.PaymentMethod})
	}
	if filter.MinAmountCents != nil {
		conds = append(conds, sq.GtOrEq{"amount_cents": *filter.MinAmountCents})
	}
	if filter.MaxAmountCents != nil {
		conds = append(conds, sq.LtOrEq{"amount_cents": *filter.MaxAmountCents})
	}
	if filter.DonorSearch != "" {
		pattern := "%" + filter.DonorSearch + "%"
		conds = append(conds, sq.Or{
			sq.ILike{"donor_name": pattern},
			sq.ILike{"donor_phone": pattern},
			sq.ILike{"donor_email": pattern},
			sq.ILike{"receipt_no": pattern},
		})
	}
	if len(conds) == 0 {
		conds = append(conds, sq.Expr("TRUE"))
	}
	return conds
}

// Update applies admin field edits and returns the fresh row.
func (r *DonationRepositoryPG) Update(ctx context.Context, id string, upd domain.DonationUpdate) (*domain.Donation, error) {
	builder := sq.Update("donations").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + donationColumns)

	if upd.DonorName != nil {
		builder = builder.Set("donor_name", *upd.DonorName)
	}
	if upd.DonorPhone != nil {
		builder = builder.Set("donor_phone", nullIfEmpty(*upd.DonorPhone))
		builder = builder.Set("whatsapp_sent", false)
	}
	if upd.DonorEmail != nil {
		builder = builder.Set("donor_email", nullIfEmpty(*upd.DonorEmail))
		builder = builder.Set("email_sent", false)
	}
	if upd.AmountCents != nil {
		builder = builder.Set("amount_cents", *upd.AmountCents)
	}
	if upd.CategoryID != nil {
		builder = builder.Set("category_id", *upd.CategoryID)
	}
	if upd.PaymentMethod != nil {
		builder = builder.Set("payment_method", *upd.PaymentMethod)
	}
	if upd.DonatedAt != nil {
		builder = builder.Set("donated_at", *upd.DonatedAt)
	}
	if upd.Notes != nil {
		builder = builder.Set("notes", *upd.Notes)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError(err, "donation")
	}
	return scanDonation(r.db.QueryRow(ctx, query, args...))
}

// SetWhatsAppSent flips the whatsapp_sent delivery flag.
func (r *DonationRepositoryPG) SetWhatsAppSent(ctx context.Context, id string, sent bool) error {
	return r.setFlag(ctx, id, "whatsapp_sent", sent)
}

// SetEmailSent flips the email_sent delivery flag.
func (r *DonationRepositoryPG) SetEmailSent(ctx context.Context, id string, sent bool) error {
	return r.setFlag(ctx, id, "email_sent", sent)
}

func (r *DonationRepositoryPG) setFlag(ctx context.Context, id, column string, value bool) error {
	tag, err := r.db.Exec(ctx,
		fmt.Sprintf(`UPDATE donations SET %s = $1, updated_at = NOW() WHERE id = $2`, column),
		value, id)
	if err != nil {
		return mapError(err, "donation")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("donation: %w", domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks a donation deleted with the actor and reason recorded.
func (r *DonationRepositoryPG) SoftDelete(ctx context.Context, id, actorID, reason string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE donations
SET deleted_at = NOW(), deleted_reason = $1, deleted_by = $2, updated_at = NOW()
WHERE id = $3 AND deleted_at IS NULL;
`, reason, actorID, id)
	if err != nil {
		return mapError(err, "donation")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("donation: %w", domain.ErrNotFound)
	}
	return nil
}

// Restore clears the soft-delete markers.
func (r *DonationRepositoryPG) Restore(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE donations
SET deleted_at = NULL, deleted_reason = '', deleted_by = NULL, updated_at = NOW()
WHERE id = $1 AND deleted_at IS NOT NULL;
`, id)
	if err != nil {
		return mapError(err, "donation")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("donation: %w", domain.ErrNotFound)
	}
	return nil
}

// Stats computes the admin dashboard aggregates over non-deleted donations.
func (r *DonationRepositoryPG) Stats(ctx context.Context) (*domain.StatsSummary, error) {
	var s domain.StatsSummary

	row := r.db.QueryRow(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(amount_cents), 0),
       COUNT(*) FILTER (WHERE donated_at >= CURRENT_DATE - 30),
       COALESCE(SUM(amount_cents) FILTER (WHERE donated_at >= CURRENT_DATE - 30), 0)
FROM donations
WHERE deleted_at IS NULL;
`)
	if err := row.Scan(&s.TotalCount, &s.TotalCents, &s.Last30DayCount, &s.Last30DayCents); err != nil {
		return nil, mapError(err, "stats")
	}

	catRows, err := r.db.Query(ctx, `
SELECT c.id, c.name, COUNT(d.id), COALESCE(SUM(d.amount_cents), 0)
FROM categories c
LEFT JOIN donations d ON d.category_id = c.id AND d.deleted_at IS NULL
GROUP BY c.id, c.name
ORDER BY 4 DESC;
`)
	if err != nil {
		return nil, mapError(err, "stats")
	}
	defer catRows.Close()
	for catRows.Next() {
		var cs domain.CategorySummary
		if err := catRows.Scan(&cs.CategoryID, &cs.CategoryName, &cs.Count, &cs.TotalCents); err != nil {
			return nil, mapError(err, "stats")
		}
		s.ByCategory = append(s.ByCategory, cs)
	}
	if err := catRows.Err(); err != nil {
		return nil, mapError(err, "stats")
	}

	methodRows, err := r.db.Query(ctx, `
SELECT payment_method, COUNT(*), COALESCE(SUM(amount_cents), 0)
FROM donations
WHERE deleted_at IS NULL
GROUP BY payment_method
ORDER BY 3 DESC;
`)
	if err != nil {
		return nil, mapError(err, "stats")
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var ms domain.MethodSummary
		if err := methodRows.Scan(&ms.Method, &ms.Count, &ms.TotalCents); err != nil {
			return nil, mapError(err, "stats")
		}
		s.ByPaymentMethod = append(s.ByPaymentMethod, ms)
	}
	if err := methodRows.Err(); err != nil {
		return nil, mapError(err, "stats")
	}

	recent, _, err := r.List(ctx, domain.DonationFilter{Limit: 10})
	if err != nil {
		return nil, err
	}
	s.Recent = recent

	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	if err := row.Scan(
		&d.ID, &d.ReceiptNo, &d.DonorName, &d.DonorPhone, &d.DonorEmail, &d.DonorLocale,
		&d.AmountCents, &d.CategoryID, &d.PaymentMethod, &d.DonatedAt, &d.OperatorID, &d.Notes,
		&d.WhatsAppSent, &d.EmailSent, &d.DeletedAt, &d.DeletedReason, &d.DeletedBy,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, mapError(err, "donation")
	}
	return &d, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
