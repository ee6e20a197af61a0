package repo

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"donation-server/internal/domain"
)

const auditColumns = "id, actor_id, action, entity_type, entity_id, description, metadata, ip, country, created_at"

// AuditRepositoryPG provides append-only audit log persistence.
type AuditRepositoryPG struct {
	db Querier
}

// NewAuditRepository creates a new audit repo.
func NewAuditRepository(db Querier) *AuditRepositoryPG {
	return &AuditRepositoryPG{db: db}
}

// Append inserts a new audit entry. Entries are never updated or removed.
func (r *AuditRepositoryPG) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("audit: %w: entry is required", domain.ErrValidation)
	}
	if entry.Action == "" {
		return fmt.Errorf("audit: %w: action is required", domain.ErrValidation)
	}

	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}

	_, err = r.db.Exec(ctx, `
INSERT INTO audit_logs (actor_id, action, entity_type, entity_id, description, metadata, ip, country)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		entry.Description, metadataJSON, entry.IP, entry.Country)
	return mapError(err, "audit")
}

// List returns audit entries matching the filter, newest first, plus the
// unpaginated match count.
func (r *AuditRepositoryPG) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	conds := sq.And{sq.Expr("TRUE")}
	if filter.ActorID != "" {
		conds = append(conds, sq.Eq{"actor_id": filter.ActorID})
	}
	if filter.EntityType != "" {
		conds = append(conds, sq.Eq{"entity_type": filter.EntityType})
	}
	if filter.Action != "" {
		conds = append(conds, sq.Eq{"action": filter.Action})
	}
	if filter.From != nil {
		conds = append(conds, sq.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		conds = append(conds, sq.LtOrEq{"created_at": *filter.To})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").
		From("audit_logs").
		PlaceholderFormat(sq.Dollar).
		Where(conds).
		ToSql()
	if err != nil {
		return nil, 0, mapError(err, "audit")
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, mapError(err, "audit")
	}

	builder := sq.Select(auditColumns).
		From("audit_logs").
		PlaceholderFormat(sq.Dollar).
		Where(conds).
		OrderBy("created_at DESC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, mapError(err, "audit")
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, mapError(err, "audit")
	}
	defer rows.Close()

	var items []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Description, &metadata, &e.IP, &e.Country, &e.CreatedAt); err != nil {
			return nil, 0, mapError(err, "audit")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, 0, fmt.Errorf("audit %s: unmarshal metadata: %w", e.ID, err)
			}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError(err, "audit")
	}
	return items, total, nil
}

var _ domain.AuditRepository = (*AuditRepositoryPG)(nil)
