package repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"donation-server/internal/domain"
)

const categoryColumns = "id, name, description, is_active, created_at, updated_at"

// CategoryRepositoryPG implements domain.CategoryRepository using PostgreSQL.
type CategoryRepositoryPG struct {
	db Querier
}

// NewCategoryRepository creates a new category repo.
func NewCategoryRepository(db Querier) *CategoryRepositoryPG {
	return &CategoryRepositoryPG{db: db}
}

// Create inserts a new category.
func (r *CategoryRepositoryPG) Create(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO categories (name, description)
VALUES ($1, $2)
RETURNING `+categoryColumns+`;
`, category.Name, category.Description)
	return scanCategory(row)
}

// GetByID fetches a category by UUID.
func (r *CategoryRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	row := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

// List returns categories ordered by name. When activeOnly is non-nil the
// result is filtered on the is_active flag.
func (r *CategoryRepositoryPG) List(ctx context.Context, activeOnly *bool) ([]domain.Category, error) {
	builder := sq.Select(categoryColumns).
		From("categories").
		PlaceholderFormat(sq.Dollar).
		OrderBy("name ASC")
	if activeOnly != nil {
		builder = builder.Where(sq.Eq{"is_active": *activeOnly})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError(err, "category")
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "category")
	}
	defer rows.Close()

	var items []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "category")
	}
	return items, nil
}

// Update applies admin edits to a category.
func (r *CategoryRepositoryPG) Update(ctx context.Context, id string, upd domain.CategoryUpdate) (*domain.Category, error) {
	builder := sq.Update("categories").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + categoryColumns)

	if upd.Name != nil {
		builder = builder.Set("name", *upd.Name)
	}
	if upd.Description != nil {
		builder = builder.Set("description", *upd.Description)
	}
	if upd.IsActive != nil {
		builder = builder.Set("is_active", *upd.IsActive)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError(err, "category")
	}
	return scanCategory(r.db.QueryRow(ctx, query, args...))
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapError(err, "category")
	}
	return &c, nil
}

var _ domain.CategoryRepository = (*CategoryRepositoryPG)(nil)
