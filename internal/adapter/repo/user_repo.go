package repo

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"donation-server/internal/domain"
)

const userColumns = "id, email, name, password_hash, role, is_active, created_at, updated_at"

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	db Querier
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(db Querier) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// Create inserts a new account.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO users (email, name, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING `+userColumns+`;
`, user.Email, user.Name, user.PasswordHash, user.Role)
	return scanUser(row)
}

// GetByID fetches a user by UUID.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches a user by email address.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// List returns every account, newest first.
func (r *UserRepositoryPG) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, mapError(err, "user")
	}
	defer rows.Close()

	var items []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "user")
	}
	return items, nil
}

// Update applies admin edits to an account.
func (r *UserRepositoryPG) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	builder := sq.Update("users").
		PlaceholderFormat(sq.Dollar).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns)

	if upd.Name != nil {
		builder = builder.Set("name", *upd.Name)
	}
	if upd.Role != nil {
		builder = builder.Set("role", *upd.Role)
	}
	if upd.IsActive != nil {
		builder = builder.Set("is_active", *upd.IsActive)
	}
	if upd.PasswordHash != nil {
		builder = builder.Set("password_hash", *upd.PasswordHash)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError(err, "user")
	}
	return scanUser(r.db.QueryRow(ctx, query, args...))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
