package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Repository provides account persistence for administration.
type Repository interface {
	List(ctx context.Context) ([]Member, error)
	Get(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, m NewMember) (*Member, error)
	Update(ctx context.Context, id string, c Changes) (*Member, error)
	Delete(ctx context.Context, id string) error
}

const memberColumns = `id::text, email, name, role, created_at, updated_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanMember(row pgx.Row) (*Member, error) {
	var (
		m    Member
		role string
	)
	if err := row.Scan(&m.ID, &m.Email, &m.Name, &role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Role = rbac.Role(role)
	return &m, nil
}

func (r *repository) List(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+memberColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("members: list: %w", err)
	}
	defer rows.Close()
	out := make([]Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("members: scan: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("members: list rows: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM accounts WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("members: get: %w", err)
	}
	return m, nil
}

func (r *repository) Create(ctx context.Context, in NewMember) (*Member, error) {
	m, err := scanMember(r.pool.QueryRow(ctx, `
		INSERT INTO accounts (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+memberColumns,
		in.Email, in.Name, string(in.Role), in.PasswordHash,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("members: email %s already registered: %w", in.Email, shared.ErrConflict)
		}
		return nil, fmt.Errorf("members: create: %w", err)
	}
	return m, nil
}

func (r *repository) Update(ctx context.Context, id string, c Changes) (*Member, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if c.Email != nil {
		add("email", *c.Email)
	}
	if c.Name != nil {
		add("name", *c.Name)
	}
	if c.Role != nil {
		add("role", string(*c.Role))
	}
	if c.PasswordHash != nil {
		add("password_hash", *c.PasswordHash)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE accounts SET %s, updated_at = NOW() WHERE id::text = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), memberColumns)

	m, err := scanMember(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, shared.ErrNotFound
		case db.IsUniqueViolation(err):
			return nil, fmt.Errorf("members: email already registered: %w", shared.ErrConflict)
		}
		return nil, fmt.Errorf("members: update: %w", err)
	}
	return m, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id::text = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("members: %s still owns content: %w", id, shared.ErrConflict)
		}
		return fmt.Errorf("members: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
