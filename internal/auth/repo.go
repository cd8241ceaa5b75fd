package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askcraft/askcraft-web/internal/rbac"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Repository defines the account reads the auth module needs.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	rbac.AccountResolver
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an account with its password hash.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var (
		acc  Account
		role string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, email, name, role, password_hash FROM accounts WHERE email = $1`,
		normalizeEmail(email),
	).Scan(&acc.ID, &acc.Email, &acc.Name, &role, &acc.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find by email: %w", err)
	}
	acc.Role = rbac.Role(role)
	return &acc, nil
}

// ResolvePrincipal loads the current role of an account.
func (r *PGRepository) ResolvePrincipal(ctx context.Context, accountID string) (rbac.Principal, error) {
	var (
		p    rbac.Principal
		role string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, email, name, role FROM accounts WHERE id::text = $1`,
		accountID,
	).Scan(&p.AccountID, &p.Email, &p.Name, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Principal{}, shared.ErrNotFound
		}
		return rbac.Principal{}, fmt.Errorf("auth: resolve principal: %w", err)
	}
	p.Role = rbac.Role(role)
	return p, nil
}

var _ Repository = (*PGRepository)(nil)
