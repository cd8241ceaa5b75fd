package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/askcraft/askcraft-web/internal/app"
	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/rbac"
)

func main() {
	cfg, err := app.LoadBootstrapConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("→ Applying migrations...")
	if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Seeding bootstrap admin...")
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	var created bool
	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		created, err = seedAdmin(ctx, tx, email, cfg.AdminName, string(hash))
		return err
	})
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if created {
		fmt.Println("✓ Created admin", email)
	} else {
		fmt.Println("✓ Admin", email, "already exists, left unchanged")
	}
}

// seedAdmin inserts the admin account unless the email is taken. An existing
// account is never modified.
func seedAdmin(ctx context.Context, tx db.DBTX, email, name, hash string) (bool, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO accounts (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id::text`, email, name, string(rbac.RoleAdmin), hash).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta)
		VALUES ($1, 'create', 'account', $1, '{"source":"seed"}'::jsonb)`, id)
	return true, err
}
