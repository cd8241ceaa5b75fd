package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Repository provides media persistence.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, in NewItem) (*Item, error)
	UpdateCaption(ctx context.Context, id, caption string) (*Item, error)
	Delete(ctx context.Context, id string) error
	UploaderOf(ctx context.Context, id string) (string, error)
}

const itemColumns = `id::text, type, url, caption, uploader_id::text, created_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanItem(row pgx.Row) (*Item, error) {
	var (
		it  Item
		typ string
	)
	if err := row.Scan(&it.ID, &typ, &it.URL, &it.Caption, &it.UploaderID, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.Type = Type(typ)
	return &it, nil
}

// List returns up to q.Limit items older than the cursor item, newest first.
// An unknown cursor yields an empty result.
func (r *repository) List(ctx context.Context, q ListQuery) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM media
		WHERE ($1::text = '' OR type = $1::text)
		  AND ($2::text = '' OR (created_at, id) < (SELECT created_at, id FROM media WHERE id::text = $2::text))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`, string(q.Type), q.Cursor, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("media: list: %w", err)
	}
	defer rows.Close()

	out := make([]Item, 0, q.Limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("media: scan: %w", err)
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("media: list rows: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM media WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("media: get: %w", err)
	}
	return it, nil
}

func (r *repository) Create(ctx context.Context, in NewItem) (*Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx, `
		INSERT INTO media (type, url, caption, uploader_id)
		VALUES ($1, $2, $3, $4::uuid)
		RETURNING `+itemColumns,
		string(in.Type), in.URL, in.Caption, in.UploaderID,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("media: duplicate url: %w", shared.ErrConflict)
		}
		return nil, fmt.Errorf("media: create: %w", err)
	}
	return it, nil
}

func (r *repository) UpdateCaption(ctx context.Context, id, caption string) (*Item, error) {
	it, err := scanItem(r.pool.QueryRow(ctx,
		`UPDATE media SET caption = $1 WHERE id::text = $2 RETURNING `+itemColumns, caption, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("media: update caption: %w", err)
	}
	return it, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("media: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UploaderOf(ctx context.Context, id string) (string, error) {
	var uploader string
	err := r.pool.QueryRow(ctx, `SELECT uploader_id::text FROM media WHERE id::text = $1`, id).Scan(&uploader)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("media: uploader: %w", err)
	}
	return uploader, nil
}
