package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askcraft/askcraft-web/internal/platform/db"
	"github.com/askcraft/askcraft-web/internal/shared"
)

// Repository provides article persistence.
type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Article, int, error)
	Get(ctx context.Context, idOrSlug string) (*Article, error)
	Create(ctx context.Context, a NewArticle) (*Article, error)
	Update(ctx context.Context, id string, c Changes) (*Article, error)
	Delete(ctx context.Context, id string) error
	AuthorOf(ctx context.Context, id string) (string, error)
}

const articleColumns = `id::text, title, slug, content, cover_url, published, author_id::text, created_at, updated_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func scanArticle(row pgx.Row) (*Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.CoverURL, &a.Published, &a.AuthorID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Article, int, error) {
	where := ""
	if !f.IncludeDrafts {
		where = "WHERE published"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM articles `+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("articles: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles `+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("articles: list: %w", err)
	}
	defer rows.Close()

	out := make([]Article, 0, f.Limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("articles: scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("articles: list rows: %w", err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, idOrSlug string) (*Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id::text = $1 OR slug = $1 LIMIT 1`, idOrSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("articles: get: %w", err)
	}
	return a, nil
}

func (r *repository) Create(ctx context.Context, in NewArticle) (*Article, error) {
	a, err := scanArticle(r.pool.QueryRow(ctx, `
		INSERT INTO articles (title, slug, content, cover_url, published, author_id)
		VALUES ($1, $2, $3, $4, $5, $6::uuid)
		RETURNING `+articleColumns,
		in.Title, in.Slug, in.Content, in.CoverURL, in.Published, in.AuthorID,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("articles: slug %s taken: %w", in.Slug, shared.ErrConflict)
		}
		return nil, fmt.Errorf("articles: create: %w", err)
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, id string, c Changes) (*Article, error) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if c.Title != nil {
		add("title", *c.Title)
	}
	if c.Content != nil {
		add("content", *c.Content)
	}
	if c.CoverURL != nil {
		add("cover_url", *c.CoverURL)
	}
	if c.Published != nil {
		add("published", *c.Published)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE articles SET %s, updated_at = NOW() WHERE id::text = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), articleColumns)

	a, err := scanArticle(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("articles: update: %w", err)
	}
	return a, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("articles: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AuthorOf(ctx context.Context, id string) (string, error) {
	var author string
	err := r.pool.QueryRow(ctx, `SELECT author_id::text FROM articles WHERE id::text = $1`, id).Scan(&author)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("articles: author: %w", err)
	}
	return author, nil
}
