package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/s8l/internal/shortener"
)

const uniqueViolation = "23505"

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
// The unique constraints on code and original_url are the only
// cross-worker synchronization point; constraint violations are mapped
// to the domain conflict errors so the engine can tell a code collision
// from a lost dedup race.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed short link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Create(ctx context.Context, link *shortener.ShortLink) error {
	query := `
		INSERT INTO short_links (id, code, original_url, title, click_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := p.pool.Exec(ctx, query,
		link.ID,
		string(link.Code),
		link.OriginalURL,
		nullableString(link.Title),
		link.ClickCount,
		link.CreatedAt,
		link.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case "short_links_code_key":
				return shortener.ErrCodeTaken
			case "short_links_original_url_key":
				return shortener.ErrURLTaken
			}
		}

		return err
	}

	return nil
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	query := `
		SELECT id, code, original_url, title, click_count, created_at, updated_at
		FROM short_links
		WHERE code = $1
	`

	return p.queryOne(ctx, query, string(code))
}

func (p *PostgresStore) GetByOriginalURL(ctx context.Context, originalURL string) (*shortener.ShortLink, error) {
	query := `
		SELECT id, code, original_url, title, click_count, created_at, updated_at
		FROM short_links
		WHERE original_url = $1
	`

	return p.queryOne(ctx, query, originalURL)
}

func (p *PostgresStore) IncrementClicks(ctx context.Context, code shortener.Code) error {
	query := `
		UPDATE short_links
		SET click_count = click_count + 1, updated_at = now()
		WHERE code = $1
	`

	tag, err := p.pool.Exec(ctx, query, string(code))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) UpdateTitle(ctx context.Context, code shortener.Code, title string) error {
	query := `
		UPDATE short_links
		SET title = $2, updated_at = now()
		WHERE code = $1
	`

	tag, err := p.pool.Exec(ctx, query, string(code), title)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) queryOne(ctx context.Context, query string, arg any) (*shortener.ShortLink, error) {
	var link shortener.ShortLink

	var title *string

	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&link.ID,
		&link.Code,
		&link.OriginalURL,
		&title,
		&link.ClickCount,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	if title != nil {
		link.Title = *title
	}

	return &link, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
