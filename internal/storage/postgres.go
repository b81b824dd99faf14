package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE,
	owner_id    TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	tags        TEXT[] NOT NULL DEFAULT '{}',
	is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
	summary     TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id, seq);

CREATE TABLE IF NOT EXISTS seeded_owners (
	owner_id TEXT PRIMARY KEY
);
`

const (
	pgInsertNote = `INSERT INTO notes (id, owner_id, title, content, tags, is_favorite, summary, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	pgSelectNote = `SELECT id, owner_id, title, content, tags, is_favorite, summary, created_at, updated_at
FROM notes WHERE id = $1`
	pgUpdateNote = `UPDATE notes SET title = $2, content = $3, tags = $4, is_favorite = $5, summary = $6, updated_at = $7
WHERE id = $1`
	pgDeleteNote  = `DELETE FROM notes WHERE id = $1`
	pgListByOwner = `SELECT id, owner_id, title, content, tags, is_favorite, summary, created_at, updated_at
FROM notes WHERE owner_id = $1 ORDER BY seq`
	pgMarkSeeded = `INSERT INTO seeded_owners (owner_id) VALUES ($1) ON CONFLICT DO NOTHING`
)

// PgxPool is the subset of *pgxpool.Pool the backend uses; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres stores one row per note in a PostgreSQL table.
type Postgres struct {
	pool PgxPool
}

// OpenPostgres connects with the given DSN and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: apply postgres schema: %w", err)
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an already configured pool.
func NewPostgres(pool PgxPool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Insert(ctx context.Context, n models.Note) error {
	_, err := p.pool.Exec(ctx, pgInsertNote,
		n.ID, n.OwnerID, n.Title, n.Content, nonNilTags(n.Tags), n.IsFavorite, n.Summary, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: insert note: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (models.Note, error) {
	n, err := scanPgNote(p.pool.QueryRow(ctx, pgSelectNote, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: get note: %w", err)
	}
	return n, nil
}

func (p *Postgres) Replace(ctx context.Context, n models.Note) error {
	tag, err := p.pool.Exec(ctx, pgUpdateNote,
		n.ID, n.Title, n.Content, nonNilTags(n.Tags), n.IsFavorite, n.Summary, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, pgDeleteNote, id); err != nil {
		return fmt.Errorf("storage: delete note: %w", err)
	}
	return nil
}

func (p *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	rows, err := p.pool.Query(ctx, pgListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanPgNote(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	return out, nil
}

func (p *Postgres) MarkSeeded(ctx context.Context, ownerID string) (bool, error) {
	tag, err := p.pool.Exec(ctx, pgMarkSeeded, ownerID)
	if err != nil {
		return false, fmt.Errorf("storage: mark seeded: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanPgNote(r pgx.Row) (models.Note, error) {
	var n models.Note
	if err := r.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.Tags, &n.IsFavorite, &n.Summary, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return models.Note{}, err
	}
	n.Tags = nonNilTags(n.Tags)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return n, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
