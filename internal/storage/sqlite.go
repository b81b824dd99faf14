package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	owner_id    TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	is_favorite INTEGER NOT NULL DEFAULT 0,
	summary     TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner ON notes(owner_id, seq);

CREATE TABLE IF NOT EXISTS seeded_owners (
	owner_id TEXT PRIMARY KEY
);
`

const sqliteColumns = `id, owner_id, title, content, tags, is_favorite, summary, created_at, updated_at`

// SQLite stores one row per note. Insertion order is kept by the seq column.
type SQLite struct {
	conn *sql.DB
}

// sqliteParams are appended to every DSN.
const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// OpenSQLite opens (or creates) the database file and applies the schema.
// An in-memory DSN is limited to one connection, since each connection
// would otherwise get its own empty database.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if isMemoryDSN(dsn) {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply sqlite schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Insert(ctx context.Context, n models.Note) error {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO notes (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.OwnerID, n.Title, n.Content, tags, n.IsFavorite, nullString(n.Summary),
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("storage: insert note: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (models.Note, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanSQLiteNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("storage: get note: %w", err)
	}
	return n, nil
}

func (s *SQLite) Replace(ctx context.Context, n models.Note) error {
	tags, err := encodeTags(n.Tags)
	if err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx, `
		UPDATE notes SET
			title       = ?,
			content     = ?,
			tags        = ?,
			is_favorite = ?,
			summary     = ?,
			updated_at  = ?
		WHERE id = ?
	`, n.Title, n.Content, tags, n.IsFavorite, nullString(n.Summary), formatTime(n.UpdatedAt), n.ID)
	if err != nil {
		return fmt.Errorf("storage: update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: update note: %w", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage: delete note: %w", err)
	}
	return nil
}

func (s *SQLite) ListByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM notes WHERE owner_id = ? ORDER BY seq`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("storage: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanSQLiteNote(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkSeeded(ctx context.Context, ownerID string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `INSERT OR IGNORE INTO seeded_owners (owner_id) VALUES (?)`, ownerID)
	if err != nil {
		return false, fmt.Errorf("storage: mark seeded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: mark seeded: %w", err)
	}
	return affected == 1, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteNote(r rowScanner) (models.Note, error) {
	var (
		n                models.Note
		tags             string
		summary          sql.NullString
		created, updated string
	)
	if err := r.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &tags, &n.IsFavorite, &summary, &created, &updated); err != nil {
		return models.Note{}, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return models.Note{}, fmt.Errorf("decode tags: %w", err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if summary.Valid {
		s := summary.String
		n.Summary = &s
	}
	var err error
	if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return models.Note{}, fmt.Errorf("decode created_at: %w", err)
	}
	if n.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return models.Note{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return n, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("storage: encode tags: %w", err)
	}
	return string(data), nil
}

// Timestamps are stored as RFC 3339 text so they round-trip exactly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
