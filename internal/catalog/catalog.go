// Package catalog persists named element sets in an embedded SQLite
// database, letting API callers reference computation targets by ID instead
// of resending element lines with every request.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrNotFound is returned when a target ID has no catalog entry.
var ErrNotFound = errors.New("target not found")

// Target is one catalog entry: a named, toggleable element set.
type Target struct {
	ID        string
	Name      string
	Pair      tle.Pair
	Enabled   bool
	UpdatedAt time.Time
}

// Store is the SQLite-backed element-set catalog.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at path and applies the schema.
// Use ":memory:" for an ephemeral catalog.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply catalog migration: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces a target. The element pair is revalidated so the
// catalog never holds lines the propagator would reject.
func (s *Store) Put(ctx context.Context, t Target) error {
	pair, err := tle.NewPair(t.Pair.Line1, t.Pair.Line2)
	if err != nil {
		return fmt.Errorf("target %s: %w", t.ID, err)
	}
	if t.ID == "" {
		return fmt.Errorf("target id must not be empty")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO targets (id, name, line1, line2, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			line1 = excluded.line1,
			line2 = excluded.line2,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at`,
		t.ID, t.Name, pair.Line1, pair.Line2, boolToInt(t.Enabled),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put target %s: %w", t.ID, err)
	}
	return nil
}

// Get returns one target by ID.
func (s *Store) Get(ctx context.Context, id string) (Target, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, line1, line2, enabled, updated_at
		FROM targets WHERE id = ?`, id)
	return scanTarget(row)
}

// List returns all targets ordered by ID.
func (s *Store) List(ctx context.Context) ([]Target, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, line1, line2, enabled, updated_at
		FROM targets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetEnabled toggles a target without touching its elements.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE targets SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("toggle target %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("toggle target %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a target.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete target %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("delete target %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (Target, error) {
	var t Target
	var enabled int
	var updated string
	err := row.Scan(&t.ID, &t.Name, &t.Pair.Line1, &t.Pair.Line2, &enabled, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Target{}, ErrNotFound
	}
	if err != nil {
		return Target{}, fmt.Errorf("scan target: %w", err)
	}
	t.Enabled = enabled != 0
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
