// Package items maps filesystem paths to pkg/mvp point ids, giving a
// caller a human-meaningful handle ("this file") on top of the index's
// opaque point ids.
package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Item is one path <-> point id mapping.
type Item struct {
	ID      int64
	Path    string
	PointID int64
}

// Store is a SQLite-backed item table. It can share its on-disk file with a
// pkg/mvp.Index, since both open their own *sql.DB against the same path.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening items database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to items database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		point_id INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_items_path ON items(path);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating items schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records path as mapping to pointID, or returns the id of the
// existing row with equal path with no side effects (the destination
// pointID of an existing path is never silently overwritten).
func (s *Store) Insert(ctx context.Context, path string, pointID int64) (int64, error) {
	var existingID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM items WHERE path = ?`, path).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking existing item: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO items(path, point_id) VALUES (?, ?)`, path, pointID)
	if err != nil {
		return 0, fmt.Errorf("inserting item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading new item id: %w", err)
	}
	return id, nil
}

// Rename updates oldPath's row in place to newPath.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) error {
	exists, err := s.Exists(ctx, newPath)
	if err != nil {
		return err
	}
	if exists {
		return ErrExists{Path: newPath}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE items SET path = ? WHERE path = ?`, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("renaming item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("renaming item: %w", err)
	}
	if n == 0 {
		return ErrNotFound{Path: oldPath}
	}
	return nil
}

// Remove deletes path's row. A missing path is not an error.
func (s *Store) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE path = ?`, path); err != nil {
		return fmt.Errorf("removing item: %w", err)
	}
	return nil
}

// Exists reports whether path has an item row.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM items WHERE path = ? LIMIT 1`, path).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking item existence: %w", err)
	}
	return true, nil
}

// PathForPoint returns the path recorded against pointID. If more than one
// path maps to the same point id, the most recently inserted one wins.
func (s *Store) PathForPoint(ctx context.Context, pointID int64) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM items WHERE point_id = ? ORDER BY id DESC LIMIT 1`, pointID).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound{}
	}
	if err != nil {
		return "", fmt.Errorf("looking up path for point: %w", err)
	}
	return path, nil
}

// Get returns the item stored for path.
func (s *Store) Get(ctx context.Context, path string) (Item, error) {
	var item Item
	err := s.db.QueryRowContext(ctx, `SELECT id, path, point_id FROM items WHERE path = ?`, path).
		Scan(&item.ID, &item.Path, &item.PointID)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound{Path: path}
	}
	if err != nil {
		return Item{}, fmt.Errorf("reading item: %w", err)
	}
	return item, nil
}
