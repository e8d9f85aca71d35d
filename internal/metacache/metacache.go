// Package metacache is a lightweight per-file cache of content hash, mtime,
// and size, used to skip re-parsing files whose on-disk state has not
// changed since the last index run.
//
// Backed by a single SQLite table keyed by absolute path.
package metacache

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    file_path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    last_modified TEXT NOT NULL,
    size_bytes INTEGER NOT NULL,
    indexed_at TEXT NOT NULL
)
`

// Entry is the cached state of a single file at the time it was last indexed.
type Entry struct {
	ContentHash  string
	LastModified time.Time
	SizeBytes    int64
	IndexedAt    time.Time
}

// Cache is a sqlite-backed store of Entry keyed by absolute file path.
// The zero value is not usable; construct with Open.
type Cache struct {
	db *sql.DB
}

// Open creates (if absent) and opens the sqlite database at path and ensures
// its schema exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("metacache: open %s: %w", path, err)
	}
	if _, err := db.Exec(createFilesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("metacache: create schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached entry for path. The second return value is false
// if no entry exists.
func (c *Cache) Get(path string) (Entry, bool, error) {
	var e Entry
	var lastModified, indexedAt string

	err := sq.Select("content_hash", "last_modified", "size_bytes", "indexed_at").
		From("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(c.db).
		QueryRow().
		Scan(&e.ContentHash, &lastModified, &e.SizeBytes, &indexedAt)

	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("metacache: get %s: %w", path, err)
	}

	e.LastModified, err = time.Parse(time.RFC3339, lastModified)
	if err != nil {
		return Entry{}, false, fmt.Errorf("metacache: parse last_modified for %s: %w", path, err)
	}
	e.IndexedAt, err = time.Parse(time.RFC3339, indexedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("metacache: parse indexed_at for %s: %w", path, err)
	}
	return e, true, nil
}

// Set inserts or replaces the cached entry for path.
func (c *Cache) Set(path string, e Entry) error {
	_, err := sq.Insert("files").
		Columns("file_path", "content_hash", "last_modified", "size_bytes", "indexed_at").
		Values(path, e.ContentHash, e.LastModified.UTC().Format(time.RFC3339), e.SizeBytes, e.IndexedAt.UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(c.db).
		Exec()
	if err != nil {
		return fmt.Errorf("metacache: set %s: %w", path, err)
	}
	return nil
}

// SetBatch writes multiple entries within a single transaction.
func (c *Cache) SetBatch(entries map[string]Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("metacache: begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO files
		(file_path, content_hash, last_modified, size_bytes, indexed_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("metacache: prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for path, e := range entries {
		if _, err := stmt.Exec(path, e.ContentHash, e.LastModified.UTC().Format(time.RFC3339), e.SizeBytes, e.IndexedAt.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("metacache: batch set %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("metacache: commit batch: %w", err)
	}
	return nil
}

// Remove deletes the cached entry for path, if any.
func (c *Cache) Remove(path string) error {
	_, err := sq.Delete("files").
		Where(sq.Eq{"file_path": path}).
		RunWith(c.db).
		Exec()
	if err != nil {
		return fmt.Errorf("metacache: remove %s: %w", path, err)
	}
	return nil
}

// Clear deletes every cached entry.
func (c *Cache) Clear() error {
	_, err := sq.Delete("files").RunWith(c.db).Exec()
	if err != nil {
		return fmt.Errorf("metacache: clear: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("files").RunWith(c.db).QueryRow().Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("metacache: len: %w", err)
	}
	return n, nil
}

// HasChanged reports whether path's current on-disk content hash differs
// from what's cached, or whether it is not cached at all. A cache miss is
// treated as changed.
func (c *Cache) HasChanged(path string, currentHash string) (bool, error) {
	e, ok, err := c.Get(path)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return e.ContentHash != currentHash, nil
}
