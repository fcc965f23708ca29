/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sqlite.go
Description: SQLite-backed backup store. One row per document key; saves upsert.
*/

package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const backupSchema = `
CREATE TABLE IF NOT EXISTS backups (
    key         TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    content     TEXT NOT NULL,
    delimiter   TEXT NOT NULL DEFAULT '',
    saved_at    INTEGER NOT NULL  -- UnixNano
);
`

// SQLiteStore keeps backups in a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("backup database path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.Exec(backupSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	if err := validID(rec.DocumentID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO backups (key, document_id, content, delimiter, saved_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    content = excluded.content,
    delimiter = excluded.delimiter,
    saved_at = excluded.saved_at`,
		KeyFor(rec.DocumentID), rec.DocumentID, rec.Content, rec.Delimiter, rec.SavedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, documentID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, content, delimiter, saved_at FROM backups WHERE key = ?`, KeyFor(documentID))
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read backup: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backups WHERE key = ?`, KeyFor(documentID)); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, content, delimiter, saved_at FROM backups ORDER BY document_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var savedAt int64
	if err := sc.Scan(&rec.DocumentID, &rec.Content, &rec.Delimiter, &savedAt); err != nil {
		return Record{}, err
	}
	rec.SavedAt = time.Unix(0, savedAt)
	return rec, nil
}
