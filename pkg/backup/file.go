/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: file.go
Description: Directory-backed backup store. Each document's record is one JSON file
replaced atomically (temp file, fsync, rename) so a crash never leaves a torn backup.
*/

package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileExt = ".json"

// FileStore writes one file per document under a directory
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("backup directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(documentID string) string {
	return filepath.Join(s.dir, url.PathEscape(KeyFor(documentID))+fileExt)
}

func (s *FileStore) Put(ctx context.Context, rec Record) error {
	if err := validID(rec.DocumentID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := writeAtomic(s.path(rec.DocumentID), data); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, documentID string) (Record, error) {
	data, err := os.ReadFile(s.path(documentID))
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read backup: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode backup: %w", err)
	}
	return rec, nil
}

func (s *FileStore) Delete(ctx context.Context, documentID string) error {
	err := os.Remove(s.path(documentID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var out []Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil || !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		rec, err := s.Get(ctx, strings.TrimPrefix(key, KeyPrefix))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// best effort
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
