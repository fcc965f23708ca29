/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store_test.go
Description: Contract tests run against every backup store backend.
*/

package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kleascm/tablemend/pkg/backup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]backup.Store {
	t.Helper()
	dir := t.TempDir()
	file, err := backup.NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	db, err := backup.NewSQLiteStore(filepath.Join(dir, "db", "backups.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]backup.Store{
		"memory": backup.NewMemoryStore(),
		"file":   file,
		"sqlite": db,
	}
}

func assertRecord(t *testing.T, want, got backup.Record) {
	t.Helper()
	assert.Equal(t, want.DocumentID, got.DocumentID)
	assert.Equal(t, want.Content, got.Content)
	assert.Equal(t, want.Delimiter, got.Delimiter)
	assert.True(t, want.SavedAt.Equal(got.SavedAt), "saved at %v, got %v", want.SavedAt, got.SavedAt)
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	saved := time.Date(2024, 3, 1, 12, 0, 0, 123, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "doc-1")
			assert.ErrorIs(t, err, backup.ErrNotFound)

			first := backup.Record{DocumentID: "doc-1", Content: "\"a\"\n\"1\"", Delimiter: ",", SavedAt: saved}
			require.NoError(t, store.Put(ctx, first))
			got, err := store.Get(ctx, "doc-1")
			require.NoError(t, err)
			assertRecord(t, first, got)

			// a second put overwrites the single slot
			second := backup.Record{DocumentID: "doc-1", Content: "\"a\"\n\"2\"", Delimiter: ";", SavedAt: saved.Add(time.Minute)}
			require.NoError(t, store.Put(ctx, second))
			require.NoError(t, store.Put(ctx, second))
			got, err = store.Get(ctx, "doc-1")
			require.NoError(t, err)
			assertRecord(t, second, got)

			other := backup.Record{DocumentID: "doc/with spaces", Content: "x", SavedAt: saved}
			require.NoError(t, store.Put(ctx, other))
			list, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "doc-1", list[0].DocumentID)
			assert.Equal(t, "doc/with spaces", list[1].DocumentID)

			require.NoError(t, store.Delete(ctx, "doc-1"))
			require.NoError(t, store.Delete(ctx, "doc-1"), "deleting a missing backup is not an error")
			_, err = store.Get(ctx, "doc-1")
			assert.ErrorIs(t, err, backup.ErrNotFound)

			assert.Error(t, store.Put(ctx, backup.Record{Content: "no id"}))
		})
	}
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := backup.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	require.NoError(t, store.Put(context.Background(), backup.Record{DocumentID: "d", Content: "c"}))

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d", list[0].DocumentID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must not be left behind")
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.db")
	store, err := backup.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), backup.Record{DocumentID: "d", Content: "c", SavedAt: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := backup.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	rec, err := reopened.Get(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, "c", rec.Content)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{"", backup.DriverMemory, backup.DriverFile, backup.DriverSQLite} {
		path := filepath.Join(dir, "store-"+driver)
		if driver == backup.DriverSQLite {
			path = filepath.Join(dir, "store.db")
		}
		store, err := backup.Open(driver, path)
		require.NoError(t, err, driver)
		require.NoError(t, store.Close())
	}
	_, err := backup.Open("redis", "")
	assert.ErrorContains(t, err, "unsupported backup driver")
	assert.Equal(t, "editor_backup_abc", backup.KeyFor("abc"))
}
