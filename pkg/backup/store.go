/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Local backup storage for unsaved tabular text. Holds exactly one record per
document identifier; writing a record for the same document overwrites it. Memory, file
and SQLite backends share the Store contract.
*/

package backup

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// KeyPrefix prefixes every backup key
const KeyPrefix = "editor_backup_"

// ErrNotFound is returned when no backup exists for a document
var ErrNotFound = errors.New("backup not found")

// Record is the single backup slot of one document. Content is raw serialized
// tabular text so it can be recovered independently of any in-memory schema.
type Record struct {
	DocumentID string    `json:"documentId"`
	Content    string    `json:"content"`
	Delimiter  string    `json:"delimiter,omitempty"`
	SavedAt    time.Time `json:"savedAt"`
}

// Store persists backup records. Put overwrites; Delete of a missing record is not an error.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, documentID string) (Record, error)
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// KeyFor returns the storage key of a document's backup
func KeyFor(documentID string) string {
	return KeyPrefix + documentID
}

// Driver names accepted by Open
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Open constructs a store for driver. path is a directory for the file driver and a
// database file for the sqlite driver; it is ignored for memory.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return NewFileStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported backup driver: %s", driver)
	}
}

func validID(documentID string) error {
	if documentID == "" {
		return errors.New("document id must not be empty")
	}
	return nil
}
