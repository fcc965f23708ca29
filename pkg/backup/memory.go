/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: memory.go
Description: In-memory backup store, the session-scoped equivalent of browser local storage.
*/

package backup

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in a map keyed by backup key
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(ctx context.Context, rec Record) error {
	if err := validID(rec.DocumentID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[KeyFor(rec.DocumentID)] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, documentID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[KeyFor(documentID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, KeyFor(documentID))
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
