/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: memory.go
Description: In-process document store used for offline runs and tests. Failures can
be injected per operation.
*/

package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrDocumentNotFound is returned for unknown documents
var ErrDocumentNotFound = errors.New("document not found")

// Document is the stored state of one document
type Document struct {
	Name       string
	Content    []byte
	SourceDoc  []byte
	Status     StatusFields
	WriteCount int
}

// MemoryStore implements DocumentStore in memory
type MemoryStore struct {
	mu          sync.Mutex
	docs        map[DocumentRef]*Document
	submissions []Submission

	// WriteErr, when set, fails every WriteContent call
	WriteErr error
	// FetchErr, when set, fails every content fetch
	FetchErr error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[DocumentRef]*Document)}
}

// Add registers a document with its name and tabular content
func (s *MemoryStore) Add(ref DocumentRef, name string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref] = &Document{Name: name, Content: append([]byte(nil), content...)}
}

// Document returns a copy of the stored document
func (s *MemoryStore) Document(ref DocumentRef) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[ref]
	if !ok {
		return Document{}, false
	}
	out := *d
	out.Content = append([]byte(nil), d.Content...)
	return out, true
}

// Submissions returns recorded submissions
func (s *MemoryStore) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Submission(nil), s.submissions...)
}

func (s *MemoryStore) lookup(ref DocumentRef) (*Document, error) {
	d, ok := s.docs[ref]
	if !ok {
		return nil, fmt.Errorf("%s: %w", ref, ErrDocumentNotFound)
	}
	return d, nil
}

func (s *MemoryStore) FetchContentURL(ctx context.Context, ref DocumentRef) (ContentURLs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(ref); err != nil {
		return ContentURLs{}, err
	}
	return ContentURLs{
		TabularURL:   "mem://" + ref.String() + "/tabular",
		SourceDocURL: "mem://" + ref.String() + "/source",
	}, nil
}

func (s *MemoryStore) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	path := strings.TrimPrefix(contentURL, "mem://")
	parts := strings.Split(path, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("unsupported content url: %s", contentURL)
	}
	d, err := s.lookup(DocumentRef{ProjectID: parts[0], DocumentID: parts[1]})
	if err != nil {
		return nil, err
	}
	if parts[2] == "source" {
		return append([]byte(nil), d.SourceDoc...), nil
	}
	return append([]byte(nil), d.Content...), nil
}

func (s *MemoryStore) WriteContent(ctx context.Context, ref DocumentRef, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return "", s.WriteErr
	}
	d, err := s.lookup(ref)
	if err != nil {
		return "", err
	}
	d.Content = append([]byte(nil), content...)
	d.WriteCount++
	return "projects/" + ref.ProjectID + "/" + ConvertedName(d.Name), nil
}

func (s *MemoryStore) FetchDisplayName(ctx context.Context, ref DocumentRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(ref)
	if err != nil {
		return "", err
	}
	return d.Name, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, ref DocumentRef, fields StatusFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.lookup(ref)
	if err != nil {
		return err
	}
	if d.Status == nil {
		d.Status = make(StatusFields, len(fields))
	}
	for k, v := range fields {
		d.Status[k] = v
	}
	return nil
}

func (s *MemoryStore) RecordSubmission(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, sub)
	return nil
}
