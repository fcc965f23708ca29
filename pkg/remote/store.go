/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store.go
Description: Contract of the remote document store consumed by the editing engine.
*/

package remote

import (
	"context"
	"fmt"
)

// DocumentRef identifies a document within a project
type DocumentRef struct {
	ProjectID  string
	DocumentID string
}

func (r DocumentRef) String() string {
	return r.ProjectID + "/" + r.DocumentID
}

// ContentURLs locate a document's tabular content and its source document
type ContentURLs struct {
	TabularURL   string `json:"csvUrl"`
	SourceDocURL string `json:"pdfUrl"`
}

// Submission records who submitted which saved file
type Submission struct {
	ProjectID  string `json:"projectId"`
	DocumentID string `json:"documentId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	FileName   string `json:"fileName"`
	FileURL    string `json:"fileUrl"`
	CompanyID  string `json:"companyId"`
}

// StatusFields is an opaque set of workflow fields passed through to the store
type StatusFields map[string]any

// DocumentStore is the remote persistence collaborator
type DocumentStore interface {
	FetchContentURL(ctx context.Context, ref DocumentRef) (ContentURLs, error)
	FetchContent(ctx context.Context, url string) ([]byte, error)
	WriteContent(ctx context.Context, ref DocumentRef, content []byte) (string, error)
	FetchDisplayName(ctx context.Context, ref DocumentRef) (string, error)
	UpdateStatus(ctx context.Context, ref DocumentRef, fields StatusFields) error
	RecordSubmission(ctx context.Context, s Submission) error
}

// StatusError is a non-2xx response from the store
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: remote returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote returned status %d: %s", e.Op, e.StatusCode, e.Body)
}
