/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: client.go
Description: HTTP implementation of the remote document store. Content writes use the
signed-URL flow: request a write URL from the API, then PUT the tabular bytes to it.
Every request carries an X-Request-ID for correlation with server logs.
*/

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContentType of written tabular content
const ContentType = "text/csv; charset=utf-8"

// maxErrorBody bounds how much of an error response is kept
const maxErrorBody = 512

// ClientConfig configures the HTTP store client
type ClientConfig struct {
	BaseURL string            `json:"base_url"`
	Timeout time.Duration     `json:"timeout"`
	Headers map[string]string `json:"headers"`
}

// HTTPClient talks to the document API over HTTP
type HTTPClient struct {
	base    *url.URL
	headers map[string]string
	http    *http.Client
	logger  logrus.FieldLogger
}

// NewHTTPClient validates the base URL and builds a client.
// A nil httpClient creates one with the configured timeout.
func NewHTTPClient(config ClientConfig, httpClient *http.Client, logger logrus.FieldLogger) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url: %q", config.BaseURL)
	}
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &HTTPClient{base: base, headers: config.Headers, http: httpClient, logger: logger}, nil
}

func (c *HTTPClient) endpoint(parts ...string) string {
	u := *c.base
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u.RawPath = strings.TrimRight(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.Join(parts, "/")
	return u.String()
}

// FetchContentURL resolves where the document's content lives
func (c *HTTPClient) FetchContentURL(ctx context.Context, ref DocumentRef) (ContentURLs, error) {
	var out ContentURLs
	err := c.doJSON(ctx, "fetch content url", http.MethodGet, c.endpoint("documents", ref.ProjectID, ref.DocumentID, "url"), nil, &out)
	if err != nil {
		return ContentURLs{}, err
	}
	if out.TabularURL == "" {
		return ContentURLs{}, fmt.Errorf("fetch content url: response has no tabular url")
	}
	return out, nil
}

// FetchContent downloads raw bytes from a content URL
func (c *HTTPClient) FetchContent(ctx context.Context, contentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.send(req, "fetch content")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

type signedURLResponse struct {
	SignedURL   string `json:"signedUrl"`
	GCSFilePath string `json:"gcsFilePath"`
}

// WriteContent uploads content and returns its stored location
func (c *HTTPClient) WriteContent(ctx context.Context, ref DocumentRef, content []byte) (string, error) {
	var signed signedURLResponse
	body := map[string]string{"projectId": ref.ProjectID, "fileId": ref.DocumentID}
	if err := c.doJSON(ctx, "request write url", http.MethodPost, c.endpoint("documents", "update"), body, &signed); err != nil {
		return "", err
	}
	if signed.SignedURL == "" {
		return "", fmt.Errorf("request write url: response has no signed url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signed.SignedURL, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	resp, err := c.send(req, "upload content")
	if err != nil {
		return "", err
	}
	resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"document": ref.String(),
		"location": signed.GCSFilePath,
		"bytes":    len(content),
	}).Debug("Uploaded document content")
	return signed.GCSFilePath, nil
}

type documentInfoResponse struct {
	Document struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"document"`
}

// FetchDisplayName returns the document's display name
func (c *HTTPClient) FetchDisplayName(ctx context.Context, ref DocumentRef) (string, error) {
	var info documentInfoResponse
	if err := c.doJSON(ctx, "fetch display name", http.MethodGet, c.endpoint("documents", ref.ProjectID, ref.DocumentID), nil, &info); err != nil {
		return "", err
	}
	return info.Document.Name, nil
}

// UpdateStatus applies workflow fields to the document
func (c *HTTPClient) UpdateStatus(ctx context.Context, ref DocumentRef, fields StatusFields) error {
	return c.doJSON(ctx, "update status", http.MethodPatch, c.endpoint("documents", ref.ProjectID, ref.DocumentID, "status"), fields, nil)
}

// RecordSubmission stores a submission record
func (c *HTTPClient) RecordSubmission(ctx context.Context, s Submission) error {
	return c.doJSON(ctx, "record submission", http.MethodPost, c.endpoint("submissions"), s, nil)
}

func (c *HTTPClient) doJSON(ctx context.Context, op, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.send(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// send executes req and converts non-2xx responses into *StatusError
func (c *HTTPClient) send(req *http.Request, op string) (*http.Response, error) {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	entry := c.logger.WithFields(logrus.Fields{
		"op":         op,
		"status":     resp.StatusCode,
		"request_id": id,
		"elapsed":    time.Since(start),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		entry.Warn("Remote request failed")
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	entry.Debug("Remote request completed")
	return resp, nil
}
