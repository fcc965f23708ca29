/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: client_test.go
Description: Tests for the HTTP document store client against an httptest server.
*/

package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kleascm/tablemend/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = remote.DocumentRef{ProjectID: "p1", DocumentID: "doc 7"}

type fakeAPI struct {
	mu        sync.Mutex
	uploaded  []byte
	uploadCT  string
	status    map[string]any
	requestID []string
	failWrite bool
}

func (f *fakeAPI) handler(t *testing.T, srvURL func() string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/documents/p1/doc%207/url", func(w http.ResponseWriter, r *http.Request) {
		f.track(r)
		_ = json.NewEncoder(w).Encode(map[string]string{"csvUrl": srvURL() + "/blob/csv", "pdfUrl": srvURL() + "/blob/pdf"})
	})
	mux.HandleFunc("GET /api/documents/p1/doc%207", func(w http.ResponseWriter, r *http.Request) {
		f.track(r)
		_ = json.NewEncoder(w).Encode(map[string]any{"document": map[string]string{"id": "doc 7", "name": "invoice.pdf"}})
	})
	mux.HandleFunc("GET /blob/csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "a;b\n1;2")
	})
	mux.HandleFunc("POST /api/documents/update", func(w http.ResponseWriter, r *http.Request) {
		f.track(r)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["projectId"])
		assert.Equal(t, "doc 7", body["fileId"])
		if f.failWrite {
			http.Error(w, "bucket unavailable", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"signedUrl": srvURL() + "/upload?sig=abc", "gcsFilePath": "projects/p1/invoice.csv"})
	})
	mux.HandleFunc("PUT /upload", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploaded = data
		f.uploadCT = r.Header.Get("Content-Type")
		f.mu.Unlock()
	})
	mux.HandleFunc("PATCH /api/documents/p1/doc%207/status", func(w http.ResponseWriter, r *http.Request) {
		f.track(r)
		var fields map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		f.mu.Lock()
		f.status = fields
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeAPI) track(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestID = append(f.requestID, r.Header.Get("X-Request-ID"))
}

func newClient(t *testing.T, api *fakeAPI) *remote.HTTPClient {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(api.handler(t, func() string { return srv.URL }))
	t.Cleanup(srv.Close)
	c, err := remote.NewHTTPClient(remote.ClientConfig{BaseURL: srv.URL + "/api/", Headers: map[string]string{"Authorization": "Bearer t"}}, srv.Client(), nil)
	require.NoError(t, err)
	return c
}

func TestFetchFlow(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)
	ctx := context.Background()

	urls, err := c.FetchContentURL(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, urls.SourceDocURL, "/blob/pdf")

	data, err := c.FetchContent(ctx, urls.TabularURL)
	require.NoError(t, err)
	assert.Equal(t, "a;b\n1;2", string(data))

	name, err := c.FetchDisplayName(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", name)

	for _, id := range api.requestID {
		assert.Len(t, id, 36)
	}
}

func TestWriteContentUsesSignedURL(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)

	loc, err := c.WriteContent(context.Background(), ref, []byte(`"a"`+"\n"+`"1"`))
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/invoice.csv", loc)
	assert.Equal(t, "\"a\"\n\"1\"", string(api.uploaded))
	assert.Equal(t, remote.ContentType, api.uploadCT)
}

func TestWriteContentFailure(t *testing.T) {
	api := &fakeAPI{failWrite: true}
	c := newClient(t, api)

	_, err := c.WriteContent(context.Background(), ref, []byte("x"))
	var se *remote.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "bucket unavailable", se.Body)
	assert.Nil(t, api.uploaded)
}

func TestUpdateStatus(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)
	require.NoError(t, c.UpdateStatus(context.Background(), ref, remote.StatusFields{"status": 4}))
	assert.Equal(t, float64(4), api.status["status"])
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	_, err := remote.NewHTTPClient(remote.ClientConfig{BaseURL: "not a url"}, nil, nil)
	assert.Error(t, err)
}

func TestConvertedName(t *testing.T) {
	assert.Equal(t, "invoice.csv", remote.ConvertedName("invoice.pdf"))
	assert.Equal(t, "SCAN.csv", remote.ConvertedName("SCAN.PDF"))
	assert.Equal(t, "report.pdf.csv", remote.ConvertedName("report.pdf.pdf"))
	assert.Equal(t, "notes.txt", remote.ConvertedName("notes.txt"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := remote.NewMemoryStore()
	s.Add(ref, "invoice.pdf", []byte("a\n1"))

	urls, err := s.FetchContentURL(ctx, ref)
	require.NoError(t, err)
	data, err := s.FetchContent(ctx, urls.TabularURL)
	require.NoError(t, err)
	assert.Equal(t, "a\n1", string(data))

	loc, err := s.WriteContent(ctx, ref, []byte("b\n2"))
	require.NoError(t, err)
	assert.Equal(t, "projects/p1/invoice.csv", loc)
	doc, ok := s.Document(ref)
	require.True(t, ok)
	assert.Equal(t, 1, doc.WriteCount)

	s.WriteErr = errors.New("down")
	_, err = s.WriteContent(ctx, ref, []byte("c"))
	assert.Error(t, err)

	_, err = s.FetchDisplayName(ctx, remote.DocumentRef{ProjectID: "x", DocumentID: "y"})
	assert.ErrorIs(t, err, remote.ErrDocumentNotFound)
}
