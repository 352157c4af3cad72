package s3_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanterms/internal/config"
	"loanterms/internal/domain"
	"loanterms/internal/port"
	s3storage "loanterms/internal/storage/s3"
)

// fakeS3 serves path-style PUT and GET requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		_, _ = w.Write(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (port.ObjectStorage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := s3storage.NewS3Client(context.Background(), &config.S3Config{
		Region:    "us-east-1",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	return client, fake
}

func TestS3Client_UploadDownload(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	payload := []byte(`{"id":"Acme Bank"}`)
	out, err := client.Upload(ctx, port.UploadInput{
		Bucket:      "records",
		Key:         "archive/Acme Bank.json",
		Body:        bytes.NewReader(payload),
		ContentType: "application/json",
		Size:        int64(len(payload)),
	})
	require.NoError(t, err)
	assert.Equal(t, `"etag-1"`, out.ETag)
	assert.Equal(t, "s3://records/archive/Acme Bank.json", out.Location)
	assert.Equal(t, "application/json", fake.types["/records/archive/Acme Bank.json"])

	got, err := client.Download(ctx, "records", "archive/Acme Bank.json")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestS3Client_DownloadMissing(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Download(context.Background(), "records", "nope.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, strings.Contains(err.Error(), "records/nope.json"))
}
