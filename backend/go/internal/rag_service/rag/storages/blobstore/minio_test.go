package blobstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	err := classify("t/1-a.pdf", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound})
	assert.ErrorIs(t, err, schema.ErrDownload)
	assert.ErrorIs(t, err, schema.ErrNotFound)

	err = classify("t/1-a.pdf", errors.New("connection reset"))
	assert.ErrorIs(t, err, schema.ErrDownload)
	assert.NotErrorIs(t, err, schema.ErrNotFound)
}

func TestDownloadMissingObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	store := NewMinioStore(client, "uploads")
	err = store.Download(context.Background(), "tenant/1-missing.pdf", filepath.Join(t.TempDir(), "out.pdf"))
	assert.ErrorIs(t, err, schema.ErrNotFound)
}
