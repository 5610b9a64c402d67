package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xborder/backend/internal/infrastructure/config"
)

func testS3Config(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:            "labels",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Region:            "us-east-1",
		Endpoint:          endpoint,
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewS3DocumentStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3DocumentStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3DocumentStorage(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3DocumentStorage(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3DocumentStorage(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("adds scheme when missing", func(t *testing.T) {
		cfg := testS3Config("localhost:9000")
		cfg.UseSSL = true
		s, err := NewS3DocumentStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, "labels", s.Bucket())
	})

	t.Run("default presign expiration", func(t *testing.T) {
		cfg := testS3Config("http://localhost:9000")
		cfg.PresignExpiration = 0
		s, err := NewS3DocumentStorage(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, s.presignExpiry)
	})
}

func TestS3DocumentStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3DocumentStorage(testS3Config("http://localhost:9000"), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	_, _, err = s.GenerateDownloadURL(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ErrKeyRequired)

	u, expiresAt, err := s.GenerateDownloadURL(context.Background(), "labels/swiftair/ord-1.txt", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/labels/labels/swiftair/ord-1.txt?"))
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=3600")
	assert.Contains(t, u, "response-content-disposition=")
	assert.Contains(t, u, "ord-1.txt")
	assert.True(t, expiresAt.After(time.Now()))
}

// fakeS3 accepts PUT and answers HEAD from what was stored
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		if f.headers != nil {
			f.headers[r.URL.Path] = r.Header.Clone()
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3DocumentStorage_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s, err := NewS3DocumentStorage(testS3Config(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "manifests/m-1.csv", []byte("order,tracking\n"), "text/csv"))
	fake.mu.Lock()
	assert.Equal(t, "order,tracking\n", string(fake.objects["/labels/manifests/m-1.csv"]))
	h := fake.headers["/labels/manifests/m-1.csv"]
	assert.Equal(t, "manifests", h.Get("X-Amz-Meta-Document-Kind"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.Equal(t, "text/csv", h.Get("Content-Type"))
	fake.mu.Unlock()

	ok, err := s.ObjectExists(ctx, "manifests/m-1.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ObjectExists(ctx, "manifests/missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteObject(ctx, "manifests/m-1.csv"))
	ok, err = s.ObjectExists(ctx, "manifests/m-1.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3DocumentStorage_EmptyKeys(t *testing.T) {
	s, err := NewS3DocumentStorage(testS3Config("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Upload(ctx, "", []byte("x"), "text/plain"), ErrKeyRequired)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), ErrKeyRequired)
	_, err = s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func TestS3Endpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		useSSL  bool
		want    string
		wantErr bool
	}{
		{name: "default", raw: "", want: defaultS3Endpoint},
		{name: "bare host plain", raw: "minio:9000", want: "http://minio:9000"},
		{name: "bare host tls", raw: "minio:9000", useSSL: true, want: "https://minio:9000"},
		{name: "full url kept", raw: "https://s3.eu-west-1.amazonaws.com", want: "https://s3.eu-west-1.amazonaws.com"},
		{name: "no host", raw: "http://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s3Endpoint(tt.raw, tt.useSSL)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStorageConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentKind(t *testing.T) {
	assert.Equal(t, "labels", documentKind("labels/swiftair/ord-1.txt"))
	assert.Equal(t, "manifests", documentKind("manifests/m-1.csv"))
	assert.Equal(t, "document", documentKind("loose.txt"))
}
