package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/storefront/backend/internal/infrastructure/config"
)

func TestNewS3EvidenceVerifier_Validation(t *testing.T) {
	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3EvidenceVerifier(context.Background(), config.StorageConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("access key without secret returns error", func(t *testing.T) {
		_, err := NewS3EvidenceVerifier(context.Background(), config.StorageConfig{
			Bucket:      "evidence",
			AccessKeyID: "key",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret access key")
	})

	t.Run("valid config", func(t *testing.T) {
		v, err := NewS3EvidenceVerifier(context.Background(), config.StorageConfig{
			Bucket:          "evidence",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "evidence", v.Bucket())
	})
}

// fakeS3 answers HEAD requests for path-style object URLs
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]bool
	status  int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if r.Method == http.MethodHead && f.objects[r.URL.Path] {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func newTestVerifier(t *testing.T, fake *fakeS3) *S3EvidenceVerifier {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	v, err := NewS3EvidenceVerifier(context.Background(), config.StorageConfig{
		Bucket:          "evidence",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return v
}

func TestS3EvidenceVerifier_Exists(t *testing.T) {
	fake := &fakeS3{objects: map[string]bool{"/evidence/payments/pay_1/receipt.png": true}}
	v := newTestVerifier(t, fake)

	t.Run("present object", func(t *testing.T) {
		ok, err := v.Exists(context.Background(), "payments/pay_1/receipt.png")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("missing object", func(t *testing.T) {
		ok, err := v.Exists(context.Background(), "payments/pay_1/other.png")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := v.Exists(context.Background(), "")
		assert.Error(t, err)
	})
}

func TestS3EvidenceVerifier_StorageFailure(t *testing.T) {
	fake := &fakeS3{status: http.StatusForbidden}
	v := newTestVerifier(t, fake)

	ok, err := v.Exists(context.Background(), "payments/pay_1/receipt.png")
	require.Error(t, err)
	assert.False(t, ok)
}
