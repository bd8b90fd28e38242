package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig(endpoint string) *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:            "ledger-archives",
		AccessKey:         "test-key",
		SecretKey:         "test-secret",
		Region:            "us-east-1",
		Endpoint:          endpoint,
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "configuration is required"},
		{name: "missing bucket", cfg: &config.StorageConfig{AccessKey: "k", SecretKey: "s"}, wantErr: "bucket is required"},
		{name: "missing access key", cfg: &config.StorageConfig{Bucket: "b", SecretKey: "s"}, wantErr: "access key is required"},
		{name: "missing secret key", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k"}, wantErr: "secret key is required"},
		{name: "endpoint without scheme", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "minio:9000"}},
		{name: "ssl endpoint without scheme", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "minio:9000", UseSSL: true}},
		{name: "default endpoint and region", cfg: &config.StorageConfig{Bucket: "b", AccessKey: "k", SecretKey: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewS3ObjectStorage(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 15*time.Minute, s.presignExpiration)
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
		wantErr  bool
	}{
		{"", false, "http://localhost:9000", false},
		{"minio:9000", false, "http://minio:9000", false},
		{"minio:9000", true, "https://minio:9000", false},
		{"https://s3.eu-west-1.amazonaws.com", false, "https://s3.eu-west-1.amazonaws.com", false},
		{"http://", false, "", true},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3ObjectStorageOptions(t *testing.T) {
	cfg := testStorageConfig("http://localhost:9000")

	s, err := NewS3ObjectStorage(cfg, WithLogger(zaptest.NewLogger(t)), WithPresignExpiration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.presignExpiration)
	assert.Equal(t, "ledger-archives", s.GetBucket())
}

func TestS3ObjectStorage_EmptyKey(t *testing.T) {
	s, err := NewS3ObjectStorage(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorContains(t, s.Upload(ctx, "", []byte("x"), xlsxContentType), "storage key is required")

	exists, err := s.ObjectExists(ctx, "")
	assert.ErrorContains(t, err, "storage key is required")
	assert.False(t, exists)

	url, _, err := s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorContains(t, err, "storage key is required")
	assert.Empty(t, url)
}

func TestS3ObjectStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3ObjectStorage(testStorageConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, expiresAt, err := s.GenerateDownloadURL(context.Background(), "stock-cards/2024-03.xlsx", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "localhost:9000")
	assert.Contains(t, url, "ledger-archives")
	assert.Contains(t, url, "2024-03.xlsx")
	assert.Contains(t, url, "X-Amz-Signature")
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	_, expiresAt, err = s.GenerateDownloadURL(context.Background(), "stock-cards/2024-03.xlsx", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)
}

// fakeS3 answers path-style object requests from an in-memory map.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	names   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}, names: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		f.names[key] = r.Header.Get("Content-Disposition")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func TestS3ObjectStorage_UploadAndExists(t *testing.T) {
	fake, srv := newFakeS3(t)
	s, err := NewS3ObjectStorage(testStorageConfig(srv.URL), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := s.ObjectExists(ctx, "stock-cards/2024-03.xlsx")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Upload(ctx, "stock-cards/2024-03.xlsx", []byte("workbook"), xlsxContentType))

	exists, err = s.ObjectExists(ctx, "stock-cards/2024-03.xlsx")
	require.NoError(t, err)
	assert.True(t, exists)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Contains(t, string(fake.objects["ledger-archives/stock-cards/2024-03.xlsx"]), "workbook")
	assert.Equal(t, xlsxContentType, fake.types["ledger-archives/stock-cards/2024-03.xlsx"])
	assert.Equal(t, `attachment; filename="2024-03.xlsx"`, fake.names["ledger-archives/stock-cards/2024-03.xlsx"])
}

func TestS3ObjectStorage_HeadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	s, err := NewS3ObjectStorage(testStorageConfig(srv.URL))
	require.NoError(t, err)

	exists, err := s.ObjectExists(context.Background(), "stock-cards/2024-03.xlsx")
	assert.Error(t, err, "access errors are not reported as a missing object")
	assert.False(t, exists)
}

// TestIntegration_EnsureBucketAndUpload runs against a real S3-compatible server
// when STORAGE_TEST_ENDPOINT is set, e.g. a local MinIO.
func TestIntegration_EnsureBucketAndUpload(t *testing.T) {
	endpoint := os.Getenv("STORAGE_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("STORAGE_TEST_ENDPOINT not set")
	}
	cfg := testStorageConfig(endpoint)
	cfg.AccessKey = os.Getenv("STORAGE_TEST_ACCESS_KEY")
	cfg.SecretKey = os.Getenv("STORAGE_TEST_SECRET_KEY")

	s, err := NewS3ObjectStorage(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	require.NoError(t, s.EnsureBucket(ctx))
	require.NoError(t, s.Upload(ctx, "integration/2024-03.xlsx", []byte("data"), xlsxContentType))

	exists, err := s.ObjectExists(ctx, "integration/2024-03.xlsx")
	require.NoError(t, err)
	assert.True(t, exists)
}
