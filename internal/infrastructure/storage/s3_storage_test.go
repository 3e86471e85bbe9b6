package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 keeps objects in memory and mimics the error types of the real service
type fakeS3 struct {
	mu            sync.Mutex
	objects       map[string][]byte
	bucketExists  bool
	createdBucket bool
	putErr        error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, bucketExists: true}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(b)) {
		return nil, errors.New("content length mismatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(ctx context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.bucketExists = true
	f.createdBucket = true
	return &s3.CreateBucketOutput{}, nil
}

func validS3Config() *config.StorageConfig {
	return &config.StorageConfig{
		Backend:      BackendS3,
		Bucket:       "ifc-uploads",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Region:       "us-east-1",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func newFakeS3Storage(t *testing.T) (*S3FileStorage, *fakeS3) {
	fake := newFakeS3()
	s, err := NewS3FileStorage(validS3Config(), WithLogger(zaptest.NewLogger(t)), withClient(fake))
	require.NoError(t, err)
	return s, fake
}

func TestNewS3FileStorage_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3FileStorage(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validS3Config()
			tt.mutate(cfg)
			_, err := NewS3FileStorage(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config creates storage", func(t *testing.T) {
		s, err := NewS3FileStorage(validS3Config())
		require.NoError(t, err)
		assert.Equal(t, "ifc-uploads", s.GetBucket())
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		cfg := validS3Config()
		cfg.Endpoint = "s3.example.com"
		cfg.UseSSL = true
		_, err := NewS3FileStorage(cfg)
		require.NoError(t, err)
	})
}

func TestS3FileStorage_SaveOpenDelete(t *testing.T) {
	s, fake := newFakeS3Storage(t)
	ctx := context.Background()

	key, size, err := s.Save(ctx, "dir/house.ifc", strings.NewReader(ifcHeader))
	require.NoError(t, err)
	assert.Equal(t, int64(len(ifcHeader)), size)
	assert.True(t, strings.HasSuffix(key, "/house.ifc"))
	assert.Contains(t, fake.objects, key)

	other, _, err := s.Save(ctx, "house.ifc", strings.NewReader("second"))
	require.NoError(t, err)
	assert.NotEqual(t, key, other, "same file name gets a distinct key")

	r, err := s.Open(ctx, key)
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, ifcHeader, string(b))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, key), "deleting twice is fine")
}

func TestS3FileStorage_Save_Errors(t *testing.T) {
	s, fake := newFakeS3Storage(t)
	ctx := context.Background()

	_, _, err := s.Save(ctx, "..", strings.NewReader("x"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	fake.putErr = errors.New("boom")
	_, _, err = s.Save(ctx, "house.ifc", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload object")
}

func TestS3FileStorage_LocalPath(t *testing.T) {
	s, _ := newFakeS3Storage(t)
	ctx := context.Background()

	key, _, err := s.Save(ctx, "house.ifc", strings.NewReader(ifcHeader))
	require.NoError(t, err)

	p, cleanup, err := s.LocalPath(ctx, key)
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, ifcHeader, string(b))
	cleanup()

	_, _, err = s.LocalPath(ctx, "nope/house.ifc")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestS3FileStorage_EmptyKey(t *testing.T) {
	s, _ := newFakeS3Storage(t)
	ctx := context.Background()

	_, err := s.Open(ctx, "")
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, ""))
}

func TestS3FileStorage_EnsureBucket(t *testing.T) {
	t.Run("existing bucket", func(t *testing.T) {
		s, fake := newFakeS3Storage(t)
		require.NoError(t, s.EnsureBucket(context.Background()))
		assert.False(t, fake.createdBucket)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		s, fake := newFakeS3Storage(t)
		fake.bucketExists = false
		require.NoError(t, s.EnsureBucket(context.Background()))
		assert.True(t, fake.createdBucket)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	t.Run("filesystem", func(t *testing.T) {
		s, err := New(ctx, &config.StorageConfig{Backend: BackendFilesystem, MediaRoot: t.TempDir()}, logger)
		require.NoError(t, err)
		assert.IsType(t, &FilesystemStorage{}, s)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(ctx, &config.StorageConfig{Backend: "ftp"}, logger)
		assert.Error(t, err)
	})
}
