package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	infraconfig "github.com/ifcvalidation/bff/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3FileStorage implements FileStorage
var _ appvalidation.FileStorage = (*S3FileStorage)(nil)

// s3API is the subset of the S3 client used by S3FileStorage
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3FileStorage implements FileStorage on any S3-compatible object store
// (AWS S3, MinIO, RustFS, Backblaze B2).
// Keys are "<uuid>/<file name>" so concurrent uploads of the same name never collide.
type S3FileStorage struct {
	client s3API
	bucket string
	logger *zap.Logger
}

// S3FileStorageOption is a functional option for configuring S3FileStorage
type S3FileStorageOption func(*S3FileStorage)

// WithLogger sets a custom logger for S3FileStorage
func WithLogger(logger *zap.Logger) S3FileStorageOption {
	return func(s *S3FileStorage) {
		s.logger = logger
	}
}

// withClient replaces the S3 client; used by tests
func withClient(client s3API) S3FileStorageOption {
	return func(s *S3FileStorage) {
		s.client = client
	}
}

// NewS3FileStorage creates a new S3FileStorage from configuration.
func NewS3FileStorage(cfg *infraconfig.StorageConfig, opts ...S3FileStorageOption) (*S3FileStorage, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	storage := &S3FileStorage{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(storage)
	}

	return storage, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3FileStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Storage bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// Save uploads the content. The body is spooled to a temporary file first
// because signed PutObject requests need a seekable body of known length.
func (s *S3FileStorage) Save(ctx context.Context, fileName string, content io.Reader) (string, int64, error) {
	name, err := cleanFileName(fileName)
	if err != nil {
		return "", 0, err
	}

	tmpPath, cleanup, err := spoolToTemp(ctx, name, content)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to reopen spooled upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	key := path.Join(uuid.NewString(), name)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/x-step"),
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Info("File stored",
		zap.String("file_name", fileName),
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size()),
	)
	return key, info.Size(), nil
}

// Open streams an object from the bucket
func (s *S3FileStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" {
		return nil, errors.New("storage key is required")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, shared.ErrNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return out.Body, nil
}

// Delete deletes an object from storage. S3 treats a missing key as success.
func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// LocalPath downloads the object into a temporary file
func (s *S3FileStorage) LocalPath(ctx context.Context, key string) (string, func(), error) {
	body, err := s.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()
	return spoolToTemp(ctx, key, body)
}

// GetBucket returns the bucket name
func (s *S3FileStorage) GetBucket() string {
	return s.bucket
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// Some S3-compatible services return the code without the typed error
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}
