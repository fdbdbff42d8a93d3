// Package storage checks uploaded document files in S3 compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ enrollment.FileReferenceChecker = (*S3FileStore)(nil)

// S3FileStore resolves document file references against one bucket.
// It works with AWS S3 and compatible servers (MinIO, RustFS).
type S3FileStore struct {
	client      *s3.Client
	bucket      string
	timeout     time.Duration
	maxAttempts int
	logger      *zap.Logger
}

// S3FileStoreOption configures an S3FileStore
type S3FileStoreOption func(*S3FileStore)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3FileStoreOption {
	return func(s *S3FileStore) {
		s.logger = logger
	}
}

// WithMaxAttempts overrides the SDK retry attempts per request
func WithMaxAttempts(n int) S3FileStoreOption {
	return func(s *S3FileStore) {
		s.maxAttempts = n
	}
}

// NewS3FileStore creates an S3FileStore from the storage configuration
func NewS3FileStore(ctx context.Context, cfg config.StorageConfig, opts ...S3FileStoreOption) (*S3FileStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	store := &S3FileStore{
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.timeout <= 0 {
		store.timeout = 5 * time.Second
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if store.maxAttempts > 0 {
			o.RetryMaxAttempts = store.maxAttempts
		}
	})

	return store, nil
}

// Bucket returns the bucket name
func (s *S3FileStore) Bucket() string {
	return s.bucket
}

// CheckBucket verifies at startup that the bucket is reachable
func (s *S3FileStore) CheckBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("check storage bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Exists reports whether the object named by fileRef is in the bucket.
// A missing object is (false, nil); any other failure is an error.
func (s *S3FileStore) Exists(ctx context.Context, fileRef string) (bool, error) {
	key := objectKey(fileRef)
	if key == "" {
		return false, errors.New("file reference is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// Some S3 compatible servers answer HEAD with a differently typed error
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		s.logger.Warn("file reference check failed",
			zap.String("bucket", s.bucket),
			zap.String("key", key),
			zap.Error(err),
		)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// objectKey accepts a bare key or an s3://bucket/key reference
func objectKey(fileRef string) string {
	ref := strings.TrimSpace(fileRef)
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			ref = rest[i+1:]
		} else {
			ref = ""
		}
	}
	return strings.TrimPrefix(ref, "/")
}
