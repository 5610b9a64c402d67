package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/infrastructure/config"
)

// ErrStorageConfig is returned when the S3 settings are incomplete
var ErrStorageConfig = errors.New("storage: invalid s3 configuration")

const (
	defaultS3Endpoint    = "http://localhost:9000"
	defaultS3Region      = "us-east-1"
	defaultPresignExpiry = 15 * time.Minute
	// documentKindMeta records which kind of carrier document an object is.
	documentKindMeta = "document-kind"
)

// S3DocumentStorage keeps carrier labels and manifests in an S3-compatible
// bucket and signs download links that save the file under its own name.
type S3DocumentStorage struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	presignExpiry time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// S3Option configures S3DocumentStorage
type S3Option func(*S3DocumentStorage)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3Option {
	return func(s *S3DocumentStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPresignExpiration overrides how long download links stay valid
func WithPresignExpiration(d time.Duration) S3Option {
	return func(s *S3DocumentStorage) {
		if d > 0 {
			s.presignExpiry = d
		}
	}
}

// NewS3DocumentStorage creates the storage from configuration. No request is
// made to the bucket until the first document is stored.
func NewS3DocumentStorage(cfg *config.StorageConfig, opts ...S3Option) (*S3DocumentStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", ErrStorageConfig)
	}
	switch {
	case cfg.Bucket == "":
		return nil, fmt.Errorf("%w: bucket is required", ErrStorageConfig)
	case cfg.AccessKey == "":
		return nil, fmt.Errorf("%w: access key is required", ErrStorageConfig)
	case cfg.SecretKey == "":
		return nil, fmt.Errorf("%w: secret key is required", ErrStorageConfig)
	}

	endpoint, err := s3Endpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultS3Region
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	s := &S3DocumentStorage{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignExpiry: cfg.PresignExpiration,
		logger:        zap.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.presignExpiry <= 0 {
		s.presignExpiry = defaultPresignExpiry
	}
	return s, nil
}

// s3Endpoint adds a scheme to bare host:port endpoints (MinIO style)
func s3Endpoint(raw string, useSSL bool) (string, error) {
	if raw == "" {
		return defaultS3Endpoint, nil
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		raw = scheme + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid endpoint %q", ErrStorageConfig, raw)
	}
	return raw, nil
}

// documentKind is the first path segment of a key: "labels" or "manifests"
func documentKind(key string) string {
	if i := strings.IndexByte(key, '/'); i > 0 {
		return key[:i]
	}
	return "document"
}

// EnsureBucket creates the document bucket when it does not exist yet
func (s *S3DocumentStorage) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check document bucket: %w", err)
	}

	s.logger.Info("Creating document bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create document bucket: %w", err)
	}
	return nil
}

// Upload stores a carrier document. Labels and manifests are regenerated
// on demand, so stored copies are never cached by clients.
func (s *S3DocumentStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("no-store"),
		Metadata:     map[string]string{documentKindMeta: documentKind(key)},
	})
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", documentKind(key), err)
	}
	s.logger.Debug("Carrier document stored",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.String("kind", documentKind(key)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// GenerateDownloadURL signs a GET link for key. The link asks the browser to
// save the document under the key's file name.
func (s *S3DocumentStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, ErrKeyRequired
	}
	if expiresIn <= 0 {
		expiresIn = s.presignExpiry
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign download link: %w", err)
	}
	return req.URL, s.now().Add(expiresIn), nil
}

// ObjectExists reports whether a document is stored under key
func (s *S3DocumentStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up %s: %w", documentKind(key), err)
}

// isNotFound also matches S3-compatible services that only report the code text
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "NoSuchKey")
}

// DeleteObject removes a stored document
func (s *S3DocumentStorage) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", documentKind(key), err)
	}
	return nil
}

// Bucket returns the document bucket name
func (s *S3DocumentStorage) Bucket() string {
	return s.bucket
}
