package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// ObjectPutter is the part of *minio.Client the MinIO sink uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioSink uploads objects to MinIO or another S3 compatible store.
type MinioSink struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMinioSink connects to cfg.Endpoint with static credentials.
func NewMinioSink(cfg config.ArchiveConfig, logger *zap.Logger) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "failed to create MinIO client").
			WithDetail("endpoint", cfg.Endpoint)
	}
	return NewMinioSinkWithClient(client, cfg.Bucket, cfg.Prefix, cfg.Timeout, logger), nil
}

// NewMinioSinkWithClient creates a sink around an existing client.
func NewMinioSinkWithClient(client ObjectPutter, bucket, prefix string, timeout time.Duration, logger *zap.Logger) *MinioSink {
	return &MinioSink{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
	}
}

// Put uploads obj and returns its s3:// URL.
func (s *MinioSink) Put(ctx context.Context, obj *Object) (string, error) {
	if err := validateObject(obj); err != nil {
		return "", err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	key := objectKey(s.prefix, obj.Name)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(obj.Data), int64(len(obj.Data)), minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: obj.Metadata,
	})
	if err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to upload to MinIO").
			WithDetail("bucket", s.bucket).
			WithDetail("key", key)
	}

	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info("export uploaded to MinIO",
		zap.String("location", location),
		zap.String("etag", info.ETag),
		zap.Int64("bytes", info.Size),
		zap.Duration("duration", time.Since(start)))
	return location, nil
}

// Close is a no-op.
func (s *MinioSink) Close() error { return nil }
