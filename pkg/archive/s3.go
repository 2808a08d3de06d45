package archive

import (
	"bytes"
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// Uploader is the part of manager.Uploader the S3 sink uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads objects to an S3 bucket with the multipart upload manager.
type S3Sink struct {
	uploader Uploader
	bucket   string
	prefix   string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewS3Sink loads the default AWS configuration for cfg.Region and builds an
// uploader with the configured part size and concurrency.
func NewS3Sink(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (*S3Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
	})
	return NewS3SinkWithUploader(uploader, cfg.Bucket, cfg.Prefix, cfg.Timeout, logger), nil
}

// NewS3SinkWithUploader creates a sink around an existing uploader.
func NewS3SinkWithUploader(uploader Uploader, bucket, prefix string, timeout time.Duration, logger *zap.Logger) *S3Sink {
	return &S3Sink{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		timeout:  timeout,
		logger:   logger,
	}
}

// Put uploads obj and returns the object URL reported by S3.
func (s *S3Sink) Put(ctx context.Context, obj *Object) (string, error) {
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
	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(obj.Data),
		Metadata: obj.Metadata,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	result, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to upload to S3").
			WithDetail("bucket", s.bucket).
			WithDetail("key", key)
	}

	s.logger.Info("export uploaded to S3",
		zap.String("location", result.Location),
		zap.Int("bytes", len(obj.Data)),
		zap.Duration("duration", time.Since(start)))
	return result.Location, nil
}

// Close is a no-op; the AWS client holds no resources to release.
func (s *S3Sink) Close() error { return nil }
