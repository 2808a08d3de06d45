package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// WriterFactory opens a writer for one GCS object.
type WriterFactory func(ctx context.Context, key, contentType string, metadata map[string]string) io.WriteCloser

// GCSSink writes objects to a Cloud Storage bucket.
type GCSSink struct {
	client    *storage.Client
	newWriter WriterFactory
	bucket    string
	prefix    string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewGCSSink creates a storage client, authenticated with cfg.CredentialsFile
// when one is set and with application default credentials otherwise.
func NewGCSSink(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (*GCSSink, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to create GCS client")
	}

	bucket := client.Bucket(cfg.Bucket)
	factory := func(ctx context.Context, key, contentType string, metadata map[string]string) io.WriteCloser {
		w := bucket.Object(key).NewWriter(ctx)
		w.ContentType = contentType
		w.Metadata = metadata
		return w
	}

	s := NewGCSSinkWithWriter(factory, cfg.Bucket, cfg.Prefix, cfg.Timeout, logger)
	s.client = client
	return s, nil
}

// NewGCSSinkWithWriter creates a sink that opens objects through factory.
func NewGCSSinkWithWriter(factory WriterFactory, bucket, prefix string, timeout time.Duration, logger *zap.Logger) *GCSSink {
	return &GCSSink{
		newWriter: factory,
		bucket:    bucket,
		prefix:    prefix,
		timeout:   timeout,
		logger:    logger,
	}
}

// Put writes obj and returns its gs:// URL.
func (s *GCSSink) Put(ctx context.Context, obj *Object) (string, error) {
	if err := validateObject(obj); err != nil {
		return "", err
	}
	var cancel context.CancelFunc
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	start := time.Now()
	key := objectKey(s.prefix, obj.Name)
	w := s.newWriter(ctx, key, obj.ContentType, obj.Metadata)

	if _, err := io.Copy(w, bytes.NewReader(obj.Data)); err != nil {
		// The context is canceled on return, which aborts the upload.
		_ = w.Close()
		return "", domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to write to GCS").
			WithDetail("object", key)
	}
	if err := w.Close(); err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeConnection, "failed to close GCS writer").
			WithDetail("object", key)
	}

	location := fmt.Sprintf("gs://%s/%s", s.bucket, key)
	s.logger.Info("export uploaded to GCS",
		zap.String("object", location),
		zap.Int("bytes", len(obj.Data)),
		zap.Duration("duration", time.Since(start)))
	return location, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
