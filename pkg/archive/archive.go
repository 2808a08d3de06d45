// Package archive publishes rendered exports to durable storage.
//
// A Sink stores one object per call. The local sink writes under a
// directory, the s3, gcs and minio sinks upload to a bucket under an
// optional key prefix. New picks the sink named by the archive
// configuration.
package archive

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// Sink types.
const (
	TypeLocal = "local"
	TypeS3    = "s3"
	TypeGCS   = "gcs"
	TypeMinio = "minio"
)

// Object is one archived artifact.
type Object struct {
	// Name is the object key relative to the sink's prefix.
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Sink stores objects and returns where each one landed.
type Sink interface {
	Put(ctx context.Context, obj *Object) (location string, err error)
	Close() error
}

// New creates the sink selected by cfg.Type.
func New(ctx context.Context, cfg config.ArchiveConfig, logger *zap.Logger) (Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalSink(nil, cfg.Directory, logger), nil
	case TypeS3:
		return NewS3Sink(ctx, cfg, logger)
	case TypeGCS:
		return NewGCSSink(ctx, cfg, logger)
	case TypeMinio:
		return NewMinioSink(cfg, logger)
	default:
		return nil, domserrors.Newf(domserrors.ErrorTypeConfig, "unknown archive type %q", cfg.Type)
	}
}

// objectKey joins prefix and name into a slash separated key without a
// leading slash.
func objectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

func validateObject(obj *Object) error {
	if obj == nil || obj.Name == "" {
		return domserrors.New(domserrors.ErrorTypeValidation, "archive object requires a name")
	}
	return nil
}
