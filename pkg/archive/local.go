package archive

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// LocalSink writes objects below a directory.
type LocalSink struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewLocalSink creates a sink rooted at dir. A nil fs means the OS
// filesystem.
func NewLocalSink(fs afero.Fs, dir string, logger *zap.Logger) *LocalSink {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &LocalSink{fs: fs, dir: dir, logger: logger}
}

// Put writes obj to dir/name, creating parent directories as needed.
func (s *LocalSink) Put(ctx context.Context, obj *Object) (string, error) {
	if err := validateObject(obj); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(obj.Name))
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to create archive directory").
			WithDetail("path", filepath.Dir(target))
	}
	if err := afero.WriteFile(s.fs, target, obj.Data, 0o644); err != nil {
		return "", domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to write archive file").
			WithDetail("path", target)
	}

	s.logger.Info("archived export",
		zap.String("path", target),
		zap.Int("bytes", len(obj.Data)))
	return target, nil
}

// Close is a no-op.
func (s *LocalSink) Close() error { return nil }
