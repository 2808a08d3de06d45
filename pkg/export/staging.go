package export

import (
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/domserrors"
)

// stage runs write against a fresh staging file and returns what it wrote.
// The staging file is closed and removed on every return path.
func (x *Exporter) stage(write func(w io.Writer) error) (data []byte, err error) {
	if x.stagingDir != "" {
		if err := x.fs.MkdirAll(x.stagingDir, 0o755); err != nil {
			return nil, domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to create staging directory").
				WithDetail("path", x.stagingDir)
		}
	}

	f, err := afero.TempFile(x.fs, x.stagingDir, StagingPattern)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to create staging file")
	}
	name := f.Name()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			x.logger.Warn("failed to close staging file", zap.String("path", name), zap.Error(cerr))
		}
		if rerr := x.fs.Remove(name); rerr != nil && err == nil {
			data = nil
			err = domserrors.Wrap(rerr, domserrors.ErrorTypeFile, "failed to remove staging file").
				WithDetail("path", name)
		}
	}()

	if err = write(f); err != nil {
		return nil, err
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to rewind staging file")
	}
	if data, err = io.ReadAll(f); err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to read staging file")
	}
	return data, nil
}
