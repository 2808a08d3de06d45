package pipeline

import (
	"context"

	"github.com/spf13/afero"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// Loader fetches the execution a run exports. ref is whatever the loader
// resolves: a file path, an execution id.
type Loader interface {
	Load(ctx context.Context, ref string) (*matchup.Execution, error)
}

// FileLoader reads execution documents from a filesystem.
type FileLoader struct {
	fs afero.Fs
}

// NewFileLoader creates a loader over fs, or the OS filesystem when fs is
// nil.
func NewFileLoader(fs afero.Fs) *FileLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileLoader{fs: fs}
}

// Load decodes the document at path.
func (l *FileLoader) Load(ctx context.Context, path string) (*matchup.Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, domserrors.Wrap(err, domserrors.ErrorTypeFile, "failed to open execution document").
			WithDetail("path", path)
	}
	defer f.Close()

	return matchup.Decode(f)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, ref string) (*matchup.Execution, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, ref string) (*matchup.Execution, error) {
	return f(ctx, ref)
}
