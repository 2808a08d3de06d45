// Package export renders matchup executions into their output formats.
//
// An Exporter holds everything an export needs besides the execution itself:
// the staging filesystem used to materialize columnar files, the clock that
// stamps creation dates, the columnar writer settings and a logger. Exporters
// are immutable once built and safe for concurrent use.
//
//	x := export.NewExporter(export.WithStagingDir("/var/tmp/doms"))
//	data, err := x.Results(exec).Export(export.FormatColumnar)
//
// The JSON document keeps the record tree nested. The columnar dataset
// flattens it: every record gets an id and the id of its parent in
// primary_id, and every projected variable is aligned with those two.
package export

import (
	"io"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
	"github.com/ajitpratap0/doms/pkg/matchup"
)

// StagingPattern names staging files.
const StagingPattern = "doms_*" + columnar.FileExtension

// writeFunc encodes a dataset. It is a field so tests can inject failures.
type writeFunc func(w io.Writer, ds *columnar.Dataset, cfg *columnar.WriterConfig) error

// Exporter renders executions.
type Exporter struct {
	fs         afero.Fs
	stagingDir string
	clock      func() time.Time
	writer     *columnar.WriterConfig
	encoder    *Encoder
	logger     *zap.Logger
	write      writeFunc
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFs sets the staging filesystem.
func WithFs(fs afero.Fs) Option {
	return func(x *Exporter) { x.fs = fs }
}

// WithStagingDir sets the directory staging files are created in. Empty
// means the system temporary directory.
func WithStagingDir(dir string) Option {
	return func(x *Exporter) { x.stagingDir = dir }
}

// WithClock sets the clock used for creation and modification dates.
func WithClock(clock func() time.Time) Option {
	return func(x *Exporter) { x.clock = clock }
}

// WithCompression sets the columnar body compression.
func WithCompression(c columnar.Compression) Option {
	return func(x *Exporter) { x.writer.Compression = c }
}

// WithTransformers replaces the JSON scalar transformers.
func WithTransformers(ts ...Transformer) Option {
	return func(x *Exporter) { x.encoder = NewEncoder(ts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Exporter) { x.logger = logger }
}

// NewExporter creates an exporter staging on the OS filesystem by default.
func NewExporter(opts ...Option) *Exporter {
	x := &Exporter{
		fs:      afero.NewOsFs(),
		clock:   time.Now,
		writer:  columnar.DefaultWriterConfig(),
		encoder: NewEncoder(),
		logger:  zap.NewNop(),
		write:   columnar.Write,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// JSON renders exec as an indented JSON document.
func (x *Exporter) JSON(exec *matchup.Execution) (string, error) {
	out, err := x.encoder.Encode(exec)
	if err != nil {
		return "", err
	}
	x.logger.Debug("rendered json document",
		zap.String("execution_id", exec.ID),
		zap.Int("bytes", len(out)))
	return out, nil
}

// Columnar renders exec as a columnar dataset. The file is built in a
// staging file which is removed before returning, whether or not the export
// succeeded.
func (x *Exporter) Columnar(exec *matchup.Execution) ([]byte, error) {
	ds, err := BuildDataset(exec, x.clock())
	if err != nil {
		return nil, err
	}

	data, err := x.stage(func(w io.Writer) error {
		if err := x.write(w, ds, x.writer); err != nil {
			return domserrors.Wrap(err, domserrors.ErrorTypeEncoding, "failed to write columnar dataset")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats := ds.Stats()
	x.logger.Debug("rendered columnar dataset",
		zap.String("execution_id", exec.ID),
		zap.Int("rows", stats.RowCount),
		zap.Int("variables", stats.ColumnCount),
		zap.Any("missing", stats.NaNCounts),
		zap.Int("bytes", len(data)))
	return data, nil
}

// CSV is declared for callers probing capabilities and always fails.
func (x *Exporter) CSV(*matchup.Execution) ([]byte, error) {
	return nil, domserrors.NotImplemented("csv export")
}

// Export renders exec in the given format.
func (x *Exporter) Export(exec *matchup.Execution, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		s, err := x.JSON(exec)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FormatColumnar:
		return x.Columnar(exec)
	case FormatCSV:
		return x.CSV(exec)
	default:
		return nil, domserrors.Newf(domserrors.ErrorTypeValidation, "unknown output format %q", format)
	}
}

// Results binds an execution to the exporter rendering it.
func (x *Exporter) Results(exec *matchup.Execution) *Results {
	return &Results{exec: exec, exporter: x}
}

// Results is a matchup execution ready to be rendered.
type Results struct {
	exec     *matchup.Execution
	exporter *Exporter
}

// Execution returns the underlying execution.
func (r *Results) Execution() *matchup.Execution { return r.exec }

// ToJSON renders the results as JSON.
func (r *Results) ToJSON() (string, error) { return r.exporter.JSON(r.exec) }

// ToColumnar renders the results as a columnar dataset.
func (r *Results) ToColumnar() ([]byte, error) { return r.exporter.Columnar(r.exec) }

// ToCSV always fails with a not implemented error.
func (r *Results) ToCSV() ([]byte, error) { return r.exporter.CSV(r.exec) }

// Export renders the results in the given format.
func (r *Results) Export(format Format) ([]byte, error) {
	return r.exporter.Export(r.exec, format)
}
