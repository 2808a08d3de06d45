// Package pipeline runs DOMS exports end to end: an execution is loaded,
// rendered in each requested format, compressed and archived.
//
// # Basic Usage
//
//	runner := pipeline.New(
//	    pipeline.NewFileLoader(nil),
//	    export.NewExporter(),
//	    pipeline.WithSink(sink),
//	    pipeline.WithLogger(logger),
//	)
//	result, err := runner.Run(ctx, "execution.json", export.FormatJSON, export.FormatColumnar)
//
// Formats are rendered concurrently. Any failure fails the run and no
// artifacts are returned; artifacts archived before the failure stay where
// they were written.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/doms/pkg/archive"
	"github.com/ajitpratap0/doms/pkg/compression"
	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/export"
	"github.com/ajitpratap0/doms/pkg/logger"
	"github.com/ajitpratap0/doms/pkg/matchup"
	"github.com/ajitpratap0/doms/pkg/metrics"
	"github.com/ajitpratap0/doms/pkg/observability"
)

// maxParallelFormats bounds concurrent renders within one run.
const maxParallelFormats = 4

// Artifact is one rendered export.
type Artifact struct {
	Format export.Format
	// Name is the archive object name: execution id, format extension and
	// compression extension.
	Name string
	// Data is the artifact as archived, compressed when a compressor is set.
	Data []byte
	// RawSize is the rendered size before compression.
	RawSize int
	// Location is where the sink stored the artifact, empty without a sink.
	Location string
}

// Result summarizes one run.
type Result struct {
	RunID       string
	ExecutionID string
	Records     int
	Artifacts   []Artifact
	Duration    time.Duration
}

// Runner executes export runs. It is safe for concurrent use.
type Runner struct {
	loader     Loader
	exporter   *export.Exporter
	compressor compression.Compressor
	sink       archive.Sink
	sinkName   string
	sources    *config.ExportConfig
	collector  *metrics.Collector
	tracing    *observability.Tracing
	retry      RetryPolicy
	clock      func() time.Time
	logger     *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCompressor compresses artifacts before archiving.
func WithCompressor(c compression.Compressor) Option {
	return func(r *Runner) { r.compressor = c }
}

// WithSink archives artifacts to sink; name labels its metrics.
func WithSink(sink archive.Sink, name string) Option {
	return func(r *Runner) {
		r.sink = sink
		r.sinkName = name
	}
}

// WithDataSources rejects executions whose primary or secondary datasets are
// not registered in cfg. An empty registry accepts everything.
func WithDataSources(cfg *config.ExportConfig) Option {
	return func(r *Runner) { r.sources = cfg }
}

// WithCollector records run metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(r *Runner) { r.collector = c }
}

// WithTracing traces run stages.
func WithTracing(t *observability.Tracing) Option {
	return func(r *Runner) { r.tracing = t }
}

// WithRetry sets the archive retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(r *Runner) { r.retry = p }
}

// WithClock sets the clock used for archive metadata.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner loading through loader and rendering with exporter.
func New(loader Loader, exporter *export.Exporter, opts ...Option) *Runner {
	r := &Runner{
		loader:   loader,
		exporter: exporter,
		retry:    DefaultRetryPolicy(),
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracing == nil {
		r.tracing, _ = observability.NewTracing(config.TracingConfig{}, "")
	}
	return r
}

// Run loads ref and exports it in every format.
func (r *Runner) Run(ctx context.Context, ref string, formats ...export.Format) (*Result, error) {
	if len(formats) == 0 {
		return nil, domserrors.New(domserrors.ErrorTypeValidation, "at least one output format is required")
	}
	start := time.Now()
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	log := logger.FromContext(ctx, r.logger)

	var exec *matchup.Execution
	err := r.tracing.Trace(ctx, "doms.load", func(ctx context.Context) error {
		var err error
		exec, err = r.loader.Load(ctx, ref)
		return err
	}, attribute.String("ref", ref))
	if err != nil {
		log.Error("failed to load execution", zap.String("ref", ref), zap.Error(err))
		return nil, err
	}

	ctx = logger.WithExecution(ctx, exec.ID)
	log = logger.FromContext(ctx, r.logger)

	if err := r.checkDataSources(exec); err != nil {
		log.Error("execution rejected", zap.Error(err))
		return nil, err
	}

	artifacts := make([]Artifact, len(formats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFormats)
	for i, format := range formats {
		g.Go(func() error {
			a, err := r.exportOne(gctx, exec, format)
			if err != nil {
				return err
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("export run failed", zap.Error(err))
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		ExecutionID: exec.ID,
		Records:     exec.Tree.Size(),
		Artifacts:   artifacts,
		Duration:    time.Since(start),
	}
	log.Info("export run completed",
		zap.Int("records", result.Records),
		zap.Int("artifacts", len(artifacts)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (r *Runner) exportOne(ctx context.Context, exec *matchup.Execution, format export.Format) (Artifact, error) {
	ctx = logger.WithFormat(ctx, string(format))
	log := logger.FromContext(ctx, r.logger)
	a := Artifact{Format: format}

	err := r.tracing.Trace(ctx, "doms.export", func(ctx context.Context) error {
		timer := metrics.NewTimer()
		data, err := r.exporter.Export(exec, format)
		if r.collector != nil {
			r.collector.ObserveExport(string(format), exec.Tree.Size(), len(data), timer.Stop(), err)
		}
		if err != nil {
			return err
		}
		a.RawSize = len(data)
		observability.Annotate(ctx, attribute.Int("bytes", len(data)))

		if r.compressor != nil && r.compressor.Algorithm() != compression.None {
			if data, err = r.compressor.Compress(data); err != nil {
				return domserrors.Wrap(err, domserrors.ErrorTypeInternal, "failed to compress artifact")
			}
		}
		a.Data = data
		return nil
	}, attribute.String("format", string(format)))
	if err != nil {
		log.Error("export failed", zap.Error(err))
		return Artifact{}, err
	}

	info, _ := format.Info()
	a.Name = exec.ID + info.Extension
	if r.compressor != nil {
		a.Name += r.compressor.Extension()
	}

	if r.sink != nil {
		if err := r.archive(ctx, exec, &a, info); err != nil {
			log.Error("archive failed", zap.String("name", a.Name), zap.Error(err))
			return Artifact{}, err
		}
	}

	log.Debug("artifact ready",
		zap.String("name", a.Name),
		zap.Int("raw_bytes", a.RawSize),
		zap.Int("bytes", len(a.Data)),
		zap.String("location", a.Location))
	return a, nil
}

func (r *Runner) archive(ctx context.Context, exec *matchup.Execution, a *Artifact, info export.FormatInfo) error {
	algorithm := compression.None
	if r.compressor != nil {
		algorithm = r.compressor.Algorithm()
	}
	obj := &archive.Object{
		Name:        a.Name,
		Data:        a.Data,
		ContentType: info.MIMEType,
		Metadata: map[string]string{
			"execution_id": exec.ID,
			"format":       string(a.Format),
			"compression":  string(algorithm),
			"records":      strconv.Itoa(exec.Tree.Size()),
			"created":      r.clock().UTC().Format(time.RFC3339),
		},
	}

	return r.tracing.Trace(ctx, "doms.archive", func(ctx context.Context) error {
		timer := metrics.NewTimer()
		err := r.retry.Do(ctx, logger.FromContext(ctx, r.logger), func(ctx context.Context) error {
			location, err := r.sink.Put(ctx, obj)
			if err != nil {
				return err
			}
			a.Location = location
			return nil
		})
		if r.collector != nil {
			r.collector.ObserveUpload(r.sinkName, timer.Stop(), err)
		}
		return err
	}, attribute.String("sink", r.sinkName), attribute.String("object", a.Name))
}

// checkDataSources verifies the primary and secondary datasets against the
// registry. Absent parameters are left for the exporters to report.
func (r *Runner) checkDataSources(exec *matchup.Execution) error {
	if r.sources == nil || len(r.sources.Endpoints) == 0 {
		return nil
	}

	var names []string
	if primary, err := exec.Params.String(matchup.ParamPrimary); err == nil {
		names = append(names, primary)
	}
	if secondary, err := exec.Params.Strings(matchup.ParamMatchup); err == nil {
		names = append(names, secondary...)
	}
	for _, name := range names {
		if !r.sources.DataSourceExists(name) {
			return domserrors.Newf(domserrors.ErrorTypeValidation, "unknown data source %q", name).
				WithDetail(domserrors.DetailValue, name)
		}
	}
	return nil
}
