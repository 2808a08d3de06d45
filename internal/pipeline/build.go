package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/pkg/archive"
	"github.com/ajitpratap0/doms/pkg/compression"
	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/export"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
	"github.com/ajitpratap0/doms/pkg/metrics"
	"github.com/ajitpratap0/doms/pkg/observability"
)

// Build wires a runner from cfg. The returned shutdown function closes the
// sink, flushes traces and writes the metrics textfile when one is
// configured; call it once the runner is no longer used.
func Build(ctx context.Context, cfg *config.Config, loader Loader, version string, log *zap.Logger) (*Runner, func(context.Context) error, error) {
	if log == nil {
		log = zap.NewNop()
	}

	codec, err := columnar.ParseCompression(cfg.Export.ColumnarCompression)
	if err != nil {
		return nil, nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "invalid columnar compression")
	}
	exporter := export.NewExporter(
		export.WithStagingDir(cfg.Export.StagingDir),
		export.WithCompression(codec),
		export.WithLogger(log.Named("export")),
	)

	algorithm, err := compression.ParseAlgorithm(cfg.Archive.Compression)
	if err != nil {
		return nil, nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "invalid archive compression")
	}
	compressor, err := compression.NewCompressor(&compression.Config{
		Algorithm: algorithm,
		Level:     compression.Level(cfg.Archive.CompressionLevel),
	})
	if err != nil {
		return nil, nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "failed to create compressor")
	}

	tracing, err := observability.NewTracing(cfg.Tracing, version)
	if err != nil {
		return nil, nil, domserrors.Wrap(err, domserrors.ErrorTypeConfig, "failed to initialize tracing")
	}

	opts := []Option{
		WithCompressor(compressor),
		WithDataSources(&cfg.Export),
		WithTracing(tracing),
		WithLogger(log),
	}

	var sink archive.Sink
	if cfg.Archive.Enabled {
		sink, err = archive.New(ctx, cfg.Archive, log.Named("archive"))
		if err != nil {
			_ = tracing.Shutdown(ctx)
			return nil, nil, err
		}
		opts = append(opts, WithSink(sink, cfg.Archive.Type))
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace)
		opts = append(opts, WithCollector(collector))
	}

	shutdown := func(ctx context.Context) error {
		var errs []error
		if sink != nil {
			errs = append(errs, sink.Close())
		}
		errs = append(errs, tracing.Shutdown(ctx))
		if collector != nil && cfg.Metrics.TextfilePath != "" {
			errs = append(errs, collector.WriteToTextfile(cfg.Metrics.TextfilePath))
		}
		return errors.Join(errs...)
	}

	return New(loader, exporter, opts...), shutdown, nil
}
