package pipeline

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/doms/pkg/archive"
	"github.com/ajitpratap0/doms/pkg/compression"
	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/domserrors"
	"github.com/ajitpratap0/doms/pkg/export"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
	jsonpool "github.com/ajitpratap0/doms/pkg/json"
	"github.com/ajitpratap0/doms/pkg/matchup"
	"github.com/ajitpratap0/doms/pkg/metrics"
	"github.com/ajitpratap0/doms/pkg/observability"
	domstest "github.com/ajitpratap0/doms/pkg/testutil"
)

const inputPath = "/in/execution.json"

type harness struct {
	fs        afero.Fs
	collector *metrics.Collector
	spans     *tracetest.InMemoryExporter
	tracing   *observability.Tracing
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, inputPath, []byte(domstest.SampleDocument), 0o644))

	spans := tracetest.NewInMemoryExporter()
	cfg := config.Default().Tracing
	cfg.Enabled = true
	tracing, err := observability.NewTracingWithExporter(cfg, "test", spans)
	require.NoError(t, err)

	return &harness{fs: fs, collector: metrics.NewCollector("doms"), spans: spans, tracing: tracing}
}

func (h *harness) exporter(t *testing.T) *export.Exporter {
	return export.NewExporter(
		export.WithFs(h.fs),
		export.WithStagingDir("/staging"),
		export.WithClock(domstest.FixedClock),
		export.WithLogger(domstest.TestLogger(t)),
	)
}

func gzipCompressor(t *testing.T) compression.Compressor {
	c, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Gzip, Level: compression.Default})
	require.NoError(t, err)
	return c
}

func TestRunExportsAndArchives(t *testing.T) {
	h := newHarness(t)
	sink := archive.NewLocalSink(h.fs, "/archive", domstest.TestLogger(t))
	gz := gzipCompressor(t)

	runner := New(NewFileLoader(h.fs), h.exporter(t),
		WithCompressor(gz),
		WithSink(sink, archive.TypeLocal),
		WithCollector(h.collector),
		WithTracing(h.tracing),
		WithClock(domstest.FixedClock),
		WithLogger(domstest.TestLogger(t)),
	)

	result, err := runner.Run(domstest.TestContext(t), inputPath, export.FormatJSON, export.FormatColumnar)
	require.NoError(t, err)

	assert.Equal(t, domstest.SampleExecutionID, result.ExecutionID)
	assert.Equal(t, 4, result.Records)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Artifacts, 2)

	jsonArtifact := result.Artifacts[0]
	assert.Equal(t, export.FormatJSON, jsonArtifact.Format)
	assert.Equal(t, domstest.SampleExecutionID+".json.gz", jsonArtifact.Name)
	assert.Equal(t, "/archive/"+jsonArtifact.Name, jsonArtifact.Location)

	raw, err := gz.Decompress(jsonArtifact.Data)
	require.NoError(t, err)
	assert.Len(t, raw, jsonArtifact.RawSize)
	var doc map[string]interface{}
	require.NoError(t, jsonpool.Unmarshal(raw, &doc))
	assert.Equal(t, domstest.SampleExecutionID, doc["executionId"])

	stored, err := afero.ReadFile(h.fs, jsonArtifact.Location)
	require.NoError(t, err)
	assert.Equal(t, jsonArtifact.Data, stored)

	colArtifact := result.Artifacts[1]
	assert.Equal(t, domstest.SampleExecutionID+columnar.FileExtension+".gz", colArtifact.Name)
	body, err := gz.Decompress(colArtifact.Data)
	require.NoError(t, err)
	ds, err := columnar.Read(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Stats().RowCount)

	staged, err := afero.Glob(h.fs, "/staging/*")
	require.NoError(t, err)
	assert.Empty(t, staged)

	count, err := testutil.GatherAndCount(h.collector.Registry(), "doms_exports_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, h.tracing.Shutdown(context.Background()))
	names := map[string]int{}
	for _, s := range h.spans.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["doms.load"])
	assert.Equal(t, 2, names["doms.export"])
	assert.Equal(t, 2, names["doms.archive"])
}

func TestRunWithoutSink(t *testing.T) {
	h := newHarness(t)
	runner := New(NewFileLoader(h.fs), h.exporter(t))

	result, err := runner.Run(context.Background(), inputPath, export.FormatJSON)
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)
	assert.Equal(t, domstest.SampleExecutionID+".json", result.Artifacts[0].Name)
	assert.Empty(t, result.Artifacts[0].Location)
	assert.Len(t, result.Artifacts[0].Data, result.Artifacts[0].RawSize)
}

func TestRunCSVNotImplemented(t *testing.T) {
	h := newHarness(t)
	sink := archive.NewLocalSink(h.fs, "/archive", domstest.TestLogger(t))
	runner := New(NewFileLoader(h.fs), h.exporter(t), WithSink(sink, archive.TypeLocal), WithCollector(h.collector))

	result, err := runner.Run(context.Background(), inputPath, export.FormatCSV)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, domserrors.IsNotImplemented(err))

	exists, err := afero.DirExists(h.fs, "/archive")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunMissingParameter(t *testing.T) {
	h := newHarness(t)
	loader := LoaderFunc(func(context.Context, string) (*matchup.Execution, error) {
		exec := domstest.SampleExecution()
		delete(exec.Params, matchup.ParamBoundingBox)
		return exec, nil
	})
	runner := New(loader, h.exporter(t))

	_, err := runner.Run(context.Background(), "ignored", export.FormatColumnar)
	require.Error(t, err)
	key, ok := domserrors.ParameterKey(err)
	require.True(t, ok)
	assert.Equal(t, matchup.ParamBoundingBox, key)
}

func TestRunLoadErrors(t *testing.T) {
	h := newHarness(t)
	runner := New(NewFileLoader(h.fs), h.exporter(t))

	_, err := runner.Run(context.Background(), "/in/missing.json", export.FormatJSON)
	assert.True(t, domserrors.IsType(err, domserrors.ErrorTypeFile))

	_, err = runner.Run(context.Background(), inputPath)
	assert.True(t, domserrors.IsType(err, domserrors.ErrorTypeValidation))
}

func TestRunDataSources(t *testing.T) {
	h := newHarness(t)
	sources := &config.ExportConfig{Endpoints: []config.Endpoint{
		{Name: "MUR-JPL-L4-GLOB-v4.1"},
		{Name: "spurs"},
	}}
	runner := New(NewFileLoader(h.fs), h.exporter(t), WithDataSources(sources))

	_, err := runner.Run(context.Background(), inputPath, export.FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"icoads"`)

	sources.Endpoints = append(sources.Endpoints, config.Endpoint{Name: "icoads"})
	_, err = runner.Run(context.Background(), inputPath, export.FormatJSON)
	assert.NoError(t, err)
}

type flakySink struct {
	failures int32
	calls    int32
}

func (s *flakySink) Put(_ context.Context, obj *archive.Object) (string, error) {
	if atomic.AddInt32(&s.calls, 1) <= s.failures {
		return "", domserrors.New(domserrors.ErrorTypeConnection, "connection reset")
	}
	return "mem://" + obj.Name, nil
}

func (s *flakySink) Close() error { return nil }

func TestRunRetriesArchive(t *testing.T) {
	h := newHarness(t)
	sink := &flakySink{failures: 2}
	runner := New(NewFileLoader(h.fs), h.exporter(t),
		WithSink(sink, "mem"),
		WithCollector(h.collector),
		WithRetry(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}),
		WithLogger(domstest.TestLogger(t)),
	)

	result, err := runner.Run(context.Background(), inputPath, export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "mem://"+domstest.SampleExecutionID+".json", result.Artifacts[0].Location)
	assert.Equal(t, int32(3), atomic.LoadInt32(&sink.calls))

	sink = &flakySink{failures: 5}
	runner = New(NewFileLoader(h.fs), h.exporter(t),
		WithSink(sink, "mem"),
		WithRetry(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}),
	)
	_, err = runner.Run(context.Background(), inputPath, export.FormatJSON)
	assert.True(t, domserrors.IsType(err, domserrors.ErrorTypeConnection))
	assert.Equal(t, int32(2), atomic.LoadInt32(&sink.calls))
}

func TestRetryPolicy(t *testing.T) {
	log := domstest.TestLogger(t)
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	calls := 0
	permanent := domserrors.New(domserrors.ErrorTypeValidation, "bad input")
	err := policy.Do(context.Background(), log, func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	err = RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}.Do(ctx, log, func(context.Context) error {
		cancel()
		return domserrors.New(domserrors.ErrorTypeTimeout, "slow")
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	for attempt := 0; attempt < 3; attempt++ {
		base := time.Duration(1<<uint(attempt)) * p.BaseDelay
		d := p.backoff(attempt)
		assert.GreaterOrEqual(t, d, base-base/8)
		assert.LessOrEqual(t, d, base+base/8)
	}
	assert.Equal(t, time.Second, p.backoff(10))
	assert.Zero(t, RetryPolicy{}.backoff(3))
}
