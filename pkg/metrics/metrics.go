// Package metrics provides Prometheus instrumentation for DOMS exports.
//
// Each Collector owns a registry, so several pipelines (and tests) can run in
// one process without colliding on metric names.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("doms")
//	timer := metrics.NewTimer()
//	data, err := exporter.Export(exec, format)
//	collector.ObserveExport(format.String(), exec.Tree.Size(), len(data), timer.Stop(), err)
//
//	// Dump for the node exporter textfile collector
//	_ = collector.WriteToTextfile("/var/lib/node_exporter/doms.prom")
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector records export and archive activity.
type Collector struct {
	registry *prometheus.Registry

	exports        *prometheus.CounterVec   // Exports by format and status
	exportDuration *prometheus.HistogramVec // Export latency distribution
	exportRecords  *prometheus.HistogramVec // Records per export
	exportBytes    *prometheus.HistogramVec // Output size per export
	uploads        *prometheus.CounterVec   // Archive uploads by sink and status
	uploadDuration *prometheus.HistogramVec // Archive latency distribution
	lastSuccess    prometheus.Gauge         // Unix time of the last successful export
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of export attempts",
			},
			[]string{"format", "status"},
		),
		exportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_duration_seconds",
				Help:      "Time spent rendering an execution",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms .. ~16s
			},
			[]string{"format"},
		),
		exportRecords: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_records",
				Help:      "Records in each exported execution",
				Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
			},
			[]string{"format"},
		),
		exportBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "export_bytes",
				Help:      "Size of each rendered export in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB .. 16MiB
			},
			[]string{"format"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_uploads_total",
				Help:      "Total number of archive uploads",
			},
			[]string{"sink", "status"},
		),
		uploadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "archive_duration_seconds",
				Help:      "Time spent archiving an export",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful export",
			},
		),
	}
}

// Registry exposes the collector's registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveExport records one export attempt. Sizes are only observed for
// successful exports.
func (c *Collector) ObserveExport(format string, records, bytes int, d time.Duration, err error) {
	if err != nil {
		c.exports.WithLabelValues(format, StatusFailure).Inc()
		return
	}
	c.exports.WithLabelValues(format, StatusSuccess).Inc()
	c.exportDuration.WithLabelValues(format).Observe(d.Seconds())
	c.exportRecords.WithLabelValues(format).Observe(float64(records))
	c.exportBytes.WithLabelValues(format).Observe(float64(bytes))
	c.lastSuccess.SetToCurrentTime()
}

// ObserveUpload records one archive upload.
func (c *Collector) ObserveUpload(sink string, d time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	c.uploads.WithLabelValues(sink, status).Inc()
	c.uploadDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// WriteToTextfile writes the current values in the text exposition format.
func (c *Collector) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Timer measures one operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the time elapsed since the timer started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
