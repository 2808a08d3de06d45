// Package doms exports the results of Distributed Oceanographic Matchup
// System runs.
//
// A matchup run pairs primary satellite observations with in-situ
// observations taken nearby in space and time. Its result is an execution:
// a forest of primary records, each carrying the secondary records matched
// to it, plus the run parameters, run statistics and the query bounding box.
// This module renders an execution in the formats downstream consumers read
// and archives the rendered artifacts.
//
// # Formats
//
//   - json: a nested document keyed executionId, data, params, bounds,
//     count and details. Timestamps become epoch seconds and missing values
//     become null.
//   - columnar: a self-describing Arrow IPC dataset. The record forest is
//     flattened in pre-order; every row carries its id and the id of its
//     parent in primary_id (-1 for primaries), and every measured field
//     becomes a variable aligned with those two. Run parameters and
//     statistics are written as global attributes using netCDF
//     attribute conventions. Also accepted as netcdf and arrow.
//   - csv: declared but not implemented; requesting it fails with a
//     not_implemented error.
//
// # Layout
//
//	pkg/matchup        execution, record and parameter model; document decoding
//	pkg/flatten        pre-order flattening and field projection
//	pkg/geo            bounding box parsing
//	pkg/export         json and columnar exporters, format registry
//	pkg/formats/columnar  Arrow IPC dataset writer and reader
//	pkg/compression    artifact codecs (gzip, snappy, lz4, zstd)
//	pkg/archive        local, S3, GCS and MinIO artifact sinks
//	pkg/store          PostgreSQL results store
//	pkg/config         YAML configuration with environment overrides
//	pkg/domserrors     typed errors shared by every package
//	pkg/logger         zap logging with context fields
//	pkg/metrics        prometheus export metrics
//	pkg/observability  OpenTelemetry tracing
//	internal/pipeline  load, export, compress and archive runs
//	cmd/doms           command line interface
//
// # Quick Start
//
// Render an execution document in two formats into the current directory:
//
//	doms export --input execution.json --format json --format netcdf
//
// Load an execution from the results store and archive it to S3:
//
//	DOMS_STORE_DSN=postgres://doms@db/doms \
//	DOMS_ARCHIVE_ENABLED=true DOMS_ARCHIVE_TYPE=s3 DOMS_ARCHIVE_BUCKET=matchups \
//	doms export --execution-id 6a1e0c2b-... --format columnar
//
// From Go:
//
//	exec, err := matchup.Decode(f)
//	data, err := export.NewExporter().Results(exec).ToColumnar()
package doms
