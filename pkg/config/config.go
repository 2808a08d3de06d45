package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/doms/pkg/compression"
	"github.com/ajitpratap0/doms/pkg/formats/columnar"
)

// Config is the single configuration structure of the DOMS exporter. Every
// component reads its own section.
type Config struct {
	// Logging configures the global zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Export configures the export engine
	Export ExportConfig `yaml:"export" json:"export" mapstructure:"export"`

	// Archive configures where rendered artifacts are stored
	Archive ArchiveConfig `yaml:"archive" json:"archive" mapstructure:"archive"`

	// Store configures the results database
	Store StoreConfig `yaml:"store" json:"store" mapstructure:"store"`

	// Metrics configures prometheus metrics
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Tracing configures OpenTelemetry tracing
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level"`
	// Development enables human friendly output
	Development bool `yaml:"development" json:"development" mapstructure:"development"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	// OutputPaths lists log sinks; empty means stdout
	OutputPaths []string `yaml:"output_paths" json:"output_paths" mapstructure:"output_paths"`
}

// Endpoint is one data source known to the matchup service.
type Endpoint struct {
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	URL  string `yaml:"url" json:"url" mapstructure:"url"`
	Type string `yaml:"type" json:"type" mapstructure:"type"`
}

// ExportConfig contains export engine settings.
type ExportConfig struct {
	// Format is the default output format
	Format string `yaml:"format" json:"format" mapstructure:"format"`
	// StagingDir is where columnar files are staged; empty means the system
	// temporary directory
	StagingDir string `yaml:"staging_dir" json:"staging_dir" mapstructure:"staging_dir"`
	// ColumnarCompression is the Arrow body codec (none, lz4, zstd)
	ColumnarCompression string `yaml:"columnar_compression" json:"columnar_compression" mapstructure:"columnar_compression"`
	// Endpoints is the data source registry
	Endpoints []Endpoint `yaml:"endpoints" json:"endpoints" mapstructure:"endpoints"`
}

// DataSourceByName returns the endpoint with the given name.
func (e *ExportConfig) DataSourceByName(name string) (Endpoint, bool) {
	for _, ep := range e.Endpoints {
		if ep.Name == name {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// DataSourceExists reports whether an endpoint with the given name is
// registered.
func (e *ExportConfig) DataSourceExists(name string) bool {
	_, ok := e.DataSourceByName(name)
	return ok
}

// ArchiveConfig contains artifact archive settings.
type ArchiveConfig struct {
	// Enabled turns archiving on
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// Type selects the sink (local, s3, gcs, minio)
	Type string `yaml:"type" json:"type" mapstructure:"type"`
	// Directory is the root of the local sink
	Directory string `yaml:"directory" json:"directory" mapstructure:"directory"`
	// Bucket is the object storage bucket
	Bucket string `yaml:"bucket" json:"bucket" mapstructure:"bucket"`
	// Prefix is prepended to every object key
	Prefix string `yaml:"prefix" json:"prefix" mapstructure:"prefix"`
	// Region is the S3 region
	Region string `yaml:"region" json:"region" mapstructure:"region"`
	// Endpoint is the MinIO host:port
	Endpoint string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	// AccessKey for MinIO (use env vars in production)
	AccessKey string `yaml:"access_key" json:"access_key" mapstructure:"access_key"`
	// SecretKey for MinIO (use env vars in production)
	SecretKey string `yaml:"secret_key" json:"secret_key" mapstructure:"secret_key"`
	// UseSSL enables HTTPS for MinIO
	UseSSL bool `yaml:"use_ssl" json:"use_ssl" mapstructure:"use_ssl"`
	// CredentialsFile is the GCS service account file
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" mapstructure:"credentials_file"`
	// Compression selects the artifact codec (none, gzip, snappy, lz4, zstd)
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// CompressionLevel sets compression ratio vs speed (1-9)
	CompressionLevel int `yaml:"compression_level" json:"compression_level" mapstructure:"compression_level"`
	// PartSize is the S3 multipart part size in bytes
	PartSize int64 `yaml:"part_size" json:"part_size" mapstructure:"part_size"`
	// Concurrency is the number of concurrent S3 part uploads
	Concurrency int `yaml:"concurrency" json:"concurrency" mapstructure:"concurrency"`
	// Timeout bounds one archive upload
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// StoreConfig contains results database settings.
type StoreConfig struct {
	// DSN is the PostgreSQL connection string
	DSN string `yaml:"dsn" json:"dsn" mapstructure:"dsn"`
	// MaxConns caps the connection pool
	MaxConns int32 `yaml:"max_conns" json:"max_conns" mapstructure:"max_conns"`
	// QueryTimeout bounds loading one execution
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout" mapstructure:"query_timeout"`
}

// MetricsConfig contains prometheus settings.
type MetricsConfig struct {
	// Enabled activates metrics collection
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// Namespace prefixes every metric name
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
	// TextfilePath receives a text exposition dump after each run
	TextfilePath string `yaml:"textfile_path" json:"textfile_path" mapstructure:"textfile_path"`
}

// TracingConfig contains tracing settings.
type TracingConfig struct {
	// Enabled activates tracing
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	// ServiceName is reported on every span
	ServiceName string `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	// SampleRate controls trace sampling (0.0-1.0)
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate" mapstructure:"sample_rate"`
	// OutputPath receives exported spans; empty means stdout
	OutputPath string `yaml:"output_path" json:"output_path" mapstructure:"output_path"`
}

// Default returns a configuration with sensible defaults applied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Export: ExportConfig{
			Format:              "json",
			ColumnarCompression: string(columnar.CompressionNone),
		},
		Archive: ArchiveConfig{
			Type:             "local",
			Directory:        "./artifacts",
			Compression:      string(compression.Gzip),
			CompressionLevel: int(compression.Default),
			PartSize:         8 * 1024 * 1024,
			Concurrency:      5,
			Timeout:          5 * time.Minute,
		},
		Store: StoreConfig{
			MaxConns:     4,
			QueryTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "doms",
		},
		Tracing: TracingConfig{
			ServiceName: "doms-export",
			SampleRate:  1.0,
		},
	}
}

var (
	validEncodings = map[string]bool{"json": true, "console": true}
	validFormats   = map[string]bool{"json": true, "columnar": true, "netcdf": true, "arrow": true, "csv": true}
	validArchives  = map[string]bool{"local": true, "s3": true, "gcs": true, "minio": true}
)

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !validEncodings[c.Logging.Encoding] {
		return fmt.Errorf("logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	if !validFormats[strings.ToLower(c.Export.Format)] {
		return fmt.Errorf("export.format %q is not a known format", c.Export.Format)
	}
	if _, err := columnar.ParseCompression(c.Export.ColumnarCompression); err != nil {
		return fmt.Errorf("export.columnar_compression: %w", err)
	}
	seen := make(map[string]bool, len(c.Export.Endpoints))
	for _, ep := range c.Export.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("export.endpoints: name is required")
		}
		if seen[ep.Name] {
			return fmt.Errorf("export.endpoints: duplicate endpoint %q", ep.Name)
		}
		seen[ep.Name] = true
	}

	if c.Archive.Enabled {
		if !validArchives[c.Archive.Type] {
			return fmt.Errorf("archive.type %q is not one of local, s3, gcs, minio", c.Archive.Type)
		}
		if c.Archive.Type == "local" && c.Archive.Directory == "" {
			return fmt.Errorf("archive.directory is required for the local archive")
		}
		if c.Archive.Type != "local" && c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the %s archive", c.Archive.Type)
		}
		if c.Archive.Type == "minio" && c.Archive.Endpoint == "" {
			return fmt.Errorf("archive.endpoint is required for the minio archive")
		}
	}
	if _, err := compression.ParseAlgorithm(c.Archive.Compression); err != nil {
		return fmt.Errorf("archive.compression: %w", err)
	}
	if c.Archive.Concurrency < 0 {
		return fmt.Errorf("archive.concurrency cannot be negative")
	}

	if c.Store.MaxConns < 0 {
		return fmt.Errorf("store.max_conns cannot be negative")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	return nil
}
