package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/doms/internal/pipeline"
	"github.com/ajitpratap0/doms/pkg/export"
	"github.com/ajitpratap0/doms/pkg/store"
)

// stdoutOutput writes the single artifact to standard output.
const stdoutOutput = "-"

type exportFlags struct {
	input       string
	executionID string
	formats     []string
	output      string
	timeout     time.Duration
}

func newExportCmd(global *globalFlags) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a matchup execution",
		Long: `Export a matchup execution in one or more formats.

The execution is read from a JSON document (--input) or from the results
store by id (--execution-id). When archiving is disabled the artifacts are
written to --output, a directory, or "-" for standard output.

Example:
  doms export --input execution.json --format json --format netcdf --output ./out
  doms export --execution-id 6a1e... --format columnar -c doms.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, global, flags, afero.NewOsFs())
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "Path to an execution JSON document")
	cmd.Flags().StringVar(&flags.executionID, "execution-id", "", "Execution id to load from the results store")
	cmd.Flags().StringSliceVarP(&flags.formats, "format", "f", nil, "Output format (json, columnar, netcdf, arrow, csv); repeatable")
	cmd.Flags().StringVarP(&flags.output, "output", "o", ".", `Output directory, or "-" for standard output`)
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 10*time.Minute, "Export timeout")
	cmd.MarkFlagsMutuallyExclusive("input", "execution-id")

	return cmd
}

func runExport(cmd *cobra.Command, global *globalFlags, flags *exportFlags, fs afero.Fs) error {
	if flags.input == "" && flags.executionID == "" {
		return fmt.Errorf("one of --input or --execution-id is required")
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	names := flags.formats
	if len(names) == 0 {
		names = []string{cfg.Export.Format}
	}
	formats := make([]export.Format, 0, len(names))
	for _, name := range names {
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}
	if flags.output == stdoutOutput && len(formats) > 1 && !cfg.Archive.Enabled {
		return fmt.Errorf("standard output takes a single format, got %d", len(formats))
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, flags.timeout)
	defer cancelTimeout()

	var (
		loader pipeline.Loader
		ref    string
	)
	if flags.executionID != "" {
		st, err := store.New(ctx, cfg.Store, log.Named("store"))
		if err != nil {
			return err
		}
		defer st.Close()
		loader, ref = st, flags.executionID
	} else {
		loader, ref = pipeline.NewFileLoader(fs), flags.input
	}

	runner, shutdown, err := pipeline.Build(ctx, cfg, loader, version, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("starting export",
		zap.String("ref", ref),
		zap.Strings("formats", names),
		zap.Bool("archive", cfg.Archive.Enabled))

	result, err := runner.Run(ctx, ref, formats...)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if !cfg.Archive.Enabled {
		if flags.output == stdoutOutput {
			_, err := w.Write(result.Artifacts[0].Data)
			return err
		}
		if err := fs.MkdirAll(flags.output, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for i := range result.Artifacts {
			a := &result.Artifacts[i]
			a.Location = filepath.Join(flags.output, a.Name)
			if err := afero.WriteFile(fs, a.Location, a.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", a.Location, err)
			}
		}
	}

	for _, a := range result.Artifacts {
		fmt.Fprintf(w, "%-9s %10d bytes  %s\n", a.Format, len(a.Data), a.Location)
	}
	log.Info("export completed",
		zap.String("execution_id", result.ExecutionID),
		zap.Int("records", result.Records),
		zap.Duration("duration", result.Duration))
	return nil
}
