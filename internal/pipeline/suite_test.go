package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/doms/pkg/config"
	"github.com/ajitpratap0/doms/pkg/export"
	domstest "github.com/ajitpratap0/doms/pkg/testutil"
)

// BuildSuite runs a runner wired from configuration against the real
// filesystem.
type BuildSuite struct {
	domstest.ExportSuite
}

func TestBuildSuite(t *testing.T) {
	domstest.IntegrationTest(t)
	suite.Run(t, new(BuildSuite))
}

func (s *BuildSuite) TestArchiveToDirectory() {
	input := s.WriteDocument("execution.json", domstest.SampleDocument)

	cfg := config.Default()
	cfg.Export.StagingDir = s.Path("staging")
	cfg.Export.ColumnarCompression = "zstd"
	cfg.Archive.Enabled = true
	cfg.Archive.Directory = s.Path("archive")
	cfg.Archive.Compression = "zstd"
	cfg.Metrics.Enabled = true
	cfg.Metrics.TextfilePath = s.Path("doms.prom")
	s.Require().NoError(cfg.Validate())

	runner, shutdown, err := Build(s.Context(), cfg, NewFileLoader(nil), "test", domstest.TestLogger(s.T()))
	s.Require().NoError(err)

	result, err := runner.Run(s.Context(), input, export.FormatJSON, export.FormatColumnar)
	s.Require().NoError(err)
	s.Require().NoError(shutdown(context.Background()))

	for _, a := range result.Artifacts {
		s.FileExists(a.Location)
		s.Equal(".zst", filepath.Ext(a.Name))
	}

	s.RequireEmptyDir(cfg.Export.StagingDir)

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	s.Require().NoError(err)
	s.Contains(string(prom), "doms_exports_total")
}

func (s *BuildSuite) TestInvalidConfig() {
	cfg := config.Default()
	cfg.Archive.Compression = "brotli"

	_, _, err := Build(s.Context(), cfg, NewFileLoader(nil), "test", nil)
	s.Error(err)
}
