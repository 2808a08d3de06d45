package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// ExportSuite is a testify suite for tests that run exports against the real
// filesystem. Every test gets a fresh workspace directory and a context
// bounded by the suite timeout.
type ExportSuite struct {
	suite.Suite

	// Timeout bounds each test; zero means one minute.
	Timeout time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	workspace string
}

// SetupTest creates the workspace and context of one test.
func (s *ExportSuite) SetupTest() {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	s.ctx, s.cancel = context.WithTimeout(context.Background(), timeout)
	s.workspace = s.T().TempDir()
}

// TearDownTest cancels the test context. The workspace is removed by the
// testing package.
func (s *ExportSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Context returns the context of the running test.
func (s *ExportSuite) Context() context.Context {
	return s.ctx
}

// Path returns a path inside the workspace.
func (s *ExportSuite) Path(elem ...string) string {
	return filepath.Join(append([]string{s.workspace}, elem...)...)
}

// WriteDocument stores an execution document in the workspace and returns
// its path.
func (s *ExportSuite) WriteDocument(name, doc string) string {
	path := s.Path(name)
	s.Require().NoError(os.WriteFile(path, []byte(doc), 0o600))
	return path
}

// RequireEmptyDir asserts that dir holds no entries, treating a missing
// directory as empty.
func (s *ExportSuite) RequireEmptyDir(dir string) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return
	}
	s.Require().NoError(err)
	s.Require().Empty(entries, "expected %s to be empty", dir)
}

// IntegrationTest skips t in short mode.
func IntegrationTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireEnv returns the named environment variable, skipping the test when
// it is unset.
func RequireEnv(t *testing.T, name string) string {
	t.Helper()
	v := os.Getenv(name)
	if v == "" {
		t.Skipf("%s not set", name)
	}
	return v
}
