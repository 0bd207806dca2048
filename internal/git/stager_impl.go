package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Git-specific errors for staging operations.
var (
	// ErrNotGitRepo indicates the directory is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrPathspecMismatch indicates the path did not match any files.
	ErrPathspecMismatch = errors.New("pathspec did not match any files")
)

// Compile-time check that RealStager implements Stager.
var _ Stager = (*RealStager)(nil)

// RealStager implements Stager by executing actual git commands.
type RealStager struct {
	workDir string
}

// NewRealStager creates a stager rooted at workDir.
func NewRealStager(workDir string) *RealStager {
	return &RealStager{workDir: workDir}
}

// runGit executes a git command and returns an error if it fails.
func (s *RealStager) runGit(args ...string) error {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.Command("git", args...)
	if s.workDir != "" {
		cmd.Dir = s.workDir
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return parseGitError(stderrStr, err)
		}
		return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// parseGitError converts git stderr messages to specific error types.
func parseGitError(stderr string, originalErr error) error {
	stderrLower := strings.ToLower(stderr)

	if strings.Contains(stderrLower, "not a git repository") {
		return fmt.Errorf("%w: %s", ErrNotGitRepo, stderr)
	}
	if strings.Contains(stderrLower, "did not match any files") {
		return fmt.Errorf("%w: %s", ErrPathspecMismatch, stderr)
	}

	return fmt.Errorf("git error: %s: %w", stderr, originalErr)
}

// Add stages the given path.
func (s *RealStager) Add(path string) error {
	return s.runGit("add", "--", path)
}

// IsGitRepo checks if the working directory is inside a git repository.
func (s *RealStager) IsGitRepo() bool {
	return s.runGit("rev-parse", "--git-dir") == nil
}
