// Package generator invokes the external kernel-source generator that
// materializes one variant's artifacts. The generator itself is opaque:
// pyragen passes the three parameters, waits for the exit status, and
// never inspects the emitted files.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/pyragen/internal/variant"
)

// Generator materializes the artifact set for one variant.
type Generator interface {
	// Generate blocks until the external generator finishes. A nil
	// return means the generator exited successfully; any other outcome
	// is a *GenerationError.
	Generate(ctx context.Context, v variant.Variant) error
}

// GenerationError reports a failed generator invocation for one variant.
// Generation is deterministic, so these are not retryable.
type GenerationError struct {
	Variant variant.Variant
	Stderr  string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("generate %s: %s", e.Variant.Name(), e.Stderr)
	}
	return fmt.Sprintf("generate %s: %v", e.Variant.Name(), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// CommandFactoryFunc creates an exec.Cmd. Tests substitute this to stub
// out the external process.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ExecGenerator runs the configured generator command with the variant's
// three parameters as positional arguments, in the generation base
// directory.
type ExecGenerator struct {
	command        string
	baseDir        string
	timeout        time.Duration
	commandFactory CommandFactoryFunc
}

// Option configures an ExecGenerator.
type Option func(*ExecGenerator)

// WithTimeout bounds each invocation. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(g *ExecGenerator) { g.timeout = d }
}

// WithCommandFactory replaces the exec.Cmd constructor, for tests.
func WithCommandFactory(f CommandFactoryFunc) Option {
	return func(g *ExecGenerator) { g.commandFactory = f }
}

// NewExecGenerator creates a generator that runs command inside baseDir.
func NewExecGenerator(command, baseDir string, opts ...Option) *ExecGenerator {
	g := &ExecGenerator{
		command:        command,
		baseDir:        baseDir,
		commandFactory: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the generator for one variant and waits for completion.
func (g *ExecGenerator) Generate(ctx context.Context, v variant.Variant) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	//nolint:gosec // G204: command comes from config, args are formatted integers
	cmd := g.commandFactory(ctx, g.command,
		strconv.Itoa(v.Warps), strconv.Itoa(v.TileWidth), strconv.Itoa(v.TileHeight))
	if g.baseDir != "" {
		cmd.Dir = g.baseDir
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &GenerationError{
			Variant: v,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return nil
}
