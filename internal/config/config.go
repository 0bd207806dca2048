// Package config provides configuration types, defaults, and persistence
// for pyragen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/pyragen/internal/log"
	"github.com/zjrosen/pyragen/internal/tracing"
)

// GeneratorConfig describes the external generator collaborator.
type GeneratorConfig struct {
	// Command is the generator executable, run inside BaseDir with the
	// three variant parameters as positional arguments.
	Command string `mapstructure:"command"`

	// Timeout bounds one generator invocation. Zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config holds all configuration options for pyragen.
type Config struct {
	// WarpCounts and TileDims are the two generation axes. The cross
	// product is enumerated with WarpCounts as the outer axis, both in
	// declaration order.
	WarpCounts []int `mapstructure:"warp_counts"`
	TileDims   []int `mapstructure:"tile_dims"`

	// BaseDir anchors every relative path: generator invocations,
	// artifact paths, the registry file. No process-wide chdir happens.
	BaseDir string `mapstructure:"base_dir"`

	// Output is the registry file destination, relative to BaseDir
	// unless absolute.
	Output string `mapstructure:"output"`

	Generator GeneratorConfig `mapstructure:"generator"`

	// FireAndForget reproduces the historical behavior: generator
	// failures are ignored and every variant still gets a registry
	// entry. Off by default; turn on only when byte-identical output
	// of a full run is required regardless of generator health.
	FireAndForget bool `mapstructure:"fire_and_forget"`

	// Workers is the number of concurrent generator invocations.
	// Registry entries are always written in enumeration order.
	Workers int `mapstructure:"workers"`

	// Stage controls whether generated artifacts are handed to git add.
	Stage bool `mapstructure:"stage"`

	Tracing tracing.Config `mapstructure:"tracing"`

	// Debug enables the structured log file.
	Debug bool `mapstructure:"debug"`
}

// Defaults mirrors the run-start constants of the original generation
// script: seven warp widths by seven square tile sizes.
func Defaults() Config {
	return Config{
		WarpCounts: []int{4, 6, 8, 10, 12, 16, 32},
		TileDims:   []int{8, 10, 12, 14, 16, 20, 24},
		BaseDir:    ".",
		Output:     "py2_pipeline_alternatives.inc",
		Generator: GeneratorConfig{
			Command: "./py2_generate_source.py",
			Timeout: 2 * time.Minute,
		},
		FireAndForget: false,
		Workers:       1,
		Stage:         true,
		Tracing:       tracing.DefaultConfig(),
		Debug:         false,
	}
}

// Validate checks the configuration for errors. Empty axes are valid and
// produce an empty run.
func (c Config) Validate() error {
	for i, w := range c.WarpCounts {
		if w <= 0 {
			return fmt.Errorf("warp_counts[%d] must be positive, got %d", i, w)
		}
	}
	for i, d := range c.TileDims {
		if d <= 0 {
			return fmt.Errorf("tile_dims[%d] must be positive, got %d", i, d)
		}
	}
	if c.Generator.Command == "" {
		return fmt.Errorf("generator.command is required")
	}
	if c.Generator.Timeout < 0 {
		return fmt.Errorf("generator.timeout must not be negative, got %v", c.Generator.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Output == "" {
		return fmt.Errorf("output is required")
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(cfg tracing.Config) error {
	if cfg.SampleRate < 0.0 || cfg.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", cfg.SampleRate)
	}
	if cfg.Exporter != "" {
		switch cfg.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", cfg.Exporter)
		}
	}
	return nil
}

// OutputPath resolves the registry destination against BaseDir.
func (c Config) OutputPath() string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.BaseDir, c.Output)
}

// WriteDefaultConfig writes the commented default config template to
// configPath, creating parent directories as needed.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

// DefaultConfigTemplate returns the annotated YAML written on first run.
func DefaultConfigTemplate() string {
	return `# pyragen configuration
#
# The two generation axes. Every (warp count, tile dim) pair produces one
# pipeline variant named py2_<warps>_<tile>_<tile>. Order matters: it is
# the registry order.
warp_counts: [4, 6, 8, 10, 12, 16, 32]
tile_dims: [8, 10, 12, 14, 16, 20, 24]

# All relative paths resolve against base_dir.
base_dir: .

# Registry file destination (truncated and rewritten every run).
output: py2_pipeline_alternatives.inc

generator:
  # External generator invoked as: <command> <warps> <tileWidth> <tileHeight>
  command: ./py2_generate_source.py
  # Per-invocation bound. 0 disables it.
  timeout: 2m

# Historical compatibility mode: ignore generator failures and register
# every variant anyway. Leave off unless you need byte-identical output
# of a full run no matter what.
fire_and_forget: false

# Concurrent generator invocations. Registry order stays deterministic.
workers: 1

# Stage generated artifacts with git add.
stage: true

# tracing:
#   enabled: true
#   exporter: file          # none | file | stdout | otlp
#   file_path: .pyragen/traces/traces.jsonl
#   sample_rate: 1.0
`
}
