package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/pyragen/internal/tracing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, []int{4, 6, 8, 10, 12, 16, 32}, cfg.WarpCounts)
	require.Equal(t, []int{8, 10, 12, 14, 16, 20, 24}, cfg.TileDims)
	require.Equal(t, "py2_pipeline_alternatives.inc", cfg.Output)
	require.Equal(t, "./py2_generate_source.py", cfg.Generator.Command)
	require.Equal(t, 2*time.Minute, cfg.Generator.Timeout)
	require.False(t, cfg.FireAndForget, "strict mode is the default")
	require.Equal(t, 1, cfg.Workers, "sequential by default")
	require.True(t, cfg.Stage)
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveAxisValues(t *testing.T) {
	cfg := Defaults()
	cfg.WarpCounts = []int{4, 0}
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.TileDims = []int{-8}
	require.Error(t, cfg.Validate())
}

func TestValidate_EmptyAxesAreValid(t *testing.T) {
	cfg := Defaults()
	cfg.WarpCounts = nil
	cfg.TileDims = nil
	require.NoError(t, cfg.Validate(), "empty axes mean an empty run, not an error")
}

func TestValidate_RequiresGeneratorCommand(t *testing.T) {
	cfg := Defaults()
	cfg.Generator.Command = ""
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsZeroWorkers(t *testing.T) {
	cfg := Defaults()
	cfg.Workers = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsNegativeTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Generator.Timeout = -time.Second
	require.Error(t, cfg.Validate())
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{Exporter: "stdout", SampleRate: 0.5}))
	require.Error(t, ValidateTracing(tracing.Config{SampleRate: 1.5}))
	require.Error(t, ValidateTracing(tracing.Config{Exporter: "bogus"}))
}

func TestOutputPath(t *testing.T) {
	cfg := Defaults()
	cfg.BaseDir = "/work/pipelines"
	require.Equal(t, "/work/pipelines/py2_pipeline_alternatives.inc", cfg.OutputPath())

	cfg.Output = "/abs/alternatives.inc"
	require.Equal(t, "/abs/alternatives.inc", cfg.OutputPath())
}

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".pyragen", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "warp_counts")

	// The template must parse back into the default config.
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.Equal(t, Defaults().WarpCounts, cfg.WarpCounts)
	require.Equal(t, Defaults().TileDims, cfg.TileDims)
	require.Equal(t, Defaults().Generator.Command, cfg.Generator.Command)
	require.Equal(t, Defaults().Workers, cfg.Workers)
}
