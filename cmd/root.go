package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/pyragen/internal/config"
	"github.com/zjrosen/pyragen/internal/generator"
	"github.com/zjrosen/pyragen/internal/git"
	"github.com/zjrosen/pyragen/internal/log"
	"github.com/zjrosen/pyragen/internal/pipeline"
	"github.com/zjrosen/pyragen/internal/tracing"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pyragen",
	Short: "Generate and register compute pipeline variants",
	Long: `pyragen drives an external kernel-source generator over the cross
product of warp counts and tile dimensions, writes one registry entry per
variant to a table-initializer include file, and stages the generated
shader and native-source artifacts with git.`,
	Version: version,
	RunE:    runGenerate,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .pyragen/config.yaml, then ~/.config/pyragen/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false,
		"write a structured debug log to .pyragen/debug.log")

	rootCmd.Flags().StringP("base-dir", "C", "",
		"directory all relative paths resolve against")
	rootCmd.Flags().StringP("output", "o", "",
		"registry file destination")
	rootCmd.Flags().Int("workers", 0,
		"concurrent generator invocations (registry order is unaffected)")
	rootCmd.Flags().Bool("fire-and-forget", false,
		"ignore generator failures and register every variant (historical behavior)")
	rootCmd.Flags().Bool("no-stage", false,
		"skip git add of generated artifacts")

	// Bind flags to viper
	_ = viper.BindPFlag("base_dir", rootCmd.Flags().Lookup("base-dir"))
	_ = viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("warp_counts", defaults.WarpCounts)
	viper.SetDefault("tile_dims", defaults.TileDims)
	viper.SetDefault("base_dir", defaults.BaseDir)
	viper.SetDefault("output", defaults.Output)
	viper.SetDefault("generator.command", defaults.Generator.Command)
	viper.SetDefault("generator.timeout", defaults.Generator.Timeout)
	viper.SetDefault("fire_and_forget", defaults.FireAndForget)
	viper.SetDefault("workers", defaults.Workers)
	viper.SetDefault("stage", defaults.Stage)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .pyragen/config.yaml (current directory)
		// 2. ~/.config/pyragen/config.yaml (user config)
		if _, err := os.Stat(".pyragen/config.yaml"); err == nil {
			viper.SetConfigFile(".pyragen/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "pyragen"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Missing config is fine: run on defaults. `pyragen init`
		// writes a starter file.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "warning: ignoring config: %v\n", err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if debugEnabled(cmd) {
		_ = os.MkdirAll(".pyragen", 0o750)
		if cleanup, err := log.Init(filepath.Join(".pyragen", "debug.log")); err == nil {
			defer cleanup()
		}
	} else {
		log.SetEnabled(false)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Flag-only overrides without config keys (negated logic, like the
	// config's stage default).
	if noStage, _ := cmd.Flags().GetBool("no-stage"); noStage {
		cfg.Stage = false
	}
	if fireAndForget, _ := cmd.Flags().GetBool("fire-and-forget"); fireAndForget {
		cfg.FireAndForget = true
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Workers = workers
	}

	tracingCfg := cfg.Tracing
	if tracingCfg.Enabled && tracingCfg.Exporter == "file" && tracingCfg.FilePath == "" {
		tracingCfg.FilePath = filepath.Join(".pyragen", "traces", "traces.jsonl")
	}
	provider, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return fmt.Errorf("configuring tracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stager git.Stager = git.NopStager{}
	if cfg.Stage {
		stager = git.NewRealStager(cfg.BaseDir)
	}

	registrar := pipeline.New(pipeline.Options{
		WarpCounts: cfg.WarpCounts,
		TileDims:   cfg.TileDims,
		Generator: generator.NewExecGenerator(cfg.Generator.Command, cfg.BaseDir,
			generator.WithTimeout(cfg.Generator.Timeout)),
		Stager:        stager,
		RegistryPath:  cfg.OutputPath(),
		FireAndForget: cfg.FireAndForget,
		Workers:       cfg.Workers,
		Tracer:        provider.Tracer(),
	})

	summary, runErr := registrar.Run(ctx)

	if shutdownErr := provider.Shutdown(cmd.Context()); shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "warning: flushing traces: %v\n", shutdownErr)
	}

	if runErr != nil {
		return fmt.Errorf("%d of %d variants registered: %w",
			summary.Registered, summary.Total, runErr)
	}

	fmt.Printf("registered %d variants in %s (%s)\n",
		summary.Registered, cfg.OutputPath(), summary.Duration.Round(time.Millisecond))
	if summary.Failed > 0 {
		fmt.Printf("warning: %d generator failures were ignored (fire-and-forget)\n", summary.Failed)
	}
	return nil
}

// debugEnabled reports whether --debug or PYRAGEN_DEBUG asked for the
// structured log.
func debugEnabled(cmd *cobra.Command) bool {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		return true
	}
	return os.Getenv("PYRAGEN_DEBUG") != ""
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
