package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/featprune-cli/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Structured logger, built before each command runs
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "featprune",
	Short: "featprune: prune redundant features from an encoded dataset",
	Long: `featprune curates a tabular dataset offline. "clean" drops highly correlated
and near-constant feature columns and writes the reduced table, a heatmap of the
kept features and a run manifest. "explore" prints summary statistics and renders
a correlation heatmap and a stratified pair plot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.featprune/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = cfgpkg.Defaults()
		return
	}
	cfg = c
}

// settings returns a copy of the effective configuration that commands may
// override with their own flags.
func settings() cfgpkg.Global {
	if cfg == nil {
		return *cfgpkg.Defaults()
	}
	return *cfg
}
