package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Pruning
	Threshold    float64 `mapstructure:"threshold" yaml:"threshold"`
	TargetCol    string  `mapstructure:"target_col" yaml:"target_col"`
	VarThreshold float64 `mapstructure:"var_threshold" yaml:"var_threshold"`

	// Exploration
	SampleN          int    `mapstructure:"sample_n" yaml:"sample_n"`
	PairplotFeatures int    `mapstructure:"pairplot_features" yaml:"pairplot_features"`
	Seed             uint64 `mapstructure:"seed" yaml:"seed"`

	// Files
	Input              string `mapstructure:"input" yaml:"input"`
	Output             string `mapstructure:"output" yaml:"output"`
	PlotsDir           string `mapstructure:"plots_dir" yaml:"plots_dir"`
	HeatmapAnnotateMax int    `mapstructure:"heatmap_annotate_max" yaml:"heatmap_annotate_max"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"threshold", "target_col", "var_threshold",
	"sample_n", "pairplot_features", "seed",
	"input", "output", "plots_dir", "heatmap_annotate_max",
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		Threshold:          0.90,
		TargetCol:          "label",
		VarThreshold:       1e-5,
		SampleN:            2000,
		PairplotFeatures:   8,
		Seed:               42,
		Input:              "merged_encoded.parquet",
		Output:             "merged_clean.parquet",
		PlotsDir:           ".",
		HeatmapAnnotateMax: 30,
	}
}

// Validate reports the first out-of-range setting.
func (c *Global) Validate() error {
	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %v", c.Threshold)
	}
	if math.IsNaN(c.VarThreshold) || c.VarThreshold < 0 {
		return fmt.Errorf("var_threshold must be >= 0, got %v", c.VarThreshold)
	}
	if c.TargetCol == "" {
		return fmt.Errorf("target_col must not be empty")
	}
	if c.SampleN <= 0 {
		return fmt.Errorf("sample_n must be positive, got %d", c.SampleN)
	}
	if c.PairplotFeatures <= 0 {
		return fmt.Errorf("pairplot_features must be positive, got %d", c.PairplotFeatures)
	}
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".featprune"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.featprune/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FEATPRUNE")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("target_col", d.TargetCol)
	v.SetDefault("var_threshold", d.VarThreshold)
	v.SetDefault("sample_n", d.SampleN)
	v.SetDefault("pairplot_features", d.PairplotFeatures)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("plots_dir", d.PlotsDir)
	v.SetDefault("heatmap_annotate_max", d.HeatmapAnnotateMax)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
