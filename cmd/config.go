package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/featprune-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set featprune configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "threshold: %g\n", s.Threshold)
		fmt.Fprintf(out, "target_col: %s\n", s.TargetCol)
		fmt.Fprintf(out, "var_threshold: %g\n", s.VarThreshold)
		fmt.Fprintf(out, "sample_n: %d\n", s.SampleN)
		fmt.Fprintf(out, "pairplot_features: %d\n", s.PairplotFeatures)
		fmt.Fprintf(out, "seed: %d\n", s.Seed)
		fmt.Fprintf(out, "input: %s\n", s.Input)
		fmt.Fprintf(out, "output: %s\n", s.Output)
		fmt.Fprintf(out, "plots_dir: %s\n", s.PlotsDir)
		fmt.Fprintf(out, "heatmap_annotate_max: %d\n", s.HeatmapAnnotateMax)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*cfg = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for threshold: %w", err)
		}
		c.Threshold = f
	case "target_col":
		c.TargetCol = val
	case "var_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for var_threshold: %w", err)
		}
		c.VarThreshold = f
	case "sample_n":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for sample_n: %w", err)
		}
		c.SampleN = i
	case "pairplot_features":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for pairplot_features: %w", err)
		}
		c.PairplotFeatures = i
	case "seed":
		u, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %w", err)
		}
		c.Seed = u
	case "input":
		c.Input = val
	case "output":
		c.Output = val
	case "plots_dir":
		c.PlotsDir = val
	case "heatmap_annotate_max":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for heatmap_annotate_max: %v", val)
		}
		c.HeatmapAnnotateMax = i
	default:
		return fmt.Errorf("unknown key: %s (valid keys: %v)", key, cfgpkg.Keys)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
