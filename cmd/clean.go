package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/featprune-cli/internal/chart"
	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/KaramelBytes/featprune-cli/internal/manifest"
	"github.com/KaramelBytes/featprune-cli/internal/prune"
	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cleanHeatmapName = "heatmap_clean.png"

var (
	clnInput        string
	clnOutput       string
	clnTarget       string
	clnThreshold    float64
	clnVarThreshold float64
	clnPlotsDir     string
	clnNoPlots      bool
	clnNoManifest   bool
	clnCSV          csvFlags
)

var cleanCmd = &cobra.Command{
	Use:   "clean [input]",
	Short: "Drop redundant and near-constant features and save the reduced dataset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		f := cmd.Flags()
		input, err := resolveInput(cmd, args, clnInput, s.Input)
		if err != nil {
			return err
		}
		s.Input = input
		if f.Changed("output") {
			s.Output = clnOutput
		}
		if f.Changed("target") {
			s.TargetCol = clnTarget
		}
		if f.Changed("threshold") {
			s.Threshold = clnThreshold
		}
		if f.Changed("var-threshold") {
			s.VarThreshold = clnVarThreshold
		}
		if f.Changed("plots-dir") {
			s.PlotsDir = clnPlotsDir
		}
		if err := s.Validate(); err != nil {
			return err
		}
		csvOpt, err := clnCSV.options()
		if err != nil {
			return err
		}
		return runClean(cmd.OutOrStdout(), s.Input, s.Output, s.PlotsDir, csvOpt, cleanPlan{
			opt: prune.Options{
				Threshold:    s.Threshold,
				VarThreshold: s.VarThreshold,
				Target:       s.TargetCol,
				Logger:       logger,
			},
			plots:       !clnNoPlots,
			manifest:    !clnNoManifest,
			annotateMax: s.HeatmapAnnotateMax,
		})
	},
}

type cleanPlan struct {
	opt         prune.Options
	plots       bool
	manifest    bool
	annotateMax int
}

// runClean computes everything first and stages every output; files are
// renamed into place only once all of them were written, so a failing run
// leaves no outputs behind.
func runClean(out io.Writer, input, output, plotsDir string, csvOpt dataset.CSVOptions, plan cleanPlan) error {
	ok := color.GreenString("✓")
	warn := color.YellowString("⚠")

	fmt.Fprintf(out, "Loading %s ...\n", input)
	ds, err := dataset.Load(input, csvOpt, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Original shape: %d rows x %d columns\n", ds.Rows(), ds.Width())

	run := manifest.New(input, output)
	fmt.Fprintf(out, "\n[1] Pruning features (threshold = %g, variance < %g) ...\n", plan.opt.Threshold, plan.opt.VarThreshold)
	res, err := prune.Run(ds, plan.opt)
	if err != nil {
		return err
	}
	corrDrops := res.Drops.ByReason(prune.ReasonCorrelation)
	varDrops := res.Drops.ByReason(prune.ReasonLowVariance)
	fmt.Fprintf(out, "    Features before : %d  (excl. target)\n", res.Considered())
	fmt.Fprintf(out, "    Correlated drops: %d %v\n", len(corrDrops), dropNames(corrDrops))
	fmt.Fprintf(out, "    Low-variance    : %d %v\n", len(varDrops), dropNames(varDrops))
	if res.Dropped() > 0 {
		fmt.Fprintf(out, "    Dropping        : [%s]\n", strings.Join(res.Drops.Sorted(), ", "))
	}
	for _, d := range corrDrops {
		logger.Debug("dropped correlated feature",
			zap.String("column", d.Column),
			zap.String("partner", d.Partner),
			zap.Float64("corr", d.Corr),
			zap.Float64("mean_corr", d.MeanCorr),
			zap.Float64("partner_mean_corr", d.PartnerMeanCorr))
	}

	var heatmap []byte
	heatmapPath := filepath.Join(plotsDir, cleanHeatmapName)
	kept := res.KeptFeatures()
	if plan.plots {
		if len(kept) == 0 {
			fmt.Fprintf(out, "%s No features kept; skipping %s\n", warn, cleanHeatmapName)
		} else {
			corr, err := prune.Correlate(res.Cleaned, kept)
			if err != nil {
				return err
			}
			heatmap, err = chart.RenderHeatmap(corr, chart.HeatmapOptions{
				Title:    fmt.Sprintf("Correlation heatmap: %d kept features (threshold=%g)", len(kept), plan.opt.Threshold),
				Annotate: len(kept) <= plan.annotateMax,
			})
			if err != nil {
				return fmt.Errorf("render heatmap: %w", err)
			}
		}
	}
	run.Record(res, plan.opt)
	if heatmap != nil {
		run.Plots = append(run.Plots, heatmapPath)
	}

	fmt.Fprintf(out, "\n[2] Final shape after cleaning: %d rows x %d columns\n", res.Cleaned.Rows(), res.Cleaned.Width())
	fmt.Fprintf(out, "    Remaining features: [%s]\n", strings.Join(kept, ", "))

	var st utils.Staged
	defer st.Abort()
	if err := dataset.Stage(&st, output, res.Cleaned, logger); err != nil {
		return err
	}
	if heatmap != nil {
		if err := st.WriteFile(heatmapPath, heatmap); err != nil {
			return &dataset.IOError{Op: "write", Path: heatmapPath, Err: err}
		}
	}
	if plan.manifest {
		if err := run.Stage(&st); err != nil {
			return &dataset.IOError{Op: "write", Path: run.Path(), Err: err}
		}
	}
	if err := st.Commit(); err != nil {
		return fmt.Errorf("save outputs: %w", err)
	}
	for _, p := range st.Paths() {
		fmt.Fprintf(out, "%s Saved %s\n", ok, p)
	}

	fmt.Fprintf(out, "\n%s All done!\n", ok)
	fmt.Fprintf(out, "   Original features : %d\n", res.Considered())
	fmt.Fprintf(out, "   Dropped           : %d\n", res.Dropped())
	fmt.Fprintf(out, "   Final features    : %d  (+ target '%s')\n", res.Kept(), plan.opt.Target)
	return nil
}

func dropNames(drops []prune.Drop) string {
	names := make([]string, len(drops))
	for i, d := range drops {
		names[i] = d.Column
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVarP(&clnInput, "input", "i", "", "input dataset (.parquet, .csv, .tsv); may also be given as the argument")
	cleanCmd.Flags().StringVarP(&clnOutput, "output", "o", "", "cleaned dataset path; default from config")
	cleanCmd.Flags().StringVar(&clnTarget, "target", "", "label column that is never dropped")
	cleanCmd.Flags().Float64Var(&clnThreshold, "threshold", 0.90, "absolute correlation at which a pair is redundant")
	cleanCmd.Flags().Float64Var(&clnVarThreshold, "var-threshold", 1e-5, "drop features whose sample variance is below this")
	cleanCmd.Flags().StringVar(&clnPlotsDir, "plots-dir", "", "directory for PNG charts; default from config")
	cleanCmd.Flags().BoolVar(&clnNoPlots, "no-plots", false, "skip rendering the kept-feature heatmap")
	cleanCmd.Flags().BoolVar(&clnNoManifest, "no-manifest", false, "skip writing the run manifest")
	clnCSV.register(cleanCmd)
}
