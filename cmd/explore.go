package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/featprune-cli/internal/analysis"
	"github.com/KaramelBytes/featprune-cli/internal/chart"
	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exploreHeatmapName  = "heatmap_encoded.png"
	explorePairplotName = "pairplot_encoded.png"
)

var (
	expInput      string
	expTarget     string
	expPlotsDir   string
	expOutputPath string
	expSampleN    int
	expFeatures   int
	expSeed       uint64
	expNoPlots    bool
	expOutliers   bool
	expOutlierThr float64
	expCSV        csvFlags
)

var exploreCmd = &cobra.Command{
	Use:   "explore [input]",
	Short: "Summarize a dataset and render its correlation heatmap and pair plot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		f := cmd.Flags()
		input, err := resolveInput(cmd, args, expInput, s.Input)
		if err != nil {
			return err
		}
		s.Input = input
		if f.Changed("target") {
			s.TargetCol = expTarget
		}
		if f.Changed("plots-dir") {
			s.PlotsDir = expPlotsDir
		}
		if f.Changed("sample-n") {
			s.SampleN = expSampleN
		}
		if f.Changed("features") {
			s.PairplotFeatures = expFeatures
		}
		if f.Changed("seed") {
			s.Seed = expSeed
		}
		if err := s.Validate(); err != nil {
			return err
		}
		csvOpt, err := expCSV.options()
		if err != nil {
			return err
		}

		opt := analysis.DefaultOptions()
		opt.Target = s.TargetCol
		opt.TopK = s.PairplotFeatures
		if f.Changed("outliers") {
			opt.Outliers = expOutliers
		}
		if expOutlierThr > 0 {
			opt.OutlierThreshold = expOutlierThr
		}
		return runExplore(cmd.OutOrStdout(), s.Input, csvOpt, explorePlan{
			analysis: opt,
			plotsDir: s.PlotsDir,
			plots:    !expNoPlots,
			sampleN:  s.SampleN,
			seed:     s.Seed,
			markdown: expOutputPath,
		})
	},
}

type explorePlan struct {
	analysis analysis.Options
	plotsDir string
	plots    bool
	sampleN  int
	seed     uint64
	markdown string
}

func runExplore(out io.Writer, input string, csvOpt dataset.CSVOptions, plan explorePlan) error {
	ok := color.GreenString("✓")
	warn := color.YellowString("⚠")

	fmt.Fprintf(out, "Loading %s ...\n", input)
	ds, err := dataset.Load(input, csvOpt, logger)
	if err != nil {
		return err
	}
	rep, err := analysis.Analyze(ds, plan.analysis)
	if err != nil {
		return err
	}
	rep.WriteConsole(out)

	var st utils.Staged
	defer st.Abort()

	if plan.plots {
		if rep.Corr == nil {
			fmt.Fprintf(out, "%s Fewer than two numeric columns; skipping plots\n", warn)
		} else {
			fmt.Fprintln(out, "\nComputing correlation heatmap ...")
			png, err := chart.RenderHeatmap(rep.Corr, chart.HeatmapOptions{Title: "Correlation heatmap: encoded dataset"})
			if err != nil {
				return fmt.Errorf("render heatmap: %w", err)
			}
			if err := stage(&st, filepath.Join(plan.plotsDir, exploreHeatmapName), png); err != nil {
				return err
			}

			top := analysis.FeatureNames(rep.Top)
			fmt.Fprintf(out, "\nTop %d features for pair plot: %v\n", len(top), top)
			rows, err := analysis.StratifiedSample(ds, plan.analysis.Target, plan.sampleN, plan.seed)
			if err != nil {
				return err
			}
			cols, err := ds.Select(append(top, plan.analysis.Target)...)
			if err != nil {
				return err
			}
			sample := cols.Take(rows)
			groups := 0
			if col, ok := sample.Column(plan.analysis.Target); ok {
				groups = len(analysis.ClassGroups(col))
			}
			fmt.Fprintf(out, "Pair plot sample: %d rows | %d classes\n", sample.Rows(), groups)
			logger.Debug("stratified sample drawn",
				zap.Int("rows", sample.Rows()),
				zap.Int("classes", groups),
				zap.Uint64("seed", plan.seed))

			fmt.Fprintln(out, "Rendering pair plot ...")
			png, err = chart.RenderPairPlot(sample, top, plan.analysis.Target, chart.PairPlotOptions{
				Title:    fmt.Sprintf("Pair plot: top %d features (encoded dataset)", len(top)),
				Progress: os.Stderr,
			})
			if err != nil {
				return fmt.Errorf("render pair plot: %w", err)
			}
			if err := stage(&st, filepath.Join(plan.plotsDir, explorePairplotName), png); err != nil {
				return err
			}
		}
	}
	if plan.markdown != "" {
		if err := stage(&st, plan.markdown, []byte(rep.Markdown())); err != nil {
			return err
		}
	}

	if err := st.Commit(); err != nil {
		return fmt.Errorf("save outputs: %w", err)
	}
	for _, p := range st.Paths() {
		fmt.Fprintf(out, "%s Saved %s\n", ok, p)
	}
	fmt.Fprintf(out, "\n%s All done!\n", ok)
	return nil
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVarP(&expInput, "input", "i", "", "input dataset (.parquet, .csv, .tsv); may also be given as the argument")
	exploreCmd.Flags().StringVar(&expTarget, "target", "", "label column used for class balance and sampling")
	exploreCmd.Flags().StringVar(&expPlotsDir, "plots-dir", "", "directory for PNG charts; default from config")
	exploreCmd.Flags().StringVarP(&expOutputPath, "output", "o", "", "optional path to write the summary (Markdown)")
	exploreCmd.Flags().IntVar(&expSampleN, "sample-n", 2000, "pair plot sample size")
	exploreCmd.Flags().IntVar(&expFeatures, "features", 8, "number of top features in the pair plot")
	exploreCmd.Flags().Uint64Var(&expSeed, "seed", 42, "random seed for the stratified sample")
	exploreCmd.Flags().BoolVar(&expNoPlots, "no-plots", false, "print the summary only")
	exploreCmd.Flags().BoolVar(&expOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	exploreCmd.Flags().Float64Var(&expOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	expCSV.register(exploreCmd)
}

func stage(st *utils.Staged, path string, data []byte) error {
	if err := st.WriteFile(path, data); err != nil {
		return &dataset.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
