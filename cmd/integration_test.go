package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/KaramelBytes/featprune-cli/internal/manifest"
	"github.com/KaramelBytes/featprune-cli/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset sticky flags that may persist Changed state across invocations
	for _, c := range []*cobra.Command{rootCmd, cleanCmd, exploreCmd, configSetCmd, configShowCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// writeRedundantCSV writes a dataset where y tracks x, z is constant and w
// is independent noise.
func writeRedundantCSV(t *testing.T, path string, withLabel bool) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	var b strings.Builder
	b.WriteString("x,y,z,w")
	if withLabel {
		b.WriteString(",label")
	}
	b.WriteString("\n")
	for i := 0; i < 60; i++ {
		x := float64(i)
		y := 2*x + rng.Float64()
		w := rng.NormFloat64()
		fmt.Fprintf(&b, "%s,%s,5,%s", ff(x), ff(y), ff(w))
		if withLabel {
			fmt.Fprintf(&b, ",%d", i%3)
		}
		b.WriteString("\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func ff(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func TestCLI_CleanWritesOutputs(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "merged_encoded.csv")
	out := filepath.Join(dir, "merged_clean.parquet")
	plots := filepath.Join(dir, "plots")
	writeRedundantCSV(t, in, true)

	stdout, err := runCmd(t, "clean", "-i", in, "-o", out, "--plots-dir", plots)
	require.NoError(t, err)
	assert.Contains(t, stdout, "All done!")
	assert.Regexp(t, `Dropping\s+: \[[xy], z\]`, stdout)
	assert.Regexp(t, `Remaining features: \[[xy], w\]`, stdout)

	cleaned, err := dataset.Load(out, dataset.CSVOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 60, cleaned.Rows())
	names := cleaned.Names()
	require.Len(t, names, 3)
	assert.Equal(t, "label", names[2])
	assert.Contains(t, names, "w")
	assert.NotContains(t, names, "z")
	assert.True(t, cleaned.Has("x") != cleaned.Has("y"), "exactly one of x and y survives: %v", names)

	_, err = os.Stat(filepath.Join(plots, cleanHeatmapName))
	require.NoError(t, err)

	m, err := manifest.Load(manifest.PathFor(out))
	require.NoError(t, err)
	assert.Equal(t, 4, m.Considered)
	assert.Len(t, m.Drops, 2)
	assert.Equal(t, []string{filepath.Join(plots, cleanHeatmapName)}, m.Plots)
}

func TestCLI_CleanParquetRoundTripNoPlots(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	csvIn := filepath.Join(dir, "in.csv")
	writeRedundantCSV(t, csvIn, true)
	ds, err := dataset.Load(csvIn, dataset.CSVOptions{}, nil)
	require.NoError(t, err)
	in := filepath.Join(dir, "in.parquet")
	var st utils.Staged
	require.NoError(t, dataset.Stage(&st, in, ds, nil))
	require.NoError(t, st.Commit())

	out := filepath.Join(dir, "out.parquet")
	_, err = runCmd(t, "clean", "-i", in, "-o", out, "--plots-dir", dir, "--no-plots", "--no-manifest")
	require.NoError(t, err)
	_, err = os.Stat(out)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, cleanHeatmapName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(manifest.PathFor(out))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_CleanMissingTargetLeavesNoOutput(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.parquet")
	writeRedundantCSV(t, in, false)

	_, err := runCmd(t, "clean", "-i", in, "-o", out, "--plots-dir", dir)
	require.Error(t, err)
	var de *dataset.DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "label", de.Column)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the input may remain")
}

func TestCLI_CleanUnwritablePlotsDirLeavesNoOutput(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.parquet")
	writeRedundantCSV(t, in, true)
	plots := filepath.Join(dir, "plots")
	require.NoError(t, os.WriteFile(plots, []byte("regular file"), 0o644))

	_, err := runCmd(t, "clean", in, "-o", out, "--plots-dir", plots)
	require.Error(t, err)

	for _, p := range []string{out, out + ".tmp", manifest.PathFor(out)} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s must not exist after a failed run", p)
	}
}

func TestCLI_CleanPositionalInput(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeRedundantCSV(t, in, true)

	stdout, err := runCmd(t, "clean", in, "-o", out, "--no-plots", "--no-manifest")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Loading "+in)
	_, err = os.Stat(out)
	require.NoError(t, err)

	_, err = runCmd(t, "clean", in, "-i", in, "-o", out)
	assert.ErrorContains(t, err, "input given twice")
}

func TestCLI_CleanMissingInput(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	_, err := runCmd(t, "clean", "-i", filepath.Join(dir, "nope.parquet"), "-o", filepath.Join(dir, "out.parquet"))
	var ioe *dataset.IOError
	require.True(t, errors.As(err, &ioe))
}

func TestCLI_CleanUsesConfiguredThreshold(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	out := filepath.Join(dir, "out.csv")
	writeRedundantCSV(t, in, true)

	_, err := runCmd(t, "config", "set", "threshold", "1")
	require.NoError(t, err)
	_, err = runCmd(t, "clean", "-i", in, "-o", out, "--no-plots")
	require.NoError(t, err)
	cleaned, err := dataset.Load(out, dataset.CSVOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "w", "label"}, cleaned.Names())

	// flags override config
	_, err = runCmd(t, "clean", "-i", in, "-o", out, "--no-plots", "--threshold", "0.9")
	require.NoError(t, err)
	cleaned, err = dataset.Load(out, dataset.CSVOptions{}, nil)
	require.NoError(t, err)
	assert.Len(t, cleaned.Names(), 3)
}

func TestCLI_ExploreWritesPlotsAndSummary(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	md := filepath.Join(dir, "summary.md")
	writeRedundantCSV(t, in, true)

	stdout, err := runCmd(t, "explore", "-i", in, "--plots-dir", dir, "-o", md, "--sample-n", "30")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Descriptive statistics")
	assert.Contains(t, stdout, "Pair plot sample: 30 rows | 3 classes")

	for _, name := range []string{exploreHeatmapName, explorePairplotName} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}
	summary, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(summary), "[CLASS BALANCE]")
}

func TestCLI_ExploreFailedWriteLeavesNoPlots(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	writeRedundantCSV(t, in, true)
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := runCmd(t, "explore", in, "--plots-dir", dir, "--sample-n", "30", "-o", filepath.Join(blocker, "summary.md"))
	require.Error(t, err)
	for _, name := range []string{exploreHeatmapName, explorePairplotName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolateHome(t)

	_, err := runCmd(t, "config", "set", "sample_n", "500")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(home, ".featprune", "config.yaml"))
	require.NoError(t, err)

	out, err := runCmd(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "sample_n: 500")
	assert.Contains(t, out, "threshold: 0.9")

	_, err = runCmd(t, "config", "set", "threshold", "1.5")
	assert.Error(t, err)
	_, err = runCmd(t, "config", "set", "bogus", "1")
	assert.Error(t, err)
}
