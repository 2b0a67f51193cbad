package analysis

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("fixture",
		dataset.NumericColumn("a", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}),
		dataset.NumericColumn("b", []float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 200}),
		dataset.NumericColumn("c", []float64{5, 3, 5, 3, 5, 3, 5, 3, 5, math.NaN()}),
		dataset.TextColumn("city", []string{"x", "y", "x", "x", "", "y", "x", "z", "x", "y"}),
		dataset.NumericColumn("label", []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}),
	)
	require.NoError(t, err)
	return ds
}

func TestAnalyzeDescribe(t *testing.T) {
	rep, err := Analyze(fixture(t), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rep.Cols, 5)
	assert.Equal(t, 10, rep.Rows)

	a := rep.Cols[0]
	assert.Equal(t, 10, a.NonNull)
	assert.InDelta(t, 14.5, a.Mean, 1e-12)
	assert.Equal(t, 1.0, a.Min)
	assert.Equal(t, 100.0, a.Max)
	assert.InDelta(t, 5.5, a.Median, 1e-12)
	assert.InDelta(t, 3.25, a.Q25, 1e-12)
	assert.InDelta(t, 7.75, a.Q75, 1e-12)
	assert.Equal(t, 1, a.OutliersCount, "100 is a robust outlier")

	c := rep.Cols[2]
	assert.Equal(t, 1, c.Missing)
	assert.Equal(t, 9, c.NonNull)

	city := rep.Cols[3]
	assert.Equal(t, dataset.KindText, city.Kind)
	assert.Equal(t, 1, city.Missing)
	assert.Equal(t, 3, city.Unique)
	assert.Equal(t, ClassCount{Value: "x", Count: 5}, city.TopValues[0])
}

func TestAnalyzeClassBalance(t *testing.T) {
	rep, err := Analyze(fixture(t), DefaultOptions())
	require.NoError(t, err)
	want := []ClassCount{{Value: "0", Count: 6}, {Value: "1", Count: 4}}
	if diff := cmp.Diff(want, rep.Classes); diff != "" {
		t.Fatalf("classes mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeMissingTargetWarns(t *testing.T) {
	opt := DefaultOptions()
	opt.Target = "nope"
	rep, err := Analyze(fixture(t), opt)
	require.NoError(t, err)
	assert.Empty(t, rep.Classes)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "nope")
}

func TestTopFeaturesExcludeTarget(t *testing.T) {
	rep, err := Analyze(fixture(t), DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"a", "b", "c", "label"}, rep.Corr.Columns)
	names := FeatureNames(rep.Top)
	assert.NotContains(t, names, "label")
	assert.ElementsMatch(t, []string{"a", "b", "c"}, names)
	for i := 1; i < len(rep.Top); i++ {
		assert.GreaterOrEqual(t, rep.Top[i-1].MeanAbsCorr, rep.Top[i].MeanAbsCorr)
	}
}

func TestTopFeaturesLimit(t *testing.T) {
	opt := DefaultOptions()
	opt.TopK = 1
	rep, err := Analyze(fixture(t), opt)
	require.NoError(t, err)
	require.Len(t, rep.Top, 1)
}

func TestMarkdownSections(t *testing.T) {
	rep, err := Analyze(fixture(t), DefaultOptions())
	require.NoError(t, err)
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]", "Rows: 10", "[SCHEMA]", "[NULL COUNTS]", "- c: 1",
		"[CLASS BALANCE]", "- 0: 6 (60.0%)", "[TOP FEATURES BY MEAN |r|]", "[CORRELATIONS]",
		"- a ~ b: r=1.000", "[HEAD AND SAMPLE ROWS]", "| a | b | c | city | label |",
	} {
		assert.Contains(t, md, want)
	}
}

func TestWriteConsole(t *testing.T) {
	rep, err := Analyze(fixture(t), DefaultOptions())
	require.NoError(t, err)
	var buf bytes.Buffer
	rep.WriteConsole(&buf)
	out := buf.String()
	assert.Contains(t, out, "Shape: 10 rows x 5 columns")
	assert.Contains(t, out, "Descriptive statistics")
	assert.Contains(t, out, "2 null cells in total")
	assert.Contains(t, out, "First 5 rows")
	assert.True(t, strings.Count(out, "──") >= 8)
}

func TestQuantileAndMAD(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 2.5, quantile(s, 0.5))
	assert.Equal(t, 1.0, quantile(s, 0))
	assert.Equal(t, 4.0, quantile(s, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))

	med, mad := medianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	assert.Equal(t, 2.0, med)
	assert.Equal(t, 1.0, mad)
}
