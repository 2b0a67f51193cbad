package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"github.com/KaramelBytes/featprune-cli/internal/prune"
	"github.com/montanaflynn/stats"
)

// Options controls exploration of an in-memory dataset.
type Options struct {
	// Target is the label column used for class balance and sampling.
	Target string
	// HeadRows determines how many leading rows to include in the report.
	HeadRows int
	// TopK is the number of features ranked by mean absolute correlation.
	TopK int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for dataset exploration.
func DefaultOptions() Options {
	return Options{
		Target:           "label",
		HeadRows:         5,
		TopK:             8,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly exploration of a dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Head     [][]string
	Classes  []ClassCount
	Corr     *prune.CorrMatrix
	Top      []FeatureScore
	Warnings []string
}

// ColumnSummary captures kind, nulls and describe-style statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.Kind
	NonNull int
	Missing int
	// Numeric stats: sample std, linearly interpolated quartiles
	Mean, Std          float64
	Min, Max           float64
	Q25, Median, Q75   float64
	OutliersCount      int
	OutliersMaxAbsZ    float64
	OutlierThreshold   float64
	// Text columns
	Unique    int
	TopValues []ClassCount
}

// ClassCount is a value and how often it occurs.
type ClassCount struct {
	Value string
	Count int
}

// FeatureScore ranks a column by its mean absolute correlation.
type FeatureScore struct {
	Name        string
	MeanAbsCorr float64
}

// Analyze summarizes ds.
func Analyze(ds *dataset.Dataset, opt Options) (*Report, error) {
	rep := &Report{Name: ds.Name, Rows: ds.Rows()}
	headRows := opt.HeadRows
	if headRows < 0 {
		headRows = 0
	}
	rep.Head = ds.Head(headRows)

	var numeric []string
	for i := 0; i < ds.Width(); i++ {
		c := ds.ColumnAt(i)
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, Missing: c.NullCount()}
		s.NonNull = c.Len() - s.Missing
		if c.Kind == dataset.KindNumeric {
			numeric = append(numeric, c.Name)
			describe(&s, c.Valid(), opt)
		} else {
			s.TopValues, s.Unique = topValues(c.Strings, 8)
		}
		rep.Cols = append(rep.Cols, s)
	}

	if opt.Target != "" {
		if target, ok := ds.Column(opt.Target); ok {
			for _, g := range ClassGroups(target) {
				rep.Classes = append(rep.Classes, ClassCount{Value: g.Key, Count: len(g.Rows)})
			}
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("target column %q not found; class balance skipped", opt.Target))
		}
	}

	if opt.Correlations && len(numeric) >= 2 {
		m, err := prune.Correlate(ds, numeric)
		if err != nil {
			return nil, err
		}
		rep.Corr = m
		rep.Top = TopFeatures(m, opt.Target, opt.TopK)
	}
	return rep, nil
}

func describe(s *ColumnSummary, vals []float64, opt Options) {
	nan := math.NaN()
	s.Mean, s.Std, s.Min, s.Max = nan, nan, nan, nan
	s.Q25, s.Median, s.Q75 = nan, nan, nan
	if len(vals) == 0 {
		return
	}
	s.Mean, _ = stats.Mean(vals)
	s.Min, _ = stats.Min(vals)
	s.Max, _ = stats.Max(vals)
	if len(vals) > 1 {
		s.Std, _ = stats.StandardDeviationSample(vals)
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	s.Q25 = quantile(sorted, 0.25)
	s.Median = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)

	if opt.Outliers && len(vals) >= 8 {
		median, mad := medianMAD(vals)
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		var cnt int
		maxAbsZ := 0.0
		if mad > 0 {
			for _, v := range vals {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > thr {
					cnt++
				}
				if az > maxAbsZ {
					maxAbsZ = az
				}
			}
		}
		s.OutliersCount = cnt
		s.OutliersMaxAbsZ = maxAbsZ
		s.OutlierThreshold = thr
	}
}

func topValues(vals []string, limit int) ([]ClassCount, int) {
	counts := map[string]int{}
	for _, v := range vals {
		if v == "" {
			continue
		}
		counts[v]++
	}
	tops := make([]ClassCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, ClassCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(counts)
}

// TopFeatures ranks the matrix columns by mean absolute correlation,
// highest first, leaving out exclude. Ties keep matrix order; NaN scores sort last.
func TopFeatures(m *prune.CorrMatrix, exclude string, k int) []FeatureScore {
	means := m.MeanAbs()
	var out []FeatureScore
	for i, c := range m.Columns {
		if c == exclude {
			continue
		}
		out = append(out, FeatureScore{Name: c, MeanAbsCorr: means[i]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].MeanAbsCorr, out[j].MeanAbsCorr
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// FeatureNames returns the names of scores, in order.
func FeatureNames(scores []FeatureScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Name
	}
	return out
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case dataset.KindNumeric:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString(" — top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[NULL COUNTS]\n")
	anyNull := false
	for _, c := range r.Cols {
		if c.Missing > 0 {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeName(c.Name), c.Missing))
			anyNull = true
		}
	}
	if !anyNull {
		b.WriteString("No nulls — clean dataset\n")
	}

	if len(r.Classes) > 0 {
		b.WriteString("\n[CLASS BALANCE]\n")
		for _, c := range r.Classes {
			pct := 0.0
			if r.Rows > 0 {
				pct = float64(c.Count) * 100.0 / float64(r.Rows)
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeVal(c.Value), c.Count, pct))
		}
	}

	if len(r.Top) > 0 {
		b.WriteString("\n[TOP FEATURES BY MEAN |r|]\n")
		for i, f := range r.Top {
			b.WriteString(fmt.Sprintf("%d. %s: %.3f\n", i+1, f.Name, f.MeanAbsCorr))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range TopPairs(r.Corr, 10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Head) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Head {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists the strongest off-diagonal pairs by |r|, skipping NaN.
func TopPairs(m *prune.CorrMatrix, limit int) []PairCorr {
	var pairs []PairCorr
	n := len(m.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := m.Values[i][j]
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
