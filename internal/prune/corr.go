package prune

import (
	"math"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
	index   map[string]int
}

// NewCorrMatrix wraps precomputed values. Values must be square and match
// Columns; it is not copied.
func NewCorrMatrix(columns []string, values [][]float64) *CorrMatrix {
	m := &CorrMatrix{Columns: columns, Values: values, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		m.index[c] = i
	}
	return m
}

// Correlate computes pairwise Pearson correlations between the named numeric
// columns, in the given order. Each pair uses only rows where both cells are
// non-null. Pairs with fewer than two shared rows, or a constant side, are NaN,
// and so is the diagonal of a constant column.
func Correlate(ds *dataset.Dataset, names []string) (*CorrMatrix, error) {
	cols := make([]*dataset.Column, len(names))
	for i, n := range names {
		c, ok := ds.Column(n)
		if !ok {
			return nil, &dataset.DataError{Column: n, Reason: "column not found"}
		}
		if c.Kind != dataset.KindNumeric {
			return nil, &dataset.DataError{Column: n, Reason: "non-numeric column, correlation is undefined"}
		}
		cols[i] = c
	}
	n := len(cols)
	vals := make([][]float64, n)
	for i := range vals {
		vals[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		vals[i][i] = diagonal(cols[i].Values)
		for j := i + 1; j < n; j++ {
			r := pearson(cols[i].Values, cols[j].Values)
			// fill both halves from one computation so C[a,b] == C[b,a] exactly
			vals[i][j] = r
			vals[j][i] = r
		}
	}
	return NewCorrMatrix(append([]string(nil), names...), vals), nil
}

func pearson(x, y []float64) float64 {
	xs, ys := x, y
	if hasNaN(x) || hasNaN(y) {
		xs = make([]float64, 0, len(x))
		ys = make([]float64, 0, len(y))
		for k := range x {
			if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
				continue
			}
			xs = append(xs, x[k])
			ys = append(ys, y[k])
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

func diagonal(x []float64) float64 {
	v := sampleVariance(x)
	if math.IsNaN(v) || v == 0 {
		return math.NaN()
	}
	return 1
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Index returns the position of a column, or -1.
func (m *CorrMatrix) Index(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return -1
}

// At returns C[a,b], NaN when either column is unknown.
func (m *CorrMatrix) At(a, b string) float64 {
	i, j := m.Index(a), m.Index(b)
	if i < 0 || j < 0 {
		return math.NaN()
	}
	return m.Values[i][j]
}

// Abs returns a new matrix of absolute values.
func (m *CorrMatrix) Abs() *CorrMatrix {
	out := make([][]float64, len(m.Values))
	for i, row := range m.Values {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = math.Abs(v)
		}
	}
	return NewCorrMatrix(m.Columns, out)
}

// MeanAbs returns, per column, the mean absolute correlation to every column
// of the matrix including itself. NaN entries are skipped; a column whose
// entries are all NaN scores NaN.
func (m *CorrMatrix) MeanAbs() []float64 {
	out := make([]float64, len(m.Columns))
	for i, row := range m.Values {
		var sum float64
		var n int
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			sum += math.Abs(v)
			n++
		}
		if n == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}
