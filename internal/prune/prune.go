// Package prune removes redundant and near-constant feature columns.
//
// Redundancy is judged by absolute Pearson correlation. Pairs are visited
// once, in dataset column order over the strict upper triangle; when a pair
// reaches the threshold the member with the lower mean absolute correlation
// is dropped (ties keep the earlier column). A dropped column is never
// revisited or restored, so the result depends on column order and may leave
// some pairs above the threshold. Columns that survive are then screened for
// near-zero sample variance. The target column is never considered.
package prune

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"go.uber.org/zap"
)

// Options controls a pruning run.
type Options struct {
	// Threshold is the inclusive absolute correlation at which a pair is redundant.
	Threshold float64
	// VarThreshold drops columns whose sample variance is strictly lower.
	VarThreshold float64
	// Target names the label column; it is never dropped.
	Target string
	Logger *zap.Logger
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		Threshold:    0.90,
		VarThreshold: 1e-5,
		Target:       "label",
	}
}

// Reason tells why a column was dropped.
type Reason string

const (
	ReasonCorrelation Reason = "correlation"
	ReasonLowVariance Reason = "low-variance"
)

// Drop records one dropped column and the evidence behind it.
type Drop struct {
	Column string
	Reason Reason
	// Correlation drops: the surviving side of the pair and the scores compared.
	Partner         string
	Corr            float64
	MeanCorr        float64
	PartnerMeanCorr float64
	// Variance drops.
	Variance float64
}

// DropSet is a monotonic set of dropped columns: entries are only ever added.
type DropSet struct {
	order []string
	byCol map[string]Drop
}

// NewDropSet returns an empty set.
func NewDropSet() *DropSet {
	return &DropSet{byCol: map[string]Drop{}}
}

// Has reports membership.
func (s *DropSet) Has(name string) bool {
	_, ok := s.byCol[name]
	return ok
}

// add inserts d unless its column is already present; the first record wins.
func (s *DropSet) add(d Drop) bool {
	if s.Has(d.Column) {
		return false
	}
	s.byCol[d.Column] = d
	s.order = append(s.order, d.Column)
	return true
}

// Len returns the number of dropped columns.
func (s *DropSet) Len() int { return len(s.order) }

// Names returns dropped columns in the order they were added.
func (s *DropSet) Names() []string { return append([]string(nil), s.order...) }

// Sorted returns dropped columns alphabetically.
func (s *DropSet) Sorted() []string {
	out := s.Names()
	sort.Strings(out)
	return out
}

// Get returns the record for a dropped column.
func (s *DropSet) Get(name string) (Drop, bool) {
	d, ok := s.byCol[name]
	return d, ok
}

// ByReason lists drops of one kind in insertion order.
func (s *DropSet) ByReason(r Reason) []Drop {
	var out []Drop
	for _, n := range s.order {
		if d := s.byCol[n]; d.Reason == r {
			out = append(out, d)
		}
	}
	return out
}

// Redundant runs the greedy correlation pass over an absolute correlation
// matrix whose column order is the dataset's. NaN correlations never reach
// the threshold.
func Redundant(abs *CorrMatrix, threshold float64) *DropSet {
	drops := NewDropSet()
	mean := abs.MeanAbs()
	n := len(abs.Columns)
	for i := 0; i < n; i++ {
		col := abs.Columns[i]
		if drops.Has(col) {
			continue
		}
		for j := i + 1; j < n; j++ {
			r := abs.Values[i][j]
			if math.IsNaN(r) || !(r >= threshold) {
				continue
			}
			partner := abs.Columns[j]
			if drops.Has(partner) {
				continue
			}
			if mean[i] >= mean[j] {
				drops.add(Drop{Column: partner, Reason: ReasonCorrelation, Partner: col, Corr: r, MeanCorr: mean[j], PartnerMeanCorr: mean[i]})
				continue
			}
			drops.add(Drop{Column: col, Reason: ReasonCorrelation, Partner: partner, Corr: r, MeanCorr: mean[i], PartnerMeanCorr: mean[j]})
			break
		}
	}
	return drops
}

// Result is the outcome of a pruning run.
type Result struct {
	// Features lists the candidate columns (all but the target) in order.
	Features []string
	// Matrix is the absolute correlation matrix over Features.
	Matrix   *CorrMatrix
	MeanCorr map[string]float64
	Drops    *DropSet
	Cleaned  *dataset.Dataset
}

// Considered is the number of candidate feature columns.
func (r *Result) Considered() int { return len(r.Features) }

// Dropped is the size of the drop set.
func (r *Result) Dropped() int { return r.Drops.Len() }

// Kept is the number of surviving feature columns (target excluded).
func (r *Result) Kept() int { return r.Considered() - r.Dropped() }

// KeptFeatures lists surviving feature columns in dataset order.
func (r *Result) KeptFeatures() []string {
	var out []string
	for _, f := range r.Features {
		if !r.Drops.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Run prunes ds. It has no side effects: the input is untouched and the
// cleaned dataset is a new value.
func Run(ds *dataset.Dataset, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if !ds.Has(opt.Target) {
		return nil, &dataset.DataError{Column: opt.Target, Reason: "target column not found"}
	}
	if ds.Rows() == 0 {
		return nil, &dataset.DataError{Reason: "dataset has zero rows"}
	}
	if math.IsNaN(opt.Threshold) || opt.Threshold < 0 || opt.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be within [0, 1], got %v", opt.Threshold)
	}
	features := make([]string, 0, ds.Width()-1)
	for _, name := range ds.Names() {
		if name != opt.Target {
			features = append(features, name)
		}
	}

	corr, err := Correlate(ds, features)
	if err != nil {
		return nil, err
	}
	abs := corr.Abs()
	drops := Redundant(abs, opt.Threshold)
	log.Debug("correlation pass finished",
		zap.Int("features", len(features)),
		zap.Int("dropped", drops.Len()),
		zap.Float64("threshold", opt.Threshold))

	for _, d := range LowVariance(ds, features, drops, opt.VarThreshold) {
		drops.add(d)
	}
	log.Debug("variance pass finished",
		zap.Int("dropped_total", drops.Len()),
		zap.Float64("var_threshold", opt.VarThreshold))

	mean := abs.MeanAbs()
	meanBy := make(map[string]float64, len(features))
	for i, f := range features {
		meanBy[f] = mean[i]
	}
	return &Result{
		Features: features,
		Matrix:   abs,
		MeanCorr: meanBy,
		Drops:    drops,
		Cleaned:  ds.Drop(drops.Names()...),
	}, nil
}
