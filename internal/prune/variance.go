package prune

import (
	"math"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// sampleVariance is the ddof=1 variance over non-null values; NaN when fewer
// than two values are present.
func sampleVariance(x []float64) float64 {
	vals := x
	if hasNaN(x) {
		vals = make([]float64, 0, len(x))
		for _, v := range x {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.Variance(vals, nil)
}

// LowVariance returns drops for every candidate column that is not already in
// drops and whose sample variance is strictly below minVar. Candidates are
// visited in the given order. A NaN variance never qualifies.
func LowVariance(ds *dataset.Dataset, candidates []string, drops *DropSet, minVar float64) []Drop {
	var out []Drop
	for _, name := range candidates {
		if drops.Has(name) {
			continue
		}
		c, ok := ds.Column(name)
		if !ok || c.Kind != dataset.KindNumeric {
			continue
		}
		v := sampleVariance(c.Values)
		if math.IsNaN(v) || !(v < minVar) {
			continue
		}
		out = append(out, Drop{Column: name, Reason: ReasonLowVariance, Variance: v})
	}
	return out
}
