package analysis

import (
	"math/rand/v2"
	"sort"

	"github.com/KaramelBytes/featprune-cli/internal/dataset"
)

// ClassGroup holds the rows carrying one label value.
type ClassGroup struct {
	Key  string
	Rows []int
}

// ClassGroups partitions the non-null rows of col by value. Groups are
// ordered by value: numerically for numeric columns, lexically otherwise.
func ClassGroups(col *dataset.Column) []ClassGroup {
	idx := map[string]int{}
	var groups []ClassGroup
	var keys []float64
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		k := col.Cell(i)
		g, ok := idx[k]
		if !ok {
			g = len(groups)
			idx[k] = g
			groups = append(groups, ClassGroup{Key: k})
			if col.Kind == dataset.KindNumeric {
				keys = append(keys, col.Values[i])
			}
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	if col.Kind == dataset.KindNumeric {
		sort.Sort(byNumericKey{groups, keys})
	} else {
		sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	}
	return groups
}

type byNumericKey struct {
	g []ClassGroup
	k []float64
}

func (s byNumericKey) Len() int           { return len(s.g) }
func (s byNumericKey) Less(i, j int) bool { return s.k[i] < s.k[j] }
func (s byNumericKey) Swap(i, j int) {
	s.g[i], s.g[j] = s.g[j], s.g[i]
	s.k[i], s.k[j] = s.k[j], s.k[i]
}

// StratifiedSample draws up to n row indices from ds, balanced across the
// values of target. Each class contributes at most max(1, n/classes) rows
// chosen at random; the pooled rows are shuffled and cut to n. The same seed
// always yields the same rows. Rows with a null label are never drawn.
func StratifiedSample(ds *dataset.Dataset, target string, n int, seed uint64) ([]int, error) {
	col, ok := ds.Column(target)
	if !ok {
		return nil, &dataset.DataError{Column: target, Reason: "target column not found"}
	}
	groups := ClassGroups(col)
	if len(groups) == 0 || n <= 0 {
		return nil, nil
	}
	perClass := max(1, n/len(groups))
	rng := rand.New(rand.NewPCG(seed, seed))

	var picked []int
	for _, g := range groups {
		k := min(len(g.Rows), perClass)
		perm := rng.Perm(len(g.Rows))
		for _, p := range perm[:k] {
			picked = append(picked, g.Rows[p])
		}
	}
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > n {
		picked = picked[:n]
	}
	return picked, nil
}
