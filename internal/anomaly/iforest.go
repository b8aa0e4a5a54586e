package anomaly

import (
	"math"
	"math/rand"
	"sort"
)

const (
	iforestTrees     = 100
	iforestSubsample = 256
)

// iforestNode is one node of an isolation tree in flattened form. A leaf
// has Feature == -1 and records how many samples it isolated.
type iforestNode struct {
	Feature int     `json:"f"`
	Split   float64 `json:"s"`
	Left    int     `json:"l"`
	Right   int     `json:"r"`
	Size    int     `json:"n"`
}

// IsolationForest isolates anomalies by random axis-aligned splits: points
// that separate from the rest in few splits score close to 1. The fitted
// threshold marks the training score above which a point counts as
// anomalous, calibrated so roughly the contamination fraction of the
// training set lands above it.
type IsolationForest struct {
	Trees         [][]iforestNode `json:"trees"`
	SampleSize    int             `json:"sample_size"`
	Threshold     float64         `json:"threshold"`
	Contamination float64         `json:"contamination"`
}

// FitIsolationForest trains a forest on the scaled matrix. The rng drives
// subsampling and split selection; a fixed seed reproduces the forest
// exactly.
func FitIsolationForest(rows [][]float64, contamination float64, rng *rand.Rand) *IsolationForest {
	sub := iforestSubsample
	if sub > len(rows) {
		sub = len(rows)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sub))))

	f := &IsolationForest{
		Trees:         make([][]iforestNode, iforestTrees),
		SampleSize:    sub,
		Contamination: contamination,
	}

	for t := 0; t < iforestTrees; t++ {
		sample := make([][]float64, sub)
		for i, idx := range rng.Perm(len(rows))[:sub] {
			sample[i] = rows[idx]
		}
		var nodes []iforestNode
		buildIsolationTree(sample, 0, maxDepth, rng, &nodes)
		f.Trees[t] = nodes
	}

	scores := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = f.Score(row)
	}
	sort.Float64s(scores)
	f.Threshold = quantile(scores, 1-contamination)

	return f
}

// buildIsolationTree appends the subtree for sample to nodes and returns
// its root index.
func buildIsolationTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand, nodes *[]iforestNode) int {
	idx := len(*nodes)
	*nodes = append(*nodes, iforestNode{Feature: -1, Size: len(sample)})

	if depth >= maxDepth || len(sample) <= 1 {
		return idx
	}

	// Pick a feature with spread; give up after a few tries when the
	// sample has collapsed to duplicates.
	cols := len(sample[0])
	for try := 0; try < cols; try++ {
		j := rng.Intn(cols)
		lo, hi := sample[0][j], sample[0][j]
		for _, row := range sample {
			if row[j] < lo {
				lo = row[j]
			}
			if row[j] > hi {
				hi = row[j]
			}
		}
		if hi <= lo {
			continue
		}

		split := lo + rng.Float64()*(hi-lo)
		var left, right [][]float64
		for _, row := range sample {
			if row[j] < split {
				left = append(left, row)
			} else {
				right = append(right, row)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			continue
		}

		(*nodes)[idx].Feature = j
		(*nodes)[idx].Split = split
		(*nodes)[idx].Left = buildIsolationTree(left, depth+1, maxDepth, rng, nodes)
		(*nodes)[idx].Right = buildIsolationTree(right, depth+1, maxDepth, rng, nodes)
		return idx
	}
	return idx
}

// Score returns the anomaly score in (0, 1): values near 1 isolate
// quickly and are likely anomalous, values near 0.5 and below look normal.
func (f *IsolationForest) Score(row []float64) float64 {
	total := 0.0
	for _, nodes := range f.Trees {
		total += pathLength(nodes, row)
	}
	avg := total / float64(len(f.Trees))
	return math.Pow(2, -avg/averagePathLength(f.SampleSize))
}

// Decision mirrors the usual decision-function convention: positive means
// normal, negative means anomalous, magnitude is confidence.
func (f *IsolationForest) Decision(row []float64) float64 {
	return f.Threshold - f.Score(row)
}

// Predict reports whether a row scores past the fitted threshold.
func (f *IsolationForest) Predict(row []float64) bool {
	return f.Score(row) > f.Threshold
}

func pathLength(nodes []iforestNode, row []float64) float64 {
	depth := 0.0
	i := 0
	for {
		n := nodes[i]
		if n.Feature == -1 {
			return depth + averagePathLength(n.Size)
		}
		depth++
		if row[n.Feature] < n.Split {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// averagePathLength is the expected unsuccessful-search path length of a
// binary search tree with n nodes, the normalizing constant of the
// isolation forest score.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + 0.5772156649
	return 2*h - 2*float64(n-1)/float64(n)
}

// quantile returns the q-quantile of an ascending-sorted slice via linear
// interpolation.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
