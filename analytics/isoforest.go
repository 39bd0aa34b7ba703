package analytics

import (
	"math"
	"math/rand"
	"sort"
)

// Isolation forest defaults, matching the detector's training
// hyperparameters: 100 trees, 10% expected contamination, fixed seed.
const (
	DefaultTrees         = 100
	DefaultContamination = 0.1
	isoSubsampleSize     = 256
)

const eulerGamma = 0.5772156649015329

// isoNode is one node of an isolation tree. External nodes have nil
// children and record the size of the subsample they isolate.
type isoNode struct {
	Feature int      `json:"f"`
	Split   float64  `json:"s"`
	Left    *isoNode `json:"l,omitempty"`
	Right   *isoNode `json:"r,omitempty"`
	Size    int      `json:"n"`
}

func (n *isoNode) external() bool { return n.Left == nil && n.Right == nil }

// IsolationForest isolates outliers by random recursive partitioning:
// anomalous samples need fewer splits to isolate, giving them shorter
// average path lengths across the ensemble.
//
// Scores follow the convention that lower means more anomalous. The
// contamination fraction fixes the flagging threshold at fit time as the
// corresponding quantile of the training scores.
type IsolationForest struct {
	Trees         []*isoNode `json:"trees"`
	SubsampleSize int        `json:"subsample_size"`
	Contamination float64    `json:"contamination"`
	Offset        float64    `json:"offset"`
	Seed          int64      `json:"seed"`
	Fitted        bool       `json:"fitted"`
}

// NewIsolationForest creates an unfitted forest with the given
// contamination fraction. Out-of-range contamination falls back to the
// default.
func NewIsolationForest(contamination float64, seed int64) *IsolationForest {
	if contamination <= 0 || contamination > 0.5 {
		contamination = DefaultContamination
	}
	return &IsolationForest{
		Contamination: contamination,
		Seed:          seed,
	}
}

// Fit trains the ensemble on the scaled feature matrix and fixes the
// flagging threshold at the contamination quantile of training scores.
func (f *IsolationForest) Fit(rows [][]float64) error {
	if len(rows) == 0 {
		return &ValidationError{Field: "features", Reason: "cannot fit isolation forest on empty feature matrix"}
	}
	psi := isoSubsampleSize
	if psi > len(rows) {
		psi = len(rows)
	}
	f.SubsampleSize = psi
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := newTrainingRNG(f.Seed)
	f.Trees = make([]*isoNode, DefaultTrees)
	for t := 0; t < DefaultTrees; t++ {
		treeRNG := rng.forSubsystem(subsystemTree(t))
		sample := subsample(rows, psi, treeRNG)
		f.Trees[t] = buildIsoTree(sample, 0, heightLimit, treeRNG)
	}
	f.Fitted = true

	scores, err := f.ScoreSamples(rows)
	if err != nil {
		return err
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	f.Offset = Percentile(sorted, f.Contamination*100)
	return nil
}

// ScoreSamples returns the continuous anomaly score per row, in (-1, 0],
// lower meaning more anomalous.
func (f *IsolationForest) ScoreSamples(rows [][]float64) ([]float64, error) {
	if !f.Fitted {
		return nil, &ComputationError{Op: "isoforest.ScoreSamples", Reason: "model not fitted"}
	}
	norm := avgPathLength(f.SubsampleSize)
	scores := make([]float64, len(rows))
	for i, row := range rows {
		sum := 0.0
		for _, tree := range f.Trees {
			sum += pathLength(row, tree, 0)
		}
		mean := sum / float64(len(f.Trees))
		scores[i] = -math.Pow(2, -mean/norm)
	}
	return scores, nil
}

// Predict returns per-row outlier flags alongside the continuous scores.
// A row is flagged when its score falls below the fitted offset.
func (f *IsolationForest) Predict(rows [][]float64) ([]bool, []float64, error) {
	scores, err := f.ScoreSamples(rows)
	if err != nil {
		return nil, nil, err
	}
	flags := make([]bool, len(scores))
	for i, s := range scores {
		flags[i] = s < f.Offset
	}
	return flags, scores, nil
}

// subsample draws n rows without replacement.
func subsample(rows [][]float64, n int, rng *rand.Rand) [][]float64 {
	idx := rng.Perm(len(rows))[:n]
	out := make([][]float64, n)
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func buildIsoTree(rows [][]float64, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if depth >= heightLimit || len(rows) <= 1 {
		return &isoNode{Feature: -1, Size: len(rows)}
	}

	// Candidate features are those with spread left to split on.
	cols := len(rows[0])
	type span struct {
		feature  int
		min, max float64
	}
	var candidates []span
	for j := 0; j < cols; j++ {
		lo, hi := rows[0][j], rows[0][j]
		for _, row := range rows[1:] {
			if row[j] < lo {
				lo = row[j]
			}
			if row[j] > hi {
				hi = row[j]
			}
		}
		if hi > lo {
			candidates = append(candidates, span{j, lo, hi})
		}
	}
	if len(candidates) == 0 {
		// All remaining points identical.
		return &isoNode{Feature: -1, Size: len(rows)}
	}

	pick := candidates[rng.Intn(len(candidates))]
	split := pick.min + rng.Float64()*(pick.max-pick.min)

	var left, right [][]float64
	for _, row := range rows {
		if row[pick.feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	return &isoNode{
		Feature: pick.feature,
		Split:   split,
		Left:    buildIsoTree(left, depth+1, heightLimit, rng),
		Right:   buildIsoTree(right, depth+1, heightLimit, rng),
	}
}

func pathLength(row []float64, node *isoNode, depth int) float64 {
	if node.external() {
		return float64(depth) + avgPathLength(node.Size)
	}
	if row[node.Feature] < node.Split {
		return pathLength(row, node.Left, depth+1)
	}
	return pathLength(row, node.Right, depth+1)
}

// avgPathLength is c(n): the average path length of an unsuccessful BST
// search over n points, used to normalize isolation depths.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0.0
	}
	if n == 2 {
		return 1.0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
