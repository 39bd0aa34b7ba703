package analytics

import (
	"math"
	"math/rand"
	"sort"
)

// Random-forest classifier defaults: 100 trees capped at depth 10, fixed
// seed for reproducible training.
const (
	DefaultClassifierTrees = 100
	DefaultMaxDepth        = 10
)

// treeNode is one node of a classification tree. Leaves carry the class
// probability distribution of the training samples that reached them.
type treeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Proba     []float64 `json:"p,omitempty"`
}

func (n *treeNode) leaf() bool { return n.Left == nil && n.Right == nil }

// RandomForestClassifier is a bagged ensemble of Gini-split decision
// trees producing per-class probabilities (the average of the leaf
// distributions across trees). Class indices refer to the label space the
// forest was fitted with; probability order is stable, so callers can
// break ranking ties by class index.
type RandomForestClassifier struct {
	Trees      []*treeNode `json:"trees"`
	NumClasses int         `json:"num_classes"`
	MaxDepth   int         `json:"max_depth"`
	Seed       int64       `json:"seed"`
	Fitted     bool        `json:"fitted"`
}

// NewRandomForestClassifier creates an unfitted forest.
func NewRandomForestClassifier(maxDepth int, seed int64) *RandomForestClassifier {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &RandomForestClassifier{MaxDepth: maxDepth, Seed: seed}
}

// Fit trains the ensemble on feature rows and integer class labels in
// [0, numClasses).
func (f *RandomForestClassifier) Fit(rows [][]float64, labels []int, numClasses int) error {
	if len(rows) == 0 || len(rows) != len(labels) {
		return &ValidationError{Field: "training_data", Reason: "empty or mismatched features and labels"}
	}
	if numClasses < 1 {
		return &ValidationError{Field: "num_classes", Reason: "need at least one class"}
	}
	f.NumClasses = numClasses

	rng := newTrainingRNG(f.Seed)
	f.Trees = make([]*treeNode, DefaultClassifierTrees)
	for t := 0; t < DefaultClassifierTrees; t++ {
		treeRNG := rng.forSubsystem(subsystemTree(t))
		bootRows, bootLabels := bootstrap(rows, labels, treeRNG)
		f.Trees[t] = buildClassTree(bootRows, bootLabels, numClasses, 0, f.MaxDepth, treeRNG)
	}
	f.Fitted = true
	return nil
}

// PredictProba returns the per-class probability distribution for one row.
func (f *RandomForestClassifier) PredictProba(row []float64) ([]float64, error) {
	if !f.Fitted {
		return nil, &ComputationError{Op: "forest.PredictProba", Reason: "model not fitted"}
	}
	probs := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		leafP := classify(row, tree)
		for c, p := range leafP {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs, nil
}

func classify(row []float64, node *treeNode) []float64 {
	for !node.leaf() {
		if row[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Proba
}

func bootstrap(rows [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(rows)
	outRows := make([][]float64, n)
	outLabels := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		outRows[i] = rows[j]
		outLabels[i] = labels[j]
	}
	return outRows, outLabels
}

func buildClassTree(rows [][]float64, labels []int, numClasses, depth, maxDepth int, rng *rand.Rand) *treeNode {
	counts := classCounts(labels, numClasses)
	if depth >= maxDepth || len(rows) < 2 || pure(counts) {
		return &treeNode{Feature: -1, Proba: toProba(counts, len(labels))}
	}

	feature, threshold, ok := bestSplit(rows, labels, numClasses, rng)
	if !ok {
		return &treeNode{Feature: -1, Proba: toProba(counts, len(labels))}
	}

	var leftRows, rightRows [][]float64
	var leftLabels, rightLabels []int
	for i, row := range rows {
		if row[feature] <= threshold {
			leftRows = append(leftRows, row)
			leftLabels = append(leftLabels, labels[i])
		} else {
			rightRows = append(rightRows, row)
			rightLabels = append(rightLabels, labels[i])
		}
	}
	if len(leftRows) == 0 || len(rightRows) == 0 {
		return &treeNode{Feature: -1, Proba: toProba(counts, len(labels))}
	}
	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildClassTree(leftRows, leftLabels, numClasses, depth+1, maxDepth, rng),
		Right:     buildClassTree(rightRows, rightLabels, numClasses, depth+1, maxDepth, rng),
	}
}

// bestSplit searches a random sqrt-sized feature subset for the
// lowest-impurity threshold. Candidate thresholds are midpoints between
// consecutive distinct values.
func bestSplit(rows [][]float64, labels []int, numClasses int, rng *rand.Rand) (int, float64, bool) {
	numFeatures := len(rows[0])
	k := int(math.Sqrt(float64(numFeatures)))
	if k < 1 {
		k = 1
	}
	candidates := rng.Perm(numFeatures)[:k]
	sort.Ints(candidates)

	bestGini := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0
	values := make([]float64, len(rows))
	for _, feat := range candidates {
		for i, row := range rows {
			values[i] = row[feat]
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		for i := 1; i < len(sorted); i++ {
			if sorted[i] == sorted[i-1] {
				continue
			}
			threshold := (sorted[i] + sorted[i-1]) / 2
			g := splitGini(rows, labels, numClasses, feat, threshold)
			if g < bestGini {
				bestGini = g
				bestFeature = feat
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func splitGini(rows [][]float64, labels []int, numClasses, feature int, threshold float64) float64 {
	leftCounts := make([]int, numClasses)
	rightCounts := make([]int, numClasses)
	nLeft, nRight := 0, 0
	for i, row := range rows {
		if row[feature] <= threshold {
			leftCounts[labels[i]]++
			nLeft++
		} else {
			rightCounts[labels[i]]++
			nRight++
		}
	}
	n := float64(nLeft + nRight)
	return float64(nLeft)/n*gini(leftCounts, nLeft) + float64(nRight)/n*gini(rightCounts, nRight)
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0.0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func classCounts(labels []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func pure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func toProba(counts []int, n int) []float64 {
	proba := make([]float64, len(counts))
	if n == 0 {
		return proba
	}
	for i, c := range counts {
		proba[i] = float64(c) / float64(n)
	}
	return proba
}
