package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/ayusman/mudra/internal/feature"
)

// Forest tunables.
const (
	forestTrees    = 15
	forestMaxDepth = 8
	forestMinLeaf  = 2
)

// forestParams is the persisted forest: each tree as flat parallel node
// arrays so the JSON stays compact and decoding needs no recursion.
type forestParams struct {
	Trees []treeParams `json:"trees"`
}

// treeParams encodes one decision tree. Leaf[i] is the predicted label
// index, or -1 for internal nodes which split on Feature[i] < Threshold[i].
type treeParams struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Leaf      []int     `json:"leaf"`
}

// trainForest fits a random forest: each tree on a bootstrap resample with
// a random sqrt(featureLen) feature subset considered at every split.
// Deterministically seeded so training is reproducible.
func trainForest(samples []Sample, labels []Label, featureLen int) (json.RawMessage, error) {
	idx := labelIndex(labels)
	rng := rand.New(rand.NewSource(int64(len(samples))*31 + int64(len(labels))))

	params := forestParams{Trees: make([]treeParams, 0, forestTrees)}
	for t := 0; t < forestTrees; t++ {
		boot := make([]int, len(samples))
		for i := range boot {
			boot[i] = rng.Intn(len(samples))
		}

		b := &treeBuilder{
			samples:    samples,
			labelIdx:   idx,
			nLabels:    len(labels),
			featureLen: featureLen,
			mtry:       int(math.Ceil(math.Sqrt(float64(featureLen)))),
			rng:        rng,
		}
		b.build(boot, 0)
		params.Trees = append(params.Trees, b.tree)
	}

	return json.Marshal(params)
}

type treeBuilder struct {
	samples    []Sample
	labelIdx   map[Label]int
	nLabels    int
	featureLen int
	mtry       int
	rng        *rand.Rand
	tree       treeParams
}

// build grows the subtree over the given sample indices and returns the
// node's position in the flat arrays.
func (b *treeBuilder) build(rows []int, depth int) int {
	counts := b.classCounts(rows)
	if depth >= forestMaxDepth || len(rows) < 2*forestMinLeaf || isPure(counts) {
		return b.addLeaf(counts)
	}

	feat, thresh, ok := b.bestSplit(rows, counts)
	if !ok {
		return b.addLeaf(counts)
	}

	var left, right []int
	for _, r := range rows {
		if b.samples[r].Vector[feat] < thresh {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) < forestMinLeaf || len(right) < forestMinLeaf {
		return b.addLeaf(counts)
	}

	node := b.addNode(feat, thresh)
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.Left[node] = l
	b.tree.Right[node] = r
	return node
}

// bestSplit searches a random feature subset for the gini-optimal
// threshold, evaluated at midpoints between distinct sorted values.
func (b *treeBuilder) bestSplit(rows []int, counts []int) (int, float64, bool) {
	parent := gini(counts, len(rows))
	bestGain := 1e-9
	bestFeat, bestThresh, found := 0, 0.0, false

	feats := b.rng.Perm(b.featureLen)[:b.mtry]
	for _, f := range feats {
		values := make([]float64, 0, len(rows))
		for _, r := range rows {
			values = append(values, b.samples[r].Vector[f])
		}
		sortFloats(values)

		for i := 1; i < len(values); i++ {
			if values[i] == values[i-1] {
				continue
			}
			thresh := (values[i] + values[i-1]) / 2

			lc := make([]int, b.nLabels)
			rc := make([]int, b.nLabels)
			nl, nr := 0, 0
			for _, r := range rows {
				li := b.labelIdx[b.samples[r].Label]
				if b.samples[r].Vector[f] < thresh {
					lc[li]++
					nl++
				} else {
					rc[li]++
					nr++
				}
			}
			if nl == 0 || nr == 0 {
				continue
			}

			n := float64(len(rows))
			gain := parent - (float64(nl)/n)*gini(lc, nl) - (float64(nr)/n)*gini(rc, nr)
			if gain > bestGain {
				bestGain, bestFeat, bestThresh, found = gain, f, thresh, true
			}
		}
	}
	return bestFeat, bestThresh, found
}

func (b *treeBuilder) classCounts(rows []int) []int {
	counts := make([]int, b.nLabels)
	for _, r := range rows {
		counts[b.labelIdx[b.samples[r].Label]]++
	}
	return counts
}

func (b *treeBuilder) addLeaf(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return b.push(-1, 0, best)
}

func (b *treeBuilder) addNode(feat int, thresh float64) int {
	return b.push(feat, thresh, -1)
}

func (b *treeBuilder) push(feat int, thresh float64, leaf int) int {
	b.tree.Feature = append(b.tree.Feature, feat)
	b.tree.Threshold = append(b.tree.Threshold, thresh)
	b.tree.Left = append(b.tree.Left, -1)
	b.tree.Right = append(b.tree.Right, -1)
	b.tree.Leaf = append(b.tree.Leaf, leaf)
	return len(b.tree.Leaf) - 1
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		g -= p * p
	}
	return g
}

func isPure(counts []int) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func sortFloats(v []float64) {
	// Insertion sort: split candidate lists are small.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

func decodeForest(a *Artifact) (scorer, error) {
	var p forestParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return nil, fmt.Errorf("decode forest params: %w", err)
	}
	if len(p.Trees) == 0 {
		return nil, fmt.Errorf("forest params have no trees")
	}
	for i, t := range p.Trees {
		n := len(t.Leaf)
		if n == 0 {
			return nil, fmt.Errorf("forest tree %d has no nodes", i)
		}
		if len(t.Feature) != n || len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n {
			return nil, fmt.Errorf("forest tree %d has inconsistent node arrays", i)
		}
		// Every index the walk can follow must stay inside the tree, the
		// feature vector, and the label vocabulary, or score would panic
		// on a corrupted artifact.
		for j := 0; j < n; j++ {
			if t.Leaf[j] >= 0 {
				if t.Leaf[j] >= len(a.Labels) {
					return nil, fmt.Errorf("forest tree %d node %d leaf label %d out of range, have %d labels", i, j, t.Leaf[j], len(a.Labels))
				}
				continue
			}
			if t.Feature[j] < 0 || t.Feature[j] >= a.FeatureLen {
				return nil, fmt.Errorf("forest tree %d node %d splits on feature %d, want 0..%d", i, j, t.Feature[j], a.FeatureLen-1)
			}
			if t.Left[j] < 0 || t.Left[j] >= n || t.Right[j] < 0 || t.Right[j] >= n {
				return nil, fmt.Errorf("forest tree %d node %d child index out of range", i, j)
			}
		}
	}
	return &forestScorer{trees: p.Trees, nLabels: len(a.Labels)}, nil
}

type forestScorer struct {
	trees   []treeParams
	nLabels int
}

// score routes the vector through every tree and returns the majority
// label with the vote fraction as confidence.
func (f *forestScorer) score(vec feature.Vector) (int, float64) {
	votes := make([]int, f.nLabels)
	for _, t := range f.trees {
		node := 0
		for t.Leaf[node] < 0 {
			if vec[t.Feature[node]] < t.Threshold[node] {
				node = t.Left[node]
			} else {
				node = t.Right[node]
			}
		}
		votes[t.Leaf[node]]++
	}

	best := 0
	for i, v := range votes {
		if v > votes[best] {
			best = i
		}
	}
	return best, float64(votes[best]) / float64(len(f.trees))
}
