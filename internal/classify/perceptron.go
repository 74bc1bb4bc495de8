package classify

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/ayusman/mudra/internal/feature"
)

// Margin model tunables. Training is deterministic: the shuffle RNG is
// seeded from the dataset size so repeated runs on the same data produce
// the same weights.
const marginEpochs = 25

// marginParams is the persisted form of the margin model: one weight row
// per label, each row featureLen+1 long with the bias last.
type marginParams struct {
	Weights [][]float64 `json:"weights"`
}

// trainMargin fits an averaged multiclass perceptron. Each misclassified
// sample promotes the true label's weights and demotes the predicted
// label's; the returned weights are the running average, which is far more
// stable on noisy landmark data than the final iterate.
func trainMargin(samples []Sample, labels []Label, featureLen int) (json.RawMessage, error) {
	nLabels := len(labels)
	dim := featureLen + 1 // bias term
	idx := labelIndex(labels)

	w := newMatrix(nLabels, dim)
	accum := newMatrix(nLabels, dim)

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(int64(len(samples))))

	counter := 1.0
	for epoch := 0; epoch < marginEpochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, si := range order {
			s := samples[si]
			truth := idx[s.Label]
			pred := argmaxScore(w, s.Vector)

			if pred != truth {
				for j := 0; j < featureLen; j++ {
					w[truth][j] += s.Vector[j]
					w[pred][j] -= s.Vector[j]
					accum[truth][j] += counter * s.Vector[j]
					accum[pred][j] -= counter * s.Vector[j]
				}
				w[truth][dim-1] += 1
				w[pred][dim-1] -= 1
				accum[truth][dim-1] += counter
				accum[pred][dim-1] -= counter
			}
			counter++
		}
	}

	// Averaged weights: w - accum/counter.
	for r := 0; r < nLabels; r++ {
		for j := 0; j < dim; j++ {
			w[r][j] -= accum[r][j] / counter
		}
	}

	return json.Marshal(marginParams{Weights: w})
}

func decodeMargin(a *Artifact) (scorer, error) {
	var p marginParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return nil, fmt.Errorf("decode margin params: %w", err)
	}
	if len(p.Weights) != len(a.Labels) {
		return nil, fmt.Errorf("margin params have %d weight rows for %d labels", len(p.Weights), len(a.Labels))
	}
	for _, row := range p.Weights {
		if len(row) != a.FeatureLen+1 {
			return nil, fmt.Errorf("margin weight row length %d, want %d", len(row), a.FeatureLen+1)
		}
	}
	return &marginScorer{weights: p.Weights}, nil
}

type marginScorer struct {
	weights [][]float64
}

// score returns the argmax label index with a softmax-normalized margin as
// confidence.
func (m *marginScorer) score(vec feature.Vector) (int, float64) {
	scores := make([]float64, len(m.weights))
	best := 0
	for r, row := range m.weights {
		scores[r] = dot(row, vec)
		if scores[r] > scores[best] {
			best = r
		}
	}

	var total float64
	for _, s := range scores {
		total += math.Exp(s - scores[best])
	}
	return best, 1.0 / total
}

func argmaxScore(w [][]float64, vec feature.Vector) int {
	best, bestScore := 0, math.Inf(-1)
	for r, row := range w {
		if s := dot(row, vec); s > bestScore {
			best, bestScore = r, s
		}
	}
	return best
}

// dot computes row·vec with the row's trailing element as bias.
func dot(row []float64, vec feature.Vector) float64 {
	s := row[len(row)-1]
	for j, v := range vec {
		s += row[j] * v
	}
	return s
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
