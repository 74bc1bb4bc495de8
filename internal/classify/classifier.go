package classify

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/feature"
)

// Classifier errors.
var (
	ErrNoModelLoaded     = errors.New("no model loaded")
	ErrDimensionMismatch = errors.New("feature vector length mismatch")
	ErrUnknownKind       = errors.New("unknown model kind")
	ErrEmptyDataset      = errors.New("dataset is empty")
)

// Prediction is a per-frame classification result. Confidence is in [0,1];
// its semantics (probability vs. margin-derived) are consistent within one
// artifact kind but not comparable across kinds.
type Prediction struct {
	Label      Label
	Confidence float64
}

// scorer maps a feature vector to a label index and confidence. Both model
// families implement it so the live pipeline stays agnostic to the
// algorithm behind the artifact.
type scorer interface {
	score(vec feature.Vector) (int, float64)
}

// loadedModel pairs an artifact with its decoded scorer so a predict call
// always sees a self-consistent view.
type loadedModel struct {
	artifact *Artifact
	scorer   scorer
}

// Classifier maps feature vectors to labeled predictions using the
// currently loaded artifact. Load swaps the artifact atomically; in-flight
// Predict calls complete against whichever artifact was active at call
// start.
type Classifier struct {
	active atomic.Pointer[loadedModel]
}

// NewClassifier creates a Classifier with no model loaded.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Load validates and decodes the artifact, then swaps it in atomically.
// Checking the artifact's feature length against the configured layout is
// the caller's job; Load only guarantees internal consistency.
func (c *Classifier) Load(a *Artifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}

	s, err := decodeScorer(a)
	if err != nil {
		return err
	}

	c.active.Store(&loadedModel{artifact: a, scorer: s})
	return nil
}

// Predict classifies a feature vector against the active artifact.
func (c *Classifier) Predict(vec feature.Vector) (Prediction, error) {
	lm := c.active.Load()
	if lm == nil {
		return Prediction{}, ErrNoModelLoaded
	}
	if len(vec) != lm.artifact.FeatureLen {
		return Prediction{}, fmt.Errorf("%w: got %d, artifact expects %d",
			ErrDimensionMismatch, len(vec), lm.artifact.FeatureLen)
	}

	idx, conf := lm.scorer.score(vec)
	return Prediction{Label: Label(lm.artifact.Labels[idx]), Confidence: conf}, nil
}

// Artifact returns the currently loaded artifact, or nil.
func (c *Classifier) Artifact() *Artifact {
	lm := c.active.Load()
	if lm == nil {
		return nil
	}
	return lm.artifact
}

// Train fits a model of the given kind on the dataset and returns a
// self-describing artifact. The caller (training pipeline) is responsible
// for dataset validation beyond non-emptiness.
func Train(ds *Dataset, kind Kind) (*Artifact, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}

	labels := ds.Labels()
	featureLen := len(ds.Samples()[0].Vector)
	for _, s := range ds.Samples() {
		if len(s.Vector) != featureLen {
			return nil, fmt.Errorf("%w: dataset mixes vector lengths %d and %d",
				ErrDimensionMismatch, featureLen, len(s.Vector))
		}
	}

	var (
		params []byte
		err    error
	)
	switch kind {
	case KindMargin:
		params, err = trainMargin(ds.Samples(), labels, featureLen)
	case KindForest:
		params, err = trainForest(ds.Samples(), labels, featureLen)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}

	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}

	return &Artifact{
		ID:         uuid.NewString(),
		Kind:       kind,
		FeatureLen: featureLen,
		Labels:     names,
		CreatedAt:  time.Now(),
		Params:     params,
	}, nil
}

func decodeScorer(a *Artifact) (scorer, error) {
	switch a.Kind {
	case KindMargin:
		return decodeMargin(a)
	case KindForest:
		return decodeForest(a)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
}

// labelIndex maps labels to their position in a sorted vocabulary.
func labelIndex(labels []Label) map[Label]int {
	idx := make(map[Label]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	return idx
}
