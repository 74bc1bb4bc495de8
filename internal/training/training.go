// Package training turns recording sessions into fitted model artifacts.
package training

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/feature"
)

// Training errors.
var (
	ErrInsufficientLabels  = errors.New("training requires at least two distinct labels")
	ErrInsufficientSamples = errors.New("label is under the minimum sample count")
	ErrSessionIncomplete   = errors.New("recording session ended before reaching the requested sample count")
)

// DefaultMinSamplesPerLabel is the minimum per-label dataset size before
// training is permitted.
const DefaultMinSamplesPerLabel = 10

// attemptFactor caps total extraction attempts per session at
// attemptFactor * requested count, so a stuck camera cannot spin forever.
const attemptFactor = 10

// FeatureSource supplies one feature vector per call, typically by driving
// the live camera, detector, and extractor. Per-frame failures are
// returned as errors and skipped by the recorder; camera loss is fatal to
// the session.
type FeatureSource interface {
	Next(ctx context.Context) (feature.Vector, error)
}

// RecordSession collects count labeled samples from the source. Failed
// extractions are skipped and do not count; total attempts are capped.
// A lost or closed camera ends the session immediately with that error.
// The context is checked every iteration, so a stop request takes effect
// within one frame.
func RecordSession(ctx context.Context, src FeatureSource, label classify.Label, count int) ([]classify.Sample, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", count)
	}

	sessionID := uuid.NewString()
	maxAttempts := count * attemptFactor
	samples := make([]classify.Sample, 0, count)

	for attempts := 0; attempts < maxAttempts && len(samples) < count; attempts++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}

		vec, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrDeviceLost) || errors.Is(err, capture.ErrCameraNotOpen) {
				// No point retrying against a dead camera.
				return samples, err
			}
			continue
		}

		samples = append(samples, classify.Sample{
			Label:     label,
			Vector:    vec,
			Timestamp: time.Now(),
			SessionID: sessionID,
		})
	}

	if len(samples) < count {
		return samples, fmt.Errorf("%w: got %d of %d for %q", ErrSessionIncomplete, len(samples), count, label)
	}

	log.Printf("recorded %d samples for %q (session %s)", len(samples), label, sessionID)
	return samples, nil
}

// Report is the held-out evaluation of a trained artifact.
type Report struct {
	Accuracy    float64                                   `json:"accuracy"`
	TestSamples int                                       `json:"test_samples"`
	Confusion   map[classify.Label]map[classify.Label]int `json:"confusion"`
}

// Train validates the dataset, performs a stratified split, fits an
// artifact of the given kind on the training split only, and evaluates it
// on the held-out split.
func Train(ds *classify.Dataset, kind classify.Kind, testFraction float64, minPerLabel int) (*classify.Artifact, *Report, error) {
	if minPerLabel <= 0 {
		minPerLabel = DefaultMinSamplesPerLabel
	}
	if testFraction < 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in [0,1), got %g", testFraction)
	}

	labels := ds.Labels()
	if len(labels) < 2 {
		return nil, nil, fmt.Errorf("%w: have %d", ErrInsufficientLabels, len(labels))
	}
	for label, group := range ds.ByLabel() {
		if len(group) < minPerLabel {
			return nil, nil, fmt.Errorf("%w: %q has %d, need %d", ErrInsufficientSamples, label, len(group), minPerLabel)
		}
	}

	trainSet, testSet := stratifiedSplit(ds, testFraction)

	artifact, err := classify.Train(trainSet, kind)
	if err != nil {
		return nil, nil, err
	}

	report, err := evaluate(artifact, testSet)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("trained %s model %s on %d samples, accuracy %.3f on %d held out",
		kind, artifact.ID, trainSet.Len(), report.Accuracy, report.TestSamples)
	return artifact, report, nil
}

// stratifiedSplit divides the dataset per label so every label appears in
// the training split. The shuffle is deterministically seeded from the
// dataset size.
func stratifiedSplit(ds *classify.Dataset, testFraction float64) (*classify.Dataset, *classify.Dataset) {
	rng := rand.New(rand.NewSource(int64(ds.Len())))
	trainSet := classify.NewDataset()
	testSet := classify.NewDataset()

	for _, label := range ds.Labels() {
		group := ds.ByLabel()[label]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(float64(len(group)) * testFraction)
		if nTest >= len(group) {
			nTest = len(group) - 1
		}

		for i, s := range group {
			if i < nTest {
				testSet.Add(s)
			} else {
				trainSet.Add(s)
			}
		}
	}

	return trainSet, testSet
}

// evaluate scores the artifact on the held-out split.
func evaluate(artifact *classify.Artifact, testSet *classify.Dataset) (*Report, error) {
	report := &Report{
		TestSamples: testSet.Len(),
		Confusion:   make(map[classify.Label]map[classify.Label]int),
	}
	if testSet.Len() == 0 {
		return report, nil
	}

	clf := classify.NewClassifier()
	if err := clf.Load(artifact); err != nil {
		return nil, err
	}

	correct := 0
	for _, s := range testSet.Samples() {
		pred, err := clf.Predict(s.Vector)
		if err != nil {
			return nil, err
		}
		if report.Confusion[s.Label] == nil {
			report.Confusion[s.Label] = make(map[classify.Label]int)
		}
		report.Confusion[s.Label][pred.Label]++
		if pred.Label == s.Label {
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(testSet.Len())

	return report, nil
}
