package classify

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies a model family.
type Kind string

const (
	// KindMargin is the averaged multiclass perceptron.
	KindMargin Kind = "margin"
	// KindForest is the random forest ensemble.
	KindForest Kind = "forest"
)

// ParseKind validates a configured model kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMargin, KindForest:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Artifact is a fitted classifier: kind tag, feature-vector length, ordered
// label vocabulary, and kind-specific parameters. Artifacts are immutable
// after creation and loadable independent of the session that produced them.
type Artifact struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	FeatureLen int             `json:"feature_len"`
	Labels     []string        `json:"labels"`
	CreatedAt  time.Time       `json:"created_at"`
	Params     json.RawMessage `json:"params"`
}

// Encode serializes the artifact to its persisted JSON form.
func (a *Artifact) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeArtifact parses a persisted artifact.
func DecodeArtifact(data []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.FeatureLen <= 0 || len(a.Labels) == 0 {
		return nil, fmt.Errorf("decode artifact: missing feature length or labels")
	}
	return &a, nil
}
