// Package classify provides the gesture classifier, its model families,
// and the dataset and artifact types shared with the training pipeline.
package classify

import (
	"sort"
	"time"

	"github.com/ayusman/mudra/internal/feature"
)

// Label identifies a gesture class.
type Label string

// Sample is one labeled feature vector with capture metadata. Samples are
// immutable once recorded.
type Sample struct {
	Label     Label          `json:"label"`
	Vector    feature.Vector `json:"vector"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
}

// Dataset is an ordered collection of samples grouped by label.
type Dataset struct {
	samples []Sample
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Add appends a sample.
func (d *Dataset) Add(s Sample) {
	d.samples = append(d.samples, s)
}

// Len returns the total sample count.
func (d *Dataset) Len() int {
	return len(d.samples)
}

// Samples returns the samples in recording order.
func (d *Dataset) Samples() []Sample {
	return d.samples
}

// ByLabel groups samples by label.
func (d *Dataset) ByLabel() map[Label][]Sample {
	groups := make(map[Label][]Sample)
	for _, s := range d.samples {
		groups[s.Label] = append(groups[s.Label], s)
	}
	return groups
}

// Labels returns the distinct labels in sorted order. The ordering is
// stable so an artifact's label vocabulary is reproducible.
func (d *Dataset) Labels() []Label {
	seen := make(map[Label]bool)
	var labels []Label
	for _, s := range d.samples {
		if !seen[s.Label] {
			seen[s.Label] = true
			labels = append(labels, s.Label)
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}
