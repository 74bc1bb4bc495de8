// Package stability turns flickering per-frame predictions into discrete,
// debounced gesture events.
package stability

import (
	"time"

	"github.com/ayusman/mudra/internal/classify"
)

// Default debounce tunables; empirically reasonable starting points, all
// overridable through configuration.
const (
	DefaultMinStreak     = 5
	DefaultReleaseAfter  = 3
	DefaultMinConfidence = 0.6
)

// Config holds the debounce policy. Counts are frame-indexed, not
// time-indexed, so the filter stays correct under variable frame rate.
type Config struct {
	// MinStreak is the contiguous matching-frame count required before a
	// candidate label is confirmed and an event emitted.
	MinStreak int
	// ReleaseAfter is the consecutive non-matching frame count after which
	// a confirmed gesture is released, re-arming the trigger.
	ReleaseAfter int
	// MinConfidence treats predictions below this score as "no gesture".
	MinConfidence float64
}

func (c *Config) fillDefaults() {
	if c.MinStreak <= 0 {
		c.MinStreak = DefaultMinStreak
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = DefaultReleaseAfter
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
}

// Event is a discrete occurrence of a stable recognized gesture. Events
// are edge-triggered: exactly one per gesture hold.
type Event struct {
	Label      classify.Label `json:"label"`
	Confidence float64        `json:"confidence"`
	Hand       string         `json:"hand"`
	FrameIndex int64          `json:"frame_index"`
	Timestamp  time.Time      `json:"timestamp"`
}

type state int

const (
	stateIdle state = iota
	stateCandidate
	stateConfirmed
)

// none marks a frame with no usable prediction.
const none classify.Label = ""

// Filter tracks one hand. It owns its hold state exclusively and is the
// only mutator of event emission timing for that hand.
type Filter struct {
	cfg    Config
	hand   string
	state  state
	label  classify.Label
	streak int
	misses int
	frame  int64
}

// NewFilter creates a Filter for one tracked hand.
func NewFilter(hand string, cfg Config) *Filter {
	cfg.fillDefaults()
	return &Filter{cfg: cfg, hand: hand}
}

// Observe feeds one per-frame prediction and returns an event exactly when
// a candidate streak reaches MinStreak. A single mismatching frame resets
// a candidate: the streak must be contiguous, not merely majority.
func (f *Filter) Observe(label classify.Label, confidence float64) *Event {
	f.frame++
	if confidence < f.cfg.MinConfidence {
		label = none
	}

	switch f.state {
	case stateIdle:
		if label != none {
			f.state = stateCandidate
			f.label = label
			f.streak = 1
			return f.maybeConfirm(confidence)
		}

	case stateCandidate:
		switch label {
		case f.label:
			f.streak++
			return f.maybeConfirm(confidence)
		case none:
			f.toIdle()
		default:
			f.label = label
			f.streak = 1
			return f.maybeConfirm(confidence)
		}

	case stateConfirmed:
		if label == f.label {
			f.misses = 0
		} else {
			f.misses++
			if f.misses >= f.cfg.ReleaseAfter {
				f.toIdle()
			}
		}
	}

	return nil
}

// maybeConfirm promotes a candidate once the streak suffices, emitting the
// single edge-triggered event for this hold.
func (f *Filter) maybeConfirm(confidence float64) *Event {
	if f.streak < f.cfg.MinStreak {
		return nil
	}
	f.state = stateConfirmed
	f.misses = 0
	return &Event{
		Label:      f.label,
		Confidence: confidence,
		Hand:       f.hand,
		FrameIndex: f.frame,
		Timestamp:  time.Now(),
	}
}

// Active reports whether the filter is tracking a candidate or holding a
// confirmed gesture.
func (f *Filter) Active() bool {
	return f.state != stateIdle
}

func (f *Filter) toIdle() {
	f.state = stateIdle
	f.label = none
	f.streak = 0
	f.misses = 0
}

// Reset returns the filter to Idle without touching the frame counter.
func (f *Filter) Reset() {
	f.toIdle()
}
