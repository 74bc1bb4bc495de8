package detector

import "github.com/ayusman/mudra/internal/capture"

// Detector is the opaque landmark source. A frame with no visible hands
// yields an empty slice, never an error.
type Detector interface {
	Detect(frame *capture.Frame) ([]HandLandmarks, error)
	Close() error
}

// Config holds detection filtering options.
type Config struct {
	// MaxHands caps the number of hands kept per frame.
	MaxHands int
	// MinConfidence drops detections scored below this threshold.
	MinConfidence float64
	// MinTrackingConf is forwarded to detectors that track across frames.
	MinTrackingConf float64
}

// DefaultConfig returns sensible detection defaults.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Apply filters raw detections by confidence and caps them at MaxHands,
// preserving order.
func (c Config) Apply(hands []HandLandmarks) []HandLandmarks {
	kept := hands[:0]
	for _, h := range hands {
		if h.Score < c.MinConfidence {
			continue
		}
		kept = append(kept, h)
		if c.MaxHands > 0 && len(kept) == c.MaxHands {
			break
		}
	}
	return kept
}
