package detector

import (
	"sync"

	"github.com/ayusman/mudra/internal/capture"
)

// MockDetector is a scriptable Detector for tests. It returns either a
// fixed result for every frame or steps through a per-frame sequence.
type MockDetector struct {
	mu       sync.Mutex
	hands    []HandLandmarks
	sequence [][]HandLandmarks
	index    int
	err      error
}

// NewMockDetector creates an empty MockDetector.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands fixes the result returned for every frame.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence sets per-frame results; once exhausted, frames yield no hands.
func (m *MockDetector) SetSequence(seq [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = seq
	m.index = 0
}

// SetError makes Detect fail.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the scripted result for the next frame.
func (m *MockDetector) Detect(frame *capture.Frame) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if m.index >= len(m.sequence) {
			return nil, nil
		}
		hands := m.sequence[m.index]
		m.index++
		return hands, nil
	}
	return m.hands, nil
}

// Close is a no-op.
func (m *MockDetector) Close() error {
	return nil
}

// ThumbsUpLandmarks returns a preset hand with the thumb extended upward
// and the remaining fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points: []Point3D{
			{X: 0.50, Y: 0.80, Z: 0.00},  // wrist
			{X: 0.55, Y: 0.75, Z: 0.00},  // thumb CMC
			{X: 0.58, Y: 0.65, Z: 0.00},  // thumb MCP
			{X: 0.58, Y: 0.50, Z: 0.00},  // thumb IP
			{X: 0.58, Y: 0.35, Z: 0.00},  // thumb tip
			{X: 0.55, Y: 0.70, Z: -0.02}, // index MCP
			{X: 0.55, Y: 0.68, Z: -0.05},
			{X: 0.52, Y: 0.70, Z: -0.04},
			{X: 0.50, Y: 0.72, Z: -0.02}, // index tip
			{X: 0.50, Y: 0.68, Z: -0.02}, // middle MCP
			{X: 0.50, Y: 0.66, Z: -0.05},
			{X: 0.47, Y: 0.68, Z: -0.04},
			{X: 0.45, Y: 0.70, Z: -0.02}, // middle tip
			{X: 0.45, Y: 0.70, Z: -0.02}, // ring MCP
			{X: 0.45, Y: 0.68, Z: -0.05},
			{X: 0.42, Y: 0.70, Z: -0.04},
			{X: 0.40, Y: 0.72, Z: -0.02}, // ring tip
			{X: 0.40, Y: 0.72, Z: -0.02}, // pinky MCP
			{X: 0.40, Y: 0.70, Z: -0.05},
			{X: 0.37, Y: 0.72, Z: -0.04},
			{X: 0.35, Y: 0.74, Z: -0.02}, // pinky tip
		},
	}
}

// OpenPalmLandmarks returns a preset hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
		Points: []Point3D{
			{X: 0.50, Y: 0.80, Z: 0.00}, // wrist
			{X: 0.55, Y: 0.75, Z: 0.02}, // thumb CMC
			{X: 0.62, Y: 0.70, Z: 0.03},
			{X: 0.68, Y: 0.65, Z: 0.03},
			{X: 0.73, Y: 0.60, Z: 0.03}, // thumb tip
			{X: 0.55, Y: 0.68, Z: 0.00}, // index MCP
			{X: 0.57, Y: 0.55, Z: 0.00},
			{X: 0.58, Y: 0.45, Z: 0.00},
			{X: 0.58, Y: 0.35, Z: 0.00}, // index tip
			{X: 0.50, Y: 0.66, Z: 0.00}, // middle MCP
			{X: 0.50, Y: 0.52, Z: 0.00},
			{X: 0.50, Y: 0.40, Z: 0.00},
			{X: 0.50, Y: 0.28, Z: 0.00}, // middle tip
			{X: 0.45, Y: 0.68, Z: 0.00}, // ring MCP
			{X: 0.43, Y: 0.55, Z: 0.00},
			{X: 0.42, Y: 0.45, Z: 0.00},
			{X: 0.42, Y: 0.35, Z: 0.00}, // ring tip
			{X: 0.40, Y: 0.70, Z: 0.00}, // pinky MCP
			{X: 0.37, Y: 0.60, Z: 0.00},
			{X: 0.35, Y: 0.50, Z: 0.00},
			{X: 0.34, Y: 0.42, Z: 0.00}, // pinky tip
		},
	}
}

// FistLandmarks returns a preset hand with every finger curled into the palm.
func FistLandmarks() HandLandmarks {
	return HandLandmarks{
		Handedness: "Right",
		Score:      0.93,
		Points: []Point3D{
			{X: 0.50, Y: 0.80, Z: 0.00}, // wrist
			{X: 0.54, Y: 0.76, Z: 0.00}, // thumb CMC
			{X: 0.56, Y: 0.72, Z: -0.01},
			{X: 0.54, Y: 0.70, Z: -0.03},
			{X: 0.51, Y: 0.70, Z: -0.04}, // thumb tip
			{X: 0.54, Y: 0.70, Z: -0.01}, // index MCP
			{X: 0.54, Y: 0.73, Z: -0.05},
			{X: 0.53, Y: 0.76, Z: -0.05},
			{X: 0.52, Y: 0.78, Z: -0.03}, // index tip
			{X: 0.50, Y: 0.69, Z: -0.01}, // middle MCP
			{X: 0.50, Y: 0.73, Z: -0.06},
			{X: 0.49, Y: 0.76, Z: -0.05},
			{X: 0.49, Y: 0.78, Z: -0.03}, // middle tip
			{X: 0.46, Y: 0.70, Z: -0.01}, // ring MCP
			{X: 0.46, Y: 0.74, Z: -0.05},
			{X: 0.45, Y: 0.76, Z: -0.05},
			{X: 0.45, Y: 0.78, Z: -0.03}, // ring tip
			{X: 0.42, Y: 0.72, Z: -0.01}, // pinky MCP
			{X: 0.42, Y: 0.75, Z: -0.04},
			{X: 0.41, Y: 0.77, Z: -0.04},
			{X: 0.41, Y: 0.78, Z: -0.02}, // pinky tip
		},
	}
}
