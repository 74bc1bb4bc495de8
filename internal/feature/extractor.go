// Package feature converts hand landmarks into fixed-length normalized
// feature vectors shared between training and inference.
package feature

import (
	"errors"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// LayoutVersion identifies the vector layout. Training and inference must
// agree on it; a mismatch is a fatal configuration error.
const LayoutVersion = 1

// VectorLen is the layout v1 length: 21 landmarks x (x, y, z).
const VectorLen = detector.NumLandmarks * 3

// minScale is the smallest usable wrist-to-middle-MCP distance. Below it
// the hand geometry is degenerate and normalization would blow up.
const minScale = 1e-6

// Extraction errors.
var (
	ErrInsufficientLandmarks = errors.New("insufficient landmarks for feature layout")
	ErrDegenerateScale       = errors.New("degenerate hand scale")
)

// Vector is a fixed-length feature vector.
type Vector []float64

// Extract maps a landmark set to a layout v1 feature vector. Coordinates
// are translated so the wrist is the origin and scaled so the
// wrist-to-middle-MCP distance is unit length, making the vector invariant
// to hand distance from the camera. Extraction is pure: identical input
// yields identical output.
func Extract(hand detector.HandLandmarks) (Vector, error) {
	if len(hand.Points) < detector.NumLandmarks {
		return nil, ErrInsufficientLandmarks
	}

	wrist := hand.Points[detector.Wrist]
	mcp := hand.Points[detector.MiddleMCP]
	scale := distance(wrist, mcp)
	if scale < minScale {
		return nil, ErrDegenerateScale
	}

	vec := make(Vector, VectorLen)
	for i := 0; i < detector.NumLandmarks; i++ {
		p := hand.Points[i]
		vec[i*3] = (p.X - wrist.X) / scale
		vec[i*3+1] = (p.Y - wrist.Y) / scale
		vec[i*3+2] = (p.Z - wrist.Z) / scale
	}
	return vec, nil
}

func distance(a, b detector.Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
