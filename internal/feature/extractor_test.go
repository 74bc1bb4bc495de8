package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
)

// syntheticHand builds a full landmark set with distinct coordinates.
func syntheticHand() detector.HandLandmarks {
	hand := detector.HandLandmarks{
		Points:     make([]detector.Point3D, detector.NumLandmarks),
		Handedness: "Right",
		Score:      0.9,
	}
	for i := range hand.Points {
		hand.Points[i] = detector.Point3D{
			X: 0.1 + 0.01*float64(i),
			Y: 0.2 + 0.02*float64(i),
			Z: -0.01 * float64(i),
		}
	}
	return hand
}

// transform scales all coordinates and shifts them by the given offset,
// simulating the same pose nearer or farther from the camera.
func transform(hand detector.HandLandmarks, scale, dx, dy float64) detector.HandLandmarks {
	out := hand
	out.Points = make([]detector.Point3D, len(hand.Points))
	for i, p := range hand.Points {
		out.Points[i] = detector.Point3D{
			X: p.X*scale + dx,
			Y: p.Y*scale + dy,
			Z: p.Z * scale,
		}
	}
	return out
}

func TestExtractVectorLength(t *testing.T) {
	vec, err := Extract(syntheticHand())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(vec) != VectorLen {
		t.Errorf("len(vec) = %d, want %d", len(vec), VectorLen)
	}
}

func TestExtractDeterministic(t *testing.T) {
	hand := syntheticHand()
	a, err := Extract(hand)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	b, err := Extract(hand)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vec[%d] differs across identical inputs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestExtractScaleAndTranslationInvariant(t *testing.T) {
	hand := syntheticHand()
	base, err := Extract(hand)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	tests := []struct {
		name          string
		scale, dx, dy float64
	}{
		{"half distance", 2.0, 0, 0},
		{"double distance", 0.5, 0, 0},
		{"shifted", 1.0, 0.3, -0.2},
		{"scaled and shifted", 1.7, -0.1, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec, err := Extract(transform(hand, tt.scale, tt.dx, tt.dy))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			for i := range base {
				if math.Abs(vec[i]-base[i]) > 1e-9 {
					t.Fatalf("vec[%d] = %v, want %v", i, vec[i], base[i])
				}
			}
		})
	}
}

func TestExtractWristIsOrigin(t *testing.T) {
	vec, err := Extract(syntheticHand())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	w := detector.Wrist * 3
	if vec[w] != 0 || vec[w+1] != 0 || vec[w+2] != 0 {
		t.Errorf("wrist coords = (%v, %v, %v), want origin", vec[w], vec[w+1], vec[w+2])
	}
}

func TestExtractInsufficientLandmarks(t *testing.T) {
	hand := syntheticHand()
	hand.Points = hand.Points[:detector.NumLandmarks-1]

	if _, err := Extract(hand); !errors.Is(err, ErrInsufficientLandmarks) {
		t.Fatalf("Extract() error = %v, want ErrInsufficientLandmarks", err)
	}
}

func TestExtractDegenerateScale(t *testing.T) {
	hand := syntheticHand()
	// Collapse the middle MCP onto the wrist.
	hand.Points[detector.MiddleMCP] = hand.Points[detector.Wrist]

	if _, err := Extract(hand); !errors.Is(err, ErrDegenerateScale) {
		t.Fatalf("Extract() error = %v, want ErrDegenerateScale", err)
	}
}
