package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Differencing runs on a reduced grayscale image: at gateWidth the per-frame
// cost is negligible and hand-scale movement still registers.
const (
	gateWidth         = 160
	gateBlurKernel    = 9
	gateDiffThreshold = 25
)

// MotionGate reports whether the scene changed between consecutive frames,
// so the pipeline can skip landmark detection while nothing is happening.
type MotionGate struct {
	mu        sync.Mutex
	threshold float64
	baseline  gocv.Mat
	primed    bool
}

// NewMotionGate creates a MotionGate. The threshold is the percentage of
// pixels that must differ between frames to count as motion.
func NewMotionGate(threshold float64) *MotionGate {
	return &MotionGate{
		threshold: threshold,
		baseline:  gocv.NewMat(),
	}
}

// Observe compares the frame against the previous one and reports whether
// motion occurred and what percentage of pixels changed. The first frame
// primes the baseline and reports no motion. Frames without pixel data
// always pass the gate.
func (g *MotionGate) Observe(frame *Frame) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Mat == nil || frame.Mat.Empty() {
		return true, 0
	}

	cur := reduce(frame.Mat)

	if !g.primed {
		g.swapBaseline(cur)
		return false, 0
	}

	// A resolution switch invalidates the comparison; treat it as motion
	// and start over from the new geometry.
	if cur.Rows() != g.baseline.Rows() || cur.Cols() != g.baseline.Cols() {
		g.swapBaseline(cur)
		return true, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(cur, g.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, gateDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	g.swapBaseline(cur)

	return changed > g.threshold, changed
}

// Reset drops the baseline so the next frame primes a new one.
func (g *MotionGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.swapBaseline(gocv.NewMat())
	g.primed = false
}

// Close releases the baseline buffer.
func (g *MotionGate) Close() {
	g.Reset()
}

func (g *MotionGate) swapBaseline(m gocv.Mat) {
	g.baseline.Close()
	g.baseline = m
	g.primed = true
}

// reduce produces the comparison image for one frame: grayscale, shrunk to
// gateWidth, and blurred so sensor noise does not register as change.
func reduce(m *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if m.Channels() > 1 {
		gocv.CvtColor(*m, &gray, gocv.ColorBGRToGray)
	} else {
		m.CopyTo(&gray)
	}

	if gray.Cols() > gateWidth {
		scaled := gocv.NewMat()
		h := gray.Rows() * gateWidth / gray.Cols()
		gocv.Resize(gray, &scaled, image.Point{X: gateWidth, Y: h}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = scaled
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: gateBlurKernel, Y: gateBlurKernel}, 0, 0, gocv.BorderDefault)
	gray.Close()
	return blurred
}
