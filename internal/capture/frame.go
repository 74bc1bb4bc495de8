// Package capture provides camera acquisition with fault recovery using GoCV (OpenCV).
package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is a single captured video frame with metadata.
// The pixel data is owned by the frame and must be released with Close
// once the landmark detector has consumed it.
type Frame struct {
	Mat       *gocv.Mat
	Timestamp time.Time
	Width     int
	Height    int
	Channels  int
}

// Close releases the underlying pixel buffer. Safe to call more than once.
func (f *Frame) Close() {
	if f == nil || f.Mat == nil {
		return
	}
	f.Mat.Close()
	f.Mat = nil
}
