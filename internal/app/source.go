package app

import (
	"context"
	"errors"

	"github.com/ayusman/mudra/internal/feature"
)

// errNoHand marks a frame where recording found nothing to sample.
var errNoHand = errors.New("no hand in frame")

// frameSource adapts the camera, detector, and extractor chain to the
// training pipeline's FeatureSource contract. Every per-frame failure is
// an error the recorder skips; the attempt cap bounds retries.
type frameSource struct {
	app *App
}

func (s *frameSource) Next(ctx context.Context) (feature.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := s.app.cfg.Camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	s.app.publishFrame(frame)

	hands, err := s.app.cfg.Detector.Detect(frame)
	if err != nil {
		return nil, err
	}
	hands = s.app.cfg.Detection.Apply(hands)
	if len(hands) == 0 {
		return nil, errNoHand
	}

	return feature.Extract(hands[0])
}
