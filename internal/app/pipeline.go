package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/feature"
)

// pausedInterval is how long the loop sleeps between checks while
// recognition is disabled.
const pausedInterval = 100 * time.Millisecond

// trackedHands are the stability filter streams maintained per frame.
// Every tracked hand observes every frame, so a hand that disappears
// counts toward its filter's release window.
var trackedHands = []string{"Left", "Right"}

// runPipeline is the live loop: one worker runs camera -> detector ->
// extractor -> classifier -> stability -> dispatcher, one frame at a time
// end-to-end, so per-frame latency stays bounded. It suspends only at the
// camera read; the stop channel is checked once per iteration.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		a.cfg.Camera.Close()
		a.mu.Lock()
		a.mode = modeIdle
		a.mu.Unlock()
	}()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		if !a.IsEnabled() {
			time.Sleep(pausedInterval)
			continue
		}

		frame, err := a.cfg.Camera.ReadFrame()
		if err != nil {
			// A dropped frame is absorbed: the filters see "no gesture".
			if errors.Is(err, capture.ErrTransientRead) {
				a.observeNone()
				continue
			}
			a.mu.Lock()
			a.runErr = err
			a.mu.Unlock()
			log.Printf("recognition run terminated: %v", err)
			return
		}

		if err := a.processFrame(frame); err != nil {
			a.mu.Lock()
			a.runErr = err
			a.mu.Unlock()
			log.Printf("recognition run terminated: %v", err)
			return
		}
	}
}

// processFrame runs one frame through the chain. Per-frame faults are
// absorbed; only structural classifier errors are returned.
func (a *App) processFrame(frame *capture.Frame) error {
	defer frame.Close()
	a.publishFrame(frame)

	// The gate only applies while every hand is idle: a confirmed hold or a
	// forming streak is stationary on purpose and must keep reaching the
	// detector, or the filters would read stillness as release.
	if a.cfg.Motion != nil && !a.anyFilterActive() {
		if moved, _ := a.cfg.Motion.Observe(frame); !moved {
			a.observeNone()
			return nil
		}
	}

	hands, err := a.cfg.Detector.Detect(frame)
	if err != nil {
		log.Printf("landmark detection failed: %v", err)
		a.observeNone()
		return nil
	}
	hands = a.cfg.Detection.Apply(hands)

	// Keep the best prediction per handedness.
	best := make(map[string]classify.Prediction, len(hands))
	for _, hand := range hands {
		vec, err := feature.Extract(hand)
		if err != nil {
			continue
		}

		pred, err := a.cfg.Classifier.Predict(vec)
		if err != nil {
			// No model or a layout disagreement is structural, not a
			// per-frame glitch; halt the run.
			return err
		}

		if prev, ok := best[hand.Handedness]; !ok || pred.Confidence > prev.Confidence {
			best[hand.Handedness] = pred
		}
	}

	for _, hand := range trackedHands {
		pred := best[hand] // zero prediction reads as "no gesture"
		if ev := a.filter(hand).Observe(pred.Label, pred.Confidence); ev != nil {
			a.emit(*ev)
		}
	}

	return nil
}

// anyFilterActive reports whether any tracked hand has a candidate streak
// or a confirmed hold in flight.
func (a *App) anyFilterActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, f := range a.filters {
		if f.Active() {
			return true
		}
	}
	return false
}

// observeNone feeds a "no gesture" frame to every tracked filter so
// skipped frames still advance the release window.
func (a *App) observeNone() {
	for _, hand := range trackedHands {
		if ev := a.filter(hand).Observe("", 0); ev != nil {
			a.emit(*ev)
		}
	}
}
