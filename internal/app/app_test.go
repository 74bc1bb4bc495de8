package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/stability"
)

// countingBackend records executed actions.
type countingBackend struct {
	mu       sync.Mutex
	executed []action.Descriptor
}

func (b *countingBackend) Execute(ctx context.Context, d action.Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executed = append(b.executed, d)
	return nil
}

func (b *countingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.executed)
}

// jitter returns a copy of the vector with small deterministic noise, so
// a handful of presets become a trainable cluster per label.
func jitter(vec feature.Vector, rng *rand.Rand) feature.Vector {
	out := make(feature.Vector, len(vec))
	for i, v := range vec {
		out[i] = v + rng.Float64()*0.02 - 0.01
	}
	return out
}

// trainedClassifier fits a margin model on jittered fist and palm presets.
func trainedClassifier(t *testing.T) *classify.Classifier {
	t.Helper()

	rng := rand.New(rand.NewSource(7))
	ds := classify.NewDataset()
	presets := map[classify.Label]detector.HandLandmarks{
		"fist": detector.FistLandmarks(),
		"palm": detector.OpenPalmLandmarks(),
	}
	for label, hand := range presets {
		base, err := feature.Extract(hand)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		for i := 0; i < 15; i++ {
			ds.Add(classify.Sample{Label: label, Vector: jitter(base, rng)})
		}
	}

	artifact, err := classify.Train(ds, classify.KindMargin)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	c := classify.NewClassifier()
	if err := c.Load(artifact); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return c
}

func testCamera() *capture.Manager {
	return capture.NewManager(capture.ManagerConfig{
		Candidates:          []int{0},
		Spec:                capture.StreamSpec{Width: 640, Height: 480, FPS: 30},
		FailureThreshold:    2,
		MaxRecoveryAttempts: 2,
		BackoffInitial:      time.Millisecond,
		BackoffMax:          2 * time.Millisecond,
	}, func(id int) capture.Device { return &capture.ScriptDevice{} })
}

// newTestApp assembles an App around scripted camera frames, a mock
// detector, and a counting action backend.
func newTestApp(t *testing.T, mock *detector.MockDetector, backend *countingBackend) (*App, chan stability.Event) {
	t.Helper()

	mapping := action.Mapping{
		"fist": {Kind: action.KindKeyPress, Key: "space"},
		"palm": {Kind: action.KindMouseClick, Button: "left"},
	}
	dispatcher := action.NewDispatcher(mapping, backend)
	t.Cleanup(dispatcher.Close)

	a := New(Config{
		Camera:     testCamera(),
		Detector:   mock,
		Detection:  detector.DefaultConfig(),
		Classifier: trainedClassifier(t),
		// MinConfidence stays permissive: the scenario tests debounce
		// behavior, not score calibration.
		Stability:  stability.Config{MinStreak: 5, ReleaseAfter: 3, MinConfidence: 0.01},
		Dispatcher: dispatcher,
	})

	events := make(chan stability.Event, 16)
	a.OnEvent(func(ev stability.Event) { events <- ev })
	return a, events
}

// repeat builds a detection sequence of n frames showing the same hand.
func repeat(hand detector.HandLandmarks, n int) [][]detector.HandLandmarks {
	seq := make([][]detector.HandLandmarks, n)
	for i := range seq {
		seq[i] = []detector.HandLandmarks{hand}
	}
	return seq
}

func TestSteadyGestureEmitsOneEventAndAction(t *testing.T) {
	mock := detector.NewMockDetector()
	mock.SetSequence(repeat(detector.FistLandmarks(), 10))
	backend := &countingBackend{}

	a, events := newTestApp(t, mock, backend)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	var ev stability.Event
	select {
	case ev = <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gesture event")
	}

	if ev.Label != "fist" {
		t.Errorf("event label = %q, want %q", ev.Label, "fist")
	}
	if ev.Hand != "Right" {
		t.Errorf("event hand = %q, want %q", ev.Hand, "Right")
	}
	if ev.FrameIndex != 5 {
		t.Errorf("event frame = %d, want 5 (confirmation on the frame completing the streak)", ev.FrameIndex)
	}

	// The remaining held frames must not produce a second event.
	select {
	case extra := <-events:
		t.Fatalf("unexpected extra event %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}

	a.Stop()
	if got := backend.count(); got != 1 {
		t.Errorf("actions executed = %d, want 1", got)
	}
	if err := a.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestAlternatingGesturesEmitNothing(t *testing.T) {
	seq := make([][]detector.HandLandmarks, 0, 40)
	for i := 0; i < 20; i++ {
		seq = append(seq, []detector.HandLandmarks{detector.FistLandmarks()})
		seq = append(seq, []detector.HandLandmarks{detector.OpenPalmLandmarks()})
	}
	mock := detector.NewMockDetector()
	mock.SetSequence(seq)
	backend := &countingBackend{}

	a, events := newTestApp(t, mock, backend)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v for alternating predictions", ev)
	case <-time.After(200 * time.Millisecond):
	}

	a.Stop()
	if got := backend.count(); got != 0 {
		t.Errorf("actions executed = %d, want 0", got)
	}
}

// scriptedGate reports motion for the first movedFrames observations and a
// still scene afterwards.
type scriptedGate struct {
	mu          sync.Mutex
	movedFrames int
	seen        int
}

func (g *scriptedGate) Observe(frame *capture.Frame) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen++
	if g.seen <= g.movedFrames {
		return true, 100
	}
	return false, 0
}

func (g *scriptedGate) observations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen
}

// A hand held steady produces no frame-to-frame motion. The gate must not
// starve the detector then: the streak has to form and the confirmed hold
// has to survive the still scene.
func TestStillHeldGestureSurvivesMotionGate(t *testing.T) {
	mock := detector.NewMockDetector()
	mock.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	backend := &countingBackend{}
	gate := &scriptedGate{movedFrames: 1}

	dispatcher := action.NewDispatcher(action.Mapping{
		"fist": {Kind: action.KindKeyPress, Key: "space"},
	}, backend)
	t.Cleanup(dispatcher.Close)

	a := New(Config{
		Camera:     testCamera(),
		Detector:   mock,
		Detection:  detector.DefaultConfig(),
		Classifier: trainedClassifier(t),
		Stability:  stability.Config{MinStreak: 5, ReleaseAfter: 3, MinConfidence: 0.01},
		Dispatcher: dispatcher,
		Motion:     gate,
	})
	events := make(chan stability.Event, 16)
	a.OnEvent(func(ev stability.Event) { events <- ev })

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	var ev stability.Event
	select {
	case ev = <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for gesture event; gate starved the detector")
	}
	if ev.Label != "fist" {
		t.Errorf("event label = %q, want fist", ev.Label)
	}
	if ev.FrameIndex != 5 {
		t.Errorf("event frame = %d, want 5 (still frames must keep reaching the detector)", ev.FrameIndex)
	}

	// The hold stays confirmed through the still scene: no release and
	// re-trigger cycle.
	select {
	case extra := <-events:
		t.Fatalf("unexpected extra event %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}

	a.Stop()
	if got := backend.count(); got != 1 {
		t.Errorf("actions executed = %d, want 1", got)
	}
	// Only the idle frame consulted the gate; active hands bypass it.
	if got := gate.observations(); got != 1 {
		t.Errorf("gate observations = %d, want 1", got)
	}
}

func TestStartWithoutModel(t *testing.T) {
	a := New(Config{
		Camera:     testCamera(),
		Detector:   detector.NewMockDetector(),
		Detection:  detector.DefaultConfig(),
		Classifier: classify.NewClassifier(),
	})

	if err := a.Start(); !errors.Is(err, classify.ErrNoModelLoaded) {
		t.Fatalf("Start() error = %v, want ErrNoModelLoaded", err)
	}
}

func TestStartTwiceIsBusy(t *testing.T) {
	mock := detector.NewMockDetector()
	a, _ := newTestApp(t, mock, &countingBackend{})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if err := a.Start(); !errors.Is(err, ErrCameraBusy) {
		t.Fatalf("second Start() error = %v, want ErrCameraBusy", err)
	}
}

func TestRecordSessionWhileLiveIsBusy(t *testing.T) {
	mock := detector.NewMockDetector()
	a, _ := newTestApp(t, mock, &countingBackend{})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if _, err := a.RecordSession(context.Background(), "fist", 3); !errors.Is(err, ErrCameraBusy) {
		t.Fatalf("RecordSession() error = %v, want ErrCameraBusy", err)
	}
}

func TestRecordSessionCollectsSamples(t *testing.T) {
	mock := detector.NewMockDetector()
	mock.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	a, _ := newTestApp(t, mock, &countingBackend{})

	samples, err := a.RecordSession(context.Background(), "fist", 5)
	if err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	if len(samples) != 5 {
		t.Fatalf("len(samples) = %d, want 5", len(samples))
	}
	for i, s := range samples {
		if s.Label != "fist" {
			t.Errorf("sample %d label = %q, want fist", i, s.Label)
		}
		if len(s.Vector) != feature.VectorLen {
			t.Errorf("sample %d vector length = %d, want %d", i, len(s.Vector), feature.VectorLen)
		}
	}

	// The camera is released; a live run can start afterwards.
	if err := a.Start(); err != nil {
		t.Fatalf("Start() after recording error = %v", err)
	}
	a.Stop()
}

func TestSetEnabledPausesRecognition(t *testing.T) {
	mock := detector.NewMockDetector()
	mock.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	backend := &countingBackend{}

	a, events := newTestApp(t, mock, backend)
	a.SetEnabled(false)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	// Paused: the steady gesture must not confirm.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v while paused", ev)
	case <-time.After(150 * time.Millisecond):
	}

	a.SetEnabled(true)
	select {
	case ev := <-events:
		if ev.Label != "fist" {
			t.Errorf("event label = %q, want fist", ev.Label)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event after resume")
	}
}
