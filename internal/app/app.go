// Package app wires the recognition pipeline together and arbitrates
// ownership of the single camera between live recognition and recording.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/stability"
	"github.com/ayusman/mudra/internal/training"
)

// ErrCameraBusy is returned when live recognition and recording contend
// for the camera; only one may hold it at a time.
var ErrCameraBusy = errors.New("camera is busy")

// MotionObserver gates landmark detection on scene motion.
// *capture.MotionGate is the production implementation.
type MotionObserver interface {
	Observe(frame *capture.Frame) (moved bool, percent float64)
}

// Config holds the assembled pipeline components.
type Config struct {
	Camera     *capture.Manager
	Detector   detector.Detector
	Detection  detector.Config
	Classifier *classify.Classifier
	Stability  stability.Config
	Dispatcher *action.Dispatcher
	// Motion optionally gates landmark detection on scene motion.
	Motion MotionObserver
}

type mode int

const (
	modeIdle mode = iota
	modeLive
	modeRecording
)

// App runs the live recognition loop and recording sessions.
type App struct {
	cfg Config

	mu      sync.Mutex
	mode    mode
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runErr  error
	onEvent []func(stability.Event)
	filters map[string]*stability.Filter

	// Frame tap for the MJPEG stream: encoding only happens while a sink
	// is attached so the loop pays nothing otherwise.
	sinks    atomic.Int32
	lastJPEG atomic.Pointer[[]byte]
}

// New creates an App from assembled components.
func New(cfg Config) *App {
	return &App{
		cfg:     cfg,
		enabled: true,
		filters: make(map[string]*stability.Filter),
	}
}

// SetEnabled pauses or resumes recognition without releasing the camera.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	if !enabled {
		for _, f := range a.filters {
			f.Reset()
		}
	}
}

// IsEnabled reports whether recognition is active.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// OnEvent registers a callback invoked for every emitted gesture event.
// Callbacks accumulate; register them before Start.
func (a *App) OnEvent(fn func(stability.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onEvent = append(a.onEvent, fn)
}

// Start opens the camera and launches the live recognition loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode != modeIdle {
		return ErrCameraBusy
	}
	if a.cfg.Classifier.Artifact() == nil {
		return classify.ErrNoModelLoaded
	}

	if err := a.cfg.Camera.Open(); err != nil {
		return err
	}

	a.mode = modeLive
	a.runErr = nil
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("recognition pipeline started")
	return nil
}

// Stop signals the loop and waits for it to finish. The camera is released
// on every exit path.
func (a *App) Stop() {
	a.mu.Lock()
	if a.mode != modeLive || a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.stopCh = nil
	done := a.doneCh
	a.mu.Unlock()

	<-done
	log.Println("recognition pipeline stopped")
}

// Err returns the terminal error of the last live run, if any.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runErr
}

// RecordSession collects labeled samples by driving the camera, detector,
// and extractor. It is mutually exclusive with live recognition.
func (a *App) RecordSession(ctx context.Context, label classify.Label, count int) ([]classify.Sample, error) {
	a.mu.Lock()
	if a.mode != modeIdle {
		a.mu.Unlock()
		return nil, ErrCameraBusy
	}
	a.mode = modeRecording
	a.mu.Unlock()

	defer func() {
		a.cfg.Camera.Close()
		a.mu.Lock()
		a.mode = modeIdle
		a.mu.Unlock()
	}()

	if err := a.cfg.Camera.Open(); err != nil {
		return nil, err
	}

	return training.RecordSession(ctx, &frameSource{app: a}, label, count)
}

// filter returns the stability filter for a hand, creating it on first use.
func (a *App) filter(hand string) *stability.Filter {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.filters[hand]
	if !ok {
		f = stability.NewFilter(hand, a.cfg.Stability)
		a.filters[hand] = f
	}
	return f
}

func (a *App) emit(ev stability.Event) {
	a.mu.Lock()
	listeners := a.onEvent
	a.mu.Unlock()

	log.Printf("gesture %q confirmed (hand=%s conf=%.2f frame=%d)", ev.Label, ev.Hand, ev.Confidence, ev.FrameIndex)
	if a.cfg.Dispatcher != nil {
		a.cfg.Dispatcher.Dispatch(ev.Label)
	}
	for _, fn := range listeners {
		fn(ev)
	}
}

// AddFrameSink attaches an MJPEG consumer; the loop starts publishing
// encoded frames while at least one sink is attached.
func (a *App) AddFrameSink() {
	a.sinks.Add(1)
}

// RemoveFrameSink detaches an MJPEG consumer.
func (a *App) RemoveFrameSink() {
	a.sinks.Add(-1)
}

// LatestJPEG returns the most recently published frame, or nil.
func (a *App) LatestJPEG() []byte {
	p := a.lastJPEG.Load()
	if p == nil {
		return nil
	}
	return *p
}

func (a *App) publishFrame(f *capture.Frame) {
	if a.sinks.Load() == 0 || f == nil || f.Mat == nil {
		return
	}
	buf, err := gocv.IMEncode(".jpg", *f.Mat)
	if err != nil {
		return
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	a.lastJPEG.Store(&data)
}

