package capture

import (
	"errors"
	"sync"
	"time"
)

// ScriptDevice is a Device that replays a scripted sequence of read
// outcomes, for tests that exercise the manager without camera hardware.
type ScriptDevice struct {
	mu sync.Mutex

	// OpenErr, when set, makes Open fail.
	OpenErr error
	// FailFirst makes the first N reads fail before frames flow. The
	// count runs across reopens.
	FailFirst int
	// FailAll makes every read fail.
	FailAll bool

	opened bool
	reads  int
	opens  int
	closes int
}

func (d *ScriptDevice) Open(spec StreamSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens++
	if d.OpenErr != nil {
		return d.OpenErr
	}
	d.opened = true
	return nil
}

func (d *ScriptDevice) Read() (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened {
		return nil, errors.New("script device not open")
	}

	d.reads++
	if d.FailAll || d.reads <= d.FailFirst {
		return nil, errors.New("scripted read failure")
	}

	return &Frame{
		Timestamp: time.Now(),
		Width:     640,
		Height:    480,
		Channels:  3,
	}, nil
}

func (d *ScriptDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	d.closes++
	return nil
}

// Opens reports how many times Open was called.
func (d *ScriptDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes reports how many times Close was called.
func (d *ScriptDevice) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}
