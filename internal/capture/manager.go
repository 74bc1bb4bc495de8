package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Capture errors.
var (
	// ErrNoDeviceAvailable is returned when no configured candidate device opens.
	ErrNoDeviceAvailable = errors.New("no camera device available")
	// ErrTransientRead is returned for a recoverable single-frame failure;
	// the caller may retry immediately.
	ErrTransientRead = errors.New("transient frame read failure")
	// ErrDeviceLost is returned once recovery attempts are exhausted.
	// The manager must be reopened explicitly.
	ErrDeviceLost = errors.New("camera device lost")
	// ErrCameraNotOpen is returned when reading from a closed manager.
	ErrCameraNotOpen = errors.New("camera is not open")
)

// State is the camera manager lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateStreaming
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Default recovery tunables.
const (
	DefaultFailureThreshold    = 5
	DefaultMaxRecoveryAttempts = 3
	DefaultBackoffInitial      = 500 * time.Millisecond
	DefaultBackoffMax          = 5 * time.Second
)

// ManagerConfig holds camera manager configuration.
type ManagerConfig struct {
	// Candidates are device identifiers tried in order.
	Candidates []int
	// Spec is the requested capture format.
	Spec StreamSpec
	// FailureThreshold is the number of consecutive read failures that
	// triggers recovery.
	FailureThreshold int
	// MaxRecoveryAttempts bounds reopen attempts before the device is
	// declared lost.
	MaxRecoveryAttempts int
	// BackoffInitial and BackoffMax bound the exponential wait between
	// recovery attempts.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (c *ManagerConfig) fillDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.MaxRecoveryAttempts <= 0 {
		c.MaxRecoveryAttempts = DefaultMaxRecoveryAttempts
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = DefaultBackoffInitial
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = DefaultBackoffMax
	}
}

// Manager owns the capture device handle and supplies frames to the
// pipeline, absorbing transient faults and recovering from device loss.
type Manager struct {
	cfg    ManagerConfig
	opener DeviceOpener

	mu       sync.Mutex
	device   Device
	state    State
	failures int
}

// NewManager creates a Manager for the given candidates and opener.
func NewManager(cfg ManagerConfig, opener DeviceOpener) *Manager {
	cfg.fillDefaults()
	return &Manager{
		cfg:    cfg,
		opener: opener,
		state:  StateClosed,
	}
}

// Open tries the candidate devices in order and keeps the first that opens.
// Returns ErrNoDeviceAvailable if every candidate fails.
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateStreaming {
		return nil
	}
	return m.openLocked()
}

func (m *Manager) openLocked() error {
	m.state = StateOpening

	for _, id := range m.cfg.Candidates {
		dev := m.opener(id)
		if err := dev.Open(m.cfg.Spec); err != nil {
			log.Printf("camera %d: open failed: %v", id, err)
			dev.Close()
			continue
		}

		m.device = dev
		m.state = StateStreaming
		m.failures = 0
		log.Printf("camera %d: streaming %dx%d@%d", id, m.cfg.Spec.Width, m.cfg.Spec.Height, m.cfg.Spec.FPS)
		return nil
	}

	m.device = nil
	m.state = StateClosed
	return ErrNoDeviceAvailable
}

// ReadFrame reads one frame. A single failed read returns ErrTransientRead.
// Once FailureThreshold consecutive reads fail, the manager closes the
// handle and retries Open with capped exponential backoff; exhausting
// MaxRecoveryAttempts returns ErrDeviceLost and leaves the manager closed.
func (m *Manager) ReadFrame() (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateStreaming || m.device == nil {
		return nil, ErrCameraNotOpen
	}

	frame, err := m.device.Read()
	if err == nil {
		m.failures = 0
		return frame, nil
	}

	m.failures++
	if m.failures < m.cfg.FailureThreshold {
		return nil, fmt.Errorf("%w: %v", ErrTransientRead, err)
	}

	return nil, m.recoverLocked()
}

// recoverLocked closes the current handle and attempts to reopen the
// candidate list with growing backoff. On success the state returns to
// Streaming and ErrTransientRead is reported so the caller retries the read.
// Called with m.mu held and returns with it held, but the lock is released
// around each backoff sleep so Close and State stay responsive; a Close
// arriving mid-wait abandons the recovery.
func (m *Manager) recoverLocked() error {
	m.state = StateRecovering
	log.Printf("camera: %d consecutive read failures, recovering", m.failures)

	if m.device != nil {
		m.device.Close()
		m.device = nil
	}

	backoff := m.cfg.BackoffInitial
	for attempt := 1; attempt <= m.cfg.MaxRecoveryAttempts; attempt++ {
		m.mu.Unlock()
		time.Sleep(backoff)
		m.mu.Lock()

		if m.state != StateRecovering {
			// Someone else moved the manager while we slept: Close wins,
			// a concurrent Open that already reopened just needs a retry.
			if m.state == StateStreaming {
				return fmt.Errorf("%w: reopened, retry read", ErrTransientRead)
			}
			return ErrCameraNotOpen
		}

		backoff *= 2
		if backoff > m.cfg.BackoffMax {
			backoff = m.cfg.BackoffMax
		}

		if err := m.openLocked(); err == nil {
			log.Printf("camera: recovered on attempt %d", attempt)
			return fmt.Errorf("%w: recovered, retry read", ErrTransientRead)
		}
		m.state = StateRecovering
	}

	m.state = StateClosed
	m.failures = 0
	return ErrDeviceLost
}

// Close releases the device handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.device != nil {
		err = m.device.Close()
		m.device = nil
	}
	m.state = StateClosed
	m.failures = 0
	return err
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
