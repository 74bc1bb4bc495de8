// Package action maps stable gesture events to configured system actions.
package action

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/classify"
)

// Action errors.
var (
	ErrInvalidDescriptor  = errors.New("invalid action descriptor")
	ErrBackendUnavailable = errors.New("action backend unavailable")
)

// Kind identifies an action descriptor kind.
type Kind string

const (
	KindKeyPress    Kind = "key-press"
	KindMouseClick  Kind = "mouse-click"
	KindMouseScroll Kind = "mouse-scroll"
	KindCommand     Kind = "custom-command"
)

// Descriptor describes one system action. Which fields matter depends on
// the kind; Validate enforces the per-kind requirements.
type Descriptor struct {
	Kind Kind `mapstructure:"kind" json:"kind"`

	// key-press
	Key       string   `mapstructure:"key" json:"key,omitempty"`
	Modifiers []string `mapstructure:"modifiers" json:"modifiers,omitempty"`

	// mouse-click
	Button string `mapstructure:"button" json:"button,omitempty"`
	Double bool   `mapstructure:"double" json:"double,omitempty"`

	// mouse-scroll
	ScrollX int `mapstructure:"scroll_x" json:"scroll_x,omitempty"`
	ScrollY int `mapstructure:"scroll_y" json:"scroll_y,omitempty"`

	// custom-command
	Command string   `mapstructure:"command" json:"command,omitempty"`
	Args    []string `mapstructure:"args" json:"args,omitempty"`
}

// Validate checks the descriptor's per-kind requirements.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindKeyPress:
		if d.Key == "" {
			return fmt.Errorf("%w: key-press requires a key", ErrInvalidDescriptor)
		}
	case KindMouseClick:
		if d.Button == "" {
			return fmt.Errorf("%w: mouse-click requires a button", ErrInvalidDescriptor)
		}
	case KindMouseScroll:
		if d.ScrollX == 0 && d.ScrollY == 0 {
			return fmt.Errorf("%w: mouse-scroll requires a scroll amount", ErrInvalidDescriptor)
		}
	case KindCommand:
		if d.Command == "" {
			return fmt.Errorf("%w: custom-command requires a command", ErrInvalidDescriptor)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, d.Kind)
	}
	return nil
}

// Mapping is the static gesture-label to descriptor table, loaded once at
// startup and read-only during the live loop.
type Mapping map[classify.Label]Descriptor

// Validate checks every descriptor in the table.
func (m Mapping) Validate() error {
	for label, d := range m {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("mapping for %q: %w", label, err)
		}
	}
	return nil
}
