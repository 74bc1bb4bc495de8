package action

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/go-vgo/robotgo"
)

// DefaultCommandTimeout bounds custom-command execution.
const DefaultCommandTimeout = 5 * time.Second

// Backend executes a validated action descriptor.
type Backend interface {
	Execute(ctx context.Context, d Descriptor) error
}

// SystemBackend injects keystrokes, clicks, and scrolls via robotgo and
// runs custom commands as subprocesses.
type SystemBackend struct {
	// CommandTimeout bounds custom-command runs; zero means the default.
	CommandTimeout time.Duration
}

// Execute runs the descriptor against the OS.
func (b *SystemBackend) Execute(ctx context.Context, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	switch d.Kind {
	case KindKeyPress:
		args := make([]interface{}, len(d.Modifiers))
		for i, m := range d.Modifiers {
			args[i] = m
		}
		if err := robotgo.KeyTap(d.Key, args...); err != nil {
			return fmt.Errorf("key tap %q: %w", d.Key, err)
		}
		return nil

	case KindMouseClick:
		robotgo.Click(d.Button, d.Double)
		return nil

	case KindMouseScroll:
		robotgo.Scroll(d.ScrollX, d.ScrollY)
		return nil

	case KindCommand:
		return b.runCommand(ctx, d)
	}

	return fmt.Errorf("%w: %q", ErrInvalidDescriptor, d.Kind)
}

// runCommand executes the configured command with a bounded context,
// capturing stderr for the error message.
func (b *SystemBackend) runCommand(ctx context.Context, d Descriptor) error {
	timeout := b.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("command %q timed out after %s", d.Command, timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("command %q: %w, stderr: %s", d.Command, err, stderr.String())
		}
		return fmt.Errorf("command %q: %w", d.Command, err)
	}
	return nil
}
