package action

import (
	"context"
	"log"

	"github.com/ayusman/mudra/internal/classify"
)

// dispatchQueueSize bounds the pending-action queue. A full queue drops
// the action rather than stalling the recognition loop.
const dispatchQueueSize = 8

type job struct {
	label classify.Label
	desc  Descriptor
}

// Dispatcher looks up gesture labels in the mapping table and invokes the
// backend asynchronously. Backend failures are logged and swallowed: the
// recognition loop's liveness takes priority over action delivery.
type Dispatcher struct {
	mapping Mapping
	backend Backend
	queue   chan job
	done    chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(mapping Mapping, backend Backend) *Dispatcher {
	d := &Dispatcher{
		mapping: mapping,
		backend: backend,
		queue:   make(chan job, dispatchQueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues the action mapped to the label, if any. Unmapped
// labels are dropped silently; that is a valid outcome, not a fault.
// Dispatch never blocks.
func (d *Dispatcher) Dispatch(label classify.Label) {
	desc, ok := d.mapping[label]
	if !ok {
		log.Printf("gesture %q has no mapped action", label)
		return
	}

	select {
	case d.queue <- job{label: label, desc: desc}:
	default:
		log.Printf("action queue full, dropping action for %q", label)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for j := range d.queue {
		if d.backend == nil {
			log.Printf("action for %q skipped: %v", j.label, ErrBackendUnavailable)
			continue
		}
		if err := d.backend.Execute(context.Background(), j.desc); err != nil {
			log.Printf("action for %q failed: %v", j.label, err)
			continue
		}
		log.Printf("action executed for gesture %q (%s)", j.label, j.desc.Kind)
	}
}

// Close stops the worker after draining queued actions.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}
