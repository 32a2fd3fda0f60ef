package overlay

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// PointerEvent is a pointer position in the screen space of a page. Page 0
// means the pointer is outside every page.
type PointerEvent struct {
	Page int
	X, Y float64
}

// Dispatcher fans pointer events out to every mounted overlay. It is the
// only place outside-click detection happens; it becomes active when the
// first overlay registers and tears down when the last one leaves.
type Dispatcher struct {
	mu       sync.Mutex
	overlays map[*Overlay]struct{}
	order    []*Overlay
	active   bool
	log      logrus.FieldLogger
}

var (
	defaultDispatcher     *Dispatcher
	defaultDispatcherOnce sync.Once
)

// DefaultDispatcher returns the process-wide dispatcher
func DefaultDispatcher() *Dispatcher {
	defaultDispatcherOnce.Do(func() {
		defaultDispatcher = NewDispatcher(nil)
	})
	return defaultDispatcher
}

// NewDispatcher creates an inactive dispatcher
func NewDispatcher(log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		log = discardLogger()
	}
	return &Dispatcher{
		overlays: make(map[*Overlay]struct{}),
		log:      log,
	}
}

// Register mounts o. Registering the same overlay twice is a no-op.
func (d *Dispatcher) Register(o *Overlay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.overlays[o]; ok {
		return
	}
	if !d.active {
		d.active = true
		d.log.Debug("pointer dispatcher started")
	}
	d.overlays[o] = struct{}{}
	d.order = append(d.order, o)
}

// Unregister unmounts o
func (d *Dispatcher) Unregister(o *Overlay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.overlays[o]; !ok {
		return
	}
	delete(d.overlays, o)
	for i, x := range d.order {
		if x == o {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	if len(d.overlays) == 0 && d.active {
		d.active = false
		d.order = nil
		d.log.Debug("pointer dispatcher stopped")
	}
}

// Active reports whether any overlay is mounted
func (d *Dispatcher) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Len returns the number of mounted overlays
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.overlays)
}

// Click delivers a click to every mounted overlay
func (d *Dispatcher) Click(ev PointerEvent) {
	for _, o := range d.snapshot() {
		o.handleClick(ev)
	}
}

// Move delivers pointer movement to every mounted overlay
func (d *Dispatcher) Move(ev PointerEvent) {
	for _, o := range d.snapshot() {
		o.handleMove(ev)
	}
}

func (d *Dispatcher) snapshot() []*Overlay {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Overlay(nil), d.order...)
}
