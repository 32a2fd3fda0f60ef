package overlay

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Scope decides how far selection exclusivity reaches
type Scope string

const (
	// ScopeDocument allows one selected region across all pages
	ScopeDocument Scope = "document"
	// ScopePage allows one selected region per page
	ScopePage Scope = "page"
)

// ParseScope validates a scope name
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeDocument, ScopePage:
		return Scope(s), nil
	case "":
		return ScopeDocument, nil
	}
	return "", fmt.Errorf("unknown selection scope %q", s)
}

// State is the controller's interaction state
type State int

const (
	Idle State = iota
	Hovering
	Selected
)

func (s State) String() string {
	switch s {
	case Hovering:
		return "hovering"
	case Selected:
		return "selected"
	}
	return "idle"
}

// VisualState is what a front end needs to draw one region
type VisualState struct {
	Hovered  bool
	Selected bool
}

// Highlighted reports whether the region should be drawn highlighted
func (v VisualState) Highlighted() bool {
	return v.Hovered || v.Selected
}

// Change is emitted whenever a region's visual state changes
type Change struct {
	ID    RegionID
	State VisualState
}

// SelectionController is the single owner of hover and selection state for
// a set of regions. At most one region is selected at any time.
type SelectionController struct {
	mu       sync.Mutex
	hovered  *Region
	selected *Region

	sink SelectionSink
	log  logrus.FieldLogger

	listenersMu sync.Mutex
	onChange    []func(Change)
	onSelect    []func(*Region)
}

// NewSelectionController creates a controller that applies selections to sink.
// A nil sink discards selections.
func NewSelectionController(sink SelectionSink, log logrus.FieldLogger) *SelectionController {
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = discardLogger()
	}
	return &SelectionController{sink: sink, log: log}
}

// OnChange registers a callback for per-region visual state changes
func (c *SelectionController) OnChange(fn func(Change)) {
	c.listenersMu.Lock()
	c.onChange = append(c.onChange, fn)
	c.listenersMu.Unlock()
}

// OnSelectionChanged registers a callback receiving the newly selected
// region, or nil when the selection is cleared
func (c *SelectionController) OnSelectionChanged(fn func(*Region)) {
	c.listenersMu.Lock()
	c.onSelect = append(c.onSelect, fn)
	c.listenersMu.Unlock()
}

// State returns the current interaction state
func (c *SelectionController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.selected != nil:
		return Selected
	case c.hovered != nil:
		return Hovering
	}
	return Idle
}

// Selected returns the selected region, or nil
func (c *SelectionController) Selected() *Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Hovered returns the region under the pointer, or nil
func (c *SelectionController) Hovered() *Region {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hovered
}

// VisualState returns the state of the region with the given id
func (c *SelectionController) VisualState(id RegionID) VisualState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visualLocked(id)
}

func (c *SelectionController) visualLocked(id RegionID) VisualState {
	return VisualState{
		Hovered:  c.hovered != nil && c.hovered.ID == id,
		Selected: c.selected != nil && c.selected.ID == id,
	}
}

// PointerEnter marks r as hovered
func (c *SelectionController) PointerEnter(r *Region) {
	if r == nil {
		return
	}
	c.mu.Lock()
	var changes []Change
	if c.hovered != nil && c.hovered.ID != r.ID {
		prev := c.hovered
		c.hovered = nil
		changes = append(changes, Change{ID: prev.ID, State: c.visualLocked(prev.ID)})
	}
	if c.hovered == nil {
		c.hovered = r
		changes = append(changes, Change{ID: r.ID, State: c.visualLocked(r.ID)})
	}
	c.mu.Unlock()

	c.emit(changes, false, nil)
}

// PointerLeave clears the hover on r. A selected region keeps its
// highlight after the pointer leaves.
func (c *SelectionController) PointerLeave(r *Region) {
	if r == nil {
		return
	}
	c.mu.Lock()
	if c.hovered == nil || c.hovered.ID != r.ID {
		c.mu.Unlock()
		return
	}
	c.hovered = nil
	changes := []Change{{ID: r.ID, State: c.visualLocked(r.ID)}}
	c.mu.Unlock()

	c.emit(changes, false, nil)
}

// Click selects r, deselecting any previous selection first. Clicking the
// selected region again clears the selection.
func (c *SelectionController) Click(r *Region) {
	if r == nil {
		return
	}
	c.mu.Lock()
	var changes []Change
	prev := c.selected
	c.selected = nil
	if prev != nil {
		changes = append(changes, Change{ID: prev.ID, State: c.visualLocked(prev.ID)})
	}
	var next *Region
	if prev == nil || prev.ID != r.ID {
		c.selected = r
		next = r
		changes = append(changes, Change{ID: r.ID, State: c.visualLocked(r.ID)})
	}
	c.mu.Unlock()

	if prev != nil {
		c.clearSink()
	}
	if next != nil {
		c.applySink(next)
	}
	c.emit(changes, true, next)
}

// ClickOutside clears the selection when it belongs to page. A page of zero
// or less clears any selection.
func (c *SelectionController) ClickOutside(page int) {
	c.mu.Lock()
	prev := c.selected
	if prev == nil || (page > 0 && prev.ID.Page != page) {
		c.mu.Unlock()
		return
	}
	c.selected = nil
	changes := []Change{{ID: prev.ID, State: c.visualLocked(prev.ID)}}
	c.mu.Unlock()

	c.clearSink()
	c.emit(changes, true, nil)
}

// Forget drops hover and selection held by regions of page, used when the
// page's overlay is replaced by a new render
func (c *SelectionController) Forget(page int) {
	c.mu.Lock()
	var changes []Change
	cleared := false
	if c.hovered != nil && c.hovered.ID.Page == page {
		prev := c.hovered
		c.hovered = nil
		changes = append(changes, Change{ID: prev.ID, State: c.visualLocked(prev.ID)})
	}
	if c.selected != nil && c.selected.ID.Page == page {
		prev := c.selected
		c.selected = nil
		cleared = true
		changes = append(changes, Change{ID: prev.ID, State: c.visualLocked(prev.ID)})
	}
	c.mu.Unlock()

	if cleared {
		c.clearSink()
	}
	c.emit(changes, cleared, nil)
}

func (c *SelectionController) applySink(r *Region) {
	if err := c.sink.Apply(NewSelection(r)); err != nil {
		c.log.WithFields(logrus.Fields{
			"region": r.ID.String(),
			"error":  err,
		}).Warn("failed to apply selection")
	}
}

func (c *SelectionController) clearSink() {
	if err := c.sink.Clear(); err != nil {
		c.log.WithError(err).Warn("failed to clear selection")
	}
}

func (c *SelectionController) emit(changes []Change, selectionChanged bool, selected *Region) {
	c.listenersMu.Lock()
	onChange := slices.Clone(c.onChange)
	onSelect := slices.Clone(c.onSelect)
	c.listenersMu.Unlock()

	for _, ch := range changes {
		for _, fn := range onChange {
			fn(ch)
		}
	}
	if selectionChanged {
		for _, fn := range onSelect {
			fn(selected)
		}
	}
}
