package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountedPages(t *testing.T, d *Dispatcher, c *SelectionController, pages ...int) []*Overlay {
	t.Helper()
	var out []*Overlay
	for _, p := range pages {
		o := NewBuilder().Build(p, testViewport, samplePage())
		require.Len(t, o.Regions, 2)
		o.Attach(c)
		d.Register(o)
		out = append(out, o)
	}
	return out
}

func center(r *Region) (float64, float64) {
	return (r.BBox.X0 + r.BBox.X1) / 2, (r.BBox.Y0 + r.BBox.Y1) / 2
}

func TestDispatcherLifecycle(t *testing.T) {
	d := NewDispatcher(nil)
	assert.False(t, d.Active())

	c := NewSelectionController(nil, nil)
	overlays := mountedPages(t, d, c, 1, 2)
	assert.True(t, d.Active())
	assert.Equal(t, 2, d.Len())

	d.Register(overlays[0])
	assert.Equal(t, 2, d.Len())

	d.Unregister(overlays[0])
	assert.True(t, d.Active())
	d.Unregister(overlays[1])
	assert.False(t, d.Active())
	assert.Zero(t, d.Len())
}

func TestDispatcherClickSelectsAcrossPages(t *testing.T) {
	d := NewDispatcher(nil)
	c := NewSelectionController(nil, nil)
	overlays := mountedPages(t, d, c, 1, 2)

	x, y := center(overlays[0].Regions[0])
	d.Click(PointerEvent{Page: 1, X: x, Y: y})
	assert.Equal(t, overlays[0].Regions[0], c.Selected())

	// document scope: selecting on page 2 deselects page 1
	x, y = center(overlays[1].Regions[1])
	d.Click(PointerEvent{Page: 2, X: x, Y: y})
	assert.Equal(t, overlays[1].Regions[1], c.Selected())
	assert.False(t, c.VisualState(overlays[0].Regions[0].ID).Selected)

	// clicking it again toggles it off
	d.Click(PointerEvent{Page: 2, X: x, Y: y})
	assert.Nil(t, c.Selected())
}

func TestDispatcherClickInsideContainerKeepsSelection(t *testing.T) {
	d := NewDispatcher(nil)
	c := NewSelectionController(nil, nil)
	overlays := mountedPages(t, d, c, 1)

	x, y := center(overlays[0].Regions[0])
	d.Click(PointerEvent{Page: 1, X: x, Y: y})

	// empty margin of the same page
	d.Click(PointerEvent{Page: 1, X: 590, Y: 790})
	assert.NotNil(t, c.Selected())

	// outside every page
	d.Click(PointerEvent{Page: 0, X: 5, Y: 5})
	assert.Nil(t, c.Selected())
}

func TestDispatcherPageScope(t *testing.T) {
	d := NewDispatcher(nil)
	c1 := NewSelectionController(nil, nil)
	c2 := NewSelectionController(nil, nil)
	o1 := mountedPages(t, d, c1, 1)[0]
	o2 := mountedPages(t, d, c2, 2)[0]

	x, y := center(o1.Regions[0])
	d.Click(PointerEvent{Page: 1, X: x, Y: y})
	x, y = center(o2.Regions[0])
	d.Click(PointerEvent{Page: 2, X: x, Y: y})

	// the click on page 2 lies outside page 1's container
	assert.Nil(t, c1.Selected())
	assert.Equal(t, o2.Regions[0], c2.Selected())
}

func TestDispatcherMoveHover(t *testing.T) {
	d := NewDispatcher(nil)
	c := NewSelectionController(nil, nil)
	o := mountedPages(t, d, c, 1)[0]

	x, y := center(o.Regions[0])
	d.Move(PointerEvent{Page: 1, X: x, Y: y})
	assert.Equal(t, o.Regions[0], c.Hovered())

	x, y = center(o.Regions[1])
	d.Move(PointerEvent{Page: 1, X: x, Y: y})
	assert.Equal(t, o.Regions[1], c.Hovered())

	d.Move(PointerEvent{Page: 0})
	assert.Nil(t, c.Hovered())
	assert.Equal(t, Idle, c.State())
}

func TestDefaultDispatcherIsShared(t *testing.T) {
	assert.Same(t, DefaultDispatcher(), DefaultDispatcher())
}
