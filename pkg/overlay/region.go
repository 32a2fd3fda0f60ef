// Package overlay builds interactive paragraph regions over a rendered page
// and owns their hover and selection state.
package overlay

import (
	"fmt"
	"sync"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/layout"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

// RegionID identifies a region within a document
type RegionID struct {
	Page  int
	Index int
}

func (id RegionID) String() string {
	return fmt.Sprintf("p%d/r%d", id.Page, id.Index)
}

// Region is the interactive counterpart of a paragraph
type Region struct {
	ID   RegionID
	BBox pdf.BoundingBox
	Runs []geometry.ScreenRun

	// first and last leaf index spanned by the region, in content order
	first, last int
	text        string
}

// newRegion spans p over leaves. The text covers every leaf from the
// region's first member to its last, so whitespace-only runs between
// members are kept; non-blank runs of other paragraphs are not.
func newRegion(page, index int, p layout.Paragraph, leaves []geometry.ScreenRun) *Region {
	r := &Region{
		ID:   RegionID{Page: page, Index: index},
		BBox: p.BBox,
		Runs: p.Runs,
	}
	if len(p.Runs) == 0 {
		return r
	}

	members := make(map[int]bool, len(p.Runs))
	r.first, r.last = p.Runs[0].Index, p.Runs[0].Index
	for _, run := range p.Runs {
		members[run.Index] = true
		r.first = min(r.first, run.Index)
		r.last = max(r.last, run.Index)
	}

	var span []geometry.ScreenRun
	for _, leaf := range leaves {
		if leaf.Index < r.first || leaf.Index > r.last {
			continue
		}
		if members[leaf.Index] || blank(leaf.Text) {
			span = append(span, leaf)
		}
	}
	r.text = layout.Paragraph{Runs: span}.Text()
	return r
}

// Text returns the paragraph text covered by the region
func (r *Region) Text() string {
	return r.text
}

// Overlay is the text layer of one page: its container bounds, the
// run-level leaves and the paragraph regions spanning them.
type Overlay struct {
	Page    int
	Bounds  pdf.BoundingBox
	Runs    []geometry.ScreenRun
	Regions []*Region
	// Skipped counts runs dropped because their geometry was malformed
	Skipped int
	Errors  []error // why each skipped run was dropped

	mu          sync.Mutex
	controller  *SelectionController
	pointerOver *Region
}

// Attach binds the overlay to the controller that owns its selection state
func (o *Overlay) Attach(c *SelectionController) {
	o.mu.Lock()
	o.controller = c
	o.mu.Unlock()
}

// Controller returns the attached controller, or nil
func (o *Overlay) Controller() *SelectionController {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.controller
}

// HitTest returns the first region in reading order containing the point
func (o *Overlay) HitTest(x, y float64) *Region {
	for _, r := range o.Regions {
		if r.BBox.Contains(x, y) {
			return r
		}
	}
	return nil
}

// Region returns the region with the given index, or nil
func (o *Overlay) Region(index int) *Region {
	if index < 0 || index >= len(o.Regions) {
		return nil
	}
	return o.Regions[index]
}

// handleClick routes a click to the controller. A click on a region selects
// or toggles it; a click outside the page container clears a selection
// owned by this page. Clicks inside the container but between regions are
// ignored.
func (o *Overlay) handleClick(ev PointerEvent) {
	c := o.Controller()
	if c == nil {
		return
	}
	if ev.Page == o.Page {
		if r := o.HitTest(ev.X, ev.Y); r != nil {
			c.Click(r)
			return
		}
		if o.Bounds.Contains(ev.X, ev.Y) {
			return
		}
	}
	c.ClickOutside(o.Page)
}

// handleMove turns pointer movement into enter/leave transitions
func (o *Overlay) handleMove(ev PointerEvent) {
	c := o.Controller()
	if c == nil {
		return
	}

	var hit *Region
	if ev.Page == o.Page {
		hit = o.HitTest(ev.X, ev.Y)
	}

	o.mu.Lock()
	prev := o.pointerOver
	o.pointerOver = hit
	o.mu.Unlock()

	if prev == hit {
		return
	}
	if prev != nil {
		c.PointerLeave(prev)
	}
	if hit != nil {
		c.PointerEnter(hit)
	}
}
