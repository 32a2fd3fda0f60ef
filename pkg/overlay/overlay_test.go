package overlay

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

type recordingSink struct {
	mu      sync.Mutex
	applied []Selection
	clears  int
	active  *Selection
}

func (s *recordingSink) Apply(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, sel)
	s.active = &sel
	return nil
}

func (s *recordingSink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.active = nil
	return nil
}

func textRun(text string, size, x, y float64) pdf.TextRun {
	return pdf.TextRun{
		Text:      text,
		Transform: pdf.TransformMatrix{A: size, D: size, E: x, F: y},
		Width:     float64(len(text)) * size * 0.5,
	}
}

var testViewport = pdf.Viewport{Width: 600, Height: 800, Scale: 1}

// two paragraphs: lines at baseline 700/688 and a separate block at 600
func samplePage() []pdf.TextRun {
	return []pdf.TextRun{
		textRun("First paragraph ", 12, 50, 700),
		textRun("continues here", 12, 150, 700),
		textRun("and wraps.", 12, 50, 686),
		textRun("Second paragraph.", 12, 50, 600),
	}
}

func TestBuilderBuildsRegions(t *testing.T) {
	o := NewBuilder().Build(1, testViewport, samplePage())

	require.Len(t, o.Regions, 2)
	assert.Len(t, o.Runs, 4)
	assert.Zero(t, o.Skipped)
	assert.Equal(t, testViewport.Bounds(), o.Bounds)

	first := o.Regions[0]
	assert.Equal(t, RegionID{Page: 1, Index: 0}, first.ID)
	assert.Len(t, first.Runs, 3)
	assert.Equal(t, "First paragraph continues hereand wraps.", first.Text())

	second := o.Regions[1]
	assert.Equal(t, "Second paragraph.", second.Text())
	assert.Less(t, first.BBox.Y1, second.BBox.Y0)
}

func TestBuilderSkipsMalformedRuns(t *testing.T) {
	runs := samplePage()
	runs = append(runs, textRun("bad", 12, math.NaN(), 100))

	o := NewBuilder().Build(3, testViewport, runs)
	assert.Equal(t, 1, o.Skipped)
	assert.Len(t, o.Runs, 4)
	assert.Len(t, o.Regions, 2)

	require.Len(t, o.Errors, 1)
	var gerr *geometry.GeometryError
	require.ErrorAs(t, o.Errors[0], &gerr)
	assert.Equal(t, 3, gerr.Page)
	assert.Equal(t, 4, gerr.Run)
	assert.Contains(t, gerr.Error(), "page 3 run 4")
}

func TestBuilderIgnoresBlankRunsForRegions(t *testing.T) {
	runs := []pdf.TextRun{
		textRun("   ", 12, 50, 400),
		textRun("Body", 12, 50, 700),
	}
	o := NewBuilder().Build(2, testViewport, runs)
	assert.Len(t, o.Runs, 2)
	require.Len(t, o.Regions, 1)
	assert.Equal(t, "Body", o.Regions[0].Text())
}

func TestRegionTextKeepsWhitespaceRuns(t *testing.T) {
	runs := []pdf.TextRun{
		textRun("Hello", 12, 72, 700),
		textRun(" ", 12, 102, 700),
		textRun("world", 12, 108, 700),
		textRun("Elsewhere", 12, 72, 400),
	}
	sink := &recordingSink{}
	c := NewSelectionController(sink, nil)
	o := NewBuilder().Build(1, testViewport, runs)

	require.Len(t, o.Regions, 2)
	assert.Len(t, o.Regions[0].Runs, 2)
	assert.Equal(t, "Hello world", o.Regions[0].Text())

	c.Click(o.Regions[0])
	require.NotNil(t, sink.active)
	assert.Equal(t, 0, sink.active.FirstRun)
	assert.Equal(t, 2, sink.active.LastRun)
	assert.Equal(t, "Hello world", sink.active.Text)

	c.Click(o.Regions[1])
	assert.Equal(t, 3, sink.active.FirstRun)
	assert.Equal(t, 3, sink.active.LastRun)
	assert.Equal(t, "Elsewhere", sink.active.Text)
}

func TestSelectionExclusivity(t *testing.T) {
	sink := &recordingSink{}
	c := NewSelectionController(sink, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())
	a, b := o.Regions[0], o.Regions[1]

	c.Click(a)
	assert.True(t, c.VisualState(a.ID).Selected)
	assert.Equal(t, Selected, c.State())

	c.Click(b)
	assert.False(t, c.VisualState(a.ID).Selected)
	assert.True(t, c.VisualState(b.ID).Selected)
	assert.Equal(t, b, c.Selected())

	c.Click(b)
	assert.False(t, c.VisualState(a.ID).Selected)
	assert.False(t, c.VisualState(b.ID).Selected)
	assert.Nil(t, c.Selected())
	assert.Equal(t, Idle, c.State())

	require.Len(t, sink.applied, 2)
	assert.Equal(t, a.ID, sink.applied[0].Region)
	assert.Equal(t, b.ID, sink.applied[1].Region)
	assert.Equal(t, 2, sink.clears)
	assert.Nil(t, sink.active)
}

func TestSelectionRangeCoversParagraphRuns(t *testing.T) {
	sink := &recordingSink{}
	c := NewSelectionController(sink, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())

	c.Click(o.Regions[0])
	require.NotNil(t, sink.active)
	assert.Equal(t, 0, sink.active.FirstRun)
	assert.Equal(t, 2, sink.active.LastRun)
	assert.Equal(t, o.Regions[0].Text(), sink.active.Text)
}

func TestHoverTransitions(t *testing.T) {
	c := NewSelectionController(nil, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())
	a, b := o.Regions[0], o.Regions[1]

	c.PointerEnter(a)
	assert.Equal(t, Hovering, c.State())
	assert.True(t, c.VisualState(a.ID).Highlighted())

	c.PointerLeave(a)
	assert.Equal(t, Idle, c.State())
	assert.False(t, c.VisualState(a.ID).Highlighted())

	// a selected region keeps its highlight after the pointer leaves
	c.PointerEnter(b)
	c.Click(b)
	c.PointerLeave(b)
	vs := c.VisualState(b.ID)
	assert.False(t, vs.Hovered)
	assert.True(t, vs.Highlighted())
	assert.Equal(t, Selected, c.State())

	// leaving a region that is not hovered changes nothing
	c.PointerLeave(a)
	assert.Equal(t, Selected, c.State())
}

func TestControllerEvents(t *testing.T) {
	c := NewSelectionController(nil, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())
	a, b := o.Regions[0], o.Regions[1]

	var changes []Change
	var selections []*Region
	c.OnChange(func(ch Change) { changes = append(changes, ch) })
	c.OnSelectionChanged(func(r *Region) { selections = append(selections, r) })

	c.Click(a)
	c.Click(b)
	c.ClickOutside(0)

	assert.Equal(t, []*Region{a, b, nil}, selections)
	assert.Equal(t, []Change{
		{ID: a.ID, State: VisualState{Selected: true}},
		{ID: a.ID, State: VisualState{}},
		{ID: b.ID, State: VisualState{Selected: true}},
		{ID: b.ID, State: VisualState{}},
	}, changes)
}

func TestClickOutsideRespectsOwnership(t *testing.T) {
	sink := &recordingSink{}
	c := NewSelectionController(sink, nil)
	o := NewBuilder().Build(3, testViewport, samplePage())

	c.Click(o.Regions[0])
	c.ClickOutside(4)
	assert.NotNil(t, c.Selected())

	c.ClickOutside(3)
	assert.Nil(t, c.Selected())
	assert.Equal(t, 1, sink.clears)
}

func TestForgetDropsPageState(t *testing.T) {
	c := NewSelectionController(nil, nil)
	o := NewBuilder().Build(2, testViewport, samplePage())

	c.PointerEnter(o.Regions[1])
	c.Click(o.Regions[0])
	c.Forget(5)
	assert.Equal(t, Selected, c.State())

	c.Forget(2)
	assert.Equal(t, Idle, c.State())
}

type failingSink struct{}

func (failingSink) Apply(Selection) error { return errors.New("no display") }
func (failingSink) Clear() error          { return nil }

func TestSinkFailureDoesNotBreakState(t *testing.T) {
	c := NewSelectionController(failingSink{}, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())

	c.Click(o.Regions[0])
	assert.Equal(t, o.Regions[0], c.Selected())
}

func TestClipboardSink(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	defer func() { clipboardWrite = orig }()

	c := NewSelectionController(ClipboardSink{}, nil)
	o := NewBuilder().Build(1, testViewport, samplePage())
	c.Click(o.Regions[1])

	assert.Equal(t, "Second paragraph.", copied)
}

func TestParseScope(t *testing.T) {
	s, err := ParseScope("page")
	require.NoError(t, err)
	assert.Equal(t, ScopePage, s)

	s, err = ParseScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeDocument, s)

	_, err = ParseScope("window")
	assert.Error(t, err)
}
