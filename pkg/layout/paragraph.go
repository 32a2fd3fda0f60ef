// Package layout groups projected text runs into paragraphs
package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

const (
	// DefaultSameLineThreshold is the top-edge distance under which two runs
	// share a visual line
	DefaultSameLineThreshold = 10.0

	// DefaultGapRatio is the fraction of a run's height that a vertical gap
	// must exceed to start a new paragraph
	DefaultGapRatio = 0.8
)

// Padding is the margin added around a paragraph's bounding box
type Padding struct {
	Left, Top, Right, Bottom float64
}

// DefaultPadding clears ascenders and descenders without reaching the
// neighbouring paragraph
var DefaultPadding = Padding{Left: 4, Top: 2, Right: 4, Bottom: 2}

// Paragraph is an ordered, non-empty group of runs from one page
type Paragraph struct {
	Runs []geometry.ScreenRun
	BBox pdf.BoundingBox
}

// Text returns the paragraph text in reading order. Runs flagged as end of
// line are followed by a newline.
func (p Paragraph) Text() string {
	var b strings.Builder
	for i, r := range p.Runs {
		b.WriteString(r.Text)
		if r.EOL && i < len(p.Runs)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Option configures a ParagraphClusterer
type Option func(*ParagraphClusterer)

// WithSameLineThreshold sets the same-line tolerance in pixels
func WithSameLineThreshold(px float64) Option {
	return func(c *ParagraphClusterer) {
		c.sameLineThreshold = px
	}
}

// WithGapRatio sets the paragraph break ratio relative to run height
func WithGapRatio(ratio float64) Option {
	return func(c *ParagraphClusterer) {
		c.gapRatio = ratio
	}
}

// WithPadding sets the bounding box padding
func WithPadding(p Padding) Option {
	return func(c *ParagraphClusterer) {
		c.padding = p
	}
}

// ParagraphClusterer groups screen runs into paragraphs by vertical adjacency
type ParagraphClusterer struct {
	sameLineThreshold float64
	gapRatio          float64
	padding           Padding
}

// NewParagraphClusterer creates a clusterer with default tunables
func NewParagraphClusterer(opts ...Option) *ParagraphClusterer {
	c := &ParagraphClusterer{
		sameLineThreshold: DefaultSameLineThreshold,
		gapRatio:          DefaultGapRatio,
		padding:           DefaultPadding,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClusterIntoParagraphs groups runs with the default tunables
func ClusterIntoParagraphs(runs []geometry.ScreenRun) []Paragraph {
	return NewParagraphClusterer().Cluster(runs)
}

// Cluster returns the paragraphs of runs in reading order. Every input run
// appears in exactly one paragraph. The input slice is not modified.
func (c *ParagraphClusterer) Cluster(runs []geometry.ScreenRun) []Paragraph {
	if len(runs) == 0 {
		return nil
	}

	sorted := c.readingOrder(runs)

	var paragraphs []Paragraph
	current := []geometry.ScreenRun{sorted[0]}
	lastBottom := sorted[0].Bottom()

	for _, r := range sorted[1:] {
		gap := r.Top - lastBottom
		if gap > r.Height*c.gapRatio {
			paragraphs = append(paragraphs, c.newParagraph(current))
			current = []geometry.ScreenRun{r}
			lastBottom = r.Bottom()
			continue
		}
		current = append(current, r)
		lastBottom = math.Max(lastBottom, r.Bottom())
	}
	paragraphs = append(paragraphs, c.newParagraph(current))

	return paragraphs
}

// readingOrder sorts runs top to bottom, then left to right within a line
func (c *ParagraphClusterer) readingOrder(runs []geometry.ScreenRun) []geometry.ScreenRun {
	sorted := make([]geometry.ScreenRun, len(runs))
	copy(sorted, runs)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Top < sorted[j].Top
	})

	// Group into lines anchored on the first run's top, then order each line
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i].Top-sorted[start].Top < c.sameLineThreshold {
			continue
		}
		line := sorted[start:i]
		sort.SliceStable(line, func(a, b int) bool {
			return line[a].Left < line[b].Left
		})
		start = i
	}

	return sorted
}

func (c *ParagraphClusterer) newParagraph(runs []geometry.ScreenRun) Paragraph {
	minX, minY := runs[0].Left, runs[0].Top
	maxX, maxY := runs[0].Right(), runs[0].Bottom()

	for _, r := range runs[1:] {
		minX = math.Min(minX, r.Left)
		minY = math.Min(minY, r.Top)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}

	return Paragraph{
		Runs: runs,
		BBox: pdf.BoundingBox{
			X0: minX - c.padding.Left,
			Y0: minY - c.padding.Top,
			X1: maxX + c.padding.Right,
			Y1: maxY + c.padding.Bottom,
		},
	}
}
