package pdf

// BoundingBox represents a rectangular area in screen space (origin top-left)
type BoundingBox struct {
	X0 float64 // Left
	Y0 float64 // Top
	X1 float64 // Right
	Y1 float64 // Bottom
}

// Width returns the width of the bounding box
func (b BoundingBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the height of the bounding box
func (b BoundingBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Contains checks if a point is within the bounding box
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Intersects checks if two bounding boxes intersect
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return !(b.X1 < other.X0 || b.X0 > other.X1 || b.Y1 < other.Y0 || b.Y0 > other.Y1)
}

// TransformMatrix represents a 2D affine transformation matrix
// [A B C D E F] = [scaleX skewY skewX scaleY translateX translateY]
type TransformMatrix struct {
	A, B, C, D, E, F float64
}

// TextRun is one contiguous piece of text as reported by the renderer.
// Transform is expressed in glyph space (origin bottom-left, y up).
type TextRun struct {
	Text      string
	Transform TransformMatrix
	Width     float64 // advance width in glyph space, 0 when unknown
	Font      string
	EOL       bool // renderer marked a logical end of line after this run
}

// Viewport is a page's rendering frame at a given zoom scale
type Viewport struct {
	Width  float64
	Height float64
	Scale  float64
}

// Bounds returns the viewport rectangle in screen space
func (v Viewport) Bounds() BoundingBox {
	return BoundingBox{X0: 0, Y0: 0, X1: v.Width, Y1: v.Height}
}

// PageRef identifies a page object with a renderer-specific opaque key
type PageRef string

// ExplicitDest is a resolved jump target. When Ref is empty PageIndex is the
// 0-based page index; otherwise Ref must be mapped through PageIndexForRef.
type ExplicitDest struct {
	Ref       PageRef
	PageIndex int
}

// Destination is either a named destination or an explicit one
type Destination struct {
	Name     string
	Explicit *ExplicitDest
}

// IsZero reports whether d carries no target at all
func (d Destination) IsZero() bool {
	return d.Name == "" && d.Explicit == nil
}

// OutlineNode is one bookmark entry
type OutlineNode struct {
	Title       string
	Destination Destination
	Children    []OutlineNode
}
