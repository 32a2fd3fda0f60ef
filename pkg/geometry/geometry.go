// Package geometry converts glyph-space text runs into screen-space boxes
package geometry

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

const (
	// MinFontSize is the smallest font size a projected run may have
	MinFontSize = 8.0

	// ResponsivePadding is the horizontal space kept free around a page
	ResponsivePadding = 32.0

	// DefaultMinScale is the responsive scale floor
	DefaultMinScale = 0.3

	// estimated advance per rune, in ems, when the renderer gives no width
	estimatedAdvance = 0.5
)

// GeometryError reports transform or viewport data that cannot be projected.
// Page and Run locate the offending run once a caller fills them in; Page
// is 0 until then.
type GeometryError struct {
	Page  int
	Run   int
	Field string
	Value float64
}

func (e *GeometryError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("geometry: page %d run %d: invalid %s %v", e.Page, e.Run, e.Field, e.Value)
	}
	return fmt.Sprintf("geometry: invalid %s %v", e.Field, e.Value)
}

// ScreenRun is a TextRun projected into a page's screen space
type ScreenRun struct {
	Index    int // position of the run in the renderer's list
	Text     string
	Font     string
	EOL      bool
	Left     float64
	Top      float64
	Width    float64
	Height   float64
	FontSize float64
	// StretchX is the horizontal stretch to apply to the rendered glyphs
	// when the run is anisotropic (scaleX != scaleY). 1 otherwise.
	StretchX float64
}

// Right returns the right edge of the run
func (r ScreenRun) Right() float64 {
	return r.Left + r.Width
}

// Bottom returns the bottom edge of the run
func (r ScreenRun) Bottom() float64 {
	return r.Top + r.Height
}

// BBox returns the run's bounding box
func (r ScreenRun) BBox() pdf.BoundingBox {
	return pdf.BoundingBox{X0: r.Left, Y0: r.Top, X1: r.Right(), Y1: r.Bottom()}
}

// Projector projects runs with a configurable font size floor
type Projector struct {
	MinFontSize float64
}

// ProjectRun projects run into viewport using the default font size floor
func ProjectRun(run pdf.TextRun, viewport pdf.Viewport) (ScreenRun, error) {
	return Projector{MinFontSize: MinFontSize}.Project(run, viewport)
}

// Project converts run into viewport's screen space. The vertical axis is
// flipped with the viewport height and the box is shifted up by the font
// size so its top aligns with the glyph top rather than the baseline.
func (p Projector) Project(run pdf.TextRun, viewport pdf.Viewport) (ScreenRun, error) {
	if err := checkViewport(viewport); err != nil {
		return ScreenRun{}, err
	}
	if err := checkTransform(run.Transform); err != nil {
		return ScreenRun{}, err
	}

	s := viewport.Scale
	m := run.Transform

	scaleX := math.Abs(m.A) * s
	scaleY := math.Abs(m.D) * s
	fontSize := math.Max(scaleY, p.minFontSize())

	stretch := 1.0
	if scaleX > 0 && scaleY > 0 && scaleX != scaleY {
		stretch = scaleX / scaleY
	}

	width := run.Width * s
	if width <= 0 {
		width = float64(utf8.RuneCountInString(run.Text)) * fontSize * estimatedAdvance * stretch
	}

	return ScreenRun{
		Text:     run.Text,
		Font:     run.Font,
		EOL:      run.EOL,
		Left:     m.E * s,
		Top:      viewport.Height - m.F*s - fontSize,
		Width:    width,
		Height:   fontSize,
		FontSize: fontSize,
		StretchX: stretch,
	}, nil
}

func (p Projector) minFontSize() float64 {
	if p.MinFontSize <= 0 {
		return MinFontSize
	}
	return p.MinFontSize
}

func checkViewport(v pdf.Viewport) error {
	switch {
	case !finite(v.Height) || v.Height <= 0:
		return &GeometryError{Field: "viewport height", Value: v.Height}
	case !finite(v.Width) || v.Width < 0:
		return &GeometryError{Field: "viewport width", Value: v.Width}
	case !finite(v.Scale) || v.Scale <= 0:
		return &GeometryError{Field: "viewport scale", Value: v.Scale}
	}
	return nil
}

func checkTransform(m pdf.TransformMatrix) error {
	components := [6]struct {
		name string
		v    float64
	}{
		{"transform[0]", m.A}, {"transform[1]", m.B}, {"transform[2]", m.C},
		{"transform[3]", m.D}, {"transform[4]", m.E}, {"transform[5]", m.F},
	}
	for _, c := range components {
		if !finite(c.v) {
			return &GeometryError{Field: c.name, Value: c.v}
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ComputeResponsiveScale returns the largest scale not above desiredScale at
// which a page of naturalWidth fits containerWidth, floored at minScale. The
// floor wins when the container is too narrow.
func ComputeResponsiveScale(naturalWidth, desiredScale, containerWidth, minScale float64) float64 {
	return FitScale(naturalWidth, desiredScale, containerWidth, minScale, ResponsivePadding)
}

// FitScale is ComputeResponsiveScale with an explicit padding
func FitScale(naturalWidth, desiredScale, containerWidth, minScale, padding float64) float64 {
	scale := desiredScale
	if naturalWidth > 0 {
		scale = math.Min(desiredScale, (containerWidth-padding)/naturalWidth)
	}
	return math.Max(scale, minScale)
}
