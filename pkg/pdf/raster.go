package pdf

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PreviewRasterizer paints a page background and draws each text run at
// its baseline. It does not interpret graphics or embedded fonts.
type PreviewRasterizer struct {
	Background color.Color
	Ink        color.Color
	Face       font.Face
}

// NewPreviewRasterizer returns black text on white with a fixed bitmap face
func NewPreviewRasterizer() *PreviewRasterizer {
	return &PreviewRasterizer{
		Background: color.White,
		Ink:        color.Black,
		Face:       basicfont.Face7x13,
	}
}

// Rasterize draws runs into target, positioned for viewport
func (p *PreviewRasterizer) Rasterize(target draw.Image, viewport Viewport, runs []TextRun) error {
	if target == nil {
		return errors.New("pdf: nil render target")
	}
	bounds := target.Bounds()
	if bounds.Empty() {
		return errors.New("pdf: empty render target")
	}

	xdraw.Draw(target, bounds, image.NewUniform(p.Background), image.Point{}, xdraw.Src)

	d := &font.Drawer{
		Dst:  target,
		Src:  image.NewUniform(p.Ink),
		Face: p.Face,
	}
	scale := viewport.Scale
	if scale <= 0 {
		scale = 1
	}
	for _, r := range runs {
		x := r.Transform.E * scale
		y := viewport.Height - r.Transform.F*scale
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		d.Dot = fixed.P(bounds.Min.X+int(math.Round(x)), bounds.Min.Y+int(math.Round(y)))
		d.DrawString(r.Text)
	}
	return nil
}
