package pdf

import (
	"errors"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	errClosed       = errors.New("pdf: document closed")
	errRefNotFound  = errors.New("pdf: page reference not found in page tree")
	errNoRasterizer = errors.New("pdf: no rasterizer configured")
)

const (
	// Baselines closer than this belong to the same line
	baselineTolerance = 1.0

	// Gaps up to wordGapRatio*fontSize continue a word; up to
	// spaceGapRatio*fontSize continue the run with an inserted space
	wordGapRatio  = 0.3
	spaceGapRatio = 1.0
)

// glyph is one positioned piece of text as reported by the rsc-style
// readers, which emit roughly one entry per character
type glyph struct {
	S        string
	Font     string
	FontSize float64
	X, Y, W  float64
}

// mergeGlyphs joins consecutive glyphs that share a baseline, font and size
// into text runs. A run that is followed by a glyph on another baseline is
// marked as ending its line.
func mergeGlyphs(glyphs []glyph) []TextRun {
	var (
		runs  []TextRun
		text  strings.Builder
		first glyph
		last  glyph
		open  bool
	)

	flush := func(eol bool) {
		if !open {
			return
		}
		runs = append(runs, TextRun{
			Text: norm.NFC.String(text.String()),
			Transform: TransformMatrix{
				A: first.FontSize,
				D: first.FontSize,
				E: first.X,
				F: first.Y,
			},
			Width: last.X + last.W - first.X,
			Font:  first.Font,
			EOL:   eol,
		})
		text.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if open {
			sameLine := math.Abs(g.Y-last.Y) <= baselineTolerance
			sameFont := g.Font == last.Font && math.Abs(g.FontSize-last.FontSize) < 0.01
			gap := g.X - (last.X + last.W)
			size := math.Max(last.FontSize, 1)

			switch {
			case !sameLine:
				flush(true)
			case !sameFont || gap < -size || gap > spaceGapRatio*size:
				flush(false)
			case gap > wordGapRatio*size && !strings.HasSuffix(last.S, " ") && !strings.HasPrefix(g.S, " "):
				text.WriteByte(' ')
			}
		}
		if !open {
			first = g
			open = true
		}
		text.WriteString(g.S)
		last = g
	}
	flush(false)

	return runs
}
