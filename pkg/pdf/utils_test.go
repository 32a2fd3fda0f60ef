package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glyphsOf(s string, x, y, size float64) []glyph {
	var out []glyph
	for _, r := range s {
		out = append(out, glyph{S: string(r), Font: "Helvetica", FontSize: size, X: x, Y: y, W: size * 0.5})
		x += size * 0.5
	}
	return out
}

func TestMergeGlyphs(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, mergeGlyphs(nil))
	})

	t.Run("single word", func(t *testing.T) {
		runs := mergeGlyphs(glyphsOf("Hello", 50, 700, 12))
		require.Len(t, runs, 1)
		assert.Equal(t, "Hello", runs[0].Text)
		assert.Equal(t, TransformMatrix{A: 12, D: 12, E: 50, F: 700}, runs[0].Transform)
		assert.InDelta(t, 30, runs[0].Width, 1e-9)
		assert.Equal(t, "Helvetica", runs[0].Font)
		assert.False(t, runs[0].EOL)
	})

	t.Run("word gap inserts a space", func(t *testing.T) {
		glyphs := append(glyphsOf("ab", 0, 100, 10), glyphsOf("cd", 14, 100, 10)...)
		runs := mergeGlyphs(glyphs)
		require.Len(t, runs, 1)
		assert.Equal(t, "ab cd", runs[0].Text)
	})

	t.Run("wide gap splits runs", func(t *testing.T) {
		glyphs := append(glyphsOf("ab", 0, 100, 10), glyphsOf("cd", 40, 100, 10)...)
		runs := mergeGlyphs(glyphs)
		require.Len(t, runs, 2)
		assert.Equal(t, "ab", runs[0].Text)
		assert.Equal(t, "cd", runs[1].Text)
		assert.False(t, runs[0].EOL)
	})

	t.Run("baseline change ends the line", func(t *testing.T) {
		glyphs := append(glyphsOf("one", 0, 700, 10), glyphsOf("two", 0, 686, 10)...)
		runs := mergeGlyphs(glyphs)
		require.Len(t, runs, 2)
		assert.True(t, runs[0].EOL)
		assert.False(t, runs[1].EOL)
	})

	t.Run("font change splits runs", func(t *testing.T) {
		glyphs := glyphsOf("ab", 0, 100, 10)
		bold := glyphsOf("c", 10, 100, 10)
		bold[0].Font = "Helvetica-Bold"
		runs := mergeGlyphs(append(glyphs, bold...))
		require.Len(t, runs, 2)
		assert.Equal(t, "Helvetica-Bold", runs[1].Font)
	})

	t.Run("text is NFC normalized", func(t *testing.T) {
		glyphs := []glyph{
			{S: "e", Font: "F", FontSize: 10, X: 0, Y: 0, W: 5},
			{S: "\u0301", Font: "F", FontSize: 10, X: 5, Y: 0, W: 0},
		}
		runs := mergeGlyphs(glyphs)
		require.Len(t, runs, 1)
		assert.Equal(t, "\u00e9", runs[0].Text)
	})
}
