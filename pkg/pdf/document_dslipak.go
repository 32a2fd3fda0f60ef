package pdf

import (
	"bytes"
	"fmt"

	dpdf "github.com/dslipak/pdf"
)

// openDslipak opens data with the dslipak/pdf library
func openDslipak(data []byte) (r *dpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to open PDF with dslipak: %v", rec)
		}
	}()

	r, err = dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with dslipak: %w", err)
	}
	return r, nil
}

// dslipakRuns extracts the text runs of page number
func dslipakRuns(r *dpdf.Reader, number int) (runs []TextRun, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("dslipak: page %d: %v", number, rec)
		}
	}()

	if number < 1 || number > r.NumPage() {
		return nil, fmt.Errorf("invalid page number: %d", number)
	}
	page := r.Page(number)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", number)
	}

	content := page.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{
			S:        t.S,
			Font:     t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
		})
	}

	return mergeGlyphs(glyphs), nil
}
