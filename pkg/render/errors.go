package render

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by RenderPage when a newer render of the same
// page, or an invalidation, happened before this one finished. The result
// was discarded.
var ErrSuperseded = errors.New("render: superseded by a newer render")

// PageRenderError reports that one page could not be rasterized. It never
// affects other pages.
type PageRenderError struct {
	Page int
	Err  error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("render: page %d: %v", e.Page, e.Err)
}

func (e *PageRenderError) Unwrap() error {
	return e.Err
}

// TextExtractionDegraded records that a page's text runs were unavailable.
// The page is still shown, without an interactive overlay.
type TextExtractionDegraded struct {
	Page int
	Err  error
}

func (e *TextExtractionDegraded) Error() string {
	return fmt.Sprintf("render: page %d: text extraction degraded: %v", e.Page, e.Err)
}

func (e *TextExtractionDegraded) Unwrap() error {
	return e.Err
}
