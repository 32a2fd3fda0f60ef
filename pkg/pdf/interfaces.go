package pdf

import (
	"context"
	"image/draw"
)

// Renderer loads PDF bytes into a Document. Any conforming backend satisfies
// the text layer; Engine is the bundled implementation.
type Renderer interface {
	// Load parses data and returns a handle to the document. It fails for
	// non-PDF, corrupt, encrypted or unsupported input.
	Load(ctx context.Context, data []byte) (Document, error)
}

// EncryptedRenderer is implemented by renderers that can open
// password-protected documents
type EncryptedRenderer interface {
	Renderer
	LoadEncrypted(ctx context.Context, data []byte, password string) (Document, error)
}

// Document represents a loaded PDF document
type Document interface {
	// PageCount returns the total number of pages
	PageCount() int

	// GetPage returns a specific page by number (1-based)
	GetPage(ctx context.Context, number int) (Page, error)

	// GetOutline returns the bookmark tree, or nil when the document has none
	GetOutline(ctx context.Context) ([]OutlineNode, error)

	// ResolveDestination looks up a named destination. A nil result with a
	// nil error means the name is unknown.
	ResolveDestination(ctx context.Context, name string) (*ExplicitDest, error)

	// PageIndexForRef returns the 0-based index of the referenced page
	PageIndexForRef(ctx context.Context, ref PageRef) (int, error)

	// Close releases resources associated with the document
	Close() error
}

// Page represents a single page in a PDF document
type Page interface {
	// GetPageNumber returns the page number (1-based)
	GetPageNumber() int

	// GetViewport returns the page frame at the given zoom scale
	GetViewport(scale float64) Viewport

	// Render rasterizes the page into target at viewport
	Render(ctx context.Context, target draw.Image, viewport Viewport) error

	// GetTextRuns returns the page's text runs in glyph space
	GetTextRuns(ctx context.Context) ([]TextRun, error)
}
