// Package pdftextlayer builds selectable, paragraph-level text layers over
// rendered PDF pages
package pdftextlayer

import (
	"context"
	"fmt"
	"os"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/session"
)

// Re-export types for the public API
type (
	Session                    = session.Session
	Viewer                     = session.Viewer
	Option                     = session.Option
	PageResult                 = session.PageResult
	InvalidFileError           = session.InvalidFileError
	DocumentLoadError          = session.DocumentLoadError
	DestinationResolutionError = session.DestinationResolutionError
	Destination                = pdf.Destination
	OutlineNode                = pdf.OutlineNode
	Viewport                   = pdf.Viewport
)

// Re-export option functions
var (
	WithConfig        = session.WithConfig
	WithLogger        = session.WithLogger
	WithMIMEType      = session.WithMIMEType
	WithPassword      = session.WithPassword
	WithSelectionSink = session.WithSelectionSink
	WithDispatcher    = session.WithDispatcher
)

// Open loads PDF bytes with the bundled engine
func Open(ctx context.Context, data []byte, opts ...Option) (*Session, error) {
	return session.Open(ctx, pdf.NewEngine(), data, opts...)
}

// OpenFile reads and loads a PDF file
func OpenFile(ctx context.Context, path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Open(ctx, data, opts...)
}

// NewViewer creates a viewer backed by the bundled engine
func NewViewer(opts ...Option) *Viewer {
	return session.NewViewer(pdf.NewEngine(), opts...)
}
