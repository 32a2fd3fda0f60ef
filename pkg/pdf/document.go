package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image/draw"
	"sync"

	dpdf "github.com/dslipak/pdf"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithPassword sets the password used for encrypted documents
func WithPassword(password string) EngineOption {
	return func(e *Engine) {
		e.password = password
	}
}

// WithRasterizer sets the rasterizer used by Page.Render
func WithRasterizer(r *PreviewRasterizer) EngineOption {
	return func(e *Engine) {
		e.rasterizer = r
	}
}

// Engine is the bundled Renderer. pdfcpu validates the file and supplies
// page dimensions; ledongthuc/pdf supplies text runs, the outline and
// destinations, with dslipak/pdf as a fallback text source.
type Engine struct {
	password   string
	rasterizer *PreviewRasterizer
}

// NewEngine creates an Engine
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{rasterizer: NewPreviewRasterizer()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load validates data with pdfcpu and opens it for text extraction
func (e *Engine) Load(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Create pdfcpu configuration
	conf := model.NewDefaultConfiguration()
	if e.password != "" {
		conf.UserPW = e.password
		conf.OwnerPW = e.password
	}

	pctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := api.ValidateContext(pctx); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	dims, err := pctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to get page dimensions: %w", err)
	}

	reader, err := openLedongthuc(data, e.password)
	if err != nil {
		return nil, err
	}

	doc := &EngineDocument{
		dims:       dims,
		pageCount:  pctx.PageCount,
		reader:     reader,
		rasterizer: e.rasterizer,
		runs:       make(map[int][]TextRun),
	}

	// The fallback reader is optional; ledongthuc already accepted the file
	if fallback, err := openDslipak(data); err == nil {
		doc.fallback = fallback
	}

	return doc, nil
}

// LoadEncrypted opens data with password, overriding WithPassword
func (e *Engine) LoadEncrypted(ctx context.Context, data []byte, password string) (Document, error) {
	c := *e
	c.password = password
	return c.Load(ctx, data)
}

// EngineDocument implements the Document interface for Engine
type EngineDocument struct {
	dims       []types.Dim
	pageCount  int
	rasterizer *PreviewRasterizer

	// mu serializes access to the readers, which are not safe for
	// concurrent use
	mu       sync.Mutex
	reader   *lpdf.Reader
	fallback *dpdf.Reader
	runs     map[int][]TextRun

	refsOnce sync.Once
	refs     map[PageRef]int
	refsErr  error
}

// PageCount returns the total number of pages
func (d *EngineDocument) PageCount() int {
	return d.pageCount
}

// GetPage returns a specific page by number (1-based)
func (d *EngineDocument) GetPage(ctx context.Context, number int) (Page, error) {
	if number < 1 || number > d.pageCount || number > len(d.dims) {
		return nil, fmt.Errorf("page number %d out of range [1, %d]", number, d.pageCount)
	}
	dim := d.dims[number-1]
	return &EnginePage{
		doc:    d,
		number: number,
		width:  dim.Width,
		height: dim.Height,
	}, nil
}

// GetOutline returns the document outline
func (d *EngineDocument) GetOutline(ctx context.Context) ([]OutlineNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return nil, errClosed
	}
	return ledongthucOutline(d.reader)
}

// ResolveDestination looks up a named destination
func (d *EngineDocument) ResolveDestination(ctx context.Context, name string) (*ExplicitDest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return nil, errClosed
	}
	return ledongthucNamedDest(d.reader, name)
}

// PageIndexForRef maps a page reference to its 0-based index
func (d *EngineDocument) PageIndexForRef(ctx context.Context, ref PageRef) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.refsOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.reader == nil {
			d.refsErr = errClosed
			return
		}
		d.refs, d.refsErr = ledongthucPageRefs(d.reader)
	})
	if d.refsErr != nil {
		return 0, d.refsErr
	}
	idx, ok := d.refs[ref]
	if !ok {
		return 0, errRefNotFound
	}
	return idx, nil
}

// Close releases resources associated with the document
func (d *EngineDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reader = nil
	d.fallback = nil
	d.runs = nil
	return nil
}

// textRuns returns the cached runs of page number, extracting them on first
// use. ledongthuc is tried first, dslipak second.
func (d *EngineDocument) textRuns(number int) ([]TextRun, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reader == nil {
		return nil, errClosed
	}
	if runs, ok := d.runs[number]; ok {
		return runs, nil
	}

	runs, err := ledongthucRuns(d.reader, number)
	if err != nil && d.fallback != nil {
		var ferr error
		if runs, ferr = dslipakRuns(d.fallback, number); ferr == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract text runs: %w", err)
	}

	d.runs[number] = runs
	return runs, nil
}

// EnginePage implements the Page interface for Engine
type EnginePage struct {
	doc    *EngineDocument
	number int
	width  float64
	height float64
}

// GetPageNumber returns the page number (1-based)
func (p *EnginePage) GetPageNumber() int {
	return p.number
}

// GetViewport returns the page frame at scale
func (p *EnginePage) GetViewport(scale float64) Viewport {
	return Viewport{
		Width:  p.width * scale,
		Height: p.height * scale,
		Scale:  scale,
	}
}

// Render rasterizes a text preview of the page into target. A page whose
// text cannot be read still renders its background.
func (p *EnginePage) Render(ctx context.Context, target draw.Image, viewport Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc.rasterizer == nil {
		return errNoRasterizer
	}
	runs, err := p.doc.textRuns(p.number)
	if err == errClosed {
		return err
	}
	return p.doc.rasterizer.Rasterize(target, viewport, runs)
}

// GetTextRuns returns the page's text runs
func (p *EnginePage) GetTextRuns(ctx context.Context) ([]TextRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.doc.textRuns(p.number)
}
