// Package pdftest provides an in-memory pdf.Renderer for tests
package pdftest

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/draw"
	"sync"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

// ErrRejected is returned by Renderer.Load when Reject is set
var ErrRejected = errors.New("pdftest: document rejected")

// Page is a scripted page. A non-nil gate channel blocks the matching call
// until it is closed or receives a value. RenderHook, when set, runs before
// every rasterization and may block or fail it. ViewportHook runs at the
// start of every GetViewport and may block it.
type Page struct {
	Width, Height float64
	Runs          []pdf.TextRun
	RenderErr     error
	TextErr       error
	RenderGate    chan struct{}
	TextGate      chan struct{}
	RenderHook    func(ctx context.Context, viewport pdf.Viewport) error
	ViewportHook  func(scale float64)
}

// Document is a scripted pdf.Document
type Document struct {
	mu          sync.Mutex
	Pages       []*Page
	Outline     []pdf.OutlineNode
	OutlineErr  error
	Named       map[string]pdf.ExplicitDest
	Refs        map[pdf.PageRef]int
	Closed      bool
	RenderCalls map[int]int
}

// Renderer loads a fixed Document regardless of the bytes given. When
// Password is set, only LoadEncrypted with that password succeeds.
// LoadHook, when set, runs after Doc is read and may block or fail the load.
type Renderer struct {
	Doc      *Document
	Reject   bool
	Password string
	Loads    int
	LoadHook func(ctx context.Context) error
}

// Load returns r.Doc
func (r *Renderer) Load(ctx context.Context, data []byte) (pdf.Document, error) {
	return r.load(ctx, r.Reject || r.Password != "")
}

// LoadEncrypted returns r.Doc when password matches r.Password
func (r *Renderer) LoadEncrypted(ctx context.Context, data []byte, password string) (pdf.Document, error) {
	return r.load(ctx, r.Reject || password != r.Password)
}

func (r *Renderer) load(ctx context.Context, reject bool) (pdf.Document, error) {
	r.Loads++
	doc := r.Doc
	if r.LoadHook != nil {
		if err := r.LoadHook(ctx); err != nil {
			return nil, err
		}
	}
	if reject {
		return nil, ErrRejected
	}
	return doc, nil
}

// NewDocument returns a document of n letter-sized pages with no text
func NewDocument(n int) *Document {
	d := &Document{RenderCalls: make(map[int]int)}
	for i := 0; i < n; i++ {
		d.Pages = append(d.Pages, &Page{Width: 612, Height: 792})
	}
	return d
}

func (d *Document) PageCount() int {
	return len(d.Pages)
}

func (d *Document) GetPage(ctx context.Context, number int) (pdf.Page, error) {
	if number < 1 || number > len(d.Pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", number, len(d.Pages))
	}
	return &page{doc: d, number: number, p: d.Pages[number-1]}, nil
}

func (d *Document) GetOutline(ctx context.Context) ([]pdf.OutlineNode, error) {
	return d.Outline, d.OutlineErr
}

func (d *Document) ResolveDestination(ctx context.Context, name string) (*pdf.ExplicitDest, error) {
	dest, ok := d.Named[name]
	if !ok {
		return nil, nil
	}
	return &dest, nil
}

func (d *Document) PageIndexForRef(ctx context.Context, ref pdf.PageRef) (int, error) {
	idx, ok := d.Refs[ref]
	if !ok {
		return 0, fmt.Errorf("unknown page ref %q", ref)
	}
	return idx, nil
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// Renders returns how many times page number was rasterized
func (d *Document) Renders(number int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.RenderCalls[number]
}

type page struct {
	doc    *Document
	number int
	p      *Page
}

func (p *page) GetPageNumber() int {
	return p.number
}

func (p *page) GetViewport(scale float64) pdf.Viewport {
	if p.p.ViewportHook != nil {
		p.p.ViewportHook(scale)
	}
	return pdf.Viewport{Width: p.p.Width * scale, Height: p.p.Height * scale, Scale: scale}
}

func (p *page) Render(ctx context.Context, target draw.Image, viewport pdf.Viewport) error {
	if err := wait(ctx, p.p.RenderGate); err != nil {
		return err
	}
	if p.p.RenderHook != nil {
		if err := p.p.RenderHook(ctx, viewport); err != nil {
			return err
		}
	}
	p.doc.mu.Lock()
	p.doc.RenderCalls[p.number]++
	p.doc.mu.Unlock()
	if p.p.RenderErr != nil {
		return p.p.RenderErr
	}
	target.Set(0, 0, color.Black)
	return nil
}

func (p *page) GetTextRuns(ctx context.Context) ([]pdf.TextRun, error) {
	if err := wait(ctx, p.p.TextGate); err != nil {
		return nil, err
	}
	if p.p.TextErr != nil {
		return nil, p.p.TextErr
	}
	return p.p.Runs, nil
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is a convenience constructor for an upright text run
func Run(text string, size, x, y float64) pdf.TextRun {
	return pdf.TextRun{
		Text:      text,
		Transform: pdf.TransformMatrix{A: size, D: size, E: x, F: y},
		Width:     float64(len(text)) * size * 0.5,
	}
}
