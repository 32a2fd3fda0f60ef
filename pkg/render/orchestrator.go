// Package render composes a page's raster image and text overlay
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/overlay"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

// PageSurface is one composed page: the rasterized image plus the overlay
// to mount over it
type PageSurface struct {
	Page       int
	Viewport   pdf.Viewport
	Generation uint64
	Image      image.Image      // nil for HTMLTextLayer
	Overlay    *overlay.Overlay // nil for CanvasOnly or when degraded
	Degraded   *TextExtractionDegraded
}

// PageSession is the committed render state of one page
type PageSession struct {
	Page       int
	Viewport   pdf.Viewport
	Generation uint64
	Runs       []pdf.TextRun
	Surface    *PageSurface
	Err        error // last committed PageRenderError, if any
	Stale      bool  // set once Viewport no longer matches the current scale
}

// CommitFunc observes a page's committed surface, replacing prev (either
// may be nil). It runs while the orchestrator lock is held and must not
// call back into the orchestrator.
type CommitFunc func(page int, prev, next *PageSurface)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithStrategy sets the render strategy
func WithStrategy(s Strategy) Option {
	return func(o *Orchestrator) {
		o.strategy = s
	}
}

// WithBuilder sets the overlay builder
func WithBuilder(b *overlay.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = b
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithCommitHook registers fn to observe committed surfaces
func WithCommitHook(fn CommitFunc) Option {
	return func(o *Orchestrator) {
		o.onCommit = fn
	}
}

// Orchestrator renders pages of one document. Renders of different pages
// run independently; for the same page only the most recently requested
// render is committed.
type Orchestrator struct {
	doc      pdf.Document
	builder  *overlay.Builder
	strategy Strategy
	log      logrus.FieldLogger
	onCommit CommitFunc

	mu          sync.Mutex
	generations map[int]uint64
	sessions    map[int]*PageSession
}

// NewOrchestrator creates an orchestrator for doc
func NewOrchestrator(doc pdf.Document, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		doc:         doc,
		strategy:    Hybrid,
		generations: make(map[int]uint64),
		sessions:    make(map[int]*PageSession),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if o.builder == nil {
		o.builder = overlay.NewBuilder(overlay.WithLogger(o.log))
	}
	return o
}

// Strategy returns the configured strategy
func (o *Orchestrator) Strategy() Strategy {
	return o.strategy
}

// RenderPage renders page number at viewport. Rasterization and text
// retrieval run concurrently; the surface is composed only after both
// finish. A failed rasterization yields a *PageRenderError; failed text
// retrieval degrades to an image-only surface. If a newer render of the page
// was requested meanwhile the result is discarded and ErrSuperseded returned.
func (o *Orchestrator) RenderPage(ctx context.Context, number int, viewport pdf.Viewport) (*PageSurface, error) {
	return o.RenderPageFunc(ctx, number, func(pdf.Page) pdf.Viewport {
		return viewport
	})
}

// RenderPageFunc is RenderPage with the viewport computed by viewportFor
// once the render holds its generation. A scale read inside viewportFor is
// therefore either current or superseded by the Invalidate that changed it.
func (o *Orchestrator) RenderPageFunc(ctx context.Context, number int, viewportFor func(pdf.Page) pdf.Viewport) (*PageSurface, error) {
	gen := o.nextGeneration(number)
	log := o.log.WithFields(logrus.Fields{"page": number, "generation": gen})

	if n := o.doc.PageCount(); number < 1 || number > n {
		return nil, o.fail(log, number, gen, pdf.Viewport{}, fmt.Errorf("page number %d out of range [1, %d]", number, n))
	}
	page, err := o.doc.GetPage(ctx, number)
	if err != nil {
		return nil, o.fail(log, number, gen, pdf.Viewport{}, fmt.Errorf("failed to get page: %w", err))
	}
	viewport := viewportFor(page)
	log = log.WithField("scale", viewport.Scale)

	var (
		wg        sync.WaitGroup
		img       *image.RGBA
		rasterErr error
		runs      []pdf.TextRun
		textErr   error
	)

	if o.strategy.rasterizes() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, rasterErr = rasterize(ctx, page, viewport)
		}()
	}
	if o.strategy.extractsText() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs, textErr = page.GetTextRuns(ctx)
		}()
	}
	wg.Wait()

	if rasterErr != nil {
		return nil, o.fail(log, number, gen, viewport, rasterErr)
	}

	surface := &PageSurface{
		Page:       number,
		Viewport:   viewport,
		Generation: gen,
	}
	if img != nil {
		surface.Image = img
	}

	if o.strategy.extractsText() {
		if textErr != nil {
			surface.Degraded = &TextExtractionDegraded{Page: number, Err: textErr}
			log.WithField("error", textErr).Warn("text extraction unavailable, showing image only")
		} else {
			surface.Overlay = o.builder.Build(number, viewport, runs)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generations[number] != gen {
		log.Debug("discarding stale render")
		return nil, ErrSuperseded
	}
	prev := o.sessions[number]
	o.sessions[number] = &PageSession{
		Page:       number,
		Viewport:   viewport,
		Generation: gen,
		Runs:       runs,
		Surface:    surface,
	}
	o.commitLocked(number, prev, surface)

	return surface, nil
}

// Invalidate supersedes every in-flight render and marks every committed
// session stale, as after a scale change
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for page := range o.generations {
		o.generations[page]++
	}
	for _, s := range o.sessions {
		s.Stale = true
	}
}

// Session returns a copy of the committed state of page
func (o *Orchestrator) Session(page int) (PageSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[page]
	if !ok {
		return PageSession{}, false
	}
	return *s, true
}

// Pages returns the pages of the document with a committed session, in
// ascending order
func (o *Orchestrator) Pages() []int {
	n := o.doc.PageCount()
	o.mu.Lock()
	defer o.mu.Unlock()
	pages := make([]int, 0, len(o.sessions))
	for page := range o.sessions {
		if page >= 1 && page <= n {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// Generation returns the latest generation issued for page
func (o *Orchestrator) Generation(page int) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generations[page]
}

// Reset drops every page session, reporting each committed surface as
// replaced by nil
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for page, s := range o.sessions {
		o.generations[page]++
		o.commitLocked(page, s, nil)
	}
	o.sessions = make(map[int]*PageSession)
}

func (o *Orchestrator) nextGeneration(page int) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generations[page]++
	return o.generations[page]
}

// fail records a PageRenderError for a current render and returns it. Stale
// failures are discarded like stale successes.
func (o *Orchestrator) fail(log logrus.FieldLogger, page int, gen uint64, viewport pdf.Viewport, cause error) error {
	perr := &PageRenderError{Page: page, Err: cause}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generations[page] != gen {
		log.WithField("error", cause).Debug("discarding stale render failure")
		return ErrSuperseded
	}
	log.WithField("error", cause).Error("page render failed")

	prev := o.sessions[page]
	o.sessions[page] = &PageSession{
		Page:       page,
		Viewport:   viewport,
		Generation: gen,
		Err:        perr,
	}
	o.commitLocked(page, prev, nil)
	return perr
}

func (o *Orchestrator) commitLocked(page int, prev *PageSession, next *PageSurface) {
	if o.onCommit == nil {
		return
	}
	var prevSurface *PageSurface
	if prev != nil {
		prevSurface = prev.Surface
	}
	o.onCommit(page, prevSurface, next)
}

func rasterize(ctx context.Context, page pdf.Page, viewport pdf.Viewport) (*image.RGBA, error) {
	w := int(math.Ceil(viewport.Width))
	h := int(math.Ceil(viewport.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty viewport %vx%v", viewport.Width, viewport.Height)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := page.Render(ctx, img, viewport); err != nil {
		return nil, fmt.Errorf("failed to rasterize: %w", err)
	}
	return img, nil
}

// IsPageRenderError reports whether err is a *PageRenderError
func IsPageRenderError(err error) bool {
	var perr *PageRenderError
	return errors.As(err, &perr)
}
