// Package session owns a loaded document: its scale, visible page, outline
// and the render orchestration of its pages.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"runtime"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/config"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/layout"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/overlay"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/render"
)

const pdfMIMEType = "application/pdf"

// Option configures Open
type Option func(*options)

type options struct {
	cfg        config.Config
	log        logrus.FieldLogger
	mimeType   string
	password   string
	sink       overlay.SelectionSink
	dispatcher *overlay.Dispatcher
}

// WithConfig sets the viewer configuration
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMIMEType declares the input's media type. Without it the type is
// sniffed from the data.
func WithMIMEType(mimeType string) Option {
	return func(o *options) {
		o.mimeType = mimeType
	}
}

// WithPassword opens an encrypted document. The renderer must implement
// pdf.EncryptedRenderer.
func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// WithSelectionSink sets where selected paragraphs are applied
func WithSelectionSink(sink overlay.SelectionSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithDispatcher sets the pointer dispatcher overlays are mounted on.
// Defaults to overlay.DefaultDispatcher.
func WithDispatcher(d *overlay.Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// PageResult is the outcome of rendering one page in a batch
type PageResult struct {
	Page    int
	Surface *render.PageSurface
	Err     error
}

// Session is an open document
type Session struct {
	doc        pdf.Document
	cfg        config.Config
	log        logrus.FieldLogger
	scope      overlay.Scope
	sink       overlay.SelectionSink
	dispatcher *overlay.Dispatcher
	orch       *render.Orchestrator

	mu          sync.Mutex
	closed      bool
	scale       float64
	visible     int
	controllers map[int]*overlay.SelectionController

	outlineMu     sync.Mutex
	outline       []pdf.OutlineNode
	outlineLoaded bool

	listenersMu sync.Mutex
	onVisible   []func(int)
	onSelection []func(*overlay.Region)
}

// Open checks that data is a PDF and loads it with renderer. It returns an
// *InvalidFileError when the type check fails and a *DocumentLoadError when
// the renderer rejects the bytes.
func Open(ctx context.Context, renderer pdf.Renderer, data []byte, opts ...Option) (*Session, error) {
	o := options{cfg: config.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	if o.sink == nil {
		o.sink = overlay.NopSink{}
	}
	if o.dispatcher == nil {
		o.dispatcher = overlay.DefaultDispatcher()
	}

	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	scope, err := overlay.ParseScope(o.cfg.SelectionScope)
	if err != nil {
		return nil, err
	}
	strategy, err := render.ParseStrategy(o.cfg.RenderStrategy)
	if err != nil {
		return nil, err
	}

	if err := checkPDF(data, o.mimeType); err != nil {
		o.log.WithError(err).Warn("rejected input")
		return nil, err
	}

	doc, err := load(ctx, renderer, data, o.password)
	if err == nil && doc.PageCount() < 1 {
		doc.Close()
		err = errors.New("document has no pages")
	}
	if err != nil {
		o.log.WithError(err).Error("document load failed")
		return nil, &DocumentLoadError{Err: err}
	}

	s := &Session{
		doc:         doc,
		cfg:         o.cfg,
		log:         o.log,
		scope:       scope,
		sink:        o.sink,
		dispatcher:  o.dispatcher,
		scale:       o.cfg.DefaultScale,
		visible:     1,
		controllers: make(map[int]*overlay.SelectionController),
	}

	builder := overlay.NewBuilder(
		overlay.WithProjector(geometry.Projector{MinFontSize: o.cfg.MinFontSize}),
		overlay.WithClusterer(layout.NewParagraphClusterer(
			layout.WithSameLineThreshold(o.cfg.SameLineThreshold),
			layout.WithGapRatio(o.cfg.ParagraphGapRatio),
		)),
		overlay.WithLogger(o.log),
	)
	s.orch = render.NewOrchestrator(doc,
		render.WithStrategy(strategy),
		render.WithBuilder(builder),
		render.WithLogger(o.log),
		render.WithCommitHook(s.mount),
	)

	o.log.WithFields(logrus.Fields{
		"pages":    doc.PageCount(),
		"strategy": strategy.String(),
		"scope":    string(scope),
	}).Info("document loaded")

	return s, nil
}

func checkPDF(data []byte, declared string) error {
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err != nil || mt != pdfMIMEType {
			return &InvalidFileError{MIMEType: declared}
		}
		return nil
	}
	if sniffed := http.DetectContentType(data); sniffed != pdfMIMEType {
		return &InvalidFileError{MIMEType: sniffed}
	}
	return nil
}

func load(ctx context.Context, renderer pdf.Renderer, data []byte, password string) (pdf.Document, error) {
	if password == "" {
		return renderer.Load(ctx, data)
	}
	er, ok := renderer.(pdf.EncryptedRenderer)
	if !ok {
		return nil, errors.New("renderer cannot open encrypted documents")
	}
	return er.LoadEncrypted(ctx, data, password)
}

// PageCount returns the number of pages
func (s *Session) PageCount() int {
	return s.doc.PageCount()
}

// Scope returns the selection exclusivity scope
func (s *Session) Scope() overlay.Scope {
	return s.scope
}

// Dispatcher returns the dispatcher the session's overlays are mounted on
func (s *Session) Dispatcher() *overlay.Dispatcher {
	return s.dispatcher
}

// Scale returns the current zoom factor
func (s *Session) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// SetScale clamps factor to the configured range and makes it current.
// A changed scale supersedes every in-flight render and marks committed
// page sessions stale; Refresh re-renders the pages already shown.
func (s *Session) SetScale(factor float64) float64 {
	s.mu.Lock()
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		cur := s.scale
		s.mu.Unlock()
		return cur
	}
	clamped := s.cfg.ClampScale(factor)
	changed := clamped != s.scale
	s.scale = clamped
	s.mu.Unlock()

	if changed {
		s.orch.Invalidate()
		s.log.WithField("scale", clamped).Debug("scale changed")
	}
	return clamped
}

// Render renders page number at the current scale. The scale is read after
// the render is registered, so a SetScale racing with it supersedes it
// rather than letting the old scale commit.
func (s *Session) Render(ctx context.Context, number int) (*render.PageSurface, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.orch.RenderPageFunc(ctx, number, func(page pdf.Page) pdf.Viewport {
		return page.GetViewport(s.Scale())
	})
}

// RenderAt renders page number at an explicit viewport
func (s *Session) RenderAt(ctx context.Context, number int, viewport pdf.Viewport) (*render.PageSurface, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.orch.RenderPage(ctx, number, viewport)
}

// RenderResponsive renders page number at the current scale reduced to fit
// containerWidth, never below the configured minimum scale
func (s *Session) RenderResponsive(ctx context.Context, number int, containerWidth float64) (*render.PageSurface, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.orch.RenderPageFunc(ctx, number, func(page pdf.Page) pdf.Viewport {
		natural := page.GetViewport(1).Width
		scale := geometry.FitScale(natural, s.Scale(), containerWidth, s.cfg.MinScale, s.cfg.ResponsivePadding)
		return page.GetViewport(scale)
	})
}

// RenderAll renders every page concurrently. A failed page is reported in
// its own result and does not affect the others.
func (s *Session) RenderAll(ctx context.Context) []PageResult {
	pages := make([]int, s.PageCount())
	for i := range pages {
		pages[i] = i + 1
	}
	return s.renderPages(ctx, pages)
}

// Refresh re-renders, at the current scale, every page that has been
// rendered before
func (s *Session) Refresh(ctx context.Context) []PageResult {
	return s.renderPages(ctx, s.orch.Pages())
}

func (s *Session) renderPages(ctx context.Context, pages []int) []PageResult {
	results := make([]PageResult, len(pages))
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

	var wg sync.WaitGroup
	for i, number := range pages {
		wg.Add(1)
		go func(i, number int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			surface, err := s.Render(ctx, number)
			results[i] = PageResult{Page: number, Surface: surface, Err: err}
		}(i, number)
	}
	wg.Wait()

	return results
}

// PageState returns the committed render state of page number
func (s *Session) PageState(number int) (render.PageSession, bool) {
	return s.orch.Session(number)
}

// VisiblePage returns the active page
func (s *Session) VisiblePage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// SetVisiblePage makes number the active page and notifies OnPageVisible
// subscribers when it changes
func (s *Session) SetVisiblePage(number int) error {
	if number < 1 || number > s.PageCount() {
		return fmt.Errorf("page number %d out of range [1, %d]", number, s.PageCount())
	}
	s.mu.Lock()
	changed := s.visible != number
	s.visible = number
	s.mu.Unlock()

	if changed {
		s.listenersMu.Lock()
		listeners := slices.Clone(s.onVisible)
		s.listenersMu.Unlock()
		for _, fn := range listeners {
			fn(number)
		}
	}
	return nil
}

// NextPage advances the active page, stopping at the last page
func (s *Session) NextPage() int {
	next := min(s.VisiblePage()+1, s.PageCount())
	s.SetVisiblePage(next)
	return next
}

// PrevPage moves the active page back, stopping at the first page
func (s *Session) PrevPage() int {
	prev := max(s.VisiblePage()-1, 1)
	s.SetVisiblePage(prev)
	return prev
}

// OnPageVisible subscribes fn to active page changes
func (s *Session) OnPageVisible(fn func(page int)) {
	s.listenersMu.Lock()
	s.onVisible = append(s.onVisible, fn)
	s.listenersMu.Unlock()
}

// OnSelectionChanged subscribes fn to selection changes. fn receives nil
// when the selection is cleared. It may be called while a render is being
// committed and must not start renders synchronously.
func (s *Session) OnSelectionChanged(fn func(region *overlay.Region)) {
	s.listenersMu.Lock()
	s.onSelection = append(s.onSelection, fn)
	s.listenersMu.Unlock()
}

func (s *Session) emitSelection(r *overlay.Region) {
	s.listenersMu.Lock()
	listeners := slices.Clone(s.onSelection)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(r)
	}
}

// Controller returns the selection controller that owns page number. In
// document scope every page shares one controller.
func (s *Session) Controller(number int) *overlay.SelectionController {
	key := 0
	if s.scope == overlay.ScopePage {
		key = number
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[key]
	if !ok {
		c = overlay.NewSelectionController(s.sink, s.log)
		c.OnSelectionChanged(s.emitSelection)
		s.controllers[key] = c
	}
	return c
}

// mount swaps a page's overlay on the dispatcher when a render commits.
// Hover and selection held by the replaced overlay are dropped.
func (s *Session) mount(page int, prev, next *render.PageSurface) {
	if prev != nil && prev.Overlay != nil {
		s.dispatcher.Unregister(prev.Overlay)
	}
	c := s.Controller(page)
	c.Forget(page)
	if next != nil && next.Overlay != nil {
		next.Overlay.Attach(c)
		s.dispatcher.Register(next.Overlay)
	}
}

// Outline returns the document's bookmark tree. The first successful
// result is cached.
func (s *Session) Outline(ctx context.Context) ([]pdf.OutlineNode, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	s.outlineMu.Lock()
	defer s.outlineMu.Unlock()
	if s.outlineLoaded {
		return s.outline, nil
	}
	outline, err := s.doc.GetOutline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get outline: %w", err)
	}
	s.outline = outline
	s.outlineLoaded = true
	return outline, nil
}

// ResolveDestination maps dest to a 1-based page number. Failures are
// returned as *DestinationResolutionError.
func (s *Session) ResolveDestination(ctx context.Context, dest pdf.Destination) (int, error) {
	fail := func(err error) (int, error) {
		return 0, &DestinationResolutionError{Dest: destLabel(dest), Err: err}
	}
	if s.isClosed() {
		return fail(ErrClosed)
	}

	explicit := dest.Explicit
	if explicit == nil {
		if dest.Name == "" {
			return fail(errUnknownDestination)
		}
		resolved, err := s.doc.ResolveDestination(ctx, dest.Name)
		if err != nil {
			return fail(err)
		}
		if resolved == nil {
			return fail(errUnknownDestination)
		}
		explicit = resolved
	}

	index := explicit.PageIndex
	if explicit.Ref != "" {
		idx, err := s.doc.PageIndexForRef(ctx, explicit.Ref)
		if err != nil {
			return fail(err)
		}
		index = idx
	}

	number := index + 1
	if number < 1 || number > s.PageCount() {
		return fail(fmt.Errorf("page index %d out of range", index))
	}
	return number, nil
}

// JumpToDestination makes the page dest points to visible. An unresolvable
// destination is logged and leaves the session unchanged.
func (s *Session) JumpToDestination(ctx context.Context, dest pdf.Destination) (int, bool) {
	number, err := s.ResolveDestination(ctx, dest)
	if err != nil {
		s.log.WithError(err).Warn("not navigating")
		return 0, false
	}
	if err := s.SetVisiblePage(number); err != nil {
		s.log.WithError(err).Warn("not navigating")
		return 0, false
	}
	return number, true
}

func destLabel(dest pdf.Destination) string {
	switch {
	case dest.Explicit != nil && dest.Explicit.Ref != "":
		return "ref " + string(dest.Explicit.Ref)
	case dest.Explicit != nil:
		return fmt.Sprintf("page index %d", dest.Explicit.PageIndex)
	case dest.Name != "":
		return fmt.Sprintf("%q", dest.Name)
	}
	return "(empty)"
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unmounts every overlay and releases the document
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.orch.Reset()
	if err := s.doc.Close(); err != nil {
		return fmt.Errorf("failed to close document: %w", err)
	}
	return nil
}
