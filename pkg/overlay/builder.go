package overlay

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/geometry"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/layout"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithProjector sets the run projector
func WithProjector(p geometry.Projector) BuilderOption {
	return func(b *Builder) {
		b.projector = p
	}
}

// WithClusterer sets the paragraph clusterer
func WithClusterer(c *layout.ParagraphClusterer) BuilderOption {
	return func(b *Builder) {
		b.clusterer = c
	}
}

// WithLogger sets the logger used for skipped runs
func WithLogger(log logrus.FieldLogger) BuilderOption {
	return func(b *Builder) {
		b.log = log
	}
}

// Builder turns a page's raw text runs into an Overlay
type Builder struct {
	projector geometry.Projector
	clusterer *layout.ParagraphClusterer
	log       logrus.FieldLogger
}

// NewBuilder creates a builder with default projection and clustering
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		projector: geometry.Projector{MinFontSize: geometry.MinFontSize},
		clusterer: layout.NewParagraphClusterer(),
		log:       discardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build projects runs into viewport, clusters them and returns the page
// overlay. Runs with malformed geometry are skipped and logged; they never
// abort the rest of the page. Whitespace-only runs stay in the leaf list
// but do not seed regions on their own.
func (b *Builder) Build(page int, viewport pdf.Viewport, runs []pdf.TextRun) *Overlay {
	o := &Overlay{
		Page:   page,
		Bounds: viewport.Bounds(),
	}

	projected := make([]geometry.ScreenRun, 0, len(runs))
	for i, run := range runs {
		sr, err := b.projector.Project(run, viewport)
		if err != nil {
			msg := "skipping text run"
			var gerr *geometry.GeometryError
			if errors.As(err, &gerr) {
				gerr.Page, gerr.Run = page, i
				msg = "skipping text run with malformed geometry"
			}
			b.log.WithFields(logrus.Fields{
				"page":  page,
				"run":   i,
				"error": err,
			}).Warn(msg)
			o.Skipped++
			o.Errors = append(o.Errors, err)
			continue
		}
		sr.Index = i
		projected = append(projected, sr)
	}
	o.Runs = projected

	var content []geometry.ScreenRun
	for _, r := range projected {
		if !blank(r.Text) {
			content = append(content, r)
		}
	}

	for i, p := range b.clusterer.Cluster(content) {
		o.Regions = append(o.Regions, newRegion(page, i, p, projected))
	}

	return o
}

func blank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
