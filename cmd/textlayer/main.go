package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdftextlayer-golang"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/config"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/overlay"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/render"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/session"
)

const previewWidth = 60

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	scale := flag.Float64("scale", 0, "zoom factor (default from config)")
	width := flag.Float64("width", 0, "fit pages to this container width in pixels")
	pageNum := flag.Int("page", 0, "render only this page")
	pngDir := flag.String("png", "", "write rendered pages as PNG into this directory")
	showOutline := flag.Bool("outline", false, "print the document outline")
	copyIndex := flag.Int("copy", -1, "select paragraph i of the page and copy it to the clipboard")
	password := flag.String("password", "", "password for encrypted documents")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: textlayer [flags] <pdf_file>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithError(err).Warn("unknown log level, using info")
	}

	opts := []session.Option{
		session.WithConfig(cfg),
		session.WithLogger(log),
	}
	if *password != "" {
		opts = append(opts, session.WithPassword(*password))
	}
	if *copyIndex >= 0 {
		opts = append(opts, session.WithSelectionSink(overlay.ClipboardSink{}))
	}

	ctx := context.Background()
	s, err := pdftextlayer.OpenFile(ctx, flag.Arg(0), opts...)
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer s.Close()

	if *scale > 0 {
		s.SetScale(*scale)
	}

	fmt.Printf("Document has %d pages (scale %.2f)\n\n", s.PageCount(), s.Scale())

	if *showOutline {
		outline, err := s.Outline(ctx)
		if err != nil {
			log.WithError(err).Warn("outline unavailable")
		}
		if len(outline) > 0 {
			fmt.Println("=== Outline ===")
			printOutline(ctx, s, outline, 0)
			fmt.Println()
		}
	}

	pages := []int{*pageNum}
	if *pageNum == 0 {
		pages = pages[:0]
		for i := 1; i <= s.PageCount(); i++ {
			pages = append(pages, i)
		}
	}

	for _, n := range pages {
		var surface *render.PageSurface
		if *width > 0 {
			surface, err = s.RenderResponsive(ctx, n, *width)
		} else {
			surface, err = s.Render(ctx, n)
		}
		if err != nil {
			fmt.Printf("=== Page %d ===\nRender failed: %v\n\n", n, err)
			continue
		}

		printSurface(surface)

		if *pngDir != "" && surface.Image != nil {
			if err := writePNG(*pngDir, surface); err != nil {
				log.WithError(err).WithField("page", n).Error("failed to write image")
			}
		}

		if *copyIndex >= 0 && len(pages) == 1 {
			copyParagraph(s, surface, *copyIndex)
		}
	}
}

func printSurface(surface *render.PageSurface) {
	fmt.Printf("=== Page %d ===\n", surface.Page)
	fmt.Printf("Viewport: %.0f x %.0f at %.2f\n", surface.Viewport.Width, surface.Viewport.Height, surface.Viewport.Scale)

	switch {
	case surface.Degraded != nil:
		fmt.Printf("Text layer unavailable: %v\n\n", surface.Degraded.Err)
		return
	case surface.Overlay == nil:
		fmt.Println("No text layer")
		fmt.Println()
		return
	}

	o := surface.Overlay
	fmt.Printf("Runs: %d, paragraphs: %d", len(o.Runs), len(o.Regions))
	if o.Skipped > 0 {
		fmt.Printf(", skipped: %d", o.Skipped)
	}
	fmt.Println()

	for _, r := range o.Regions {
		text := strings.Join(strings.Fields(r.Text()), " ")
		fmt.Printf("  [%d] (%.1f, %.1f)-(%.1f, %.1f) %s\n",
			r.ID.Index, r.BBox.X0, r.BBox.Y0, r.BBox.X1, r.BBox.Y1,
			runewidth.Truncate(text, previewWidth, "..."))
	}
	fmt.Println()
}

func printOutline(ctx context.Context, s *session.Session, nodes []pdftextlayer.OutlineNode, depth int) {
	for _, node := range nodes {
		target := "-"
		if page, err := s.ResolveDestination(ctx, node.Destination); err == nil {
			target = fmt.Sprintf("p.%d", page)
		}
		indent := strings.Repeat("  ", depth)
		title := runewidth.Truncate(node.Title, previewWidth-len(indent), "...")
		fmt.Printf("%s%s %s\n", indent, runewidth.FillRight(title, previewWidth-len(indent)), target)
		printOutline(ctx, s, node.Children, depth+1)
	}
}

func writePNG(dir string, surface *render.PageSurface) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("page-%d.png", surface.Page))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, surface.Image); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func copyParagraph(s *session.Session, surface *render.PageSurface, index int) {
	if surface.Overlay == nil {
		fmt.Println("No text layer to copy from")
		return
	}
	r := surface.Overlay.Region(index)
	if r == nil {
		fmt.Printf("Page %d has no paragraph %d\n", surface.Page, index)
		return
	}
	s.Controller(surface.Page).Click(r)
	fmt.Printf("Copied paragraph %d of page %d (%d chars)\n", index, surface.Page, len(r.Text()))
}
