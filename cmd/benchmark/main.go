package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pyhub-apps/pdftextlayer-golang"
	"github.com/pyhub-apps/pdftextlayer-golang/pkg/overlay"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: benchmark <pdf-file>")
		os.Exit(1)
	}

	pdfPath := os.Args[1]
	ctx := context.Background()
	dispatcher := overlay.NewDispatcher(nil)

	// Warm-up run
	s, err := pdftextlayer.OpenFile(ctx, pdfPath, pdftextlayer.WithDispatcher(dispatcher))
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	s.Close()

	// Benchmark document loading
	start := time.Now()
	s, err = pdftextlayer.OpenFile(ctx, pdfPath, pdftextlayer.WithDispatcher(dispatcher))
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	openTime := time.Since(start)
	defer s.Close()

	fmt.Printf("=== Text Layer Benchmark ===\n")
	fmt.Printf("File: %s\n", pdfPath)
	fmt.Printf("Pages: %d\n", s.PageCount())
	fmt.Printf("Open time: %v\n", openTime)

	// Benchmark a full render at the default scale
	start = time.Now()
	results := s.RenderAll(ctx)
	renderTime := time.Since(start)

	var failed, regions, runs int
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if r.Surface.Overlay != nil {
			regions += len(r.Surface.Overlay.Regions)
			runs += len(r.Surface.Overlay.Runs)
		}
	}

	fmt.Printf("Render time: %v\n", renderTime)
	fmt.Printf("Failed pages: %d\n", failed)
	fmt.Printf("Text runs: %d, paragraphs: %d\n", runs, regions)
	fmt.Printf("Runs/sec: %.0f runs/sec\n", float64(runs)/renderTime.Seconds())

	// Benchmark a zoom change, which re-renders every shown page
	s.SetScale(s.Scale() * 1.5)
	start = time.Now()
	s.Refresh(ctx)
	zoomTime := time.Since(start)

	fmt.Printf("Zoom re-render time: %v\n", zoomTime)

	// Summary
	totalTime := openTime + renderTime + zoomTime
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Total processing time: %v\n", totalTime)
	fmt.Printf("Pages/sec: %.2f\n", float64(2*s.PageCount())/(renderTime+zoomTime).Seconds())
}
