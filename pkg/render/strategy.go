package render

import "fmt"

// Strategy selects which halves of the page pipeline run
type Strategy int

const (
	// Hybrid rasterizes the page and mounts the text overlay on top
	Hybrid Strategy = iota
	// CanvasOnly rasterizes the page without a text overlay
	CanvasOnly
	// HTMLTextLayer builds the text overlay without rasterizing
	HTMLTextLayer
)

// ParseStrategy maps a configuration name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "hybrid", "":
		return Hybrid, nil
	case "canvas":
		return CanvasOnly, nil
	case "text":
		return HTMLTextLayer, nil
	}
	return Hybrid, fmt.Errorf("unknown render strategy %q", name)
}

func (s Strategy) String() string {
	switch s {
	case CanvasOnly:
		return "canvas"
	case HTMLTextLayer:
		return "text"
	}
	return "hybrid"
}

func (s Strategy) rasterizes() bool {
	return s != HTMLTextLayer
}

func (s Strategy) extractsText() bool {
	return s != CanvasOnly
}
