package overlay

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Selection spans a region's runs from just before the first to just after
// the last, so that a copy captures exactly the paragraph text.
type Selection struct {
	Region   RegionID
	FirstRun int
	LastRun  int
	Text     string
}

// NewSelection builds the selection range covering r
func NewSelection(r *Region) Selection {
	return Selection{
		Region:   r.ID,
		FirstRun: r.first,
		LastRun:  r.last,
		Text:     r.Text(),
	}
}

// SelectionSink receives the active selection. Apply is called on entering
// the selected state and Clear on leaving it.
type SelectionSink interface {
	Apply(sel Selection) error
	Clear() error
}

// NopSink discards selections
type NopSink struct{}

func (NopSink) Apply(Selection) error { return nil }
func (NopSink) Clear() error          { return nil }

var clipboardWrite = clipboard.WriteAll

// ClipboardSink copies the selected paragraph to the system clipboard.
// Clear leaves the clipboard untouched.
type ClipboardSink struct{}

func (ClipboardSink) Apply(sel Selection) error {
	if err := clipboardWrite(sel.Text); err != nil {
		return fmt.Errorf("failed to copy selection %s: %w", sel.Region, err)
	}
	return nil
}

func (ClipboardSink) Clear() error { return nil }
