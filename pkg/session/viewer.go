package session

import (
	"context"
	"sync"

	"github.com/pyhub-apps/pdftextlayer-golang/pkg/pdf"
)

// State is the document lifecycle state of a Viewer
type State int

const (
	StateNone State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return "none"
}

// Viewer holds at most one open Session. Loading a new file tears down the
// previous session first, and a failed load leaves no session behind.
type Viewer struct {
	renderer pdf.Renderer
	opts     []Option

	mu      sync.Mutex
	state   State
	session *Session
	err     error
	loadSeq uint64
}

// NewViewer creates a viewer that opens documents with renderer
func NewViewer(renderer pdf.Renderer, opts ...Option) *Viewer {
	return &Viewer{renderer: renderer, opts: opts}
}

// Load replaces the current document with data. opts are applied after
// the viewer's own options. Only the most recent Load is kept: an earlier
// one finishing later closes its session and returns ErrLoadSuperseded.
func (v *Viewer) Load(ctx context.Context, data []byte, opts ...Option) (*Session, error) {
	v.mu.Lock()
	v.loadSeq++
	seq := v.loadSeq
	prev := v.session
	v.session = nil
	v.err = nil
	v.state = StateLoading
	v.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	all := append(append([]Option(nil), v.opts...), opts...)
	s, err := Open(ctx, v.renderer, data, all...)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.loadSeq {
		if s != nil {
			s.Close()
		}
		return nil, ErrLoadSuperseded
	}
	if err != nil {
		v.state = StateError
		v.err = err
		return nil, err
	}
	v.state = StateReady
	v.session = s
	return s, nil
}

// State returns the lifecycle state
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Session returns the open session, or nil
func (v *Viewer) Session() *Session {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// Err returns the error of the last failed load
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close closes the open session, discards any load in progress and
// returns to StateNone
func (v *Viewer) Close() error {
	v.mu.Lock()
	v.loadSeq++
	s := v.session
	v.session = nil
	v.err = nil
	v.state = StateNone
	v.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}
