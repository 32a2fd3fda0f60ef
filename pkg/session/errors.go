package session

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed session
var ErrClosed = errors.New("session: closed")

// ErrLoadSuperseded is returned by Viewer.Load when another Load or Close
// started before it finished
var ErrLoadSuperseded = errors.New("session: load superseded")

// InvalidFileError is returned when the input is not a PDF. No load is
// attempted.
type InvalidFileError struct {
	MIMEType string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("not a PDF file (type %q)", e.MIMEType)
}

// DocumentLoadError is returned when the renderer rejects the document
type DocumentLoadError struct {
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("failed to load document: %v", e.Err)
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

// DestinationResolutionError is returned when a bookmark or link target
// cannot be mapped to a page
type DestinationResolutionError struct {
	Dest string
	Err  error
}

func (e *DestinationResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve destination %s: %v", e.Dest, e.Err)
}

func (e *DestinationResolutionError) Unwrap() error {
	return e.Err
}

var errUnknownDestination = errors.New("unknown destination")
