package pdfcert

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a certificate run failed.
type ErrorKind int

const (
	// UnknownFailure is reported for errors that did not come from this package.
	UnknownFailure ErrorKind = iota
	// InputValidationFailure means the run was refused before it started.
	InputValidationFailure
	// DirectoryCreationFailure means no run directory could be created.
	DirectoryCreationFailure
	// DocumentOpenFailure means the template could not be opened or inspected.
	DocumentOpenFailure
	// PageRenderFailure means the template page or the name overlay could not be drawn.
	PageRenderFailure
	// EncodingOrWriteFailure means an output document could not be encoded or persisted.
	EncodingOrWriteFailure
	// SealFailure means an output document could not be signed.
	SealFailure
	// Cancelled means the context was cancelled between names.
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case InputValidationFailure:
		return "input validation failure"
	case DirectoryCreationFailure:
		return "directory creation failure"
	case DocumentOpenFailure:
		return "document open failure"
	case PageRenderFailure:
		return "page render failure"
	case EncodingOrWriteFailure:
		return "encoding or write failure"
	case SealFailure:
		return "seal failure"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown failure"
	}
}

// Validation errors returned before a run starts.
var (
	ErrNoTemplate     = errors.New("no template selected")
	ErrNoSelection    = errors.New("no text area selected")
	ErrEmptySelection = errors.New("selected text area is empty")
	ErrNoNames        = errors.New("name list is empty")
)

// Error is returned by Job.Run. Name is set when the failure happened while
// producing the certificate for that name.
type Error struct {
	Kind ErrorKind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s for %q: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownFailure
}

func newError(kind ErrorKind, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}
