package models

import (
	"errors"
	"fmt"
)

// Recoverable geocoding failures. The user may retry the search or proceed
// without an AOI-by-search.
var (
	ErrLocationNotFound   = errors.New("location not found")
	ErrGeocodeUnavailable = errors.New("geocoding service unavailable")
)

// Failures that block report generation for the current run only.
var (
	ErrImageUnavailable    = errors.New("image unavailable")
	ErrDimensionMismatch   = errors.New("image dimensions do not match")
	ErrNoReport            = errors.New("no report generated yet")
	ErrMissingAOI          = errors.New("no area of interest selected")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// ErrEmptyRecipient is returned before any transport call is attempted.
var ErrEmptyRecipient = errors.New("recipient address is empty")

// SendErrorKind classifies a failed email dispatch.
type SendErrorKind string

const (
	SendAuthentication SendErrorKind = "authentication"
	SendRecipient      SendErrorKind = "recipient"
	SendTransport      SendErrorKind = "transport"
)

// SendError wraps a mail transport failure with its classification. The
// classification drives the user-visible message; the wrapped error keeps
// the transport detail.
type SendError struct {
	Kind SendErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// NewSendError creates a classified send error.
func NewSendError(kind SendErrorKind, err error) *SendError {
	return &SendError{Kind: kind, Err: err}
}
