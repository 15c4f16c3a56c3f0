// Package terr defines the Kind-classified error type every codec returns.
// It lives under internal so codec packages can construct these errors
// directly; the root tagforge package re-exports Kind and Error by alias.
package terr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// NotRecognized means the magic bytes matched no known codec.
	NotRecognized Kind = iota
	// Malformed means a structural violation was found (bad block length,
	// negative span, unexpected EOF, bad CRC).
	Malformed
	// Unsupported means a feature was encountered that this library
	// deliberately does not implement (e.g. encrypted ID3v2 frames).
	Unsupported
	// Io means the underlying stream failed.
	Io
	// InvalidArgument means the caller asked for something this file's
	// format cannot provide.
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case NotRecognized:
		return "not recognized"
	case Malformed:
		return "malformed"
	case Unsupported:
		return "unsupported"
	case Io:
		return "io"
	case InvalidArgument:
		return "invalid argument"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every exported tagforge operation.
type Error struct {
	Kind  Kind
	Where string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tagforge: %s: %s: %v", e.Kind, e.Where, e.Err)
	}
	return fmt.Sprintf("tagforge: %s: %s", e.Kind, e.Where)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error.
func New(k Kind, where string, cause error) *Error {
	return &Error{Kind: k, Where: where, Err: cause}
}

// NotRecognizedErr reports that a file's magic bytes matched no codec.
func NotRecognizedErr(where string) error {
	return &Error{Kind: NotRecognized, Where: where}
}

// MalformedErr reports a structural violation.
func MalformedErr(where, why string) error {
	return &Error{Kind: Malformed, Where: where, Err: errors.New(why)}
}

// UnsupportedErr reports a deliberately-unimplemented feature.
func UnsupportedErr(feature string) error {
	return &Error{Kind: Unsupported, Where: feature}
}

// IoErr wraps an underlying I/O failure.
func IoErr(where string, cause error) error {
	return &Error{Kind: Io, Where: where, Err: cause}
}

// InvalidArgumentErr reports a caller error.
func InvalidArgumentErr(where, why string) error {
	return &Error{Kind: InvalidArgument, Where: where, Err: errors.New(why)}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (k Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return NotRecognized, false
}
