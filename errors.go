package tagforge

import "github.com/tagforge/tagforge/internal/terr"

// Kind classifies why an operation failed, See
// internal/terr.Kind for the canonical definition; it lives there so every
// codec package can construct these errors without importing this root
// package.
type Kind = terr.Kind

const (
	// NotRecognized means the magic bytes matched no known codec.
	NotRecognized = terr.NotRecognized
	// Malformed means a structural violation was found (bad block length,
	// negative span, unexpected EOF, bad CRC).
	Malformed = terr.Malformed
	// Unsupported means a feature was encountered that this library
	// deliberately does not implement (e.g. encrypted ID3v2 frames).
	Unsupported = terr.Unsupported
	// Io means the underlying stream failed.
	Io = terr.Io
	// InvalidArgument means the caller asked for something this file's
	// format cannot provide (an unsupported tag type, oversized picture
	// bytes).
	InvalidArgument = terr.InvalidArgument
)

// Error is the error type returned by every exported tagforge operation.
type Error = terr.Error

// NewError constructs an *Error.
func NewError(k Kind, where string, cause error) *Error {
	return terr.New(k, where, cause)
}

// NotRecognizedErr reports that a file's magic bytes matched no codec.
func NotRecognizedErr(where string) error {
	return terr.NotRecognizedErr(where)
}

// MalformedErr reports a structural violation.
func MalformedErr(where, why string) error {
	return terr.MalformedErr(where, why)
}

// UnsupportedErr reports a deliberately-unimplemented feature.
func UnsupportedErr(feature string) error {
	return terr.UnsupportedErr(feature)
}

// IoErr wraps an underlying I/O failure.
func IoErr(where string, cause error) error {
	return terr.IoErr(where, cause)
}

// InvalidArgumentErr reports a caller error.
func InvalidArgumentErr(where, why string) error {
	return terr.InvalidArgumentErr(where, why)
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, and ok=false otherwise.
func KindOf(err error) (k Kind, ok bool) {
	return terr.KindOf(err)
}
