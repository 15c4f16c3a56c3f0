// Package imageprobe is a test-only collaborator: it decodes just enough of
// an embedded picture's bytes to report its format and pixel dimensions, so
// tests can assert on what a codec actually wrote without the core
// depending on image decoding at all. Never imported outside _test.go files.
package imageprobe

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Dimensions is the probe result.
type Dimensions struct {
	Format string
	Width  int
	Height int
}

// Decode reports the format and pixel dimensions of an embedded picture's
// bytes, without decoding the full pixel grid.
func Decode(b []byte) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Dimensions{}, err
	}
	return Dimensions{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
