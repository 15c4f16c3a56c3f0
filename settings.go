package tagforge

import "github.com/tagforge/tagforge/internal/config"

// ID3v2Version selects which ID3v2 header version a codec writes.
type ID3v2Version = config.ID3v2Version

const (
	ID3v2_3 = config.ID3v2_3
	ID3v2_4 = config.ID3v2_4
)

// TextEncoding selects the default text encoding byte ID3v2 codecs use for
// new text frames when a caller doesn't force one.
type TextEncoding = config.TextEncoding

const (
	EncodingISO88591 = config.EncodingISO88591
	EncodingUTF16    = config.EncodingUTF16
	EncodingUTF8     = config.EncodingUTF8
)

// Settings is the process-wide behavior record controlling how codecs read
// and write tags. See internal/config.Settings for field documentation; it
// is defined there so every codec package can share it without importing
// this root package.
type Settings = config.Settings

// DefaultSettings returns the library's baseline behavior.
func DefaultSettings() Settings {
	return config.Default()
}
