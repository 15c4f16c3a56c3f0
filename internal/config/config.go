// Package config holds the process-wide behavior record (Settings) and the
// small enums it parameterizes. It lives under internal
// so every codec package can depend on it without creating an import cycle
// back through the root tagforge package, which re-exports these types by
// alias for the public API.
package config

// ID3v2Version selects which ID3v2 header version a codec writes.
type ID3v2Version int

const (
	ID3v2_3 ID3v2Version = 3
	ID3v2_4 ID3v2Version = 4
)

// TextEncoding selects the default text encoding byte ID3v2 codecs use for
// new text frames when a caller doesn't force one.
type TextEncoding int

const (
	EncodingISO88591 TextEncoding = iota
	EncodingUTF16
	EncodingUTF8
)

// Settings is the process-wide behavior record (EnablePadding, default text
// encoding, default ID3v2 version). It is never read from a package-level
// global inside a codec — every Read/Update/Remove call receives a
// Settings value explicitly.
type Settings struct {
	// EnablePadding allows codecs to reserve trailing padding space (FLAC
	// PADDING blocks, ID3v2 padding) so that small future edits can grow
	// without a splice. Disabled, every write is exactly the size its
	// content requires, so repeated round-trips with no edits are
	// byte-identical.
	EnablePadding bool
	// DefaultTextEncoding only matters for ID3v2 text that doesn't fit
	// ISO-8859-1 (text that fits is always written as ISO-8859-1):
	// EncodingUTF8 selects UTF-8 in a v2.4 tag, and every other case uses
	// UTF-16 with a BOM.
	DefaultTextEncoding TextEncoding
	// DefaultID3v2Version is the header version used when creating a new
	// ID3v2 tag from scratch.
	DefaultID3v2Version ID3v2Version
	// SPCPreferBinaryOnAmbiguous resolves an ID666 header's binary/text
	// disambiguation when the date field is empty; default true, treating
	// an ambiguous header as binary mode.
	SPCPreferBinaryOnAmbiguous bool
}

// Default returns the library's baseline behavior: padding disabled (so
// round-trips are byte-identical unless the caller opts in), UTF-8 for
// non-Latin-1 ID3v2.4 text, ID3v2.3 for new tags, and SPC binary mode
// on ambiguous headers.
func Default() Settings {
	return Settings{
		EnablePadding:              false,
		DefaultTextEncoding:        EncodingUTF8,
		DefaultID3v2Version:        ID3v2_3,
		SPCPreferBinaryOnAmbiguous: true,
	}
}
