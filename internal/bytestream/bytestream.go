// Package bytestream provides the low-level integer and text codecs shared
// by every format codec: big/little-endian integers, ID3v2's sync-safe
// variable-length integers, and the Latin-1/UTF-16 text transforms tag
// formats embed alongside UTF-8.
package bytestream

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Callers needing plain big/little-endian fixed-width integers should reach
// for encoding/binary directly (binary.BigEndian.Uint32, etc.) — this package
// only adds the codecs the standard library doesn't provide: 24-bit and
// sync-safe integers, and the text transforms.

// Uint24BE reads a 3-byte big-endian unsigned integer, as used by FLAC block
// lengths and ID3v2.2 frame sizes.
func Uint24BE(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PutUint24BE writes v (must fit in 24 bits) as a 3-byte big-endian integer.
func PutUint24BE(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// SyncSafeUint32 decodes a 4-byte sync-safe integer (7 significant bits per
// byte, high bit always 0) as used by ID3v2 tag sizes and, in ID3v2.4 only,
// frame sizes.
func SyncSafeUint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<21 | uint32(b[1])<<14 | uint32(b[2])<<7 | uint32(b[3])
}

// PutSyncSafeUint32 encodes v (must fit in 28 bits) as a 4-byte sync-safe
// integer.
func PutSyncSafeUint32(b []byte, v uint32) {
	_ = b[3]
	b[0] = byte(v >> 21 & 0x7F)
	b[1] = byte(v >> 14 & 0x7F)
	b[2] = byte(v >> 7 & 0x7F)
	b[3] = byte(v & 0x7F)
}

// DecodeLatin1 decodes ISO-8859-1 bytes into a UTF-8 string.
func DecodeLatin1(b []byte) string {
	// ISO-8859-1 maps byte N to code point N for the whole range, so this
	// never fails; charmap is used anyway to match the ecosystem's encoding
	// machinery rather than hand-rolling the identity mapping.
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		out = b
	}
	return string(out)
}

// EncodeLatin1 encodes a UTF-8 string to ISO-8859-1 bytes. Code points
// outside Latin-1 are replaced with '?'.
func EncodeLatin1(s string) []byte {
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		out = make([]byte, 0, len(s))
		for _, r := range s {
			if r > 0xFF {
				r = '?'
			}
			out = append(out, byte(r))
		}
	}
	return out
}

// DecodeUTF16BOM decodes a UTF-16 byte sequence that begins with a byte-order
// mark, as used by ID3v2 text-encoding byte 1.
func DecodeUTF16BOM(b []byte) (string, error) {
	e := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)
	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("bytestream: decode utf-16 (BOM): %w", err)
	}
	return string(out), nil
}

// DecodeUTF16BE decodes a UTF-16BE byte sequence with no byte-order mark, as
// used by ID3v2 text-encoding byte 2.
func DecodeUTF16BE(b []byte) (string, error) {
	e := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	out, err := e.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("bytestream: decode utf-16be: %w", err)
	}
	return string(out), nil
}

// EncodeUTF16LEBOM encodes s as UTF-16LE with a leading byte-order mark.
func EncodeUTF16LEBOM(s string) ([]byte, error) {
	e := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	out, err := e.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("bytestream: encode utf-16 (BOM): %w", err)
	}
	return out, nil
}

// EncodeUTF16BE encodes s as UTF-16BE with no byte-order mark.
func EncodeUTF16BE(s string) ([]byte, error) {
	e := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	out, err := e.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("bytestream: encode utf-16be: %w", err)
	}
	return out, nil
}

// chunkSize bounds the amount of data moved per Lengthen/Shorten copy step,
// so splicing a multi-gigabyte file doesn't require a matching in-memory
// buffer.
const chunkSize = 64 * 1024

// Lengthen inserts n bytes of undefined content at offset `at` in f, shifting
// everything from `at` onward forward by n bytes. It grows the file first,
// then copies the tail forward in fixed-size chunks from the end, so the
// source and destination ranges of each chunk copy never overlap in a way
// that would clobber unread data.
//
// A failure partway through leaves f in an undefined state; recovery is the
// caller's responsibility (e.g. operating on a copy of the file and only
// replacing the original once the splice succeeds).
func Lengthen(f *os.File, at int64, n int64) error {
	if n <= 0 {
		return nil
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("bytestream: lengthen: seek end: %w", err)
	}
	if at > size {
		return fmt.Errorf("bytestream: lengthen: offset %d beyond file size %d", at, size)
	}
	if err := f.Truncate(size + n); err != nil {
		return fmt.Errorf("bytestream: lengthen: truncate: %w", err)
	}

	buf := make([]byte, chunkSize)
	// Copy [at, size) to [at+n, size+n), working backward from the end so
	// that a chunk's destination range never overlaps data not yet moved.
	for src := size; src > at; {
		n2 := int64(len(buf))
		if src-at < n2 {
			n2 = src - at
		}
		src -= n2
		if _, err := f.ReadAt(buf[:n2], src); err != nil {
			return fmt.Errorf("bytestream: lengthen: read at %d: %w", src, err)
		}
		if _, err := f.WriteAt(buf[:n2], src+n); err != nil {
			return fmt.Errorf("bytestream: lengthen: write at %d: %w", src+n, err)
		}
	}
	return nil
}

// Shorten removes n bytes at offset `at` in f, shifting everything after the
// removed range backward by n bytes and truncating the file.
func Shorten(f *os.File, at int64, n int64) error {
	if n <= 0 {
		return nil
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("bytestream: shorten: seek end: %w", err)
	}
	if at+n > size {
		return fmt.Errorf("bytestream: shorten: range [%d,%d) exceeds file size %d", at, at+n, size)
	}

	buf := make([]byte, chunkSize)
	// Copy [at+n, size) down to [at, size-n), working forward from the
	// removed range so each chunk's destination trails its source.
	for src := at + n; src < size; {
		n2 := int64(len(buf))
		if size-src < n2 {
			n2 = size - src
		}
		if _, err := f.ReadAt(buf[:n2], src); err != nil {
			return fmt.Errorf("bytestream: shorten: read at %d: %w", src, err)
		}
		if _, err := f.WriteAt(buf[:n2], src-n); err != nil {
			return fmt.Errorf("bytestream: shorten: write at %d: %w", src-n, err)
		}
		src += n2
	}
	return f.Truncate(size - n)
}
