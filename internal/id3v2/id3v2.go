// Package id3v2 implements the ID3v2.2/2.3/2.4 codec: header
// parsing across all three minor versions, frame iteration, the text
// encoding byte convention, and the APIC/TXXX/WXXX/COMM frame families.
// Reading accepts all three versions; writing always emits v2.3 or v2.4
// per config.Settings.DefaultID3v2Version — v2.2 is read-only, never
// produced.
package id3v2

import (
	"encoding/binary"
	"os"
	"strings"

	"github.com/tagforge/tagforge/internal/bytestream"
	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/picture"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/zones"
)

const zoneName = "ID3V2"
const paddingZoneName = "ID3V2_PADDING"

// defaultPaddingReserve is how much trailing null padding Write reserves
// the first time it writes a tag with Settings.EnablePadding set and no
// padding region already exists to absorb into.
const defaultPaddingReserve = 256

// Codec implements codec.Codec for ID3v2.2/2.3/2.4.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagID3v2 }

// Version is a minor ID3v2 version.
type Version int

const (
	Version2 Version = 2
	Version3 Version = 3
	Version4 Version = 4
)

// header holds the parsed 10-byte ID3v2 header.
type header struct {
	version Version
	size    int64 // tag size, header excluded
}

func readHeader(buf []byte) (header, error) {
	const where = "id3v2.readHeader"
	if len(buf) < 10 || string(buf[0:3]) != "ID3" {
		return header{}, terr.NotRecognizedErr(where)
	}
	var v Version
	switch buf[3] {
	case 2:
		v = Version2
	case 3:
		v = Version3
	case 4:
		v = Version4
	default:
		return header{}, terr.UnsupportedErr("ID3v2 version byte")
	}
	size := bytestream.SyncSafeUint32(buf[6:10])
	return header{version: v, size: int64(size)}, nil
}

// frame is one parsed ID3v2 frame.
type frame struct {
	id      string
	payload []byte
}

// readFrames walks the frame list inside a tag body (the header-excluded,
// size bytes following the 10-byte header). v2.2 uses 3-byte ids and
// 3-byte sizes with no flags field; v2.3 uses 4-byte ids, 4-byte
// non-sync-safe sizes and a 2-byte flags field; v2.4 uses 4-byte ids,
// 4-byte sync-safe sizes and a 2-byte flags field. It also returns how many
// bytes of body were consumed by real frames, so the caller can tell real
// content from trailing null padding.
func readFrames(body []byte, v Version) ([]frame, int) {
	var frames []frame
	idLen := 4
	if v == Version2 {
		idLen = 3
	}
	off := 0
	for off+idLen+3 <= len(body) {
		id := string(body[off : off+idLen])
		if id == "" || id[0] == 0 {
			break // padding begins
		}
		off += idLen

		var size int
		if v == Version2 {
			size = int(bytestream.Uint24BE(body[off : off+3]))
			off += 3
		} else {
			raw := body[off : off+4]
			if v == Version4 {
				size = int(bytestream.SyncSafeUint32(raw))
			} else {
				size = int(binary.BigEndian.Uint32(raw))
			}
			off += 4
			off += 2 // frame flags, not modeled
		}
		if size < 0 || off+size > len(body) {
			break
		}
		frames = append(frames, frame{id: id, payload: body[off : off+size]})
		off += size
	}
	return frames, off
}

// textFrameIDs maps a supported field to its v2.3/v2.4 (4-char) frame id.
var textFrameIDs = map[model.FieldKey]string{
	model.Title:          "TIT2",
	model.Artist:         "TPE1",
	model.Album:          "TALB",
	model.AlbumArtist:    "TPE2",
	model.Composer:       "TCOM",
	model.Genre:          "TCON",
	model.ReleaseYear:    "TYER",
	model.TrackNumber:    "TRCK",
	model.DiscNumber:     "TPOS",
	model.Copyright:      "TCOP",
	model.Publisher:      "TPUB",
	model.Conductor:      "TPE3",
	model.OriginalArtist: "TOPE",
	model.OriginalAlbum:  "TOAL",
}

// textFrameOrder fixes the emission order of known text frames so writes are
// deterministic.
var textFrameOrder = []model.FieldKey{
	model.Title, model.Artist, model.Album, model.AlbumArtist, model.Composer,
	model.Genre, model.ReleaseYear, model.TrackNumber, model.DiscNumber,
	model.Copyright, model.Publisher, model.Conductor, model.OriginalArtist,
	model.OriginalAlbum,
}

// v22FrameIDs maps a v2.3/v2.4 4-char id to its v2.2 3-char equivalent, for
// translating frames read from a v2.2 tag onto the canonical id space.
var v22FrameIDs = map[string]string{
	"TIT2": "TT2", "TPE1": "TP1", "TALB": "TAL", "TPE2": "TP2",
	"TCOM": "TCM", "TCON": "TCO", "TYER": "TYE", "TRCK": "TRK",
	"TPOS": "TPA", "TCOP": "TCR", "TPUB": "TPB", "TPE3": "TP3",
	"TOPE": "TOA", "TOAL": "TOT", "COMM": "COM", "APIC": "PIC",
	"TXXX": "TXX", "WXXX": "WXX",
}

var fieldByFrameID = func() map[string]model.FieldKey {
	m := make(map[string]model.FieldKey, len(textFrameIDs))
	for f, id := range textFrameIDs {
		m[id] = f
	}
	return m
}()

func canonicalID(id string, v Version) string {
	if v != Version2 {
		return id
	}
	for long, short := range v22FrameIDs {
		if short == id {
			return long
		}
	}
	return id
}

// HeaderSize returns the total byte length of the ID3v2 tag at the start of
// f (10-byte header plus body), or 0 if f doesn't start with one.
func HeaderSize(f *os.File) int64 {
	raw := make([]byte, 10)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return 0
	}
	h, err := readHeader(raw)
	if err != nil {
		return 0
	}
	return 10 + h.size
}

// Read implements codec.Codec.
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	const where = "id3v2.Read"
	raw := make([]byte, 10)
	if _, err := ctx.File.ReadAt(raw, 0); err != nil {
		return nil, terr.IoErr(where, err)
	}
	h, err := readHeader(raw)
	if err != nil {
		return nil, err
	}
	body := make([]byte, h.size)
	if h.size > 0 {
		if _, err := ctx.File.ReadAt(body, 10); err != nil {
			return nil, terr.IoErr(where, err)
		}
	}

	tag := model.New()
	frames, consumed := readFrames(body, h.version)
	for _, fr := range frames {
		decodeFrame(tag, canonicalID(fr.id, h.version), fr.payload)
	}

	if ctx.PrepareForWriting {
		ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: 0, Size: 10 + int64(consumed)})
		if padLen := h.size - int64(consumed); padLen > 0 {
			ctx.Zones.AddZone(zones.Zone{Name: paddingZoneName, Offset: 10 + int64(consumed), Size: padLen, Flag: "padding"})
		}
	}
	return tag, nil
}

func decodeFrame(tag *model.TagData, id string, payload []byte) {
	switch {
	case id == "APIC":
		decodeAPIC(tag, payload)
	case id == "TXXX":
		decodeDescribedText(tag, "TXXX", payload)
	case id == "WXXX":
		decodeDescribedText(tag, "WXXX", payload)
	case id == "COMM":
		decodeComment(tag, payload)
	case len(id) > 0 && id[0] == 'T':
		value := decodeTextPayload(payload)
		if fk, ok := fieldByFrameID[id]; ok {
			switch fk {
			case model.TrackNumber, model.DiscNumber:
				tag.Set(fk, leadingNumber(value))
				tag.UpsertAdditional(model.AdditionalField{TagType: model.TagID3v2, NativeCode: id, Value: value})
			default:
				tag.Set(fk, value)
			}
		} else {
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagID3v2, NativeCode: id, Value: value})
		}
	default:
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagID3v2, NativeCode: id, Value: string(payload)})
	}
}

func leadingNumber(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// decodeTextPayload strips the leading encoding byte and decodes the rest
// encoding table (0 ISO-8859-1, 1 UTF-16+BOM, 2
// UTF-16BE, 3 UTF-8).
func decodeTextPayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	enc := payload[0]
	return decodeEncoded(enc, trimNullTerm(enc, payload[1:]))
}

func decodeEncoded(enc byte, b []byte) string {
	switch enc {
	case 0:
		return bytestream.DecodeLatin1(b)
	case 1:
		s, err := bytestream.DecodeUTF16BOM(b)
		if err != nil {
			return ""
		}
		return s
	case 2:
		s, err := bytestream.DecodeUTF16BE(b)
		if err != nil {
			return ""
		}
		return s
	case 3:
		return string(b)
	default:
		return bytestream.DecodeLatin1(b)
	}
}

func nullWidth(enc byte) int {
	if enc == 1 || enc == 2 {
		return 2
	}
	return 1
}

func trimNullTerm(enc byte, b []byte) []byte {
	step := nullWidth(enc)
	if len(b) < step {
		return b
	}
	for _, c := range b[len(b)-step:] {
		if c != 0 {
			return b
		}
	}
	return b[:len(b)-step]
}

// decodeDescribedText handles TXXX/WXXX: encoding byte, null-terminated
// description (in that encoding), then value bytes. The description
// distinguishes instances for upsert/delete.
func decodeDescribedText(tag *model.TagData, id string, payload []byte) {
	if len(payload) < 1 {
		return
	}
	enc := payload[0]
	desc, value := splitOnEncodedNull(enc, payload[1:])
	tag.UpsertAdditional(model.AdditionalField{
		TagType:    model.TagID3v2,
		NativeCode: id + ":" + desc,
		Value:      value,
	})
}

func decodeComment(tag *model.TagData, payload []byte) {
	if len(payload) < 4 {
		return
	}
	enc := payload[0]
	lang := string(payload[1:4])
	desc, value := splitOnEncodedNull(enc, payload[4:])
	if desc == "" {
		tag.Set(model.Comment, value)
	}
	tag.UpsertAdditional(model.AdditionalField{
		TagType:    model.TagID3v2,
		NativeCode: "COMM:" + desc,
		Value:      value,
		Language:   lang,
	})
}

// splitOnEncodedNull splits rest into (description, value) at the first
// encoding-appropriate null terminator.
func splitOnEncodedNull(enc byte, rest []byte) (desc, value string) {
	step := nullWidth(enc)
	for i := 0; i+step <= len(rest); i += step {
		allZero := true
		for j := 0; j < step; j++ {
			if rest[i+j] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return decodeEncoded(enc, rest[:i]), decodeEncoded(enc, rest[i+step:])
		}
	}
	return decodeEncoded(enc, rest), ""
}

func decodeAPIC(tag *model.TagData, payload []byte) {
	if len(payload) < 2 {
		return
	}
	enc := payload[0]
	rest := payload[1:]
	nul := indexOfASCIINull(rest)
	if nul < 0 {
		return
	}
	mime := string(rest[:nul])
	rest = rest[nul+1:]
	if len(rest) < 1 {
		return
	}
	nativeType := int(rest[0])
	rest = rest[1:]

	_, _, dataBytes := splitEncodedNullBytes(enc, rest)

	pic := model.Picture{
		PictureType:      picture.TypeFromNative(nativeType),
		MimeOrFormatHint: mime,
		Bytes:            dataBytes,
	}
	if pic.PictureType == model.PictureUnsupported {
		pic.NativeCode = nativeType
	}
	tag.Pictures = append(tag.Pictures, pic)
}

func indexOfASCIINull(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// splitEncodedNullBytes finds the encoding-appropriate null terminator and
// returns its index, the description bytes, and everything after it.
func splitEncodedNullBytes(enc byte, rest []byte) (int, []byte, []byte) {
	step := nullWidth(enc)
	for i := 0; i+step <= len(rest); i += step {
		allZero := true
		for j := 0; j < step; j++ {
			if rest[i+j] != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return i, rest[:i], rest[i+step:]
		}
	}
	return len(rest), rest, nil
}

// Write implements codec.Codec. The frame content always replaces the
// ID3V2 zone outright; a size change is absorbed into the trailing padding
// zone first, the same way flac.Write grows or shrinks its PADDING block,
// and only spills into a full splice when padding can't cover it or
// Settings.EnablePadding is off.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "id3v2.Write"
	version := versionFor(ctx.Settings.DefaultID3v2Version)
	body := encodeBody(merged, ctx.Settings, version)

	framesZone := ctx.Zones.Zone(zoneName)
	paddingZone := ctx.Zones.Zone(paddingZoneName)

	// paddingSize >= 0 means "set the padding zone to exactly this size
	// before the splice"; -1 means "leave whatever padding zone already
	// exists untouched" and let the frames zone's own delta shift it.
	paddingSize := int64(-1)
	switch {
	case ctx.Settings.EnablePadding && paddingZone != nil && framesZone != nil:
		oldFramesLen := framesZone.Size - 10
		delta := int64(len(body)) - oldFramesLen
		if candidate := paddingZone.Size - delta; candidate >= 0 {
			paddingSize = candidate
		}
	case ctx.Settings.EnablePadding && paddingZone == nil:
		paddingSize = defaultPaddingReserve
	case !ctx.Settings.EnablePadding && paddingZone != nil:
		paddingSize = 0
	}

	finalPaddingSize := int64(0)
	switch {
	case paddingSize >= 0:
		finalPaddingSize = paddingSize
	case paddingZone != nil:
		finalPaddingSize = paddingZone.Size
	}

	tagBytes := encodeHeader(version, int64(len(body))+finalPaddingSize)
	tagBytes = append(tagBytes, body...)

	newContent := map[string][]byte{zoneName: tagBytes}
	if framesZone == nil {
		framesZone = ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: 0, Size: 0})
	}

	if paddingSize >= 0 {
		if paddingZone == nil {
			paddingZone = ctx.Zones.AddZone(zones.Zone{Name: paddingZoneName, Offset: framesZone.Offset + framesZone.Size, Size: 0, Flag: "padding"})
		}
		newContent[paddingZoneName] = make([]byte, paddingSize)
	}

	if err := ctx.Zones.Rewrite(ctx.File, newContent); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

// Remove implements codec.Codec.
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	const where = "id3v2.Remove"
	if ctx.Zones.Zone(zoneName) == nil {
		return nil
	}
	content := map[string][]byte{zoneName: nil}
	if ctx.Zones.Zone(paddingZoneName) != nil {
		content[paddingZoneName] = nil
	}
	if err := ctx.Zones.Rewrite(ctx.File, content); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

func versionFor(v config.ID3v2Version) Version {
	if v == config.ID3v2_4 {
		return Version4
	}
	return Version3
}

func encodeHeader(v Version, size int64) []byte {
	buf := make([]byte, 10)
	copy(buf[0:3], "ID3")
	buf[3] = byte(v)
	buf[4] = 0
	buf[5] = 0
	bytestream.PutSyncSafeUint32(buf[6:10], uint32(size))
	return buf
}

func encodeFrameHeader(id string, size int, v Version) []byte {
	buf := make([]byte, 10)
	copy(buf[0:4], id)
	if v == Version4 {
		bytestream.PutSyncSafeUint32(buf[4:8], uint32(size))
	} else {
		binary.BigEndian.PutUint32(buf[4:8], uint32(size))
	}
	return buf
}

func encodeFrame(id string, payload []byte, v Version) []byte {
	return append(encodeFrameHeader(id, len(payload), v), payload...)
}

func canEncodeLatin1(s string) bool {
	for _, r := range s {
		if r > 0xFF {
			return false
		}
	}
	return true
}

// chooseEncoding picks the narrowest encoding byte that preserves s: plain
// ISO-8859-1 whenever every rune fits, falling back to UTF-16 (or, on
// v2.4 with a UTF-8 default, UTF-8) only when it doesn't.
func chooseEncoding(s string, def config.TextEncoding, v Version) byte {
	if canEncodeLatin1(s) {
		return 0
	}
	if v == Version4 && def == config.EncodingUTF8 {
		return 3
	}
	return 1
}

func encodeTextPayload(s string, enc byte) []byte {
	switch enc {
	case 0:
		return bytestream.EncodeLatin1(s)
	case 1:
		b, err := bytestream.EncodeUTF16LEBOM(s)
		if err != nil {
			return bytestream.EncodeLatin1(s)
		}
		return b
	case 2:
		b, err := bytestream.EncodeUTF16BE(s)
		if err != nil {
			return bytestream.EncodeLatin1(s)
		}
		return b
	default:
		return []byte(s)
	}
}

func nullTerm(enc byte) []byte {
	return make([]byte, nullWidth(enc))
}

func encodeTextFrame(id, value string, settings config.Settings, v Version) []byte {
	enc := chooseEncoding(value, settings.DefaultTextEncoding, v)
	payload := append([]byte{enc}, encodeTextPayload(value, enc)...)
	return encodeFrame(id, payload, v)
}

func encodeDescribedTextFrame(id, desc, value string, settings config.Settings, v Version) []byte {
	enc := chooseEncoding(desc+value, settings.DefaultTextEncoding, v)
	var payload []byte
	payload = append(payload, enc)
	payload = append(payload, encodeTextPayload(desc, enc)...)
	payload = append(payload, nullTerm(enc)...)
	payload = append(payload, encodeTextPayload(value, enc)...)
	return encodeFrame(id, payload, v)
}

func encodeCommentFrame(desc, lang, value string, settings config.Settings, v Version) []byte {
	if len(lang) != 3 {
		lang = "eng"
	}
	enc := chooseEncoding(desc+value, settings.DefaultTextEncoding, v)
	var payload []byte
	payload = append(payload, enc)
	payload = append(payload, []byte(lang)...)
	payload = append(payload, encodeTextPayload(desc, enc)...)
	payload = append(payload, nullTerm(enc)...)
	payload = append(payload, encodeTextPayload(value, enc)...)
	return encodeFrame("COMM", payload, v)
}

func encodeAPIC(p model.Picture, v Version) []byte {
	const enc = 0 // MIME and the (always-empty) description are ASCII-safe
	var payload []byte
	payload = append(payload, enc)
	payload = append(payload, bytestream.EncodeLatin1(p.MimeOrFormatHint)...)
	payload = append(payload, 0)
	payload = append(payload, byte(picture.NativeFromType(p.PictureType, p.NativeCode)))
	payload = append(payload, 0) // empty description, single-byte null
	payload = append(payload, p.Bytes...)
	return encodeFrame("APIC", payload, v)
}

// encodeBody serializes merged into the frame sequence following the
// header: known text fields first (in a fixed order so output is
// deterministic), then preserved TXXX/WXXX/COMM/unknown additional fields,
// then pictures as APIC frames.
func encodeBody(tag *model.TagData, settings config.Settings, v Version) []byte {
	var out []byte

	for _, fk := range textFrameOrder {
		val := tag.Get(fk)
		if val == "" {
			continue
		}
		id := textFrameIDs[fk]
		if fk == model.TrackNumber || fk == model.DiscNumber {
			if af, ok := tag.FindAdditional(model.TagID3v2, id); ok && leadingNumber(af.Value) == val {
				val = af.Value
			}
		}
		out = append(out, encodeTextFrame(id, val, settings, v)...)
	}

	sawComment := false
	for _, af := range tag.AdditionalFields {
		if af.TagType != model.TagID3v2 || af.MarkedForDeletion {
			continue
		}
		switch {
		case strings.HasPrefix(af.NativeCode, "TXXX:"):
			desc := strings.TrimPrefix(af.NativeCode, "TXXX:")
			out = append(out, encodeDescribedTextFrame("TXXX", desc, af.Value, settings, v)...)
		case strings.HasPrefix(af.NativeCode, "WXXX:"):
			desc := strings.TrimPrefix(af.NativeCode, "WXXX:")
			out = append(out, encodeDescribedTextFrame("WXXX", desc, af.Value, settings, v)...)
		case strings.HasPrefix(af.NativeCode, "COMM:"):
			desc := strings.TrimPrefix(af.NativeCode, "COMM:")
			if desc == "" {
				sawComment = true
			}
			out = append(out, encodeCommentFrame(desc, af.Language, af.Value, settings, v)...)
		case isKnownTextFrameID(af.NativeCode):
			continue // emitted above from the SupportedFields value directly
		default:
			out = append(out, encodeFrame(af.NativeCode, []byte(af.Value), v)...)
		}
	}
	if !sawComment {
		if c := tag.Get(model.Comment); c != "" {
			out = append(out, encodeCommentFrame("", "eng", c, settings, v)...)
		}
	}

	for _, p := range tag.Pictures {
		if p.MarkedForDeletion {
			continue
		}
		out = append(out, encodeAPIC(p, v)...)
	}
	return out
}

func isKnownTextFrameID(id string) bool {
	_, ok := fieldByFrameID[id]
	return ok
}
