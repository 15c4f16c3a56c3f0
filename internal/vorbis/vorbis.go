// Package vorbis implements the Vorbis Comment codec, the
// pure-fields service shared by composition with both internal/flac and
// internal/ogg rather than inherited from a common base type.
package vorbis

import (
	"encoding/base64"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/picture"
	"github.com/tagforge/tagforge/internal/terr"
)

// PictureKey is the Vorbis Comment key Ogg Vorbis uses to carry a
// base64-encoded FLAC PICTURE block body.
const PictureKey = "METADATA_BLOCK_PICTURE"

// VendorCode is the additional-field native code the VENDOR pseudo-field is
// surfaced under, so a round-trip preserves the vendor string.
const VendorCode = "VENDOR"

var keyToField = map[string]model.FieldKey{
	"TITLE":       model.Title,
	"ARTIST":      model.Artist,
	"ALBUM":       model.Album,
	"ALBUMARTIST": model.AlbumArtist,
	"COMMENT":     model.Comment,
	"DESCRIPTION": model.Comment,
	"DATE":        model.ReleaseDate,
	"GENRE":       model.Genre,
	"COMPOSER":    model.Composer,
	"COPYRIGHT":   model.Copyright,
	"CONDUCTOR":   model.Conductor,
	"PUBLISHER":   model.Publisher,
}

var fieldToKey = func() map[model.FieldKey]string {
	m := make(map[model.FieldKey]string, len(keyToField))
	// Prefer the canonical spelling over the DESCRIPTION alias for COMMENT.
	for k, f := range keyToField {
		if k == "DESCRIPTION" {
			continue
		}
		m[f] = k
	}
	return m
}()

// fieldOrder fixes the emission order of known fields so Encode's output is
// deterministic.
var fieldOrder = []model.FieldKey{
	model.Title, model.Artist, model.Album, model.AlbumArtist, model.Comment,
	model.ReleaseDate, model.Genre, model.Composer, model.Copyright,
	model.Conductor, model.Publisher,
}

// Decode parses a Vorbis Comment payload: little-endian
// vendor-length, vendor bytes, little-endian count, then count
// length-prefixed "KEY=VALUE" entries. trailingFramingBit controls whether
// one extra framing byte (always 0x01) follows the entries, as it does
// when the payload is embedded in an Ogg comment packet but not in a FLAC
// VORBIS_COMMENT block.
func Decode(data []byte, trailingFramingBit bool) (*model.TagData, string, error) {
	const where = "vorbis.Decode"
	tag := model.New()

	if len(data) < 4 {
		return nil, "", terr.MalformedErr(where, "shorter than vendor length field")
	}
	vendorLen := binary.LittleEndian.Uint32(data[0:4])
	data = data[4:]
	if uint64(vendorLen) > uint64(len(data)) {
		return nil, "", terr.MalformedErr(where, "vendor length exceeds payload")
	}
	vendor := string(data[:vendorLen])
	data = data[vendorLen:]

	if len(data) < 4 {
		return nil, "", terr.MalformedErr(where, "shorter than comment count field")
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	data = data[4:]

	var chapterRaw = map[string]map[string]string{} // index -> {"", "NAME", "URL"} -> value
	var pictures []model.Picture

	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return nil, "", terr.MalformedErr(where, "truncated comment entry length")
		}
		entryLen := binary.LittleEndian.Uint32(data[0:4])
		data = data[4:]
		if uint64(entryLen) > uint64(len(data)) {
			return nil, "", terr.MalformedErr(where, "comment entry length exceeds payload")
		}
		entry := string(data[:entryLen])
		data = data[entryLen:]

		eq := strings.IndexByte(entry, '=')
		if eq < 0 {
			return nil, "", terr.MalformedErr(where, "comment entry missing '='")
		}
		key := strings.ToUpper(entry[:eq])
		value := entry[eq+1:]

		switch {
		case key == PictureKey:
			raw, err := base64.StdEncoding.DecodeString(value)
			if err != nil {
				return nil, "", terr.MalformedErr(where, "invalid base64 in "+PictureKey)
			}
			pic, err := picture.DecodeBody(raw)
			if err != nil {
				return nil, "", err
			}
			pictures = append(pictures, pic)
		case isChapterKey(key):
			idx, suffix := splitChapterKey(key)
			m, ok := chapterRaw[idx]
			if !ok {
				m = map[string]string{}
				chapterRaw[idx] = m
			}
			m[suffix] = value
		case key == "TRACKNUMBER":
			tag.Set(model.TrackNumber, leadingNumber(value))
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: "TRACKNUMBER", Value: value})
		case key == "DISCNUMBER":
			tag.Set(model.DiscNumber, leadingNumber(value))
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: "DISCNUMBER", Value: value})
		default:
			if fk, ok := keyToField[key]; ok {
				tag.Set(fk, value)
			} else {
				tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: key, Value: value})
			}
		}
	}

	if trailingFramingBit {
		if len(data) < 1 {
			return nil, "", terr.MalformedErr(where, "missing trailing framing bit")
		}
		if data[0]&0x01 == 0 {
			return nil, "", terr.MalformedErr(where, "framing bit not set")
		}
	}

	tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: VendorCode, Value: vendor})
	tag.Pictures = append(tag.Pictures, pictures...)

	if len(chapterRaw) > 0 {
		tag.Chapters = decodeChapters(chapterRaw)
	}

	return tag, vendor, nil
}

// Encode serializes tag back into a Vorbis Comment payload. trailingFramingBit
// mirrors Decode's parameter: true appends the single 0x01 framing byte Ogg
// expects, false produces the bare FLAC VORBIS_COMMENT body.
func Encode(tag *model.TagData, vendor string, trailingFramingBit bool) []byte {
	var entries []string

	for _, fk := range fieldOrder {
		v := tag.Get(fk)
		if v == "" {
			continue
		}
		entries = append(entries, fieldToKey[fk]+"="+v)
	}

	if v := tag.Get(model.TrackNumber); v != "" {
		entries = append(entries, "TRACKNUMBER="+trackValue(tag, model.TagVorbis, "TRACKNUMBER", v))
	}
	if v := tag.Get(model.DiscNumber); v != "" {
		entries = append(entries, "DISCNUMBER="+trackValue(tag, model.TagVorbis, "DISCNUMBER", v))
	}

	for _, f := range tag.AdditionalFields {
		if f.TagType != model.TagVorbis || f.ZoneName != "" {
			continue
		}
		switch f.NativeCode {
		case VendorCode, "TRACKNUMBER", "DISCNUMBER":
			continue
		default:
			entries = append(entries, f.NativeCode+"="+f.Value)
		}
	}

	for _, p := range tag.Pictures {
		body := picture.EncodeBody(p)
		entries = append(entries, PictureKey+"="+base64.StdEncoding.EncodeToString(body))
	}

	entries = append(entries, encodeChapters(tag.Chapters)...)

	buf := make([]byte, 0, 64)
	var tmp [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}

	putU32(uint32(len(vendor)))
	buf = append(buf, vendor...)
	putU32(uint32(len(entries)))
	for _, e := range entries {
		putU32(uint32(len(e)))
		buf = append(buf, e...)
	}

	if trailingFramingBit {
		buf = append(buf, 0x01)
	}
	return buf
}

// trackValue prefers the raw additional-field string (e.g. "01/01") when its
// leading number still matches the current supported-field value, so an
// untouched track/disc number round-trips its original text exactly.
func trackValue(tag *model.TagData, tt model.TagType, code, current string) string {
	if f, ok := tag.FindAdditional(tt, code); ok {
		if leadingNumber(f.Value) == current {
			return f.Value
		}
	}
	return current
}

func leadingNumber(s string) string {
	i := strings.IndexByte(s, '/')
	if i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}
