// Package picture implements the FLAC PICTURE block body codec as its own
// service, shared by internal/flac (native PICTURE blocks) and
// internal/vorbis (the base64-embedded METADATA_BLOCK_PICTURE key inside
// Ogg Vorbis comments), so neither format depends on the other's
// container framing to decode a picture.
package picture

import (
	"encoding/binary"

	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/terr"
)

// nativeToType is the standard FLAC picture-type numbering. Codes absent
// from this table (0x00, 0x02, 0x15 and above) stay PictureUnsupported
// with their native byte preserved, matching the corpus's own test
// fixtures (a type-0x02 "other file icon" picture round-trips as
// Unsupported rather than as a dedicated OtherIcon field).
var nativeToType = map[int]model.PictureType{
	0x01: model.PictureIcon,
	0x03: model.PictureFront,
	0x04: model.PictureBack,
	0x05: model.PictureLeaflet,
	0x06: model.PictureCD,
	0x07: model.PictureLeadArtist,
	0x08: model.PicturePerformer,
	0x09: model.PictureConductor,
	0x0A: model.PictureBand,
	0x0B: model.PictureComposer,
	0x0C: model.PictureLyricist,
	0x0D: model.PictureRecordingLocation,
	0x0E: model.PictureDuringRecording,
	0x0F: model.PictureDuringPerformance,
	0x10: model.PictureMovieCapture,
	0x11: model.PictureBrightFish,
	0x12: model.PictureIllustration,
	0x13: model.PictureBandLogo,
	0x14: model.PicturePublisherLogo,
}

var typeToNative = func() map[model.PictureType]int {
	m := make(map[model.PictureType]int, len(nativeToType))
	for native, pt := range nativeToType {
		m[pt] = native
	}
	return m
}()

// TypeFromNative maps a FLAC picture-type byte to the format-neutral enum.
func TypeFromNative(native int) model.PictureType {
	if pt, ok := nativeToType[native]; ok {
		return pt
	}
	return model.PictureUnsupported
}

// NativeFromType maps a format-neutral picture back to its FLAC byte. For
// PictureUnsupported it returns the preserved native code.
func NativeFromType(pt model.PictureType, native int) int {
	if pt == model.PictureUnsupported {
		return native
	}
	if n, ok := typeToNative[pt]; ok {
		return n
	}
	return 0
}

// EncodeBody serializes a Picture into a FLAC PICTURE block body: 32-bit
// picture-type, MIME length+string, description length+string, width,
// height, color depth, colors-used, data length, data — all big-endian.
func EncodeBody(p model.Picture) []byte {
	mime := []byte(p.MimeOrFormatHint)
	desc := []byte("")

	buf := make([]byte, 0, 32+len(mime)+len(desc)+len(p.Bytes))
	var tmp [4]byte

	putU32 := func(v uint32) {
		binary.BigEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}

	putU32(uint32(NativeFromType(p.PictureType, p.NativeCode)))
	putU32(uint32(len(mime)))
	buf = append(buf, mime...)
	putU32(uint32(len(desc)))
	buf = append(buf, desc...)
	putU32(0) // width: unknown on write
	putU32(0) // height: unknown on write
	putU32(0) // color depth: unknown on write
	putU32(0) // colors used: unknown on write
	putU32(uint32(len(p.Bytes)))
	buf = append(buf, p.Bytes...)
	return buf
}

// DecodeBody parses a FLAC PICTURE block body into a Picture.
func DecodeBody(b []byte) (model.Picture, error) {
	const where = "picture.DecodeBody"
	if len(b) < 32 {
		return model.Picture{}, terr.MalformedErr(where, "picture body shorter than fixed header")
	}
	r := b
	readU32 := func() uint32 {
		v := binary.BigEndian.Uint32(r[:4])
		r = r[4:]
		return v
	}

	nativeType := int(readU32())
	mimeLen := readU32()
	if uint64(mimeLen) > uint64(len(r)) {
		return model.Picture{}, terr.MalformedErr(where, "mime length exceeds remaining body")
	}
	mime := string(r[:mimeLen])
	r = r[mimeLen:]

	if len(r) < 4 {
		return model.Picture{}, terr.MalformedErr(where, "truncated before description length")
	}
	descLen := readU32()
	if uint64(descLen) > uint64(len(r)) {
		return model.Picture{}, terr.MalformedErr(where, "description length exceeds remaining body")
	}
	r = r[descLen:]

	if len(r) < 16 {
		return model.Picture{}, terr.MalformedErr(where, "truncated before data length")
	}
	_ = readU32() // width
	_ = readU32() // height
	_ = readU32() // color depth
	_ = readU32() // colors used
	if len(r) < 4 {
		return model.Picture{}, terr.MalformedErr(where, "truncated data length field")
	}
	dataLen := readU32()
	if uint64(dataLen) > uint64(len(r)) {
		return model.Picture{}, terr.MalformedErr(where, "data length exceeds remaining body")
	}
	data := append([]byte(nil), r[:dataLen]...)

	pt := TypeFromNative(nativeType)
	p := model.Picture{
		PictureType:      pt,
		MimeOrFormatHint: mime,
		Bytes:            data,
	}
	if pt == model.PictureUnsupported {
		p.NativeCode = nativeType
	}
	return p, nil
}
