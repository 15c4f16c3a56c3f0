// Package flac implements the FLAC container codec: magic detection,
// metadata block iteration, STREAMINFO audio properties, and the
// VORBIS_COMMENT/PICTURE rewrite strategy. Vorbis-comment field decoding
// is delegated to internal/vorbis and PICTURE body encoding to
// internal/picture, keeping those concerns out of the FLAC component.
package flac

import (
	"io"
	"os"

	"github.com/icza/bitio"

	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/picture"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/vorbis"
	"github.com/tagforge/tagforge/internal/zones"
)

// Magic is the FLAC stream marker.
const Magic = "fLaC"

const (
	blockStreamInfo    = 0
	blockPadding       = 1
	blockApplication   = 2
	blockSeekTable     = 3
	blockVorbisComment = 4
	blockCueSheet      = 5
	blockPicture       = 6
)

// blockInfo is one parsed metadata block header plus its body location.
type blockInfo struct {
	typ        int
	last       bool
	headerOff  int64
	bodyOff    int64
	bodyLen    int64
}

// StreamInfo holds the audio properties derived from a FLAC STREAMINFO
// block.
type StreamInfo struct {
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
}

// Codec implements codec.Codec for FLAC's embedded Vorbis Comment tag.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagVorbis }

// ProbeStreamInfo reads just enough of f to decode STREAMINFO, for callers
// that only need audio properties and not the tag.
func ProbeStreamInfo(f *os.File) (StreamInfo, error) {
	const where = "flac.ProbeStreamInfo"
	blocks, err := readBlocks(f)
	if err != nil {
		return StreamInfo{}, err
	}
	for _, b := range blocks {
		if b.typ != blockStreamInfo {
			continue
		}
		buf := make([]byte, b.bodyLen)
		if _, err := f.ReadAt(buf, b.bodyOff); err != nil {
			return StreamInfo{}, terr.IoErr(where, err)
		}
		return decodeStreamInfo(buf)
	}
	return StreamInfo{}, terr.MalformedErr(where, "no STREAMINFO block")
}

// decodeStreamInfo parses the 34-byte STREAMINFO body: 16+16 bits of
// min/max block size, 24+24 bits of min/max frame size, then a packed
// 20-bit sample rate, 3-bit (channels-1), 5-bit (bits-per-sample-1), and
// 36-bit total-samples field, followed by a 16-byte MD5. The packed field
// is read with icza/bitio since it crosses byte boundaries at non-byte
// offsets.
func decodeStreamInfo(body []byte) (StreamInfo, error) {
	const where = "flac.decodeStreamInfo"
	if len(body) < 34 {
		return StreamInfo{}, terr.MalformedErr(where, "STREAMINFO shorter than 34 bytes")
	}
	r := bitio.NewReader(bytesReader(body[10:]))
	sampleRate, err := r.ReadBits(20)
	if err != nil {
		return StreamInfo{}, terr.MalformedErr(where, "truncated sample rate")
	}
	channels, err := r.ReadBits(3)
	if err != nil {
		return StreamInfo{}, terr.MalformedErr(where, "truncated channel count")
	}
	bps, err := r.ReadBits(5)
	if err != nil {
		return StreamInfo{}, terr.MalformedErr(where, "truncated bits per sample")
	}
	totalSamples, err := r.ReadBits(36)
	if err != nil {
		return StreamInfo{}, terr.MalformedErr(where, "truncated total samples")
	}
	return StreamInfo{
		SampleRate:    uint32(sampleRate),
		Channels:      uint8(channels) + 1,
		BitsPerSample: uint8(bps) + 1,
		TotalSamples:  totalSamples,
	}, nil
}

// AudioOffset returns the byte offset where encoded audio frames begin,
// immediately after the last metadata block.
func AudioOffset(f *os.File) (int64, error) {
	blocks, err := readBlocks(f)
	if err != nil {
		return 0, err
	}
	last := blocks[len(blocks)-1]
	return last.bodyOff + last.bodyLen, nil
}

func bytesReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b []byte
	i int
}

func (s *sliceReader) Read(p []byte) (int, error) {
	if s.i >= len(s.b) {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.i:])
	s.i += n
	return n, nil
}

// readBlocks walks the metadata block chain starting right after the fLaC
// magic, returning each block's type, flags and body location.
func readBlocks(f *os.File) ([]blockInfo, error) {
	const where = "flac.readBlocks"
	magic := make([]byte, 4)
	if _, err := f.ReadAt(magic, 0); err != nil {
		return nil, terr.IoErr(where, err)
	}
	if string(magic) != Magic {
		return nil, terr.NotRecognizedErr(where)
	}

	var blocks []blockInfo
	off := int64(4)
	for {
		header := make([]byte, 4)
		if _, err := f.ReadAt(header, off); err != nil {
			return nil, terr.MalformedErr(where, "truncated block header")
		}
		last := header[0]&0x80 != 0
		typ := int(header[0] & 0x7F)
		length := int64(header[1])<<16 | int64(header[2])<<8 | int64(header[3])

		blocks = append(blocks, blockInfo{
			typ:       typ,
			last:      last,
			headerOff: off,
			bodyOff:   off + 4,
			bodyLen:   length,
		})
		off += 4 + length
		if last {
			break
		}
	}
	return blocks, nil
}

// Read implements codec.Codec. It decodes the VORBIS_COMMENT block (if
// any) into a TagData and every PICTURE block into tag.Pictures. Unknown
// block types (SEEKTABLE, CUESHEET, APPLICATION) round-trip as opaque
// additional fields
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	const where = "flac.Read"
	blocks, err := readBlocks(ctx.File)
	if err != nil {
		return nil, err
	}

	tag := model.New()
	haveComment := false

	for i, b := range blocks {
		body := make([]byte, b.bodyLen)
		if b.bodyLen > 0 {
			if _, err := ctx.File.ReadAt(body, b.bodyOff); err != nil {
				return nil, terr.IoErr(where, err)
			}
		}

		switch b.typ {
		case blockVorbisComment:
			parsed, _, err := vorbis.Decode(body, false)
			if err != nil {
				return nil, err
			}
			tag.SupportedFields = parsed.SupportedFields
			tag.AdditionalFields = append(tag.AdditionalFields, parsed.AdditionalFields...)
			tag.Chapters = parsed.Chapters
			haveComment = true
			if ctx.PrepareForWriting {
				ctx.Zones.AddZone(zones.Zone{Name: "VORBIS_COMMENT", Offset: b.headerOff, Size: 4 + b.bodyLen})
			}
		case blockPicture:
			pic, err := picture.DecodeBody(body)
			if err != nil {
				return nil, err
			}
			tag.Pictures = append(tag.Pictures, pic)
			if ctx.PrepareForWriting {
				ctx.Zones.AddZone(zones.Zone{Name: pictureZoneName(i), Offset: b.headerOff, Size: 4 + b.bodyLen})
			}
		case blockPadding:
			if ctx.PrepareForWriting {
				ctx.Zones.AddZone(zones.Zone{Name: "PADDING", Offset: b.headerOff, Size: 4 + b.bodyLen})
			}
		case blockStreamInfo:
			// consumed only via ProbeStreamInfo; not part of the tag.
		default:
			code := blockTypeName(b.typ)
			tag.UpsertAdditional(model.AdditionalField{
				TagType:    model.TagVorbis,
				NativeCode: code,
				Value:      string(body),
				ZoneName:   code,
			})
			if ctx.PrepareForWriting {
				ctx.Zones.AddZone(zones.Zone{Name: code, Offset: b.headerOff, Size: 4 + b.bodyLen})
			}
		}
	}

	if !haveComment {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: vorbis.VendorCode, Value: ""})
	}
	return tag, nil
}

func blockTypeName(t int) string {
	switch t {
	case blockApplication:
		return "APPLICATION"
	case blockSeekTable:
		return "SEEKTABLE"
	case blockCueSheet:
		return "CUESHEET"
	default:
		return "BLOCK_UNKNOWN"
	}
}

func pictureZoneName(blockIndex int) string {
	return "PICTURE_" + itoa(blockIndex)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	p := len(buf)
	for i > 0 {
		p--
		buf[p] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[p:])
}

// Write implements codec.Codec. The Vorbis comment block is rewritten in
// place; all pictures are consolidated contiguously at the first picture
// zone's position and any other picture zones are erased; the last-block
// flag migrates to whichever block ends the region after the rewrite.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "flac.Write"

	vendor := ""
	if f, ok := merged.FindAdditional(model.TagVorbis, vorbis.VendorCode); ok {
		vendor = f.Value
	}
	commentBody := vorbis.Encode(merged, vendor, false)
	commentBlock := encodeBlock(blockVorbisComment, false, commentBody)

	newContent := map[string][]byte{"VORBIS_COMMENT": commentBlock}

	// Prefer absorbing a comment-block size change into an existing
	// PADDING block over splicing the audio payload: shrink or grow
	// PADDING by exactly the delta so trailing zones — and the audio
	// that follows them — never move.
	if padZone := ctx.Zones.Zone("PADDING"); padZone != nil {
		if commentZone := ctx.Zones.Zone("VORBIS_COMMENT"); commentZone != nil {
			delta := int64(len(commentBlock)) - commentZone.Size
			newPadSize := padZone.Size - delta
			if newPadSize >= 4 {
				newContent["PADDING"] = encodeBlock(blockPadding, false, make([]byte, newPadSize-4))
			}
		}
	}

	pictureZones := ctx.Zones.PictureZones()
	if len(pictureZones) > 0 {
		first := pictureZones[0]
		var firstBody []byte
		for i, p := range merged.Pictures {
			body := picture.EncodeBody(p)
			block := encodeBlock(blockPicture, false, body)
			if i == 0 {
				firstBody = block
			} else {
				firstBody = append(firstBody, block...)
			}
		}
		newContent[first.Name] = firstBody
		for _, z := range pictureZones[1:] {
			newContent[z.Name] = nil
		}
	} else if len(merged.Pictures) > 0 {
		// No existing picture zone to anchor on: append a synthetic one
		// right after the comment zone so Rewrite still has a position.
		var all []byte
		for _, p := range merged.Pictures {
			all = append(all, encodeBlock(blockPicture, false, picture.EncodeBody(p))...)
		}
		cz := ctx.Zones.Zone("VORBIS_COMMENT")
		z := ctx.Zones.AddZone(zones.Zone{Name: "PICTURE_NEW", Offset: cz.Offset + cz.Size, Size: 0})
		newContent[z.Name] = all
	}

	if err := ctx.Zones.Rewrite(ctx.File, newContent); err != nil {
		return terr.IoErr(where, err)
	}
	return fixLastBlockFlag(ctx.File)
}

// Remove implements codec.Codec: it empties the Vorbis comment block to a
// vendor-only tag and erases every picture zone. FLAC has no
// mandatory-for-playback metadata fields (STREAMINFO is untouched since it
// is never registered as a zone).
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	const where = "flac.Remove"
	vendor := ""
	if f, ok := current.FindAdditional(model.TagVorbis, vorbis.VendorCode); ok {
		vendor = f.Value
	}
	empty := model.New()
	commentBlock := encodeBlock(blockVorbisComment, false, vorbis.Encode(empty, vendor, false))

	newContent := map[string][]byte{"VORBIS_COMMENT": commentBlock}
	for _, z := range ctx.Zones.PictureZones() {
		newContent[z.Name] = nil
	}
	if err := ctx.Zones.Rewrite(ctx.File, newContent); err != nil {
		return terr.IoErr(where, err)
	}
	return fixLastBlockFlag(ctx.File)
}

// encodeBlock wraps body in its 4-byte block header.
func encodeBlock(typ int, last bool, body []byte) []byte {
	header := make([]byte, 4)
	if last {
		header[0] = 0x80
	}
	header[0] |= byte(typ) & 0x7F
	length := uint32(len(body))
	header[1] = byte(length >> 16)
	header[2] = byte(length >> 8)
	header[3] = byte(length)
	return append(header, body...)
}

// fixLastBlockFlag re-reads the block chain after a rewrite and ensures
// exactly one block — whichever now ends the metadata region — carries the
// last-block flag, migrating it off any block that used to be last but no
// longer is.
func fixLastBlockFlag(f *os.File) error {
	const where = "flac.fixLastBlockFlag"
	off := int64(4)
	var headerOffs []int64
	for {
		header := make([]byte, 4)
		if _, err := f.ReadAt(header, off); err != nil {
			return terr.MalformedErr(where, "truncated block header during flag fix-up")
		}
		headerOffs = append(headerOffs, off)
		last := header[0]&0x80 != 0
		length := int64(header[1])<<16 | int64(header[2])<<8 | int64(header[3])
		off += 4 + length
		if last {
			break
		}
	}
	for i, hoff := range headerOffs {
		b := make([]byte, 1)
		if _, err := f.ReadAt(b, hoff); err != nil {
			return terr.IoErr(where, err)
		}
		want := i == len(headerOffs)-1
		have := b[0]&0x80 != 0
		if want == have {
			continue
		}
		if want {
			b[0] |= 0x80
		} else {
			b[0] &^= 0x80
		}
		if _, err := f.WriteAt(b, hoff); err != nil {
			return terr.IoErr(where, err)
		}
	}
	return nil
}
