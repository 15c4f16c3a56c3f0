// Package ogg implements the Ogg container codec for Vorbis audio: page
// parsing, packet reassembly across pages, and the comment-packet rewrite
// strategy. Field decoding is delegated to internal/vorbis, the same
// collaborator internal/flac uses, rather than duplicated here.
package ogg

import (
	"encoding/binary"
	"os"

	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/vorbis"
	"github.com/tagforge/tagforge/internal/zones"
)

// Magic is the Ogg page capture pattern.
const Magic = "OggS"

const commentZoneName = "OGG_HEADER"

// commentPacketMagic is the 7-byte prefix every Vorbis comment packet
// carries: type byte 0x03 followed by "vorbis".
var commentPacketMagic = []byte{0x03, 'v', 'o', 'r', 'b', 'i', 's'}

// Codec implements codec.Codec for the Vorbis comment packet carried
// inside an Ogg bitstream.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagVorbis }

// page is one parsed Ogg page's framing fields plus its byte location.
type page struct {
	offset     int64
	length     int64 // full page length: fixed header + segment table + body
	headerType byte
	granule    uint64
	serial     uint32
	seq        uint32
	segTable   []byte
	bodyOffset int64
	bodyLen    int64
}

func (p page) continuation() bool { return p.headerType&0x01 != 0 }

// readPageAt parses the Ogg page starting at offset.
func readPageAt(f *os.File, offset int64) (page, error) {
	const where = "ogg.readPageAt"
	fixed := make([]byte, 27)
	if _, err := f.ReadAt(fixed, offset); err != nil {
		return page{}, terr.MalformedErr(where, "truncated page header")
	}
	if string(fixed[0:4]) != Magic {
		return page{}, terr.MalformedErr(where, "missing OggS capture pattern")
	}
	headerType := fixed[5]
	granule := binary.LittleEndian.Uint64(fixed[6:14])
	serial := binary.LittleEndian.Uint32(fixed[14:18])
	seq := binary.LittleEndian.Uint32(fixed[18:22])
	segCount := int(fixed[26])

	segTable := make([]byte, segCount)
	if segCount > 0 {
		if _, err := f.ReadAt(segTable, offset+27); err != nil {
			return page{}, terr.MalformedErr(where, "truncated segment table")
		}
	}
	bodyLen := int64(0)
	for _, s := range segTable {
		bodyLen += int64(s)
	}
	bodyOffset := offset + 27 + int64(segCount)

	return page{
		offset:     offset,
		length:     27 + int64(segCount) + bodyLen,
		headerType: headerType,
		granule:    granule,
		serial:     serial,
		seq:        seq,
		segTable:   segTable,
		bodyOffset: bodyOffset,
		bodyLen:    bodyLen,
	}, nil
}

// headerRegion describes the contiguous run of pages (after the
// identification page) that carries the comment packet and any packet
// sharing those same pages (typically the Vorbis setup packet).
type headerRegion struct {
	firstOffset int64
	firstSeq    uint32
	serial      uint32
	totalLen    int64
	pageCount   int
	packets     [][]byte
}

// parseHeaderRegion locates the identification page, then reads pages
// until the comment packet is fully reassembled, consuming every
// subsequent page that either starts the run or continues the previous
// page's open packet, splitting their combined body into complete packets
// via the segment table's 255-run convention.
func parseHeaderRegion(f *os.File) (headerRegion, error) {
	const where = "ogg.parseHeaderRegion"

	idPage, err := readPageAt(f, 0)
	if err != nil {
		return headerRegion{}, terr.NotRecognizedErr(where)
	}

	var packets [][]byte
	var cur []byte
	offset := idPage.offset + idPage.length
	firstOffset := offset
	firstSeq := uint32(0)
	first := true
	var totalLen int64
	pageCount := 0

	for {
		p, err := readPageAt(f, offset)
		if err != nil {
			if first {
				return headerRegion{}, err
			}
			break
		}
		if !first && !p.continuation() {
			break
		}
		if first {
			firstSeq = p.seq
		}
		first = false

		body := make([]byte, p.bodyLen)
		if p.bodyLen > 0 {
			if _, err := f.ReadAt(body, p.bodyOffset); err != nil {
				return headerRegion{}, terr.IoErr(where, err)
			}
		}

		idx := 0
		segIdx := 0
		for segIdx < len(p.segTable) {
			run := int64(0)
			for segIdx < len(p.segTable) && p.segTable[segIdx] == 255 {
				run += 255
				segIdx++
			}
			if segIdx < len(p.segTable) {
				run += int64(p.segTable[segIdx])
				segIdx++
				cur = append(cur, body[idx:idx+run]...)
				idx += int(run)
				packets = append(packets, cur)
				cur = nil
			} else {
				cur = append(cur, body[idx:idx+run]...)
				idx += int(run)
			}
		}

		totalLen += p.length
		pageCount++
		offset += p.length
	}

	if len(packets) == 0 || len(packets[0]) < len(commentPacketMagic) {
		return headerRegion{}, terr.MalformedErr(where, "no Vorbis comment packet found")
	}
	for i, b := range commentPacketMagic {
		if packets[0][i] != b {
			return headerRegion{}, terr.MalformedErr(where, "expected vorbis comment packet")
		}
	}

	return headerRegion{
		firstOffset: firstOffset,
		firstSeq:    firstSeq,
		serial:      idPage.serial,
		totalLen:    totalLen,
		pageCount:   pageCount,
		packets:     packets,
	}, nil
}

// AudioInfo holds the audio properties recoverable directly from the
// Vorbis identification header and the bitstream's final granule position,
// without decoding the comment packet at all.
type AudioInfo struct {
	Channels   int
	SampleRate int
	// BitrateNominal is the encoder's declared nominal bitrate in bits per
	// second, or 0 if the header left it unset.
	BitrateNominal  int
	DurationSeconds float64
}

// identHeaderLen is the fixed-layout prefix of the identification packet:
// type byte, "vorbis", version, channels, sample rate, three bitrate
// fields, blocksize byte, framing byte.
const identHeaderLen = 30

// undefinedGranule is the granule-position sentinel a page uses when it
// carries no new sample boundary.
const undefinedGranule = ^uint64(0)

// ProbeIdentification reads the Vorbis identification packet from the
// first page for channel count, sample rate and nominal bitrate, then
// walks the bitstream's remaining pages to find the final granule position
// (a total sample count) and derive a duration from it.
func ProbeIdentification(f *os.File) (AudioInfo, error) {
	const where = "ogg.ProbeIdentification"
	idPage, err := readPageAt(f, 0)
	if err != nil {
		return AudioInfo{}, terr.NotRecognizedErr(where)
	}
	body := make([]byte, idPage.bodyLen)
	if idPage.bodyLen > 0 {
		if _, err := f.ReadAt(body, idPage.bodyOffset); err != nil {
			return AudioInfo{}, terr.IoErr(where, err)
		}
	}
	if len(body) < identHeaderLen || body[0] != 0x01 || string(body[1:7]) != "vorbis" {
		return AudioInfo{}, terr.MalformedErr(where, "missing Vorbis identification header")
	}

	info := AudioInfo{
		Channels:   int(body[11]),
		SampleRate: int(binary.LittleEndian.Uint32(body[12:16])),
	}
	if nominal := int32(binary.LittleEndian.Uint32(body[20:24])); nominal > 0 {
		info.BitrateNominal = int(nominal)
	}

	lastGranule := idPage.granule
	offset := idPage.offset + idPage.length
	for {
		p, err := readPageAt(f, offset)
		if err != nil {
			break
		}
		if p.serial == idPage.serial && p.granule != undefinedGranule {
			lastGranule = p.granule
		}
		offset += p.length
	}
	if info.SampleRate > 0 && lastGranule > 0 && lastGranule != undefinedGranule {
		info.DurationSeconds = float64(lastGranule) / float64(info.SampleRate)
	}
	return info, nil
}

// Read implements codec.Codec.
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	region, err := parseHeaderRegion(ctx.File)
	if err != nil {
		return nil, err
	}
	tag, _, err := vorbis.Decode(region.packets[0][len(commentPacketMagic):], true)
	if err != nil {
		return nil, err
	}
	if ctx.PrepareForWriting {
		ctx.Zones.AddZone(zones.Zone{Name: commentZoneName, Offset: region.firstOffset, Size: region.totalLen})
	}
	return tag, nil
}

// Write implements codec.Codec: it rebuilds the comment packet, keeps any
// other packet sharing the header-page region (e.g. the Vorbis setup
// packet) byte-for-byte, re-pages the result starting at the original page
// offset and sequence number with the original serial, and splices it back
// in place.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "ogg.Write"
	region, err := parseHeaderRegion(ctx.File)
	if err != nil {
		return err
	}

	vendor := ""
	if f, ok := merged.FindAdditional(model.TagVorbis, vorbis.VendorCode); ok {
		vendor = f.Value
	}
	newComment := append(append([]byte{}, commentPacketMagic...), vorbis.Encode(merged, vendor, true)...)

	newPackets := append([][]byte{newComment}, region.packets[1:]...)
	pageBytes := encodePages(newPackets, region.serial, region.firstSeq)

	zone := ctx.Zones.Zone(commentZoneName)
	if zone == nil {
		zone = ctx.Zones.AddZone(zones.Zone{Name: commentZoneName, Offset: region.firstOffset, Size: region.totalLen})
	}
	if err := ctx.Zones.Rewrite(ctx.File, map[string][]byte{commentZoneName: pageBytes}); err != nil {
		return terr.IoErr(where, err)
	}

	newPageCount := countPagesInBytes(pageBytes)
	if newPageCount != region.pageCount {
		if err := renumberTrailingPages(ctx.File, zone.Offset+int64(len(pageBytes)), region.serial, newPageCount-region.pageCount); err != nil {
			return terr.IoErr(where, err)
		}
	}
	return nil
}

// Remove implements codec.Codec: it empties every field but keeps the
// VENDOR string, exactly like a Write with an all-fields-cleared tag.
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	vendor := ""
	if f, ok := current.FindAdditional(model.TagVorbis, vorbis.VendorCode); ok {
		vendor = f.Value
	}
	empty := model.New()
	empty.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: vorbis.VendorCode, Value: vendor})
	return c.Write(ctx, empty)
}

func countPagesInBytes(b []byte) int {
	n := 0
	off := 0
	for off < len(b) {
		segCount := int(b[off+26])
		bodyLen := 0
		for _, s := range b[off+27 : off+27+segCount] {
			bodyLen += int(s)
		}
		off += 27 + segCount + bodyLen
		n++
	}
	return n
}

// renumberTrailingPages walks every Ogg page of the given serial starting
// at offset, adding delta to its page-sequence number and recomputing its
// CRC, so sequence numbers stay contiguous after the header region's page
// count changed.
func renumberTrailingPages(f *os.File, offset int64, serial uint32, delta int) error {
	for {
		p, err := readPageAt(f, offset)
		if err != nil {
			break // reached EOF: no more pages to renumber
		}
		if p.serial == serial {
			newSeq := int64(p.seq) + int64(delta)
			seqBuf := make([]byte, 4)
			binary.LittleEndian.PutUint32(seqBuf, uint32(newSeq))
			if _, err := f.WriteAt(seqBuf, offset+18); err != nil {
				return err
			}
			if err := rewriteCRC(f, offset, p.length); err != nil {
				return err
			}
		}
		offset += p.length
	}
	return nil
}

// rewriteCRC zeroes the CRC field, recomputes the checksum over the whole
// page, and writes it back.
func rewriteCRC(f *os.File, offset, length int64) error {
	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return err
	}
	buf[22], buf[23], buf[24], buf[25] = 0, 0, 0, 0
	crc := crc32(buf)
	binary.LittleEndian.PutUint32(buf[22:26], crc)
	_, err := f.WriteAt(buf[22:26], offset+22)
	return err
}
