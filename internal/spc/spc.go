// Package spc implements the SPC700/ID666/xid6 codec: the
// fixed-offset ID666 header embedded in every SPC dump, its binary/text
// field disambiguation, and the optional xid6 extended-information footer.
package spc

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/tagforge/tagforge/internal/bytestream"
	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/zones"
)

// Magic is the fixed leading 27 bytes of SPC's 33-byte format tag; the
// version suffix that fills the rest varies between rippers ("0.10" and
// "0.30" both seen in the wild).
const Magic = "SNES-SPC700 Sound File Data"

// SPC_RAW_LENGTH: header block + 64KB audio RAM + 256-byte DSP register
// dump. A file this long or shorter carries no extended tag.
const rawLength = 66048

const (
	tagInHeaderOffset = 41
	tagInHeaderValue  = 0x1A
	id666Offset       = 52
	id666Size         = 177 // title..artist + 14 unused trailer bytes
	headerZoneSize    = id666Offset + id666Size

	titleOff, titleLen     = 52, 32
	albumOff, albumLen     = 84, 32
	dumperOff, dumperLen   = 116, 16
	commentOff, commentLen = 132, 32
	dateOff, dateLen       = 164, 11
	songOff, songLen       = 175, 3
	fadeOff, fadeLen       = 178, 5
	artistOff, artistLen   = 183, 32
)

const (
	headerZoneName = "SPC_ID666"
	xid6ZoneName   = "SPC_XID6"
)

// Additional field native codes carried under model.TagSPC for data that
// has no format-neutral supported-field home.
const (
	codeDumper            = "Dumper"
	codeDumpDate          = "DumpDate"
	codeSongLengthSeconds = "SongLengthSeconds"
	codeFadeMs            = "FadeMs"
	codeDurationMs        = "DurationMs"
	codeEmulator          = "Emulator"
	codeOST               = "OST"
	codeDisc              = "Disc"
	codeIntroTicks        = "PlaybackIntroTicks"
	codeLoopTicks         = "PlaybackLoopTicks"
	codeEndTicks          = "PlaybackEndTicks"
	codeFadeTicks         = "PlaybackFadeTicks"
	codeMuteTicks         = "PlaybackMuteTicks"
	codeLoopTimes         = "PlaybackLoopTimes"
	codeAmplification     = "PlaybackAmplification"
)

// Codec implements codec.Codec for SPC700.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagSPC }

const (
	catText = iota
	catEmpty
	catBinary
)

func classify(b []byte) int {
	allZero := true
	allTextish := true
	for _, c := range b {
		if c != 0 {
			allZero = false
		}
		if !(c == '/' || (c >= '0' && c <= '9') || c == 0) {
			allTextish = false
		}
	}
	if allZero {
		return catEmpty
	}
	if allTextish {
		return catText
	}
	return catBinary
}

func trimLatin1(b []byte) string {
	return strings.TrimRight(bytestream.DecodeLatin1(b), "\x00 ")
}

func putLatin1(dst []byte, s string) {
	raw := bytestream.EncodeLatin1(s)
	n := copy(dst, raw)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}

func parseDecimal(b []byte) int {
	s := strings.TrimRight(strings.TrimRight(string(b), "\x00"), " ")
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// Read implements codec.Codec.
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	const where = "spc.Read"
	fi, err := ctx.File.Stat()
	if err != nil {
		return nil, terr.IoErr(where, err)
	}
	size := fi.Size()
	if size < rawLength {
		return nil, terr.NotRecognizedErr(where)
	}

	prefix := make([]byte, id666Offset+id666Size)
	if _, err := ctx.File.ReadAt(prefix, 0); err != nil {
		return nil, terr.IoErr(where, err)
	}
	if string(prefix[0:len(Magic)]) != Magic {
		return nil, terr.NotRecognizedErr(where)
	}

	tag := model.New()
	if prefix[tagInHeaderOffset] == tagInHeaderValue {
		decodeID666(tag, prefix, ctx.Settings.SPCPreferBinaryOnAmbiguous)
	}

	if ctx.PrepareForWriting {
		ctx.Zones.AddZone(zones.Zone{Name: headerZoneName, Offset: 0, Size: headerZoneSize})
	}

	if size > rawLength {
		xid6 := make([]byte, size-rawLength)
		if _, err := ctx.File.ReadAt(xid6, rawLength); err != nil {
			return nil, terr.IoErr(where, err)
		}
		decodeXid6(tag, xid6)
		if ctx.PrepareForWriting {
			ctx.Zones.AddZone(zones.Zone{Name: xid6ZoneName, Offset: rawLength, Size: size - rawLength})
		}
	}

	return tag, nil
}

func decodeID666(tag *model.TagData, buf []byte, preferBinary bool) {
	title := trimLatin1(buf[titleOff : titleOff+titleLen])
	album := trimLatin1(buf[albumOff : albumOff+albumLen])
	dumper := trimLatin1(buf[dumperOff : dumperOff+dumperLen])
	comment := trimLatin1(buf[commentOff : commentOff+commentLen])
	artist := trimLatin1(buf[artistOff : artistOff+artistLen])

	dateRaw := buf[dateOff : dateOff+dateLen]
	songRaw := buf[songOff : songOff+songLen]
	fadeRaw := buf[fadeOff : fadeOff+fadeLen]

	dateCat, songCat, fadeCat := classify(dateRaw), classify(songRaw), classify(fadeRaw)
	var useBinary bool
	switch {
	case dateCat == catText && songCat == catText && fadeCat == catText:
		useBinary = false
	case dateCat == catEmpty:
		useBinary = preferBinary
	default:
		useBinary = true
	}

	var songSeconds, fadeMs int
	if useBinary {
		songSeconds = clamp(int(binary.LittleEndian.Uint16(songRaw[0:2])), 959)
		fadeMs = clamp(int(binary.LittleEndian.Uint32(fadeRaw[0:4])), 59999)
	} else {
		songSeconds = parseDecimal(songRaw)
		fadeMs = parseDecimal(fadeRaw)
	}

	if title != "" {
		tag.Set(model.Title, title)
	}
	if album != "" {
		tag.Set(model.Album, album)
	}
	if artist != "" {
		tag.Set(model.Artist, artist)
	}
	if comment != "" {
		tag.Set(model.Comment, comment)
	}
	if dumper != "" {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDumper, Value: dumper})
	}
	if dateCat != catEmpty {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDumpDate, Value: trimLatin1(dateRaw)})
	}
	tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeSongLengthSeconds, Value: strconv.Itoa(songSeconds)})
	tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeFadeMs, Value: strconv.Itoa(fadeMs)})

	if songSeconds > 0 {
		durationMs := (int(math.Round(float64(fadeMs)/1000.0)) + songSeconds) * 1000
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDurationMs, Value: strconv.Itoa(durationMs)})
	}
}

// xid6 item type ids.
const (
	xid6TypeInline = 0
	xid6TypeString = 1
	xid6TypeInt32  = 4
)

// xid6 field ids.
const (
	xid6Title      = 0x01
	xid6Album      = 0x02
	xid6Artist     = 0x03
	xid6Dumper     = 0x04
	xid6Date       = 0x05
	xid6Emulator   = 0x06
	xid6Comments   = 0x07
	xid6OST        = 0x10
	xid6Disc       = 0x11
	xid6Track      = 0x12
	xid6Publisher  = 0x13
	xid6CopyYear   = 0x14
	xid6Intro      = 0x30
	xid6Loop       = 0x31
	xid6End        = 0x32
	xid6Fade       = 0x33
	xid6Mute       = 0x34
	xid6LoopTimes  = 0x35
	xid6Amp        = 0x36
)

const xid6Magic = "xid6"

type xid6Item struct {
	id       byte
	typ      byte
	inline   uint16
	value    []byte
}

func decodeXid6(tag *model.TagData, buf []byte) {
	if len(buf) < 8 || string(buf[0:4]) != xid6Magic {
		return
	}
	chunkSize := binary.LittleEndian.Uint32(buf[4:8])
	items := readXid6Items(buf[8:], chunkSize)

	var intro, loop, end, fade, mute, loopTimes, amp int64
	havePlayback := false

	for _, it := range items {
		switch it.id {
		case xid6Title:
			tag.Set(model.Title, strVal(it))
		case xid6Album:
			tag.Set(model.Album, strVal(it))
		case xid6Artist:
			tag.Set(model.Artist, strVal(it))
		case xid6Dumper:
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDumper, Value: strVal(it)})
		case xid6Date:
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDumpDate, Value: strVal(it)})
		case xid6Emulator:
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeEmulator, Value: strVal(it)})
		case xid6Comments:
			tag.Set(model.Comment, strVal(it))
		case xid6OST:
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeOST, Value: strVal(it)})
		case xid6Disc:
			tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDisc, Value: intVal(it)})
		case xid6Track:
			decodeXid6Track(tag, it)
		case xid6Publisher:
			tag.Set(model.Publisher, strVal(it))
		case xid6CopyYear:
			tag.Set(model.Copyright, intVal(it))
		case xid6Intro:
			intro, havePlayback = int64(it.inline), true
		case xid6Loop:
			loop, havePlayback = int64(it.inline), true
		case xid6End:
			end, havePlayback = int64(it.inline), true
		case xid6Fade:
			fade, havePlayback = int64(it.inline), true
		case xid6Mute:
			mute, havePlayback = int64(it.inline), true
		case xid6LoopTimes:
			loopTimes, havePlayback = int64(it.inline), true
		case xid6Amp:
			amp, havePlayback = int64(it.inline), true
		}
	}

	if intro != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeIntroTicks, Value: strconv.FormatInt(intro, 10)})
	}
	if loop != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeLoopTicks, Value: strconv.FormatInt(loop, 10)})
	}
	if end != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeEndTicks, Value: strconv.FormatInt(end, 10)})
	}
	if fade != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeFadeTicks, Value: strconv.FormatInt(fade, 10)})
	}
	if mute != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeMuteTicks, Value: strconv.FormatInt(mute, 10)})
	}
	if loopTimes != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeLoopTimes, Value: strconv.FormatInt(loopTimes, 10)})
	}
	if amp != 0 {
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeAmplification, Value: strconv.FormatInt(amp, 10)})
	}

	if havePlayback {
		loopxClamped := loopTimes
		if loopxClamped > 9 {
			loopxClamped = 9
		}
		ticks := intro + minInt64(loop*loopxClamped, 383_999_999) + end + fade
		const ticksPerSecond = 64000
		durationMs := ticks * 1000 / ticksPerSecond
		tag.UpsertAdditional(model.AdditionalField{TagType: model.TagSPC, NativeCode: codeDurationMs, Value: strconv.FormatInt(durationMs, 10)})
	}
}

// DurationSeconds extracts the playback duration Read already computed
// (header song-length/fade-time, overridden by xid6 ticks when present)
// from tag's additional fields. It reports false if Read found neither.
func DurationSeconds(tag *model.TagData) (float64, bool) {
	af, ok := tag.FindAdditional(model.TagSPC, codeDurationMs)
	if !ok {
		return 0, false
	}
	ms, err := strconv.Atoi(af.Value)
	if err != nil {
		return 0, false
	}
	return float64(ms) / 1000.0, true
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func decodeXid6Track(tag *model.TagData, it xid6Item) {
	trackNum := it.inline >> 8
	suffix := byte(it.inline & 0xFF)
	val := strconv.Itoa(int(trackNum))
	if suffix > 0x20 {
		val += string(rune(suffix))
	}
	tag.Set(model.TrackNumber, val)
}

func strVal(it xid6Item) string {
	return strings.TrimRight(bytestream.DecodeLatin1(it.value), "\x00")
}

func intVal(it xid6Item) string {
	if it.typ == xid6TypeInline {
		return strconv.Itoa(int(it.inline))
	}
	if len(it.value) >= 4 {
		return strconv.Itoa(int(binary.LittleEndian.Uint32(it.value)))
	}
	return ""
}

// readXid6Items walks the 4-byte-header item list inside an xid6 chunk
// body, stopping at chunkSize bytes consumed.
func readXid6Items(body []byte, chunkSize uint32) []xid6Item {
	var items []xid6Item
	limit := int(chunkSize)
	if limit > len(body) {
		limit = len(body)
	}
	off := 0
	for off+4 <= limit {
		id := body[off]
		typ := body[off+1]
		size := binary.LittleEndian.Uint16(body[off+2 : off+4])
		off += 4

		switch typ {
		case xid6TypeInline:
			items = append(items, xid6Item{id: id, typ: typ, inline: size})
		case xid6TypeInt32:
			if off+4 > limit {
				return items
			}
			items = append(items, xid6Item{id: id, typ: typ, value: body[off : off+4]})
			off += 4
		default: // xid6TypeString and any other length-carrying type
			n := int(size)
			padded := n
			if padded%2 != 0 {
				padded++
			}
			if off+padded > limit {
				return items
			}
			items = append(items, xid6Item{id: id, typ: typ, value: body[off : off+n]})
			off += padded
		}
	}
	return items
}

func encodeXid6StringItem(id byte, s string) []byte {
	raw := append(bytestream.EncodeLatin1(s), 0)
	size := len(raw)
	padded := size
	if padded%2 != 0 {
		padded++
	}
	buf := make([]byte, 4+padded)
	buf[0] = id
	buf[1] = xid6TypeString
	binary.LittleEndian.PutUint16(buf[2:4], uint16(size))
	copy(buf[4:], raw)
	return buf
}

func encodeXid6InlineItem(id byte, value uint16) []byte {
	buf := make([]byte, 4)
	buf[0] = id
	buf[1] = xid6TypeInline
	binary.LittleEndian.PutUint16(buf[2:4], value)
	return buf
}

// Write implements codec.Codec.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "spc.Write"
	content := map[string][]byte{}

	if z := ctx.Zones.Zone(headerZoneName); z != nil {
		header := make([]byte, headerZoneSize)
		if _, err := ctx.File.ReadAt(header, 0); err != nil {
			return terr.IoErr(where, err)
		}
		encodeID666(header, merged)
		content[headerZoneName] = header
	}

	xid6Bytes := encodeXid6(merged)
	if len(xid6Bytes) > 0 {
		if ctx.Zones.Zone(xid6ZoneName) == nil {
			ctx.Zones.AddZone(zones.Zone{Name: xid6ZoneName, Offset: rawLength, Size: 0})
		}
		content[xid6ZoneName] = xid6Bytes
	} else if ctx.Zones.Zone(xid6ZoneName) != nil {
		content[xid6ZoneName] = nil
	}

	if err := ctx.Zones.Rewrite(ctx.File, content); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

func encodeID666(buf []byte, tag *model.TagData) {
	putLatin1(buf[titleOff:titleOff+titleLen], tag.Get(model.Title))
	putLatin1(buf[albumOff:albumOff+albumLen], tag.Get(model.Album))
	putLatin1(buf[artistOff:artistOff+artistLen], tag.Get(model.Artist))
	putLatin1(buf[commentOff:commentOff+commentLen], tag.Get(model.Comment))

	dumper := ""
	if af, ok := tag.FindAdditional(model.TagSPC, codeDumper); ok {
		dumper = af.Value
	}
	putLatin1(buf[dumperOff:dumperOff+dumperLen], dumper)

	date := ""
	if af, ok := tag.FindAdditional(model.TagSPC, codeDumpDate); ok {
		date = af.Value
	}
	putLatin1(buf[dateOff:dateOff+dateLen], date)

	songSeconds := 0
	if af, ok := tag.FindAdditional(model.TagSPC, codeSongLengthSeconds); ok {
		songSeconds, _ = strconv.Atoi(af.Value)
	}
	fadeMs := 0
	if af, ok := tag.FindAdditional(model.TagSPC, codeFadeMs); ok {
		fadeMs, _ = strconv.Atoi(af.Value)
	}
	for i := range buf[songOff : songOff+songLen] {
		buf[songOff+i] = 0
	}
	binary.LittleEndian.PutUint16(buf[songOff:songOff+2], uint16(clamp(songSeconds, 959)))
	for i := range buf[fadeOff : fadeOff+fadeLen] {
		buf[fadeOff+i] = 0
	}
	binary.LittleEndian.PutUint32(buf[fadeOff:fadeOff+4], uint32(clamp(fadeMs, 59999)))
}

func encodeXid6(tag *model.TagData) []byte {
	var items []byte
	addString := func(id byte, v string) {
		if v != "" {
			items = append(items, encodeXid6StringItem(id, v)...)
		}
	}
	addString(xid6Title, tag.Get(model.Title))
	addString(xid6Album, tag.Get(model.Album))
	addString(xid6Artist, tag.Get(model.Artist))
	addString(xid6Comments, tag.Get(model.Comment))
	addString(xid6Publisher, tag.Get(model.Publisher))

	for _, code := range []struct {
		native string
		id     byte
	}{
		{codeDumper, xid6Dumper}, {codeDumpDate, xid6Date}, {codeEmulator, xid6Emulator},
		{codeOST, xid6OST},
	} {
		if af, ok := tag.FindAdditional(model.TagSPC, code.native); ok && af.Value != "" {
			addString(code.id, af.Value)
		}
	}
	for _, code := range []struct {
		native string
		id     byte
	}{
		{codeIntroTicks, xid6Intro}, {codeLoopTicks, xid6Loop}, {codeEndTicks, xid6End},
		{codeFadeTicks, xid6Fade}, {codeMuteTicks, xid6Mute}, {codeLoopTimes, xid6LoopTimes},
		{codeAmplification, xid6Amp},
	} {
		if af, ok := tag.FindAdditional(model.TagSPC, code.native); ok {
			if n, err := strconv.Atoi(af.Value); err == nil {
				items = append(items, encodeXid6InlineItem(code.id, uint16(n))...)
			}
		}
	}

	if len(items) == 0 {
		return nil
	}
	out := make([]byte, 8, 8+len(items))
	copy(out[0:4], xid6Magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(items)))
	return append(out, items...)
}

// Remove implements codec.Codec. SPC playback depends on bytes the tag
// shares its header with (song length, fade time), so Remove clears only
// the textual fields and leaves the playback-relevant ones untouched.
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	const where = "spc.Remove"
	z := ctx.Zones.Zone(headerZoneName)
	if z == nil {
		return nil
	}
	header := make([]byte, headerZoneSize)
	if _, err := ctx.File.ReadAt(header, 0); err != nil {
		return terr.IoErr(where, err)
	}
	putLatin1(header[titleOff:titleOff+titleLen], "")
	putLatin1(header[albumOff:albumOff+albumLen], "")
	putLatin1(header[artistOff:artistOff+artistLen], "")
	putLatin1(header[commentOff:commentOff+commentLen], "")
	putLatin1(header[dumperOff:dumperOff+dumperLen], "")
	// date, song length and fade time are left untouched.

	content := map[string][]byte{headerZoneName: header}
	if ctx.Zones.Zone(xid6ZoneName) != nil {
		// Keep only the xid6 playback items; an empty result drops the block.
		playback := model.New()
		for _, code := range []string{codeIntroTicks, codeLoopTicks, codeEndTicks, codeFadeTicks, codeMuteTicks, codeLoopTimes, codeAmplification} {
			if af, ok := current.FindAdditional(model.TagSPC, code); ok {
				playback.UpsertAdditional(af)
			}
		}
		content[xid6ZoneName] = encodeXid6(playback)
	}
	if err := ctx.Zones.Rewrite(ctx.File, content); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}
