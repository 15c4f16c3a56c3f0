// Package apev2 implements the APEv2 tag codec: a 32-byte
// header/footer pair bracketing a sequence of key/value items, living at
// the end of the file and optionally followed by an ID3v1 trailer.
package apev2

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/zones"
)

const (
	magic      = "APETAGEX"
	footerSize = 32
	id3v1Size  = 128
)

const zoneName = "APEV2"

// valueType occupies bits 1-2 of an item's flags field.
const (
	valueTypeUTF8    = 0
	valueTypeBinary  = 1
	valueTypeLocator = 2
)

const flagHasHeader = 1 << 31

// Codec implements codec.Codec for APEv2.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagAPEv2 }

type footer struct {
	version   uint32
	tagSize   uint32
	itemCount uint32
	flags     uint32
	hasHeader bool
}

func parseFooter(buf []byte) (footer, error) {
	const where = "apev2.parseFooter"
	if len(buf) < footerSize || string(buf[0:8]) != magic {
		return footer{}, terr.NotRecognizedErr(where)
	}
	flags := binary.LittleEndian.Uint32(buf[20:24])
	return footer{
		version:   binary.LittleEndian.Uint32(buf[8:12]),
		tagSize:   binary.LittleEndian.Uint32(buf[12:16]),
		itemCount: binary.LittleEndian.Uint32(buf[16:20]),
		flags:     flags,
		hasHeader: flags&flagHasHeader != 0,
	}, nil
}

func encodeFooterOrHeader(f footer, isHeader bool) []byte {
	buf := make([]byte, footerSize)
	copy(buf[0:8], magic)
	binary.LittleEndian.PutUint32(buf[8:12], f.version)
	binary.LittleEndian.PutUint32(buf[12:16], f.tagSize)
	binary.LittleEndian.PutUint32(buf[16:20], f.itemCount)
	flags := f.flags
	if isHeader {
		flags |= 1 << 29 // "this is the header"
	}
	binary.LittleEndian.PutUint32(buf[20:24], flags)
	return buf
}

// item is one parsed APEv2 key/value entry.
type item struct {
	key       string
	valueType int
	value     []byte
}

func readItems(buf []byte, count uint32) []item {
	items := make([]item, 0, count)
	off := 0
	for i := uint32(0); i < count; i++ {
		if off+8 > len(buf) {
			break
		}
		size := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		flags := binary.LittleEndian.Uint32(buf[off+4 : off+8])
		off += 8
		nul := bytes.IndexByte(buf[off:], 0)
		if nul < 0 {
			break
		}
		key := string(buf[off : off+nul])
		off += nul + 1
		if size < 0 || off+size > len(buf) {
			break
		}
		items = append(items, item{
			key:       key,
			valueType: int(flags>>1) & 0x03,
			value:     buf[off : off+size],
		})
		off += size
	}
	return items
}

func encodeItem(key string, valueType int, value []byte) []byte {
	buf := make([]byte, 8, 8+len(key)+1+len(value))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(value)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(valueType<<1))
	buf = append(buf, []byte(key)...)
	buf = append(buf, 0)
	buf = append(buf, value...)
	return buf
}

// keyToField maps the canonical APEv2 key names to supported fields,
// matched case-insensitively on read.
var keyToField = map[string]model.FieldKey{
	"TITLE":        model.Title,
	"ARTIST":       model.Artist,
	"ALBUM":        model.Album,
	"ALBUM ARTIST": model.AlbumArtist,
	"COMPOSER":     model.Composer,
	"COMMENT":      model.Comment,
	"GENRE":        model.Genre,
	"YEAR":         model.ReleaseYear,
	"TRACK":        model.TrackNumber,
	"DISC":         model.DiscNumber,
	"COPYRIGHT":    model.Copyright,
	"PUBLISHER":    model.Publisher,
	"CONDUCTOR":    model.Conductor,
}

var fieldToKey = func() map[model.FieldKey]string {
	m := make(map[model.FieldKey]string, len(keyToField))
	for k, f := range keyToField {
		m[f] = k
	}
	return m
}()

// fieldOrder fixes item emission order so writes are deterministic.
var fieldOrder = []model.FieldKey{
	model.Title, model.Artist, model.Album, model.AlbumArtist, model.Composer,
	model.Comment, model.Genre, model.ReleaseYear, model.TrackNumber,
	model.DiscNumber, model.Copyright, model.Publisher, model.Conductor,
}

// pictureOrder fixes picture-item emission order.
var pictureOrder = []model.PictureType{
	model.PictureFront, model.PictureBack, model.PictureIcon, model.PictureCD,
	model.PictureLeadArtist,
}

// pictureKeyToType maps the conventional APEv2 cover-art key names (e.g.
// "Cover Art (Front)") to the format-neutral picture-type enum.
var pictureKeyToType = map[string]model.PictureType{
	"COVER ART (FRONT)":  model.PictureFront,
	"COVER ART (BACK)":   model.PictureBack,
	"COVER ART (ICON)":   model.PictureIcon,
	"COVER ART (MEDIA)":  model.PictureCD,
	"COVER ART (ARTIST)": model.PictureLeadArtist,
}

var pictureTypeToKey = func() map[model.PictureType]string {
	m := make(map[model.PictureType]string, len(pictureKeyToType))
	for k, t := range pictureKeyToType {
		m[t] = k
	}
	return m
}()

func fileSize(ctx *codec.Context) (int64, error) {
	fi, err := ctx.File.Stat()
	if err != nil {
		return 0, terr.IoErr("apev2.fileSize", err)
	}
	return fi.Size(), nil
}

// locate finds the APEv2 footer, skipping a trailing ID3v1 tag if present.
func locate(ctx *codec.Context) (footerOffset int64, f footer, err error) {
	const where = "apev2.locate"
	size, err := fileSize(ctx)
	if err != nil {
		return 0, footer{}, err
	}

	candidate := size
	id3Check := make([]byte, 3)
	if size >= id3v1Size {
		if _, rerr := ctx.File.ReadAt(id3Check, size-id3v1Size); rerr == nil && string(id3Check) == "TAG" {
			candidate = size - id3v1Size
		}
	}
	if candidate < footerSize {
		return 0, footer{}, terr.NotRecognizedErr(where)
	}
	footerOffset = candidate - footerSize
	buf := make([]byte, footerSize)
	if _, rerr := ctx.File.ReadAt(buf, footerOffset); rerr != nil {
		return 0, footer{}, terr.IoErr(where, rerr)
	}
	f, err = parseFooter(buf)
	if err != nil {
		return 0, footer{}, err
	}
	return footerOffset, f, nil
}

// Read implements codec.Codec.
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	const where = "apev2.Read"
	footerOffset, f, err := locate(ctx)
	if err != nil {
		return nil, err
	}

	itemsLen := int64(f.tagSize) - footerSize
	if itemsLen < 0 {
		return nil, terr.MalformedErr(where, "tag size smaller than footer")
	}
	itemsStart := footerOffset - itemsLen
	zoneStart := itemsStart
	if f.hasHeader {
		zoneStart -= footerSize
	}

	itemsBuf := make([]byte, itemsLen)
	if itemsLen > 0 {
		if _, err := ctx.File.ReadAt(itemsBuf, itemsStart); err != nil {
			return nil, terr.IoErr(where, err)
		}
	}

	tag := model.New()
	for _, it := range readItems(itemsBuf, f.itemCount) {
		decodeItem(tag, it)
	}

	if ctx.PrepareForWriting {
		ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: zoneStart, Size: footerOffset + footerSize - zoneStart})
	}
	return tag, nil
}

func decodeItem(tag *model.TagData, it item) {
	upperKey := strings.ToUpper(it.key)
	if it.valueType == valueTypeBinary {
		if pt, ok := pictureKeyToType[upperKey]; ok {
			decodePictureItem(tag, pt, it.value)
			return
		}
	}
	value := string(it.value)
	if fk, ok := keyToField[upperKey]; ok && it.valueType == valueTypeUTF8 {
		tag.Set(fk, value)
		return
	}
	tag.UpsertAdditional(model.AdditionalField{TagType: model.TagAPEv2, NativeCode: it.key, Value: value})
}

func decodePictureItem(tag *model.TagData, pt model.PictureType, value []byte) {
	nul := bytes.IndexByte(value, 0)
	if nul < 0 {
		nul = 0
	}
	data := value[nul:]
	if len(data) > 0 && data[0] == 0 {
		data = data[1:]
	}
	tag.Pictures = append(tag.Pictures, model.Picture{PictureType: pt, Bytes: data})
}

// Write implements codec.Codec. It always emits a header and footer,
// matching the common modern APEv2 writer convention.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "apev2.Write"
	itemsBuf, count := encodeItems(merged)

	f := footer{version: 2000, itemCount: count, flags: flagHasHeader}
	f.tagSize = uint32(len(itemsBuf) + footerSize)

	full := append(encodeFooterOrHeader(f, true), itemsBuf...)
	full = append(full, encodeFooterOrHeader(f, false)...)

	z := ctx.Zones.Zone(zoneName)
	if z == nil {
		offset, err := newTagOffset(ctx)
		if err != nil {
			return err
		}
		ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: offset, Size: 0})
	}
	if err := ctx.Zones.Rewrite(ctx.File, map[string][]byte{zoneName: full}); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

// newTagOffset places a brand-new tag just before any registered ID3v1
// trailer, or at EOF otherwise, keeping APEv2-before-ID3v1 ordering.
func newTagOffset(ctx *codec.Context) (int64, error) {
	if id3 := ctx.Zones.Zone("ID3V1"); id3 != nil {
		return id3.Offset, nil
	}
	return fileSize(ctx)
}

func encodeItems(tag *model.TagData) ([]byte, uint32) {
	var buf []byte
	var count uint32

	for _, fk := range fieldOrder {
		val := tag.Get(fk)
		if val == "" {
			continue
		}
		buf = append(buf, encodeItem(fieldToKey[fk], valueTypeUTF8, []byte(val))...)
		count++
	}
	for _, af := range tag.AdditionalFields {
		if af.TagType != model.TagAPEv2 || af.MarkedForDeletion {
			continue
		}
		buf = append(buf, encodeItem(af.NativeCode, valueTypeUTF8, []byte(af.Value))...)
		count++
	}
	for _, pt := range pictureOrder {
		for _, p := range tag.Pictures {
			if p.PictureType != pt || p.MarkedForDeletion {
				continue
			}
			value := append([]byte{0}, p.Bytes...) // empty description, then data
			buf = append(buf, encodeItem(pictureTypeToKey[pt], valueTypeBinary, value)...)
			count++
		}
	}
	return buf, count
}

// Remove implements codec.Codec: erases the whole header/items/footer
// region.
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	const where = "apev2.Remove"
	if ctx.Zones.Zone(zoneName) == nil {
		return nil
	}
	if err := ctx.Zones.Rewrite(ctx.File, map[string][]byte{zoneName: nil}); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}
