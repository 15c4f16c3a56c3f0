// Package id3v1 implements the ID3v1/v1.1 trailer codec: a
// fixed 128-byte structure with no additional fields and no pictures.
package id3v1

import (
	"strconv"
	"strings"

	"github.com/tagforge/tagforge/internal/bytestream"
	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/zones"
)

// TagSize is the fixed trailer length, "TAG" magic included.
const TagSize = 128

const zoneName = "ID3V1"

// Codec implements codec.Codec for the ID3v1/v1.1 trailer.
type Codec struct{}

func (Codec) TagType() model.TagType { return model.TagID3v1 }

func fileSize(ctx *codec.Context) (int64, error) {
	fi, err := ctx.File.Stat()
	if err != nil {
		return 0, terr.IoErr("id3v1.fileSize", err)
	}
	return fi.Size(), nil
}

// Read implements codec.Codec.
func (c Codec) Read(ctx *codec.Context) (*model.TagData, error) {
	const where = "id3v1.Read"
	size, err := fileSize(ctx)
	if err != nil {
		return nil, err
	}
	if size < TagSize {
		return nil, terr.NotRecognizedErr(where)
	}
	offset := size - TagSize
	buf := make([]byte, TagSize)
	if _, err := ctx.File.ReadAt(buf, offset); err != nil {
		return nil, terr.IoErr(where, err)
	}
	if string(buf[0:3]) != "TAG" {
		return nil, terr.NotRecognizedErr(where)
	}

	tag := model.New()
	tag.Set(model.Title, trimPadded(buf[3:33]))
	tag.Set(model.Artist, trimPadded(buf[33:63]))
	tag.Set(model.Album, trimPadded(buf[63:93]))
	tag.Set(model.ReleaseYear, trimPadded(buf[93:97]))

	comment := buf[97:127]
	if comment[28] == 0x00 && comment[29] != 0x00 {
		tag.Set(model.Comment, trimPadded(comment[0:28]))
		tag.Set(model.TrackNumber, strconv.Itoa(int(comment[29])))
	} else {
		tag.Set(model.Comment, trimPadded(comment))
	}
	tag.Set(model.Genre, genreName(buf[127]))

	if ctx.PrepareForWriting {
		ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: offset, Size: TagSize})
	}
	return tag, nil
}

// Write implements codec.Codec: writes the ID3v1.1 layout (track-number
// byte present) whenever the track number is 1..255, regardless of whether
// the current tag had one, and the plain ID3v1 layout otherwise.
func (c Codec) Write(ctx *codec.Context, merged *model.TagData) error {
	const where = "id3v1.Write"
	buf := encode(merged)

	z := ctx.Zones.Zone(zoneName)
	if z == nil {
		size, err := fileSize(ctx)
		if err != nil {
			return err
		}
		z = ctx.Zones.AddZone(zones.Zone{Name: zoneName, Offset: size, Size: 0})
	}
	if err := ctx.Zones.Rewrite(ctx.File, map[string][]byte{zoneName: buf}); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

// Remove implements codec.Codec: erases the trailing 128 bytes entirely
// (ID3v1 has no mandatory-for-playback content).
func (c Codec) Remove(ctx *codec.Context, current *model.TagData) error {
	const where = "id3v1.Remove"
	z := ctx.Zones.Zone(zoneName)
	if z == nil {
		return nil
	}
	if err := ctx.Zones.Rewrite(ctx.File, map[string][]byte{zoneName: nil}); err != nil {
		return terr.IoErr(where, err)
	}
	return nil
}

func encode(tag *model.TagData) []byte {
	buf := make([]byte, TagSize)
	copy(buf[0:3], "TAG")
	putPadded(buf[3:33], tag.Get(model.Title))
	putPadded(buf[33:63], tag.Get(model.Artist))
	putPadded(buf[63:93], tag.Get(model.Album))
	putPadded(buf[93:97], tag.Get(model.ReleaseYear))

	comment := buf[97:127]
	putPadded(comment, tag.Get(model.Comment))
	if track := tag.Get(model.TrackNumber); track != "" {
		if n, err := strconv.Atoi(track); err == nil && n > 0 && n < 256 {
			putPadded(comment[0:28], tag.Get(model.Comment))
			comment[28] = 0x00
			comment[29] = byte(n)
		}
	}
	buf[127] = genreCode(tag.Get(model.Genre))
	return buf
}

func trimPadded(b []byte) string {
	s := bytestream.DecodeLatin1(b)
	return strings.TrimRight(s, "\x00 ")
}

func putPadded(dst []byte, s string) {
	raw := bytestream.EncodeLatin1(s)
	n := copy(dst, raw)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// genreName/genreCode cover the small set of ID3v1 genres this library
// round-trips faithfully; anything outside the table is surfaced as
// "Unknown" on read and encoded as 0xFF (undefined) on write, matching
// ID3v1's own reserved-for-unknown convention.
var genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel",
	"Noise", "AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
}

func genreName(code byte) string {
	if int(code) < len(genres) {
		return genres[code]
	}
	return "Unknown"
}

func genreCode(name string) byte {
	for i, g := range genres {
		if strings.EqualFold(g, name) {
			return byte(i)
		}
	}
	return 0xFF
}
