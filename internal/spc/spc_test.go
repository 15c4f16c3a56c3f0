package spc

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/zones"
)

func newTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "spc-*.spc")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func readCtx(f *os.File) *codec.Context {
	return &codec.Context{File: f, Zones: zones.New(), Settings: config.Default(), PrepareForWriting: true}
}

// minimalDump builds a raw-length SPC file with a populated ID666 header in
// binary mode, optionally followed by an xid6 footer.
func minimalDump(t *testing.T, songSeconds, fadeMs int, xid6 []byte) []byte {
	t.Helper()
	buf := make([]byte, rawLength+len(xid6))
	copy(buf, Magic)
	buf[tagInHeaderOffset] = tagInHeaderValue
	putLatin1(buf[titleOff:titleOff+titleLen], "Title Track")
	putLatin1(buf[albumOff:albumOff+albumLen], "Some Game OST")
	putLatin1(buf[artistOff:artistOff+artistLen], "A Composer")
	// date left all-zero (ambiguous -> SPCPreferBinaryOnAmbiguous decides)
	binary.LittleEndian.PutUint16(buf[songOff:songOff+2], uint16(songSeconds))
	binary.LittleEndian.PutUint32(buf[fadeOff:fadeOff+4], uint32(fadeMs))
	if len(xid6) > 0 {
		copy(buf[rawLength:], xid6)
	}
	return buf
}

func TestReadTooShortIsNotRecognized(t *testing.T) {
	f := newTempFile(t, []byte(Magic))
	if _, err := (Codec{}).Read(readCtx(f)); err == nil {
		t.Fatal("want error for a dump shorter than the raw SPC length")
	}
}

func TestReadBinaryHeaderFields(t *testing.T) {
	f := newTempFile(t, minimalDump(t, 90, 1500, nil))
	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got := tag.Get(model.Title); got != "Title Track" {
		t.Errorf("Title = %q", got)
	}
	if got := tag.Get(model.Album); got != "Some Game OST" {
		t.Errorf("Album = %q", got)
	}
	durAf, ok := tag.FindAdditional(model.TagSPC, codeDurationMs)
	if !ok {
		t.Fatal("want a computed duration additional field")
	}
	// round(1500/1000) + 90 = 92 seconds
	if durAf.Value != "92000" {
		t.Errorf("DurationMs = %s, want 92000", durAf.Value)
	}
}

func TestReadTextModeHeader(t *testing.T) {
	buf := make([]byte, rawLength)
	copy(buf, Magic)
	buf[tagInHeaderOffset] = tagInHeaderValue
	putLatin1(buf[titleOff:titleOff+titleLen], "Text Mode Song")
	copy(buf[dateOff:dateOff+10], []byte("11/22/2001"))
	copy(buf[songOff:songOff+3], []byte("123"))
	copy(buf[fadeOff:fadeOff+5], []byte("02000"))

	f := newTempFile(t, buf)
	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	songAf, ok := tag.FindAdditional(model.TagSPC, codeSongLengthSeconds)
	if !ok || songAf.Value != "123" {
		t.Errorf("SongLengthSeconds = %+v", songAf)
	}
}

func TestReadXid6OverridesDuration(t *testing.T) {
	var items []byte
	items = append(items, encodeXid6InlineItem(xid6Intro, 1000)...)
	items = append(items, encodeXid6InlineItem(xid6Loop, 64000)...)
	items = append(items, encodeXid6InlineItem(xid6LoopTimes, 2)...)
	items = append(items, encodeXid6InlineItem(xid6End, 500)...)
	footer := make([]byte, 8)
	copy(footer[0:4], xid6Magic)
	binary.LittleEndian.PutUint32(footer[4:8], uint32(len(items)))
	xid6 := append(footer, items...)

	f := newTempFile(t, minimalDump(t, 90, 1500, xid6))
	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	durAf, ok := tag.FindAdditional(model.TagSPC, codeDurationMs)
	if !ok {
		t.Fatal("want xid6-derived duration")
	}
	// ticks = 1000 + 64000*2 + 500 = 129500; ms = 129500*1000/64000 = 2023
	if durAf.Value != "2023" {
		t.Errorf("DurationMs = %s, want 2023 (xid6 overrides the header formula)", durAf.Value)
	}
}

func TestWritePreservesPlaybackFields(t *testing.T) {
	f := newTempFile(t, minimalDump(t, 90, 1500, nil))
	ctx := readCtx(f)
	current, err := (Codec{}).Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	current.Set(model.Title, "Renamed Title")
	if err := (Codec{}).Write(ctx, current); err != nil {
		t.Fatal(err)
	}

	got, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got.Get(model.Title) != "Renamed Title" {
		t.Errorf("Title = %q", got.Get(model.Title))
	}
	durAf, ok := got.FindAdditional(model.TagSPC, codeDurationMs)
	if !ok || durAf.Value != "92000" {
		t.Errorf("DurationMs = %+v, want playback fields preserved through a write", durAf)
	}
}

func TestRemoveClearsTextKeepsPlayback(t *testing.T) {
	f := newTempFile(t, minimalDump(t, 90, 1500, nil))
	ctx := readCtx(f)
	current, err := (Codec{}).Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := (Codec{}).Remove(ctx, current); err != nil {
		t.Fatal(err)
	}

	got, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got.Get(model.Title) != "" {
		t.Errorf("Title = %q, want cleared", got.Get(model.Title))
	}
	durAf, ok := got.FindAdditional(model.TagSPC, codeDurationMs)
	if !ok || durAf.Value != "92000" {
		t.Errorf("DurationMs = %+v, want playback-critical fields untouched by Remove", durAf)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		b    []byte
		want int
	}{
		{"all zero", []byte{0, 0, 0}, catEmpty},
		{"digits", []byte("123"), catText},
		{"digits with slash", []byte("11/22"), catText},
		{"binary", []byte{0x01, 0x02, 0x03}, catBinary},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := classify(c.b); got != c.want {
				t.Errorf("classify(%v) = %d, want %d", c.b, got, c.want)
			}
		})
	}
}
