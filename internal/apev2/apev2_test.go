package apev2

import (
	"os"
	"testing"

	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/zones"
)

func newTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "apev2-*.mpc")
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

func buildTag(items []byte, count uint32, withHeader bool) []byte {
	f := footer{version: 2000, itemCount: count, tagSize: uint32(len(items) + footerSize)}
	if withHeader {
		f.flags = flagHasHeader
	}
	var out []byte
	if withHeader {
		out = append(out, encodeFooterOrHeader(f, true)...)
	}
	out = append(out, items...)
	out = append(out, encodeFooterOrHeader(f, false)...)
	return out
}

func TestReadFooterOnlyTag(t *testing.T) {
	items := encodeItem("TITLE", valueTypeUTF8, []byte("A Title"))
	items = append(items, encodeItem("ARTIST", valueTypeUTF8, []byte("An Artist"))...)
	tagBytes := buildTag(items, 2, false)
	f := newTempFile(t, append([]byte("audio data"), tagBytes...))

	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got := tag.Get(model.Title); got != "A Title" {
		t.Errorf("Title = %q", got)
	}
	if got := tag.Get(model.Artist); got != "An Artist" {
		t.Errorf("Artist = %q", got)
	}
}

func TestReadSkipsTrailingID3v1(t *testing.T) {
	items := encodeItem("TITLE", valueTypeUTF8, []byte("Has ID3v1 Sibling"))
	tagBytes := buildTag(items, 1, true)
	id3v1 := make([]byte, id3v1Size)
	copy(id3v1, "TAG")
	f := newTempFile(t, append(append([]byte("audio"), tagBytes...), id3v1...))

	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got := tag.Get(model.Title); got != "Has ID3v1 Sibling" {
		t.Errorf("Title = %q, want the APEv2 tag read through the ID3v1 trailer", got)
	}
}

func TestReadCoverArtItem(t *testing.T) {
	value := append([]byte{0}, []byte{0xAB, 0xCD, 0xEF}...) // empty description, then bytes
	items := encodeItem("Cover Art (Front)", valueTypeBinary, value)
	tagBytes := buildTag(items, 1, true)
	f := newTempFile(t, append([]byte("audio"), tagBytes...))

	tag, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if len(tag.Pictures) != 1 || tag.Pictures[0].PictureType != model.PictureFront {
		t.Fatalf("Pictures = %+v", tag.Pictures)
	}
	if string(tag.Pictures[0].Bytes) != "\xAB\xCD\xEF" {
		t.Errorf("Pictures[0].Bytes = %x", tag.Pictures[0].Bytes)
	}
}

func TestWriteAlwaysEmitsHeaderAndFooter(t *testing.T) {
	f := newTempFile(t, []byte("audio data"))
	ctx := readCtx(f)
	tag := model.New()
	tag.Set(model.Title, "Fresh Tag")

	if err := (Codec{}).Write(ctx, tag); err != nil {
		t.Fatal(err)
	}

	_, ftr, err := locate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ftr.hasHeader {
		t.Error("written tag lacks a header, want header always emitted")
	}

	got, err := (Codec{}).Read(readCtx(f))
	if err != nil {
		t.Fatal(err)
	}
	if got.Get(model.Title) != "Fresh Tag" {
		t.Errorf("Title = %q", got.Get(model.Title))
	}
}

func TestWritePlacesNewTagBeforeID3v1(t *testing.T) {
	body := []byte("audio data")
	id3v1 := make([]byte, id3v1Size)
	copy(id3v1, "TAG")
	f := newTempFile(t, append(append([]byte{}, body...), id3v1...))

	ctx := readCtx(f)
	// simulate a shared read pass that registered the sibling ID3v1 zone
	ctx.Zones.AddZone(zones.Zone{Name: "ID3V1", Offset: int64(len(body)), Size: id3v1Size})

	tag := model.New()
	tag.Set(model.Title, "Sandwiched")
	if err := (Codec{}).Write(ctx, tag); err != nil {
		t.Fatal(err)
	}

	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	tail := make([]byte, id3v1Size)
	if _, err := f.ReadAt(tail, fi.Size()-id3v1Size); err != nil {
		t.Fatal(err)
	}
	if string(tail[0:3]) != "TAG" {
		t.Error("ID3v1 trailer should remain the very last bytes of the file")
	}
}

func TestRemoveErasesTag(t *testing.T) {
	items := encodeItem("TITLE", valueTypeUTF8, []byte("Bye"))
	tagBytes := buildTag(items, 1, true)
	body := []byte("audio data")
	f := newTempFile(t, append(append([]byte{}, body...), tagBytes...))

	ctx := readCtx(f)
	current, err := (Codec{}).Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := (Codec{}).Remove(ctx, current); err != nil {
		t.Fatal(err)
	}

	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != int64(len(body)) {
		t.Errorf("file size = %d, want %d (tag fully removed)", fi.Size(), len(body))
	}
}
