package manager

import (
	"os"
	"testing"

	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/flac"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/ogg"
	"github.com/tagforge/tagforge/internal/spc"
)

func newTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "manager-*.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestDetectCodecsDispatchesByMagic(t *testing.T) {
	cases := []struct {
		name string
		head string
		want model.TagType
	}{
		{"flac", flac.Magic, model.TagVorbis},
		{"ogg", ogg.Magic, model.TagVorbis},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newTempFile(t, append([]byte(c.head), make([]byte, 64)...))
			m := New(config.Default(), nil)
			codecs, err := m.DetectCodecs(f)
			if err != nil {
				t.Fatal(err)
			}
			if len(codecs) != 1 || codecs[0].TagType() != c.want {
				t.Errorf("codecs = %+v, want a single %v codec", codecs, c.want)
			}
		})
	}
}

func TestDetectCodecsSPC(t *testing.T) {
	head := make([]byte, len(spc.Magic))
	copy(head, spc.Magic)
	f := newTempFile(t, append(head, make([]byte, 64)...))
	m := New(config.Default(), nil)
	codecs, err := m.DetectCodecs(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(codecs) != 1 || codecs[0].TagType() != model.TagSPC {
		t.Errorf("codecs = %+v, want a single SPC codec", codecs)
	}
}

func TestDetectCodecsGenericFramedFile(t *testing.T) {
	f := newTempFile(t, []byte("just some mp3 frames, no recognizable container magic"))
	m := New(config.Default(), nil)
	codecs, err := m.DetectCodecs(f)
	if err != nil {
		t.Fatal(err)
	}
	if len(codecs) != 3 {
		t.Fatalf("codecs = %+v, want id3v2+apev2+id3v1 probed independently", codecs)
	}
}

func TestUpdateCreatesTagOnFileWithNone(t *testing.T) {
	f := newTempFile(t, []byte("raw audio frames"))
	m := New(config.Default(), nil)

	delta := model.New()
	delta.Set(model.Title, "Brand New")
	if err := m.Update(f, model.TagID3v2, delta); err != nil {
		t.Fatal(err)
	}

	tags, _, _, err := m.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	tag, ok := tags[model.TagID3v2]
	if !ok {
		t.Fatal("want an ID3v2 tag to now be present")
	}
	if tag.Get(model.Title) != "Brand New" {
		t.Errorf("Title = %q", tag.Get(model.Title))
	}
}

func TestUpdateMergesWithExisting(t *testing.T) {
	f := newTempFile(t, []byte("raw audio frames"))
	m := New(config.Default(), nil)

	first := model.New()
	first.Set(model.Title, "Original Title")
	first.Set(model.Artist, "Original Artist")
	if err := m.Update(f, model.TagID3v2, first); err != nil {
		t.Fatal(err)
	}

	second := model.New()
	second.Set(model.Title, "Updated Title")
	if err := m.Update(f, model.TagID3v2, second); err != nil {
		t.Fatal(err)
	}

	tags, _, _, err := m.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	tag := tags[model.TagID3v2]
	if tag.Get(model.Title) != "Updated Title" {
		t.Errorf("Title = %q, want the delta's value to win", tag.Get(model.Title))
	}
	if tag.Get(model.Artist) != "Original Artist" {
		t.Errorf("Artist = %q, want the untouched field preserved by the merge", tag.Get(model.Artist))
	}
}

func TestRemoveOnAbsentTagTypeIsNoop(t *testing.T) {
	f := newTempFile(t, []byte("raw audio frames"))
	m := New(config.Default(), nil)
	if err := m.Remove(f, model.TagID3v2); err != nil {
		t.Fatal(err)
	}
	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != int64(len("raw audio frames")) {
		t.Errorf("file size changed on a no-op remove")
	}
}

func TestUpdateThenRemoveRoundTrip(t *testing.T) {
	f := newTempFile(t, []byte("raw audio frames"))
	m := New(config.Default(), nil)

	delta := model.New()
	delta.Set(model.Title, "Temporary")
	if err := m.Update(f, model.TagAPEv2, delta); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(f, model.TagAPEv2); err != nil {
		t.Fatal(err)
	}

	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != int64(len("raw audio frames")) {
		t.Errorf("file size = %d, want fully restored after remove", fi.Size())
	}
}

func TestMultipleFramedTagsCoexist(t *testing.T) {
	f := newTempFile(t, []byte("raw audio frames"))
	m := New(config.Default(), nil)

	id3v2Delta := model.New()
	id3v2Delta.Set(model.Title, "ID3v2 Title")
	if err := m.Update(f, model.TagID3v2, id3v2Delta); err != nil {
		t.Fatal(err)
	}

	apeDelta := model.New()
	apeDelta.Set(model.Album, "APEv2 Album")
	if err := m.Update(f, model.TagAPEv2, apeDelta); err != nil {
		t.Fatal(err)
	}

	id3v1Delta := model.New()
	id3v1Delta.Set(model.Artist, "ID3v1 Artist")
	if err := m.Update(f, model.TagID3v1, id3v1Delta); err != nil {
		t.Fatal(err)
	}

	tags, _, _, err := m.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if tags[model.TagID3v2].Get(model.Title) != "ID3v2 Title" {
		t.Errorf("ID3v2 Title = %q", tags[model.TagID3v2].Get(model.Title))
	}
	if tags[model.TagAPEv2].Get(model.Album) != "APEv2 Album" {
		t.Errorf("APEv2 Album = %q", tags[model.TagAPEv2].Get(model.Album))
	}
	if tags[model.TagID3v1].Get(model.Artist) != "ID3v1 Artist" {
		t.Errorf("ID3v1 Artist = %q", tags[model.TagID3v1].Get(model.Artist))
	}
}
