package tagforge

import (
	"os"
	"path/filepath"
	"testing"
)

func newTempAudioFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.mp3")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenUpdateReadRemove(t *testing.T) {
	path := newTempAudioFile(t, []byte("raw audio frames"))

	af, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer af.Close()

	delta := NewTagData()
	delta.Set(Title, "A Title")
	delta.Set(Artist, "An Artist")
	delta.Pictures = append(delta.Pictures, Picture{
		PictureType:      PictureFront,
		MimeOrFormatHint: "image/jpeg",
		Bytes:            []byte{0xFF, 0xD8, 0xFF, 0xD9},
	})
	if err := af.Update(TagID3v2, delta); err != nil {
		t.Fatal(err)
	}

	result, err := af.Read()
	if err != nil {
		t.Fatal(err)
	}
	tag := result.TagSnapshot(TagID3v2)
	if tag == nil {
		t.Fatal("want an ID3v2 tag in the read result")
	}
	if tag.Get(Title) != "A Title" {
		t.Errorf("Title = %q", tag.Get(Title))
	}

	var streamed []Picture
	err = af.StreamPictures(TagID3v2, func(p Picture) error {
		streamed = append(streamed, p)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(streamed) != 1 || streamed[0].PictureType != PictureFront {
		t.Errorf("streamed pictures = %+v", streamed)
	}

	if err := af.Remove(TagID3v2); err != nil {
		t.Fatal(err)
	}
	after, err := af.Read()
	if err != nil {
		t.Fatal(err)
	}
	if after.TagSnapshot(TagID3v2) != nil {
		t.Error("want no ID3v2 tag after Remove")
	}
}

func TestWithSettingsOverridesDefault(t *testing.T) {
	path := newTempAudioFile(t, []byte("raw audio frames"))
	s := DefaultSettings()
	s.DefaultID3v2Version = ID3v2_4

	af, err := Open(path, WithSettings(s))
	if err != nil {
		t.Fatal(err)
	}
	defer af.Close()

	delta := NewTagData()
	delta.Set(Title, "Versioned")
	if err := af.Update(TagID3v2, delta); err != nil {
		t.Fatal(err)
	}

	raw := make([]byte, 4)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.ReadAt(raw, 0); err != nil {
		t.Fatal(err)
	}
	if raw[3] != 4 {
		t.Errorf("header version byte = %d, want 4 (ID3v2.4 per overridden settings)", raw[3])
	}
}

// mpeg1Layer3Frame160 builds one 44.1kHz/160kbps MPEGv1 Layer III stereo
// frame header with its body zero-filled, enough for the MP3 frame scanner
// to recognize and measure.
func mpeg1Layer3Frame160() []byte {
	const bitrateKbps, sampleRate = 160, 44100
	// index 10 in the MPEG1/Layer3 bitrate table is 160kbps.
	const bitrateIdx = 10
	// index 0 in the MPEG1 sample-rate table is 44100Hz.
	const sampleIdx = 0
	frameLen := 144*bitrateKbps*1000/sampleRate + 0
	b := make([]byte, frameLen)
	b[0] = 0xFF
	b[1] = 0xFB // sync + MPEG1 + Layer III, no CRC
	b[2] = byte(bitrateIdx<<4) | byte(sampleIdx<<2)
	b[3] = 0x00
	return b
}

func TestReadReportsStatusesAndAudioProperties(t *testing.T) {
	var audio []byte
	for i := 0; i < 4; i++ {
		audio = append(audio, mpeg1Layer3Frame160()...)
	}
	path := newTempAudioFile(t, audio)

	af, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer af.Close()

	delta := NewTagData()
	delta.Set(Title, "A Title")
	if err := af.Update(TagID3v2, delta); err != nil {
		t.Fatal(err)
	}

	result, err := af.Read()
	if err != nil {
		t.Fatal(err)
	}
	status, ok := result.Statuses[TagID3v2]
	if !ok || !status.Exists || status.ParseError != nil {
		t.Errorf("Statuses[TagID3v2] = %+v, ok=%v, want Exists with no parse error", status, ok)
	}
	if result.FormatName != "MP3" {
		t.Errorf("FormatName = %q, want MP3 for a framed file with no recognized container magic", result.FormatName)
	}
	if result.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", result.SampleRate)
	}
	if result.Channels != 2 {
		t.Errorf("Channels = %d, want 2", result.Channels)
	}
}

func TestReadOnFileWithNoRecognizedTag(t *testing.T) {
	path := newTempAudioFile(t, []byte("just some bytes, no tag at all here"))
	af, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer af.Close()

	result, err := af.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Tags) != 0 {
		t.Errorf("Tags = %+v, want none recognized", result.Tags)
	}
}
