package mp3

import (
	"os"
	"testing"
)

func newTempFile(t *testing.T, content []byte) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "mp3-*.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

// mpeg1Layer3Frame builds one MPEGv1 Layer III frame header (no padding,
// stereo) at the given bitrate/sample rate, followed by frameLen-4 bytes of
// filler so the next frame sync lands exactly where parseHeader expects it.
func mpeg1Layer3Frame(bitrateKbps, sampleRate int) []byte {
	bitrateIdx := -1
	rates := bitrateTables["1L3"]
	for i, r := range rates {
		if r == bitrateKbps {
			bitrateIdx = i
			break
		}
	}
	if bitrateIdx < 0 {
		panic("unsupported bitrate in test fixture")
	}
	sampleIdx := -1
	srs := sampleRateTables["1"]
	for i, sr := range srs {
		if sr == sampleRate {
			sampleIdx = i
			break
		}
	}
	if sampleIdx < 0 {
		panic("unsupported sample rate in test fixture")
	}

	frameLen := 144*bitrateKbps*1000/sampleRate + 0
	b := make([]byte, frameLen)
	b[0] = 0xFF
	b[1] = 0xE0 | (0x03 << 3) | (0x01 << 1) // sync + MPEG1 + Layer III
	b[2] = byte(bitrateIdx<<4) | byte(sampleIdx<<2)
	b[3] = 0x00 << 6 // stereo
	return b
}

func TestParseHeaderDecodesMPEG1Layer3(t *testing.T) {
	frame := mpeg1Layer3Frame(128, 44100)
	h, ok := parseHeader(frame[:4])
	if !ok {
		t.Fatal("parseHeader rejected a well-formed frame header")
	}
	if h.version != "1" || h.layer != 3 {
		t.Errorf("version/layer = %s/%d, want 1/3", h.version, h.layer)
	}
	if h.bitrateKbps != 128 {
		t.Errorf("bitrateKbps = %d, want 128", h.bitrateKbps)
	}
	if h.sampleRate != 44100 {
		t.Errorf("sampleRate = %d, want 44100", h.sampleRate)
	}
	if h.channels != 2 {
		t.Errorf("channels = %d, want 2 (stereo)", h.channels)
	}
}

func TestProbeScansConsecutiveFrames(t *testing.T) {
	var audio []byte
	for i := 0; i < 10; i++ {
		audio = append(audio, mpeg1Layer3Frame(128, 44100)...)
	}
	f := newTempFile(t, audio)

	info, err := Probe(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if info.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", info.SampleRate)
	}
	if info.Channels != 2 {
		t.Errorf("Channels = %d, want 2", info.Channels)
	}
	if info.BitrateKbps != 128 {
		t.Errorf("BitrateKbps = %d, want 128", info.BitrateKbps)
	}
	if info.DurationSeconds <= 0 {
		t.Errorf("DurationSeconds = %v, want positive", info.DurationSeconds)
	}
}

func TestProbeSkipsLeadingJunkBeforeSync(t *testing.T) {
	junk := []byte("some stray bytes before the first frame sync")
	var audio []byte
	for i := 0; i < 4; i++ {
		audio = append(audio, mpeg1Layer3Frame(192, 48000)...)
	}
	f := newTempFile(t, append(junk, audio...))

	info, err := Probe(f, 0)
	if err != nil {
		t.Fatal(err)
	}
	if info.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", info.SampleRate)
	}
	if info.BitrateKbps != 192 {
		t.Errorf("BitrateKbps = %d, want 192", info.BitrateKbps)
	}
}

func TestProbeFailsWithNoFrameSync(t *testing.T) {
	f := newTempFile(t, []byte("not an mp3 file at all, no sync byte here"))
	if _, err := Probe(f, 0); err == nil {
		t.Error("want an error when no frame sync is found")
	}
}
