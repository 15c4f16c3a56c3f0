// Package mp3 implements a minimal MPEG audio frame-header scanner: enough
// to recover sample rate, channel count and an average bitrate from a
// bounded run of consecutive frames. It does not understand Xing/VBRI
// headers or attempt a full-file scan; a fixed frame count is read and its
// bitrate averaged, which is adequate for the incidental audio properties
// a tag read reports alongside the tag itself.
package mp3

import (
	"os"

	"github.com/tagforge/tagforge/internal/terr"
)

// maxFramesScanned bounds how many consecutive frames Probe reads before
// settling on an average bitrate — enough to smooth over a VBR encoder's
// per-frame swings without reading the whole file.
const maxFramesScanned = 64

// scanWindow is how far past startOffset Probe looks for the first frame
// sync before giving up.
const scanWindow = 8192

// Info holds the audio properties recovered from a short frame scan.
type Info struct {
	SampleRate      int
	Channels        int
	BitrateKbps     int
	DurationSeconds float64
}

// bitrateTables holds the MPEG bitrate index (kbps) for each
// version-class/layer combination; index 0 and 15 are always invalid ("free"
// and "bad") and carried as 0 so a lookup there reports failure.
var bitrateTables = map[string][16]int{
	"1L1": {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0},
	"1L2": {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},
	"1L3": {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},
	"2L1": {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0},
	"2L2": {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
	"2L3": {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},
}

// sampleRateTables holds the three sample rates each MPEG version defines;
// index 3 is reserved.
var sampleRateTables = map[string][3]int{
	"1":   {44100, 48000, 32000},
	"2":   {22050, 24000, 16000},
	"2.5": {11025, 12000, 8000},
}

func samplesPerFrame(version string, layer int) int {
	switch {
	case layer == 1:
		return 384
	case layer == 2:
		return 1152
	case version == "1":
		return 1152
	default:
		return 576
	}
}

// frameHeader is one parsed 4-byte MPEG audio frame header.
type frameHeader struct {
	version     string // "1", "2", or "2.5"
	layer       int    // 1, 2, or 3
	bitrateKbps int
	sampleRate  int
	channels    int
	frameLen    int
}

// parseHeader decodes a 4-byte frame header: an 11-bit sync (0xFF followed
// by the top 3 bits of the next byte set), 2-bit version, 2-bit layer,
// 4-bit bitrate index, 2-bit sample-rate index, 1-bit padding flag and
// 2-bit channel mode.
func parseHeader(b []byte) (frameHeader, bool) {
	if len(b) < 4 || b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return frameHeader{}, false
	}
	versionBits := (b[1] >> 3) & 0x03
	layerBits := (b[1] >> 1) & 0x03
	bitrateIdx := (b[2] >> 4) & 0x0F
	sampleIdx := (b[2] >> 2) & 0x03
	padding := int((b[2] >> 1) & 0x01)
	channelBits := (b[3] >> 6) & 0x03

	var version string
	switch versionBits {
	case 0:
		version = "2.5"
	case 2:
		version = "2"
	case 3:
		version = "1"
	default:
		return frameHeader{}, false // version bits 01 is reserved
	}

	var layer int
	switch layerBits {
	case 1:
		layer = 3
	case 2:
		layer = 2
	case 3:
		layer = 1
	default:
		return frameHeader{}, false // layer bits 00 is reserved
	}

	if sampleIdx == 3 {
		return frameHeader{}, false
	}
	srTable, ok := sampleRateTables[version]
	if !ok {
		return frameHeader{}, false
	}
	sampleRate := srTable[sampleIdx]

	versionClass := "1"
	if version != "1" {
		versionClass = "2"
	}
	rates, ok := bitrateTables[versionClass+"L"+layerName(layer)]
	if !ok {
		return frameHeader{}, false
	}
	bitrate := rates[bitrateIdx]
	if bitrate == 0 {
		return frameHeader{}, false // free or reserved bitrate index
	}

	channels := 2
	if channelBits == 3 {
		channels = 1
	}

	var frameLen int
	if layer == 1 {
		frameLen = (12*bitrate*1000/sampleRate + padding) * 4
	} else {
		frameLen = 144*bitrate*1000/sampleRate + padding
	}
	if frameLen <= 0 {
		return frameHeader{}, false
	}

	return frameHeader{
		version:     version,
		layer:       layer,
		bitrateKbps: bitrate,
		sampleRate:  sampleRate,
		channels:    channels,
		frameLen:    frameLen,
	}, true
}

func layerName(layer int) string {
	switch layer {
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "3"
	}
}

// Probe scans forward from startOffset (the first byte past any ID3v2
// prefix) for the first valid frame sync, then walks up to
// maxFramesScanned consecutive frames, averaging their bitrate to estimate
// a duration from the remaining file size.
func Probe(f *os.File, startOffset int64) (Info, error) {
	const where = "mp3.Probe"
	fi, err := f.Stat()
	if err != nil {
		return Info{}, terr.IoErr(where, err)
	}
	fileSize := fi.Size()

	buf := make([]byte, scanWindow)
	n, err := f.ReadAt(buf, startOffset)
	if n == 0 {
		if err != nil {
			return Info{}, terr.NotRecognizedErr(where)
		}
	}
	buf = buf[:n]

	foundAt := -1
	var first frameHeader
	for i := 0; i+4 <= len(buf); i++ {
		if h, ok := parseHeader(buf[i : i+4]); ok {
			first, foundAt = h, i
			break
		}
	}
	if foundAt < 0 {
		return Info{}, terr.NotRecognizedErr(where)
	}

	offset := startOffset + int64(foundAt)
	var bitrateSum, frames int
	cur := first
	for frames < maxFramesScanned {
		bitrateSum += cur.bitrateKbps
		frames++
		offset += int64(cur.frameLen)

		hdr := make([]byte, 4)
		if _, err := f.ReadAt(hdr, offset); err != nil {
			break
		}
		next, ok := parseHeader(hdr)
		if !ok {
			break
		}
		cur = next
	}

	avgBitrateKbps := bitrateSum / frames
	info := Info{
		SampleRate:  first.sampleRate,
		Channels:    first.channels,
		BitrateKbps: avgBitrateKbps,
	}
	if avgBitrateKbps > 0 {
		audioBytes := fileSize - startOffset
		if audioBytes > 0 {
			info.DurationSeconds = float64(audioBytes*8) / float64(avgBitrateKbps*1000)
		}
	}
	return info, nil
}
