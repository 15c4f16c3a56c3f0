// Package manager implements AudioDataManager: given an open file it
// probes for the codec(s) that apply, then orchestrates the
// read-merge-write sequence every Update and Remove call follows.
package manager

import (
	"os"

	"github.com/tagforge/tagforge/internal/apev2"
	"github.com/tagforge/tagforge/internal/codec"
	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/flac"
	"github.com/tagforge/tagforge/internal/id3v1"
	"github.com/tagforge/tagforge/internal/id3v2"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/mp3"
	"github.com/tagforge/tagforge/internal/ogg"
	"github.com/tagforge/tagforge/internal/spc"
	"github.com/tagforge/tagforge/internal/terr"
	"github.com/tagforge/tagforge/internal/tlog"
	"github.com/tagforge/tagforge/internal/zones"
)

// AudioProperties holds the incidental audio properties a read surfaces
// alongside the tag itself: the container/frame format and whatever of
// duration, bitrate, sample rate, channel count and bit depth that format
// makes cheaply available. Fields the format doesn't expose stay zero.
type AudioProperties struct {
	FormatName      string
	DurationSeconds float64
	BitrateKbps     int
	SampleRate      int
	Channels        int
	BitsPerSample   int
}

// Manager dispatches reads, updates and removals to the format codec(s) that
// apply to a given file.
type Manager struct {
	Settings config.Settings
	Log      *tlog.Logger
}

// New returns a Manager using settings for every codec call it makes.
func New(settings config.Settings, log *tlog.Logger) *Manager {
	return &Manager{Settings: settings, Log: log}
}

// DetectCodecs returns, in probe order, every codec that could own a tag
// region in f. Container formats (FLAC, Ogg, SPC) carry exactly one tag
// type; anything else is treated as a framed file that may carry an ID3v2
// prefix, an APEv2 region, and an ID3v1 trailer independently.
func (m *Manager) DetectCodecs(f *os.File) ([]codec.Codec, error) {
	const where = "manager.DetectCodecs"
	head := make([]byte, 4)
	if _, err := f.ReadAt(head, 0); err != nil {
		return nil, terr.IoErr(where, err)
	}
	switch string(head) {
	case flac.Magic:
		return []codec.Codec{flac.Codec{}}, nil
	case ogg.Magic:
		return []codec.Codec{ogg.Codec{}}, nil
	}

	spcHead := make([]byte, len(spc.Magic))
	if _, err := f.ReadAt(spcHead, 0); err == nil && string(spcHead) == spc.Magic {
		return []codec.Codec{spc.Codec{}}, nil
	}

	return []codec.Codec{id3v2.Codec{}, apev2.Codec{}, id3v1.Codec{}}, nil
}

func (m *Manager) codecFor(f *os.File, tagType model.TagType) (codec.Codec, error) {
	codecs, err := m.DetectCodecs(f)
	if err != nil {
		return nil, err
	}
	for _, c := range codecs {
		if c.TagType() == tagType {
			return c, nil
		}
	}
	return nil, terr.InvalidArgumentErr("manager.codecFor", "tag type not carried by this file format")
}

func isNotRecognized(err error) bool {
	k, ok := terr.KindOf(err)
	return ok && k == terr.NotRecognized
}

// ReadAll reads every tag type present in f, recording codecs whose format
// isn't actually present (a NotRecognized read) as not existing rather than
// failing. Unlike
// a single codec's Read, a real parse error from one tag type doesn't abort
// the whole call: it's recorded in the returned status map so the caller
// can still get at the tag types that decoded cleanly. It also reports the
// incidental audio properties (format, duration, bitrate, sample rate,
// channels, bit depth) derivable from whichever format f turned out to be.
func (m *Manager) ReadAll(f *os.File) (map[model.TagType]*model.TagData, map[model.TagType]model.TagStatus, AudioProperties, error) {
	codecs, err := m.DetectCodecs(f)
	if err != nil {
		return nil, nil, AudioProperties{}, err
	}
	tags := make(map[model.TagType]*model.TagData)
	statuses := make(map[model.TagType]model.TagStatus)
	for _, c := range codecs {
		ctx := &codec.Context{File: f, Zones: zones.New(), Settings: m.Settings, Log: m.Log}
		tag, err := c.Read(ctx)
		if err != nil {
			if isNotRecognized(err) {
				statuses[c.TagType()] = model.TagStatus{}
				continue
			}
			statuses[c.TagType()] = model.TagStatus{Exists: true, ParseError: err}
			continue
		}
		tags[c.TagType()] = tag
		statuses[c.TagType()] = model.TagStatus{Exists: true}
	}
	return tags, statuses, m.probeAudio(f, tags), nil
}

// probeAudio derives incidental audio properties directly from the
// container bytes, reusing the SPC tag ReadAll already decoded (its
// duration comes from ID666/xid6 fields, not from the audio data itself)
// rather than re-parsing it.
func (m *Manager) probeAudio(f *os.File, tags map[model.TagType]*model.TagData) AudioProperties {
	head := make([]byte, 4)
	if _, err := f.ReadAt(head, 0); err != nil {
		return AudioProperties{}
	}
	switch string(head) {
	case flac.Magic:
		return probeFLACAudio(f)
	case ogg.Magic:
		return probeOggAudio(f)
	}

	spcHead := make([]byte, len(spc.Magic))
	if _, err := f.ReadAt(spcHead, 0); err == nil && string(spcHead) == spc.Magic {
		props := AudioProperties{FormatName: "SPC700"}
		if spcTag, ok := tags[model.TagSPC]; ok {
			if d, ok := spc.DurationSeconds(spcTag); ok {
				props.DurationSeconds = d
			}
		}
		return props
	}

	return probeMP3Audio(f)
}

func probeFLACAudio(f *os.File) AudioProperties {
	si, err := flac.ProbeStreamInfo(f)
	if err != nil {
		return AudioProperties{FormatName: "FLAC"}
	}
	props := AudioProperties{
		FormatName:    "FLAC",
		SampleRate:    int(si.SampleRate),
		Channels:      int(si.Channels),
		BitsPerSample: int(si.BitsPerSample),
	}
	if si.SampleRate > 0 {
		props.DurationSeconds = float64(si.TotalSamples) / float64(si.SampleRate)
	}
	if fi, err := f.Stat(); err == nil && props.DurationSeconds > 0 {
		if off, err := flac.AudioOffset(f); err == nil {
			if audioBytes := fi.Size() - off; audioBytes > 0 {
				props.BitrateKbps = int(float64(audioBytes*8) / props.DurationSeconds / 1000)
			}
		}
	}
	return props
}

func probeOggAudio(f *os.File) AudioProperties {
	info, err := ogg.ProbeIdentification(f)
	if err != nil {
		return AudioProperties{FormatName: "Ogg Vorbis"}
	}
	return AudioProperties{
		FormatName:      "Ogg Vorbis",
		SampleRate:      info.SampleRate,
		Channels:        info.Channels,
		BitrateKbps:     info.BitrateNominal / 1000,
		DurationSeconds: info.DurationSeconds,
	}
}

func probeMP3Audio(f *os.File) AudioProperties {
	start := id3v2.HeaderSize(f)
	info, err := mp3.Probe(f, start)
	if err != nil {
		return AudioProperties{}
	}
	return AudioProperties{
		FormatName:      "MP3",
		SampleRate:      info.SampleRate,
		Channels:        info.Channels,
		BitrateKbps:     info.BitrateKbps,
		DurationSeconds: info.DurationSeconds,
	}
}

// Update runs the read-merge-write sequence: read the current tag in
// prepare-for-writing mode (registering zones/anchors), merge it with
// delta, then invoke the codec's write with the already-merged result. A
// file that doesn't yet carry this tag type gets one created from scratch.
func (m *Manager) Update(f *os.File, tagType model.TagType, delta *model.TagData) error {
	c, err := m.codecFor(f, tagType)
	if err != nil {
		return err
	}
	ctx := &codec.Context{File: f, Zones: zones.New(), Settings: m.Settings, Log: m.Log, PrepareForWriting: true}
	current, err := c.Read(ctx)
	if err != nil {
		if !isNotRecognized(err) {
			return err
		}
		current = model.New()
	}
	merged := model.Merge(current, delta)
	return c.Write(ctx, merged)
}

// Remove strips the tag of the given type from f. A file that never
// carried that tag type is left untouched.
func (m *Manager) Remove(f *os.File, tagType model.TagType) error {
	c, err := m.codecFor(f, tagType)
	if err != nil {
		return err
	}
	ctx := &codec.Context{File: f, Zones: zones.New(), Settings: m.Settings, Log: m.Log, PrepareForWriting: true}
	current, err := c.Read(ctx)
	if err != nil {
		if isNotRecognized(err) {
			return nil
		}
		return err
	}
	return c.Remove(ctx, current)
}
