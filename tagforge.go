// Package tagforge reads, modifies and writes metadata tags embedded in
// audio files: Ogg Vorbis comments, FLAC metadata blocks, ID3v1/v2, APEv2,
// and SPC700/ID666/xid6. It exposes one format-neutral TagData model
// projected onto whichever format-specific codecs a given
// file actually carries.
package tagforge

import (
	"os"

	"github.com/tagforge/tagforge/internal/manager"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/tlog"
)

// AudioFile is an open handle on one audio file plus the manager that
// dispatches tag operations against it.
type AudioFile struct {
	f       *os.File
	manager *manager.Manager
}

// Option configures Open.
type Option func(*AudioFile)

// WithSettings overrides the default Settings used for every operation on
// this AudioFile.
func WithSettings(s Settings) Option {
	return func(af *AudioFile) { af.manager.Settings = s }
}

// WithLogger attaches a diagnostic logger; the zero value of *tlog.Logger
// (the default) discards everything.
func WithLogger(log *tlog.Logger) Option {
	return func(af *AudioFile) { af.manager.Log = log }
}

// Open opens path for reading and writing and returns a handle ready for
// Read/Update/Remove. The caller must Close it when done.
func Open(path string, opts ...Option) (*AudioFile, error) {
	const where = "tagforge.Open"
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, IoErr(where, err)
	}
	af := &AudioFile{f: f, manager: manager.New(DefaultSettings(), nil)}
	for _, opt := range opts {
		opt(af)
	}
	return af, nil
}

// Close releases the underlying file handle.
func (af *AudioFile) Close() error {
	return af.f.Close()
}

// ReadResult is the outcome of reading every tag type a file carries,
// together with the incidental audio properties the container exposes
// alongside its tags.
type ReadResult struct {
	// Tags maps each tag type present in the file to its decoded contents.
	// A type absent from the file is simply absent from the map.
	Tags map[TagType]*TagData
	// Statuses reports, per tag type the file's format could carry, whether
	// the format's region was present and whether decoding it succeeded. A
	// tag type missing from this map means the format doesn't apply to this
	// file at all (e.g. APEv2 on a FLAC file).
	Statuses map[TagType]TagStatus

	// FormatName names the audio container/frame format detected (e.g.
	// "FLAC", "Ogg Vorbis", "MP3", "SPC700"), or "" if it couldn't be
	// determined.
	FormatName string
	// DurationSeconds is the playback duration, or 0 if the format didn't
	// expose enough to compute one.
	DurationSeconds float64
	// BitrateKbps is the audio bitrate in kilobits per second, or 0 if
	// unavailable.
	BitrateKbps int
	// SampleRate is the audio sample rate in Hz, or 0 if unavailable.
	SampleRate int
	// Channels is the channel count, or 0 if unavailable.
	Channels int
	// BitsPerSample is the bit depth, or 0 if the format doesn't expose one
	// (e.g. lossy formats).
	BitsPerSample int
}

// TagSnapshot returns the decoded TagData for one tag type, or nil if the
// file doesn't carry it.
func (r ReadResult) TagSnapshot(tt TagType) *TagData {
	return r.Tags[tt]
}

// Read decodes every tag type present in the file and probes its
// incidental audio properties.
func (af *AudioFile) Read() (ReadResult, error) {
	tags, statuses, props, err := af.manager.ReadAll(af.f)
	if err != nil {
		return ReadResult{}, err
	}
	result := ReadResult{
		Tags:            tags,
		Statuses:        statuses,
		FormatName:      props.FormatName,
		DurationSeconds: props.DurationSeconds,
		BitrateKbps:     props.BitrateKbps,
		SampleRate:      props.SampleRate,
		Channels:        props.Channels,
		BitsPerSample:   props.BitsPerSample,
	}
	return result, nil
}

// Update applies delta to the tag of the given type, merging it with the
// tag currently on disk and writing the result back in
// place. If the file doesn't yet carry tagType, one is created.
func (af *AudioFile) Update(tagType TagType, delta *TagData) error {
	if delta == nil {
		delta = model.New()
	}
	return af.manager.Update(af.f, tagType, delta)
}

// Remove strips the tag of the given type from the file. A file that never
// carried that tag type is left untouched.
func (af *AudioFile) Remove(tagType TagType) error {
	return af.manager.Remove(af.f, tagType)
}

// PictureSink receives the pictures of a tag one at a time. The tag is
// decoded in full first, so every embedded image is in memory while the
// sink runs.
type PictureSink func(p Picture) error

// StreamPictures decodes the tag of the given type and invokes sink once
// per embedded picture, in the order the format stores them.
func (af *AudioFile) StreamPictures(tagType TagType, sink PictureSink) error {
	result, err := af.Read()
	if err != nil {
		return err
	}
	tag := result.TagSnapshot(tagType)
	if tag == nil {
		return nil
	}
	for _, p := range tag.Pictures {
		if err := sink(p); err != nil {
			return err
		}
	}
	return nil
}
