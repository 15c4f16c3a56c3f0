// Package codec defines the per-format read/write/remove contract every
// tag format package implements, plus the Context bundle each call
// receives in place of passing a reader and a writer over the same
// stream independently.
package codec

import (
	"os"

	"github.com/tagforge/tagforge/internal/config"
	"github.com/tagforge/tagforge/internal/model"
	"github.com/tagforge/tagforge/internal/tlog"
	"github.com/tagforge/tagforge/internal/zones"
)

// Context bundles everything a codec needs for one Read/Write/Remove call:
// a single seekable stream, the structure helper it registers zones and
// anchors on, process settings and a logger.
type Context struct {
	File     *os.File
	Zones    *zones.StructureHelper
	Settings config.Settings
	Log      *tlog.Logger

	// PrepareForWriting tells Read to register zones/anchors as it parses,
	// since a Read that only surfaces a TagData to a caller has no reason
	// to pay for that bookkeeping (AudioDataManager.update sets this true).
	PrepareForWriting bool
}

// Codec is the per-format trait every tag format realizes as a tagged
// variant rather than through an inheritance chain; algorithms that cross
// formats (Vorbis comment parsing, for instance) are shared by composition
// instead — a collaborator of both the FLAC and Ogg codecs rather than a
// shared base type.
//
// AudioDataManager.update owns the read-then-merge sequence: it calls Read
// with ctx.PrepareForWriting set (so zones are registered), merges the
// result with the caller's delta, and only then calls Write with the
// already-merged TagData. Write and Remove never re-parse the file or
// re-run the merge themselves — they serialize the TagData they are given
// using the zones Read already registered.
type Codec interface {
	// TagType identifies which model.TagType this codec reads and writes.
	TagType() model.TagType

	// Read parses the tag region(s) this codec owns out of ctx.File and
	// returns the format-neutral TagData. When ctx.PrepareForWriting is
	// set, Read also registers the zones and anchors a later Write or
	// Remove will need.
	Read(ctx *Context) (*model.TagData, error)

	// Write re-encodes merged (already the result of Merge against the
	// current tag) and splices it back into ctx.File via ctx.Zones, using
	// the zones a prior PrepareForWriting Read registered.
	Write(ctx *Context, merged *model.TagData) error

	// Remove empties this codec's tag region, preserving whatever fields are
	// mandatory for playback in that format (e.g. SPC's fixed header), given
	// the current tag from a prior PrepareForWriting Read, and splices the
	// result back into ctx.File.
	Remove(ctx *Context, current *model.TagData) error
}
