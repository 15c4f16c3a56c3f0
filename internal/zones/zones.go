// Package zones implements StructureHelper: it tracks the byte ranges
// ("zones") a codec owns inside a file, together with
// "anchors" — locations whose value depends on a zone's size or offset — and
// replays a single low-to-high splice pass when those zones are rewritten.
package zones

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tagforge/tagforge/internal/bytestream"
)

// Zone is a named, contiguous byte range a codec owns for the duration of
// one read/write cycle.
type Zone struct {
	Name string
	// Offset is the zone's starting byte offset at the time it was
	// registered (i.e. as read from the file, before any rewrite shifts it).
	Offset int64
	// Size is the zone's length in bytes at registration time.
	Size int64
	// CoreSignature is written in the zone's place when it shrinks to
	// nothing, so the container stays structurally valid (e.g. a FLAC
	// padding block's own 4-byte header with length 0).
	CoreSignature []byte
	// Flag is an arbitrary codec-defined marker (e.g. "padding",
	// "picture:0"); StructureHelper never interprets it.
	Flag string
}

// AnchorKind selects whether an Anchor's value tracks a zone's size or its
// absolute file offset.
type AnchorKind int

const (
	AnchorEncodesSize AnchorKind = iota
	AnchorEncodesOffset
)

// Anchor is a fixed-width location whose bytes must be rewritten whenever
// the zone it references changes size (or, for AnchorEncodesOffset, moves).
type Anchor struct {
	ZoneName string
	// Offset is the anchor value's absolute byte offset at registration
	// time.
	Offset int64
	Kind   AnchorKind
	// Encode writes the new value (a size or an absolute offset, per Kind)
	// into buf, whose length is fixed by the codec when the anchor is
	// registered.
	Encode func(value int64, buf []byte)
	buf    []byte
}

// StructureHelper accumulates zones and anchors during a "prepare for
// writing" read pass, then replays them as a single splice sequence during
// write.
type StructureHelper struct {
	zones   []*Zone
	anchors []*Anchor
}

// New returns an empty StructureHelper.
func New() *StructureHelper {
	return &StructureHelper{}
}

// AddZone registers a zone. Zones may be added in any order; Rewrite
// processes them from lowest to highest Offset.
func (h *StructureHelper) AddZone(z Zone) *Zone {
	zc := z
	h.zones = append(h.zones, &zc)
	return &zc
}

// AddAnchor registers an anchor whose value is `width` bytes wide.
func (h *StructureHelper) AddAnchor(zoneName string, offset int64, width int, kind AnchorKind, encode func(value int64, buf []byte)) {
	h.anchors = append(h.anchors, &Anchor{
		ZoneName: zoneName,
		Offset:   offset,
		Kind:     kind,
		Encode:   encode,
		buf:      make([]byte, width),
	})
}

// Zone returns the registered zone with the given name, or nil.
func (h *StructureHelper) Zone(name string) *Zone {
	for _, z := range h.zones {
		if z.Name == name {
			return z
		}
	}
	return nil
}

// Zones returns all registered zones in ascending offset order. Zones
// sharing an offset (a brand-new zone anchored at another brand-new zone's
// empty extent) keep their registration order, so a zone a caller added
// first splices before one it added second at the same position.
func (h *StructureHelper) Zones() []*Zone {
	out := append([]*Zone{}, h.zones...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// PictureZones returns every registered zone whose name starts with
// "PICTURE_", in ascending offset order — the picture blocks a FLAC write
// pass consolidates at the first one's position.
func (h *StructureHelper) PictureZones() []*Zone {
	var out []*Zone
	for _, z := range h.Zones() {
		if strings.HasPrefix(z.Name, "PICTURE_") {
			out = append(out, z)
		}
	}
	return out
}

// shift records a net byte-count change (delta) applied at an original file
// offset, used to translate a pre-rewrite offset into its post-rewrite
// position.
type shift struct {
	at    int64
	delta int64
}

// Rewrite replaces the content of each named zone present in newContent,
// lengthening or shortening the file at each zone's end boundary as needed,
// and fixes up every registered anchor. Zones are processed in ascending
// Offset order, so that earlier shifts are always reflected before later
// offsets are consumed.
//
// Zones not present in newContent are left untouched (including their
// content and position, modulo the shifts earlier zones introduce).
func (h *StructureHelper) Rewrite(f *os.File, newContent map[string][]byte) error {
	ordered := h.Zones()

	var shifts []shift
	var cumulative int64
	for _, z := range ordered {
		newBytes, ok := newContent[z.Name]
		if !ok {
			continue
		}
		if len(newBytes) == 0 && len(z.CoreSignature) > 0 {
			newBytes = z.CoreSignature
		}
		newSize := int64(len(newBytes))
		delta := newSize - z.Size
		effectiveOffset := z.Offset + cumulative

		if delta > 0 {
			if err := bytestream.Lengthen(f, effectiveOffset, delta); err != nil {
				return fmt.Errorf("zones: rewrite zone %q: %w", z.Name, err)
			}
		} else if delta < 0 {
			if err := bytestream.Shorten(f, effectiveOffset, -delta); err != nil {
				return fmt.Errorf("zones: rewrite zone %q: %w", z.Name, err)
			}
		}
		if len(newBytes) > 0 {
			if _, err := f.WriteAt(newBytes, effectiveOffset); err != nil {
				return fmt.Errorf("zones: write zone %q: %w", z.Name, err)
			}
		}

		shifts = append(shifts, shift{at: z.Offset, delta: cumulative + delta})
		cumulative += delta
		z.Size = newSize
	}

	shiftFor := func(offset int64) int64 {
		var acc int64
		for _, s := range shifts {
			if s.at <= offset {
				acc = s.delta
			}
		}
		return acc
	}

	for _, a := range h.anchors {
		z := h.Zone(a.ZoneName)
		if z == nil {
			continue
		}
		var value int64
		switch a.Kind {
		case AnchorEncodesSize:
			value = z.Size
		case AnchorEncodesOffset:
			value = z.Offset + shiftFor(z.Offset)
		}
		a.Encode(value, a.buf)
		at := a.Offset + shiftFor(a.Offset)
		if _, err := f.WriteAt(a.buf, at); err != nil {
			return fmt.Errorf("zones: write anchor for zone %q: %w", a.ZoneName, err)
		}
	}

	return nil
}
