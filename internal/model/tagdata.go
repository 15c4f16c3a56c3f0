// Package model defines the format-neutral tag document shared
// by every codec: supported fields, additional fields, pictures and
// chapters, plus the merge semantics used on every write.
package model

// FieldKey identifies one of the format-neutral supported textual fields.
type FieldKey int

const (
	GeneralDescription FieldKey = iota
	Title
	Artist
	Composer
	Comment
	Genre
	Album
	ReleaseDate
	ReleaseYear
	TrackNumber
	DiscNumber
	Rating
	OriginalArtist
	OriginalAlbum
	Copyright
	Publisher
	AlbumArtist
	Conductor
)

var fieldNames = map[FieldKey]string{
	GeneralDescription: "GeneralDescription",
	Title:              "Title",
	Artist:             "Artist",
	Composer:           "Composer",
	Comment:            "Comment",
	Genre:              "Genre",
	Album:              "Album",
	ReleaseDate:        "ReleaseDate",
	ReleaseYear:        "ReleaseYear",
	TrackNumber:        "TrackNumber",
	DiscNumber:         "DiscNumber",
	Rating:             "Rating",
	OriginalArtist:     "OriginalArtist",
	OriginalAlbum:      "OriginalAlbum",
	Copyright:          "Copyright",
	Publisher:          "Publisher",
	AlbumArtist:        "AlbumArtist",
	Conductor:          "Conductor",
}

func (k FieldKey) String() string {
	if s, ok := fieldNames[k]; ok {
		return s
	}
	return "Unknown"
}

// TagType discriminates which format-specific codec produced or owns a
// TagData, an additional field, or a picture.
type TagType int

const (
	TagUnknown TagType = iota
	TagVorbis
	TagID3v1
	TagID3v2
	TagAPEv2
	TagSPC
)

func (t TagType) String() string {
	switch t {
	case TagVorbis:
		return "Vorbis"
	case TagID3v1:
		return "ID3v1"
	case TagID3v2:
		return "ID3v2"
	case TagAPEv2:
		return "APEv2"
	case TagSPC:
		return "SPC"
	default:
		return "Unknown"
	}
}

// AdditionalField carries a field the originating format supports but the
// FieldKey table does not. Uniquely identified within a TagData by
// (TagType, NativeCode); a later Upsert of the same pair replaces the
// earlier entry.
type AdditionalField struct {
	TagType           TagType
	NativeCode        string
	Value             string
	StreamNumber      int
	Language          string
	ZoneName          string
	MarkedForDeletion bool
}

// PictureType is the format-neutral picture role enum.
type PictureType int

const (
	PictureUnsupported PictureType = iota
	PictureFront
	PictureBack
	PictureCD
	PictureIcon
	PictureOtherIcon
	PictureLeaflet
	PictureLeadArtist
	PicturePerformer
	PictureConductor
	PictureBand
	PictureComposer
	PictureLyricist
	PictureRecordingLocation
	PictureDuringRecording
	PictureDuringPerformance
	PictureMovieCapture
	PictureBrightFish
	PictureIllustration
	PictureBandLogo
	PicturePublisherLogo
	PictureGeneric
)

// Picture is an embedded image plus enough provenance to round-trip it.
type Picture struct {
	PictureType       PictureType
	NativeCode        int // meaningful only when PictureType == PictureUnsupported
	MimeOrFormatHint  string
	Bytes             []byte
	MarkedForDeletion bool
}

// Identity returns the (PictureType, NativeCode) or NativeCode-alone key used
// for delete-matching.
func (p Picture) Identity() (PictureType, int) {
	if p.PictureType != PictureUnsupported {
		return p.PictureType, 0
	}
	return PictureUnsupported, p.NativeCode
}

// Chapter is one entry of an optional chapter list.
type Chapter struct {
	StartMs  int64
	EndMs    *int64
	Title    string
	URL      string
	Subtitle string
}

// TagData is the format-neutral in-memory tag document.
type TagData struct {
	SupportedFields map[FieldKey]string
	AdditionalFields []AdditionalField
	Pictures        []Picture
	Chapters        []Chapter // nil means "caller did not supply a chapter list"
}

// New returns an empty, ready-to-use TagData.
func New() *TagData {
	return &TagData{SupportedFields: make(map[FieldKey]string)}
}

// Get returns a supported field's value, or "" if absent.
func (t *TagData) Get(k FieldKey) string {
	if t == nil || t.SupportedFields == nil {
		return ""
	}
	return t.SupportedFields[k]
}

// Set assigns a supported field. Setting "" records an explicit empty value:
// Get reports "" for it just as for an unset field, Merge treats it as
// "erase this field", and no codec writes an empty value.
func (t *TagData) Set(k FieldKey, v string) {
	if t.SupportedFields == nil {
		t.SupportedFields = make(map[FieldKey]string)
	}
	t.SupportedFields[k] = v
}

// UpsertAdditional inserts or replaces an additional field by
// (TagType, NativeCode).
func (t *TagData) UpsertAdditional(f AdditionalField) {
	for i := range t.AdditionalFields {
		if t.AdditionalFields[i].TagType == f.TagType && t.AdditionalFields[i].NativeCode == f.NativeCode {
			t.AdditionalFields[i] = f
			return
		}
	}
	t.AdditionalFields = append(t.AdditionalFields, f)
}

// FindAdditional looks up an additional field by (TagType, NativeCode).
func (t *TagData) FindAdditional(tt TagType, code string) (AdditionalField, bool) {
	for _, f := range t.AdditionalFields {
		if f.TagType == tt && f.NativeCode == code {
			return f, true
		}
	}
	return AdditionalField{}, false
}

// TagStatus reports what a read pass learned about one tag type on a file:
// whether the format was present at all, and, if so, whether decoding it
// succeeded.
type TagStatus struct {
	// Exists is true when the file carries this tag type's region,
	// regardless of whether decoding it then succeeded.
	Exists bool
	// ParseError is the decode failure a present region produced, or nil on
	// a clean read.
	ParseError error
}
