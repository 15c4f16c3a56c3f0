package tagforge

import "github.com/tagforge/tagforge/internal/model"

// TagData is the format-neutral in-memory tag document:
// supported fields, additional fields, pictures and an optional chapter
// list. See internal/model.TagData for field documentation.
type TagData = model.TagData

// NewTagData returns an empty, ready-to-populate TagData for use as an
// Update delta.
func NewTagData() *TagData { return model.New() }

// FieldKey identifies one of the format-neutral supported textual fields.
type FieldKey = model.FieldKey

const (
	GeneralDescription = model.GeneralDescription
	Title              = model.Title
	Artist             = model.Artist
	Composer           = model.Composer
	Comment            = model.Comment
	Genre              = model.Genre
	Album              = model.Album
	ReleaseDate        = model.ReleaseDate
	ReleaseYear        = model.ReleaseYear
	TrackNumber        = model.TrackNumber
	DiscNumber         = model.DiscNumber
	Rating             = model.Rating
	OriginalArtist     = model.OriginalArtist
	OriginalAlbum      = model.OriginalAlbum
	Copyright          = model.Copyright
	Publisher          = model.Publisher
	AlbumArtist        = model.AlbumArtist
	Conductor          = model.Conductor
)

// TagType discriminates which format-specific codec produced or owns a
// TagData, an additional field, or a picture.
type TagType = model.TagType

const (
	TagUnknown TagType = model.TagUnknown
	TagVorbis  TagType = model.TagVorbis
	TagID3v1   TagType = model.TagID3v1
	TagID3v2   TagType = model.TagID3v2
	TagAPEv2   TagType = model.TagAPEv2
	TagSPC     TagType = model.TagSPC
)

// AdditionalField carries a field the originating format supports but the
// FieldKey table does not.
type AdditionalField = model.AdditionalField

// TagStatus reports whether a tag type was present on a file and whether
// decoding it succeeded.
type TagStatus = model.TagStatus

// PictureType is the format-neutral picture role enum.
type PictureType = model.PictureType

const (
	PictureUnsupported       = model.PictureUnsupported
	PictureFront             = model.PictureFront
	PictureBack              = model.PictureBack
	PictureCD                = model.PictureCD
	PictureIcon              = model.PictureIcon
	PictureOtherIcon         = model.PictureOtherIcon
	PictureLeaflet           = model.PictureLeaflet
	PictureLeadArtist        = model.PictureLeadArtist
	PicturePerformer         = model.PicturePerformer
	PictureConductor         = model.PictureConductor
	PictureBand              = model.PictureBand
	PictureComposer          = model.PictureComposer
	PictureLyricist          = model.PictureLyricist
	PictureRecordingLocation = model.PictureRecordingLocation
	PictureDuringRecording   = model.PictureDuringRecording
	PictureDuringPerformance = model.PictureDuringPerformance
	PictureMovieCapture      = model.PictureMovieCapture
	PictureBrightFish        = model.PictureBrightFish
	PictureIllustration      = model.PictureIllustration
	PictureBandLogo          = model.PictureBandLogo
	PicturePublisherLogo     = model.PicturePublisherLogo
	PictureGeneric           = model.PictureGeneric
)

// Picture is an embedded image plus enough provenance to round-trip it.
type Picture = model.Picture

// Chapter is one entry of an optional chapter list.
type Chapter = model.Chapter
