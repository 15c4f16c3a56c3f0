package vorbis

import (
	"bytes"
	"testing"

	"github.com/tagforge/tagforge/internal/model"
)

func TestEncodeDecodeRoundTripFLACStyle(t *testing.T) {
	tag := model.New()
	tag.Set(model.Title, "A Song")
	tag.Set(model.Artist, "A Band")
	tag.Set(model.TrackNumber, "3")
	tag.UpsertAdditional(model.AdditionalField{TagType: model.TagVorbis, NativeCode: "TRACKNUMBER", Value: "03/12"})

	payload := Encode(tag, "my-encoder 1.0", false)
	got, vendor, err := Decode(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	if vendor != "my-encoder 1.0" {
		t.Errorf("vendor = %q", vendor)
	}
	if got.Get(model.Title) != "A Song" {
		t.Errorf("Title = %q", got.Get(model.Title))
	}
	if got.Get(model.TrackNumber) != "3" {
		t.Errorf("TrackNumber = %q", got.Get(model.TrackNumber))
	}
	if af, ok := got.FindAdditional(model.TagVorbis, "TRACKNUMBER"); !ok || af.Value != "03/12" {
		t.Errorf("raw TRACKNUMBER = %+v, want the original slash-form preserved", af)
	}
}

func TestEncodeDecodeWithFramingBit(t *testing.T) {
	tag := model.New()
	tag.Set(model.Title, "Ogg Flavored")

	payload := Encode(tag, "vorbis-enc", true)
	got, _, err := Decode(payload, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Get(model.Title) != "Ogg Flavored" {
		t.Errorf("Title = %q", got.Get(model.Title))
	}

	// Dropping the trailing framing byte should now fail.
	if _, _, err := Decode(payload[:len(payload)-1], true); err == nil {
		t.Fatal("want an error when trailingFramingBit is required but missing")
	}
}

func TestDecodeMalformedVendorLength(t *testing.T) {
	if _, _, err := Decode([]byte{0xFF, 0xFF, 0xFF, 0xFF}, false); err == nil {
		t.Fatal("want an error when the vendor length exceeds the payload")
	}
}

func TestPictureKeyRoundTrip(t *testing.T) {
	tag := model.New()
	tag.Pictures = append(tag.Pictures, model.Picture{
		PictureType:      model.PictureFront,
		MimeOrFormatHint: "image/png",
		Bytes:            []byte{9, 9, 9},
	})

	payload := Encode(tag, "v", false)
	got, _, err := Decode(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Pictures) != 1 || got.Pictures[0].PictureType != model.PictureFront {
		t.Errorf("Pictures = %+v", got.Pictures)
	}
}

func TestChaptersRoundTripSorted(t *testing.T) {
	tag := model.New()
	tag.Chapters = []model.Chapter{
		{StartMs: 60000, Title: "Second"},
		{StartMs: 0, Title: "First"},
	}

	payload := Encode(tag, "v", false)
	got, _, err := Decode(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chapters) != 2 {
		t.Fatalf("Chapters = %+v", got.Chapters)
	}
	if got.Chapters[0].Title != "First" || got.Chapters[1].Title != "Second" {
		t.Errorf("Chapters = %+v, want sorted by start time", got.Chapters)
	}
}

func TestCommentDescriptionAliasPrefersCanonicalOnEncode(t *testing.T) {
	tag := model.New()
	tag.Set(model.Comment, "a comment")
	payload := Encode(tag, "v", false)
	if !bytes.Contains(payload, []byte("COMMENT=a comment")) || bytes.Contains(payload, []byte("DESCRIPTION=")) {
		t.Errorf("payload = %q, want the comment under the canonical COMMENT key", payload)
	}
	got, _, err := Decode(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Get(model.Comment) != "a comment" {
		t.Errorf("Comment = %q", got.Get(model.Comment))
	}
}
