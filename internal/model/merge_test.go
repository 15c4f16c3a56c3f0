package model

import "testing"

func TestMergeSupportedFieldsDeltaWins(t *testing.T) {
	current := New()
	current.Set(Title, "Old Title")
	current.Set(Artist, "Untouched Artist")

	delta := New()
	delta.Set(Title, "New Title")

	got := Merge(current, delta)
	if got.Get(Title) != "New Title" {
		t.Errorf("Title = %q, want the delta's value", got.Get(Title))
	}
	if got.Get(Artist) != "Untouched Artist" {
		t.Errorf("Artist = %q, want carried over from current", got.Get(Artist))
	}
}

func TestMergeEmptyDeltaValueErases(t *testing.T) {
	current := New()
	current.Set(Title, "Old Title")

	delta := New()
	delta.Set(Title, "")

	got := Merge(current, delta)
	if got.Get(Title) != "" {
		t.Errorf("Title = %q, want erased by an explicit empty delta value", got.Get(Title))
	}
}

func TestMergeAdditionalFieldUpsertAndDelete(t *testing.T) {
	current := New()
	current.UpsertAdditional(AdditionalField{TagType: TagID3v2, NativeCode: "TXXX:mood", Value: "happy"})
	current.UpsertAdditional(AdditionalField{TagType: TagID3v2, NativeCode: "TXXX:bpm", Value: "120"})

	delta := New()
	delta.UpsertAdditional(AdditionalField{TagType: TagID3v2, NativeCode: "TXXX:mood", Value: "sad"})
	delta.UpsertAdditional(AdditionalField{TagType: TagID3v2, NativeCode: "TXXX:bpm", MarkedForDeletion: true})

	got := Merge(current, delta)
	if af, ok := got.FindAdditional(TagID3v2, "TXXX:mood"); !ok || af.Value != "sad" {
		t.Errorf("TXXX:mood = %+v, want upserted to sad", af)
	}
	if _, ok := got.FindAdditional(TagID3v2, "TXXX:bpm"); ok {
		t.Error("TXXX:bpm should have been removed")
	}
}

func TestMergePictureAppendAndDelete(t *testing.T) {
	current := New()
	current.Pictures = []Picture{
		{PictureType: PictureFront, Bytes: []byte{1}},
		{PictureType: PictureBack, Bytes: []byte{2}},
	}

	delta := New()
	delta.Pictures = []Picture{
		{PictureType: PictureBack, MarkedForDeletion: true},
		{PictureType: PictureIcon, Bytes: []byte{3}},
	}

	got := Merge(current, delta)
	if len(got.Pictures) != 2 {
		t.Fatalf("Pictures = %+v, want front + newly added icon, back removed", got.Pictures)
	}
	var types []PictureType
	for _, p := range got.Pictures {
		types = append(types, p.PictureType)
	}
	if types[0] != PictureFront || types[1] != PictureIcon {
		t.Errorf("Pictures = %+v, want [Front Icon]", types)
	}
}

func TestMergeNilChaptersLeavesCurrentUntouched(t *testing.T) {
	current := New()
	current.Chapters = []Chapter{{StartMs: 0, Title: "Intro"}}

	delta := New() // Chapters left nil
	got := Merge(current, delta)
	if len(got.Chapters) != 1 || got.Chapters[0].Title != "Intro" {
		t.Errorf("Chapters = %+v, want untouched", got.Chapters)
	}
}

func TestMergeNonNilChaptersReplaces(t *testing.T) {
	current := New()
	current.Chapters = []Chapter{{StartMs: 0, Title: "Intro"}}

	delta := New()
	delta.Chapters = []Chapter{{StartMs: 0, Title: "Only Chapter"}}
	got := Merge(current, delta)
	if len(got.Chapters) != 1 || got.Chapters[0].Title != "Only Chapter" {
		t.Errorf("Chapters = %+v, want fully replaced", got.Chapters)
	}
}

func TestMergeNilDeltaReturnsCopyOfCurrent(t *testing.T) {
	current := New()
	current.Set(Title, "Unchanged")
	got := Merge(current, nil)
	if got.Get(Title) != "Unchanged" {
		t.Errorf("Title = %q", got.Get(Title))
	}
	got.Set(Title, "Mutated Copy")
	if current.Get(Title) != "Unchanged" {
		t.Error("mutating the merge result should not affect current")
	}
}
