package model

// Merge produces the tag to serialize from a freshly-read `current` TagData
// and a caller-supplied `delta`,
//
//   - Supported fields: a present (non-empty) delta value replaces current;
//     a present empty value (see Set) is copied as-is, so the result reports
//     "" for that field and no codec writes it, which erases it.
//   - Additional fields: MarkedForDeletion removes the matching current
//     entry; otherwise upsert by (TagType, NativeCode).
//   - Pictures: MarkedForDeletion removes the matching current picture
//     (identity per Picture.Identity); otherwise appended.
//   - Chapters: a non-nil delta.Chapters fully replaces current; nil leaves
//     current untouched.
func Merge(current, delta *TagData) *TagData {
	result := New()
	for k, v := range current.SupportedFields {
		result.SupportedFields[k] = v
	}
	result.AdditionalFields = append([]AdditionalField{}, current.AdditionalFields...)
	result.Pictures = append([]Picture{}, current.Pictures...)
	result.Chapters = current.Chapters

	if delta == nil {
		return result
	}

	for k, v := range delta.SupportedFields {
		result.Set(k, v)
	}

	for _, df := range delta.AdditionalFields {
		if df.MarkedForDeletion {
			result.removeAdditional(df.TagType, df.NativeCode)
			continue
		}
		result.UpsertAdditional(df)
	}

	for _, dp := range delta.Pictures {
		if dp.MarkedForDeletion {
			result.removePicture(dp)
			continue
		}
		result.Pictures = append(result.Pictures, dp)
	}

	if delta.Chapters != nil {
		result.Chapters = delta.Chapters
	}

	return result
}

func (t *TagData) removeAdditional(tt TagType, code string) {
	out := t.AdditionalFields[:0]
	for _, f := range t.AdditionalFields {
		if f.TagType == tt && f.NativeCode == code {
			continue
		}
		out = append(out, f)
	}
	t.AdditionalFields = out
}

func (t *TagData) removePicture(target Picture) {
	wantType, wantCode := target.Identity()
	out := t.Pictures[:0]
	for _, p := range t.Pictures {
		pt, pc := p.Identity()
		if pt == wantType && pc == wantCode {
			continue
		}
		out = append(out, p)
	}
	t.Pictures = out
}
