package picture

import (
	"bytes"
	"testing"

	"github.com/tagforge/tagforge/internal/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := model.Picture{
		PictureType:      model.PictureFront,
		MimeOrFormatHint: "image/jpeg",
		Bytes:            []byte{0xFF, 0xD8, 0xFF, 0xD9},
	}
	body := EncodeBody(p)
	got, err := DecodeBody(body)
	if err != nil {
		t.Fatal(err)
	}
	if got.PictureType != model.PictureFront {
		t.Errorf("PictureType = %v", got.PictureType)
	}
	if got.MimeOrFormatHint != "image/jpeg" {
		t.Errorf("MimeOrFormatHint = %q", got.MimeOrFormatHint)
	}
	if !bytes.Equal(got.Bytes, p.Bytes) {
		t.Errorf("Bytes = %x, want %x", got.Bytes, p.Bytes)
	}
}

func TestUnmappedNativeCodeStaysUnsupported(t *testing.T) {
	got, err := DecodeBody(EncodeBody(model.Picture{
		PictureType: model.PictureUnsupported,
		NativeCode:  0x02, // deliberately unmapped: "other file icon"
		Bytes:       []byte{1},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if got.PictureType != model.PictureUnsupported || got.NativeCode != 0x02 {
		t.Errorf("got = %+v, want Unsupported with native code 0x02 preserved", got)
	}
}

func TestDecodeBodyTooShort(t *testing.T) {
	if _, err := DecodeBody(make([]byte, 10)); err == nil {
		t.Fatal("want an error for a body shorter than the fixed header")
	}
}

func TestTypeNativeMapping(t *testing.T) {
	if TypeFromNative(0x03) != model.PictureFront {
		t.Errorf("TypeFromNative(0x03) = %v, want PictureFront", TypeFromNative(0x03))
	}
	if TypeFromNative(0x00) != model.PictureUnsupported {
		t.Errorf("TypeFromNative(0x00) = %v, want Unsupported (deliberately unmapped)", TypeFromNative(0x00))
	}
	if NativeFromType(model.PictureFront, 0) != 0x03 {
		t.Errorf("NativeFromType(Front) = %d, want 0x03", NativeFromType(model.PictureFront, 0))
	}
	if NativeFromType(model.PictureUnsupported, 0x15) != 0x15 {
		t.Errorf("NativeFromType(Unsupported, 0x15) = %d, want preserved 0x15", NativeFromType(model.PictureUnsupported, 0x15))
	}
}
