package capture

import (
	"bytes"
	"errors"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRunFirstStrategyWins(t *testing.T) {
	want := []byte("image-bytes")
	res := run([]strategy{
		{name: "standard", contentType: "image/png", shoot: func() ([]byte, error) { return want, nil }},
		{name: "simplified", contentType: "image/jpeg", shoot: func() ([]byte, error) {
			t.Fatal("second strategy must not run when the first succeeds")
			return nil, nil
		}},
	})
	if !bytes.Equal(res.Image, want) || res.Level != "standard" {
		t.Errorf("got level %q image %q", res.Level, res.Image)
	}
	if res.ContentType != "image/png" {
		t.Errorf("contentType = %q", res.ContentType)
	}
}

func TestRunFallsThroughOnErrorAndEmpty(t *testing.T) {
	want := []byte("jpeg-bytes")
	res := run([]strategy{
		{name: "standard", contentType: "image/png", shoot: func() ([]byte, error) { return nil, errors.New("target closed") }},
		{name: "simplified", contentType: "image/jpeg", shoot: func() ([]byte, error) { return []byte{}, nil }},
		{name: "protocol", contentType: "image/jpeg", shoot: func() ([]byte, error) { return want, nil }},
	})
	if res.Level != "protocol" || !bytes.Equal(res.Image, want) {
		t.Errorf("got level %q", res.Level)
	}
}

func TestRunPlaceholderWhenAllFail(t *testing.T) {
	fail := func() ([]byte, error) { return nil, errors.New("renderer gone") }
	res := run([]strategy{
		{name: "standard", contentType: "image/png", shoot: fail},
		{name: "simplified", contentType: "image/jpeg", shoot: fail},
	})
	if res.Level != "placeholder" {
		t.Fatalf("level = %q, want placeholder", res.Level)
	}
	if len(res.Image) == 0 {
		t.Fatal("placeholder image must not be empty")
	}
	if !bytes.HasPrefix(res.Image, pngMagic) {
		t.Error("placeholder must be a valid PNG")
	}
	if res.ContentType != "image/png" {
		t.Errorf("contentType = %q", res.ContentType)
	}
}

func TestEmbeddedPlaceholderIsPNG(t *testing.T) {
	if !bytes.HasPrefix(placeholderPNG, pngMagic) {
		t.Fatal("embedded placeholder is not a PNG")
	}
}
