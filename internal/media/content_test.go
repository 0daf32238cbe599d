package media

import (
	"encoding/base64"
	"testing"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
)

// TestDecodeDataURL verifies prefixed and bare payloads decode.
func TestDecodeDataURL(t *testing.T) {
	raw := encodeTestJPEG(t, gradientImage(16, 16))
	b64 := base64.StdEncoding.EncodeToString(raw)

	for _, in := range []string{"data:image/jpeg;base64," + b64, b64} {
		got, err := DecodeDataURL(in)
		if err != nil {
			t.Fatalf("DecodeDataURL failed: %v", err)
		}
		if len(got) != len(raw) {
			t.Errorf("decoded %d bytes, want %d", len(got), len(raw))
		}
		if !IsImage(got) {
			t.Error("decoded payload should sniff as an image")
		}
	}
}

// TestDecodeDataURL_invalid verifies malformed URLs are DECODE_FAULT.
func TestDecodeDataURL_invalid(t *testing.T) {
	for _, in := range []string{
		"data:image/jpeg,notbase64",
		"data:image/jpeg;base64",
		"data:image/jpeg;base64,!!!",
	} {
		if _, err := DecodeDataURL(in); !errors.Is(err, errors.ErrDecodeFault) {
			t.Errorf("DecodeDataURL(%q) err = %v, want DECODE_FAULT", in, err)
		}
	}
}

// TestIsImage verifies non-image payloads are rejected.
func TestIsImage(t *testing.T) {
	if IsImage([]byte("plain text")) {
		t.Error("text should not sniff as image")
	}
}

// TestCheckDecodable verifies a payload that sniffs as JPEG but is truncated
// is caught before it reaches the compressor.
func TestCheckDecodable(t *testing.T) {
	whole := encodeTestJPEG(t, gradientImage(64, 64))
	if err := CheckDecodable(whole); err != nil {
		t.Fatalf("CheckDecodable(whole) = %v", err)
	}

	truncated := whole[:40]
	if !IsImage(truncated) {
		t.Fatal("truncated payload should still sniff as an image")
	}
	for name, data := range map[string][]byte{"empty": nil, "truncated": truncated} {
		if err := CheckDecodable(data); !errors.Is(err, errors.ErrDecodeFault) {
			t.Errorf("%s: err = %v, want DECODE_FAULT", name, err)
		}
	}
}
