package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kimhsiao/fieldcapture/backend/internal/errors"
)

// DetectContentType sniffs the MIME type of an encoded payload.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// IsImage reports whether data sniffs as an image type.
func IsImage(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// CheckDecodable fully decodes data and fails with DECODE_FAULT when it
// cannot. A payload may sniff as an image and still be truncated.
func CheckDecodable(data []byte) error {
	if len(data) == 0 {
		return errors.New(errors.ErrDecodeFault, "empty image payload")
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return errors.Wrap(errors.ErrDecodeFault, "failed to decode image", err)
	}
	return nil
}

// DecodeDataURL extracts the bytes of a "data:image/...;base64,..." URL as
// produced by camera components. Plain base64 without the prefix is accepted.
func DecodeDataURL(s string) ([]byte, error) {
	payload := s
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return nil, errors.New(errors.ErrDecodeFault, "unsupported data URL")
		}
		payload = s[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDecodeFault, "invalid base64 payload", err)
	}
	return data, nil
}
