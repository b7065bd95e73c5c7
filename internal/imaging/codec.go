// Package imaging handles the encoded-image boundary: base64 and data-URI
// payloads in, JPEG buffers out, plus the pixel-level conversions the
// detection and color pipelines share.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidPayload marks an empty, malformed, or undecodable payload.
	ErrInvalidPayload = errors.New("invalid image payload")

	// ErrEncodingFailure marks an encoder error on output.
	ErrEncodingFailure = errors.New("image encoding failed")
)

const jpegQuality = 90

// StripDataURI removes a leading data:<mime>;base64, prefix when present.
// The prefix is everything up to and including the first comma; matching is
// case-insensitive.
func StripDataURI(s string) string {
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DecodeBase64 strips an optional data-URI prefix and decodes the payload.
func DecodeBase64(s string) ([]byte, error) {
	stripped := StripDataURI(s)
	if stripped == "" {
		return nil, fmt.Errorf("empty base64 payload: %w", ErrInvalidPayload)
	}
	raw, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return nil, fmt.Errorf("malformed base64 payload: %w", ErrInvalidPayload)
	}
	return raw, nil
}

// Decode parses raw image bytes into a pixel buffer.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data: %w", ErrInvalidPayload)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("undecodable image: %w", ErrInvalidPayload)
	}
	return img, nil
}

// DecodeBase64Image decodes a base64 string (optionally data-URI prefixed)
// into a pixel buffer.
func DecodeBase64Image(s string) (image.Image, error) {
	raw, err := DecodeBase64(s)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// EncodeJPEG serializes a pixel buffer as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailure, err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64JPEG serializes a pixel buffer as a base64 JPEG data URI.
func EncodeBase64JPEG(img image.Image) (string, error) {
	raw, err := EncodeJPEG(img)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw), nil
}
