package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "abcd", StripDataURI("data:image/png;base64,abcd"))
	assert.Equal(t, "abcd", StripDataURI("DATA:image/jpeg;base64,abcd"))
	assert.Equal(t, "abcd", StripDataURI("abcd"))
	assert.Equal(t, "data:nocomma", StripDataURI("data:nocomma"))
}

func TestDecodeBase64Errors(t *testing.T) {
	_, err := DecodeBase64("")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodeBase64("!!!not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = DecodeBase64("data:image/png;base64,")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = Decode([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := testImage(10, 8, color.NRGBA{R: 200, G: 40, B: 40, A: 255})

	jpg, err := EncodeJPEG(src)
	require.NoError(t, err)
	require.NotEmpty(t, jpg)

	decoded, err := Decode(jpg)
	require.NoError(t, err)
	assert.Equal(t, 10, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestDecodeBase64Image(t *testing.T) {
	src := testImage(6, 6, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	jpg, err := EncodeJPEG(src)
	require.NoError(t, err)

	encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg)
	decoded, err := DecodeBase64Image(encoded)
	require.NoError(t, err)
	assert.Equal(t, 6, decoded.Bounds().Dx())
}

func TestEncodeBase64JPEG(t *testing.T) {
	src := testImage(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	s, err := EncodeBase64JPEG(src)
	require.NoError(t, err)
	assert.Contains(t, s, "data:image/jpeg;base64,")

	decoded, err := DecodeBase64Image(s)
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Bounds().Dy())
}
