package extractor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplingInterval(t *testing.T) {
	assert.Equal(t, 15, SamplingInterval(30, 2))
	assert.Equal(t, 30, SamplingInterval(30, 1))
	assert.Equal(t, 12, SamplingInterval(25, 2))
	assert.Equal(t, 14, SamplingInterval(29.97, 2))

	// requesting more than the source rate still advances one frame at a time
	assert.Equal(t, 1, SamplingInterval(24, 60))
	assert.Equal(t, 1, SamplingInterval(0, 2))
	assert.Equal(t, 1, SamplingInterval(30, 0))
}

func TestParseRate(t *testing.T) {
	assert.InDelta(t, 29.97, parseRate("30000/1001"), 0.01)
	assert.InDelta(t, 25.0, parseRate("25/1"), 1e-9)
	assert.InDelta(t, 24.0, parseRate("24"), 1e-9)
	assert.Zero(t, parseRate("0/0"))
	assert.Zero(t, parseRate("garbage"))
}

func TestTotalSourceFrames(t *testing.T) {
	// nb_frames wins when present
	assert.Equal(t, 300, totalSourceFrames(videoInfo{Frames: 300, FPS: 30, Duration: 11}, 5, 15))

	// otherwise duration * fps
	assert.Equal(t, 150, totalSourceFrames(videoInfo{FPS: 30, Duration: 5}, 5, 15))
	assert.Equal(t, 300, totalSourceFrames(videoInfo{FPS: 29.97, Duration: 10.01}, 5, 15))

	// last resort: estimate from the sampled output
	assert.Equal(t, 75, totalSourceFrames(videoInfo{}, 5, 15))
}

func encodeTestJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestSplitJPEGStream(t *testing.T) {
	a := encodeTestJPEG(t, 32, 24, color.RGBA{R: 255, A: 255})
	b := encodeTestJPEG(t, 16, 16, color.RGBA{G: 255, A: 255})
	c := encodeTestJPEG(t, 8, 8, color.RGBA{B: 255, A: 255})

	stream := append(append(append([]byte{}, a...), b...), c...)
	frames := splitJPEGStream(stream)
	require.Len(t, frames, 3)

	dims := []image.Point{{X: 32, Y: 24}, {X: 16, Y: 16}, {X: 8, Y: 8}}
	for i, frame := range frames {
		pt, err := decodeCheck(frame)
		require.NoError(t, err, "frame %d", i)
		assert.Equal(t, dims[i], pt)
	}
}

func TestSplitJPEGStreamTruncated(t *testing.T) {
	a := encodeTestJPEG(t, 16, 16, color.RGBA{R: 128, A: 255})
	truncated := append(append([]byte{}, a...), a[:len(a)/2]...)
	frames := splitJPEGStream(truncated)
	require.Len(t, frames, 1)
	_, err := decodeCheck(frames[0])
	assert.NoError(t, err)
}

func TestSplitJPEGStreamGarbage(t *testing.T) {
	assert.Empty(t, splitJPEGStream([]byte{0x00, 0x01, 0x02}))
	assert.Empty(t, splitJPEGStream(nil))
}

func TestExtractEmptyPayload(t *testing.T) {
	e := New(nil)
	_, err := e.Extract(context.Background(), nil, 2)
	assert.ErrorIs(t, err, ErrVideoDecode)
}

func TestExtractUnopenableVideo(t *testing.T) {
	e := New(nil)
	e.FFprobePath = "/nonexistent/ffprobe"
	_, err := e.Extract(context.Background(), []byte("not a video"), 2)
	assert.ErrorIs(t, err, ErrVideoDecode)
}
