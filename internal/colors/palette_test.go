package colors

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestExtractDominantSolidRed(t *testing.T) {
	img := solidImage(50, 50, color.NRGBA{R: 255, A: 255})
	hexes := ExtractDominant(img, 5)
	require.Len(t, hexes, 1)
	assert.Equal(t, "#FF0000", hexes[0])
}

func TestExtractDominantDropsBlackAndWhite(t *testing.T) {
	img := solidImage(20, 20, color.NRGBA{A: 255})
	assert.Empty(t, ExtractDominant(img, 5))

	img = solidImage(20, 20, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	assert.Empty(t, ExtractDominant(img, 5))
}

func TestExtractDominantFewDistinctRankedByFrequency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			// 70 blue pixels, 30 green
			if y < 7 {
				img.SetNRGBA(x, y, color.NRGBA{B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{G: 128, A: 255})
			}
		}
	}
	hexes := ExtractDominant(img, 5)
	require.Len(t, hexes, 2)
	assert.Equal(t, "#0000FF", hexes[0])
	assert.Equal(t, "#008000", hexes[1])
}

func TestExtractDominantClustersManyColors(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 60, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 60; x++ {
			// three bands with slight per-pixel jitter
			switch {
			case y < 20:
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(200 + x%8), G: 10, B: 10, A: 255})
			case y < 40:
				img.SetNRGBA(x, y, color.NRGBA{R: 10, G: uint8(180 + x%8), B: 10, A: 255})
			default:
				img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 10, B: uint8(160 + x%8), A: 255})
			}
		}
	}
	hexes := ExtractDominant(img, 3)
	require.Len(t, hexes, 3)
	for _, h := range hexes {
		assert.Regexp(t, `^#[0-9A-F]{6}$`, h)
	}
}

func TestExtractDominantDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 120; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8((x + y) % 255), A: 255})
		}
	}
	first := ExtractDominant(img, 5)
	second := ExtractDominant(img, 5)
	assert.Equal(t, first, second)
}

func TestBuildPalette(t *testing.T) {
	p := BuildPalette([]string{"#AA0000", "#00AA00", "#0000AA", "#AAAA00", "#00AAAA"})
	assert.Equal(t, []string{"#AA0000", "#00AA00", "#0000AA"}, p.DominantColors)
	assert.Equal(t, []string{"#AAAA00", "#00AAAA"}, p.SecondaryColors)
	assert.Equal(t, 5, p.ColorCount)

	short := BuildPalette([]string{"#AA0000"})
	assert.Equal(t, []string{"#AA0000"}, short.DominantColors)
	assert.Empty(t, short.SecondaryColors)
	assert.Equal(t, 1, short.ColorCount)
}

func TestAggregatePalettes(t *testing.T) {
	sources := [][]string{
		{"#FF0000", "#00FF00", "#0000FF"},
		{"#FF0000", "#FFFF00", "#0000FF"},
		{"#FF0000", "#00FFFF", "#FF00FF"},
	}
	p := AggregatePalettes(sources)
	require.Len(t, p.DominantColors, 3)
	assert.Equal(t, "#FF0000", p.DominantColors[0])
	assert.Equal(t, "#0000FF", p.DominantColors[1])
	assert.Len(t, p.SecondaryColors, 2)
	assert.Equal(t, 6, p.ColorCount)
}

func TestAggregatePalettesEmpty(t *testing.T) {
	p := AggregatePalettes(nil)
	assert.Empty(t, p.DominantColors)
	assert.Zero(t, p.ColorCount)
}
