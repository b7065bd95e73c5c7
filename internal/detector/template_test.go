package detector

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logoPattern draws a high-contrast checker with a gradient so the template
// has plenty of variance.
func logoPattern(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40 + (x*3)%120)
			if ((x/10)+(y/10))%2 == 0 {
				v = uint8(200 + (y % 50))
			}
			g.Pix[y*g.Stride+x] = v
		}
	}
	return g
}

// frameWithLogo paints the pattern into a mid-gray frame at (x0, y0).
func frameWithLogo(fw, fh int, logo *image.Gray, x0, y0 int) *image.Gray {
	frame := image.NewGray(image.Rect(0, 0, fw, fh))
	for i := range frame.Pix {
		frame.Pix[i] = 128
	}
	lw, lh := logo.Bounds().Dx(), logo.Bounds().Dy()
	for y := 0; y < lh; y++ {
		for x := 0; x < lw; x++ {
			frame.Pix[(y0+y)*frame.Stride+x0+x] = logo.Pix[y*logo.Stride+x]
		}
	}
	return frame
}

func TestMatchTemplateExact(t *testing.T) {
	logo := logoPattern(200, 80)
	frame := frameWithLogo(640, 480, logo, 100, 50)

	score, x, y := matchTemplate(frame, logo)
	assert.Greater(t, score, 0.99)
	assert.Equal(t, 100, x)
	assert.Equal(t, 50, y)
}

func TestMatchTemplateFlatTemplate(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range flat.Pix {
		flat.Pix[i] = 77
	}
	frame := frameWithLogo(200, 200, logoPattern(50, 50), 20, 20)

	score, _, _ := matchTemplate(frame, flat)
	assert.Zero(t, score)
}

func TestMatchTemplateAbsent(t *testing.T) {
	logo := logoPattern(60, 40)
	frame := image.NewGray(image.Rect(0, 0, 300, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			frame.Pix[y*frame.Stride+x] = uint8((x + y) % 256)
		}
	}
	score, _, _ := matchTemplate(frame, logo)
	assert.Less(t, score, 0.9)
}

func TestBestScaledMatchPrefersTrueScale(t *testing.T) {
	logo := logoPattern(200, 80)
	frame := frameWithLogo(640, 480, logo, 100, 50)

	m := bestScaledMatch(frame, logo)
	require.Greater(t, m.Score, 0.99)
	assert.InDelta(t, 1.0, m.Scale, 1e-9)
	assert.Equal(t, 100, m.X)
	assert.Equal(t, 50, m.Y)
	assert.Equal(t, 200, m.W)
	assert.Equal(t, 80, m.H)
}

func TestBestScaledMatchSkipsOversizedTemplate(t *testing.T) {
	logo := logoPattern(340, 340)
	frame := frameWithLogo(320, 320, logoPattern(100, 100), 50, 50)

	// only the shrinking scales fit, so a result still comes back
	m := bestScaledMatch(frame, logo)
	assert.GreaterOrEqual(t, m.Score, 0.0)
}
