package imaging

import (
	"image"
	stddraw "image/draw"

	"golang.org/x/image/draw"
)

// Grayscale converts an image to single-channel intensity using the standard
// luminance weights.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (299*r + 587*g + 114*bl) / 1000
			gray.Pix[(y-b.Min.Y)*gray.Stride+(x-b.Min.X)] = uint8(lum >> 8)
		}
	}
	return gray
}

// Scale resizes src to w x h. Shrinking uses a box-averaging kernel,
// enlarging a bicubic one, matching the area/cubic interpolation split.
func Scale(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w < b.Dx() || h < b.Dy() {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst
}

// ScaleGray resizes a grayscale image, preserving the single channel.
func ScaleGray(src *image.Gray, w, h int) *image.Gray {
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w < b.Dx() || h < b.Dy() {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}
	return dst
}

// Crop copies the given rectangle (in src coordinates) into a new image.
func Crop(src image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	stddraw.Draw(out, out.Bounds(), src, r.Min, stddraw.Src)
	return out
}

// ToNRGBA normalizes an image to NRGBA, as the palette libraries expect.
func ToNRGBA(src image.Image) *image.NRGBA {
	if img, ok := src.(*image.NRGBA); ok {
		return img
	}
	b := src.Bounds()
	out := image.NewNRGBA(b)
	stddraw.Draw(out, b, src, b.Min, stddraw.Src)
	return out
}
