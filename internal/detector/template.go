package detector

import (
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/brandlens/brandlens/internal/imaging"
)

// matchScales is the pyramid of template scales tried against each frame,
// ordered so the unscaled template is checked first.
var matchScales = []float64{1.0, 0.9, 0.8, 0.7, 0.6, 1.1, 1.2}

// match is the best template position found in a frame.
type match struct {
	Score float64
	X, Y  int
	W, H  int
	Scale float64
}

// bestScaledMatch slides the template over the frame at each pyramid scale
// and returns the strongest normalized cross-correlation peak. Scales where
// the template would not fit strictly inside the frame are skipped.
func bestScaledMatch(frame, tmpl *image.Gray) match {
	best := match{Score: -1}
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()

	for _, scale := range matchScales {
		tw := int(float64(tmpl.Bounds().Dx()) * scale)
		th := int(float64(tmpl.Bounds().Dy()) * scale)
		if tw < 4 || th < 4 || tw >= fw || th >= fh {
			continue
		}
		scaled := imaging.ScaleGray(tmpl, tw, th)
		score, x, y := matchTemplate(frame, scaled)
		if score > best.Score {
			best = match{Score: score, X: x, Y: y, W: tw, H: th, Scale: scale}
		}
	}
	if best.Score < 0 {
		best.Score = 0
	}
	return best
}

// matchTemplate computes the normalized cross-correlation of tmpl against
// every position in frame and returns the peak score and its top-left corner.
// Scores lie in [-1,1]; a flat (zero-variance) template scores 0 everywhere.
func matchTemplate(frame, tmpl *image.Gray) (float64, int, int) {
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	if tw > fw || th > fh {
		return 0, 0, 0
	}

	tZero, tNorm := zeroMeanTemplate(tmpl)
	if tNorm < 1e-6 {
		return 0, 0, 0
	}

	sum, sumSq := integralImages(frame)
	n := float64(tw * th)

	rows := fh - th + 1
	cols := fw - tw + 1

	type rowBest struct {
		score float64
		x, y  int
	}
	workers := runtime.NumCPU()
	if workers > rows {
		workers = rows
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]rowBest, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			local := rowBest{score: -2}
			for y := w; y < rows; y += workers {
				for x := 0; x < cols; x++ {
					winSum := windowSum(sum, fw, x, y, tw, th)
					winSumSq := windowSum(sumSq, fw, x, y, tw, th)
					variance := winSumSq - winSum*winSum/n
					if variance < 1e-6 {
						continue
					}

					var dot float64
					for ty := 0; ty < th; ty++ {
						fRow := frame.Pix[(y+ty)*frame.Stride+x:]
						tRow := tZero[ty*tw:]
						for tx := 0; tx < tw; tx++ {
							dot += tRow[tx] * float64(fRow[tx])
						}
					}

					score := dot / (tNorm * math.Sqrt(variance))
					if score > local.score {
						local = rowBest{score: score, x: x, y: y}
					}
				}
			}
			results[w] = local
		}(w)
	}
	wg.Wait()

	best := rowBest{score: -2}
	for _, r := range results {
		if r.score > best.score {
			best = r
		}
	}
	if best.score < -1 {
		return 0, 0, 0
	}
	return best.score, best.x, best.y
}

// zeroMeanTemplate returns the template with its mean subtracted, plus the
// L2 norm of the zero-mean values.
func zeroMeanTemplate(tmpl *image.Gray) ([]float64, float64) {
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	vals := make([]float64, tw*th)
	var total float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			v := float64(tmpl.Pix[y*tmpl.Stride+x])
			vals[y*tw+x] = v
			total += v
		}
	}
	mean := total / float64(len(vals))
	var normSq float64
	for i := range vals {
		vals[i] -= mean
		normSq += vals[i] * vals[i]
	}
	return vals, math.Sqrt(normSq)
}

// integralImages builds summed-area tables of pixel values and squared pixel
// values, each (w+1)x(h+1) with a zero border row and column.
func integralImages(img *image.Gray) ([]float64, []float64) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	sumSq := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		var rowSum, rowSumSq float64
		for x := 0; x < w; x++ {
			v := float64(img.Pix[y*img.Stride+x])
			rowSum += v
			rowSumSq += v * v
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + rowSum
			sumSq[(y+1)*stride+x+1] = sumSq[y*stride+x+1] + rowSumSq
		}
	}
	return sum, sumSq
}

// windowSum reads the sum over the tw x th window at (x,y) from a summed-area
// table built by integralImages for an image of width w.
func windowSum(table []float64, w, x, y, tw, th int) float64 {
	stride := w + 1
	return table[(y+th)*stride+x+tw] -
		table[y*stride+x+tw] -
		table[(y+th)*stride+x] +
		table[y*stride+x]
}
