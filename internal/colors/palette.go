// Package colors extracts dominant palettes from images and scores how well
// two palettes align in a perceptually uniform color space.
package colors

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"sort"

	"github.com/brandlens/brandlens/internal/models"
)

const (
	// DefaultColorCount is the palette size for single-image extraction.
	DefaultColorCount = 5

	// maxSamplePixels caps clustering input for performance.
	maxSamplePixels = 10000

	// sampleSeed keeps subsampling and clustering reproducible.
	sampleSeed = 42

	maxKMeansIterations = 25
)

type pixel [3]float64

// ExtractDominant clusters an image's pixels into up to k dominant colors,
// returned as uppercase #RRGGBB strings ordered by cluster population.
// Pure black and pure white pixels are discarded as padding artifacts, so an
// all-black or all-white image yields an empty list.
func ExtractDominant(img image.Image, k int) []string {
	if k <= 0 {
		k = DefaultColorCount
	}

	pixels := samplePixels(img, maxSamplePixels)
	pixels = dropBlackWhite(pixels)
	if len(pixels) == 0 {
		return nil
	}

	distinct, order := countDistinct(pixels)

	// Too few pixels, or too few distinct colors, for meaningful clustering:
	// return the distinct colors ranked by frequency.
	if len(pixels) < k || len(distinct) <= k {
		ranked := rankByCount(distinct, order)
		if len(ranked) > k {
			ranked = ranked[:k]
		}
		return ranked
	}

	centroids, counts := kmeans(pixels, rankedSeeds(distinct, order, k))
	type cluster struct {
		center pixel
		count  int
		index  int
	}
	clusters := make([]cluster, len(centroids))
	for i, c := range centroids {
		clusters[i] = cluster{center: c, count: counts[i], index: i}
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].count > clusters[j].count
	})

	hexes := make([]string, 0, len(clusters))
	for _, c := range clusters {
		hexes = append(hexes, rgbToHex(c.center))
	}
	return hexes
}

// BuildPalette splits an ordered hex list into dominant (first 3) and
// secondary (next 2) colors. ColorCount is the number of extracted colors.
func BuildPalette(hexes []string) models.ColorPalette {
	p := models.ColorPalette{ColorCount: len(hexes)}
	for i, h := range hexes {
		switch {
		case i < 3:
			p.DominantColors = append(p.DominantColors, h)
		case i < 5:
			p.SecondaryColors = append(p.SecondaryColors, h)
		}
	}
	return p
}

// AggregatePalettes pools per-source hex lists, ranks colors by pooled
// frequency, and keeps the top five (3 dominant, 2 secondary). ColorCount is
// the number of distinct colors across the whole pool, not the five kept.
func AggregatePalettes(sources [][]string) models.ColorPalette {
	counts := make(map[string]int)
	var order []string
	for _, hexes := range sources {
		for _, h := range hexes {
			if counts[h] == 0 {
				order = append(order, h)
			}
			counts[h]++
		}
	}
	if len(order) == 0 {
		return models.ColorPalette{}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	top := order
	if len(top) > 5 {
		top = top[:5]
	}

	p := BuildPalette(top)
	p.ColorCount = len(counts)
	return p
}

// samplePixels flattens the image to RGB triples, reservoir-sampling down to
// limit when the image is larger. The fixed seed keeps the sample
// reproducible.
func samplePixels(img image.Image, limit int) []pixel {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	rng := rand.New(rand.NewSource(sampleSeed))

	out := make([]pixel, 0, min(limit, b.Dx()*b.Dy()))
	seen := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			px := pixel{float64(r >> 8), float64(g >> 8), float64(bl >> 8)}
			seen++
			if len(out) < limit {
				out = append(out, px)
			} else if j := rng.Intn(seen); j < limit {
				out[j] = px
			}
		}
	}
	return out
}

func dropBlackWhite(pixels []pixel) []pixel {
	out := pixels[:0]
	for _, p := range pixels {
		if p[0] == 0 && p[1] == 0 && p[2] == 0 {
			continue
		}
		if p[0] == 255 && p[1] == 255 && p[2] == 255 {
			continue
		}
		out = append(out, p)
	}
	return out
}

func countDistinct(pixels []pixel) (map[pixel]int, []pixel) {
	counts := make(map[pixel]int)
	var order []pixel
	for _, p := range pixels {
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	return counts, order
}

func rankByCount(counts map[pixel]int, order []pixel) []string {
	ranked := make([]pixel, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	hexes := make([]string, len(ranked))
	for i, p := range ranked {
		hexes[i] = rgbToHex(p)
	}
	return hexes
}

// rankedSeeds picks the k most frequent distinct colors as initial centroids,
// which is deterministic and converges quickly on poster-like brand imagery.
func rankedSeeds(counts map[pixel]int, order []pixel, k int) []pixel {
	ranked := make([]pixel, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	return append([]pixel(nil), ranked[:k]...)
}

// kmeans runs Lloyd's algorithm with the given initial centroids. Returns the
// final centroids and their member counts.
func kmeans(pixels []pixel, centroids []pixel) ([]pixel, []int) {
	k := len(centroids)
	assign := make([]int, len(pixels))
	counts := make([]int, k)

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i := range counts {
			counts[i] = 0
		}
		for i, p := range pixels {
			best, bestDist := 0, math.MaxFloat64
			for c, ctr := range centroids {
				d := sqDist(p, ctr)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
			counts[best]++
		}
		if iter > 0 && !changed {
			break
		}

		sums := make([]pixel, k)
		for i, p := range pixels {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			sums[c][2] += p[2]
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			n := float64(counts[c])
			centroids[c] = pixel{sums[c][0] / n, sums[c][1] / n, sums[c][2] / n}
		}
	}
	return centroids, counts
}

func sqDist(a, b pixel) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}

func rgbToHex(p pixel) string {
	return fmt.Sprintf("#%02X%02X%02X", clamp8(p[0]), clamp8(p[1]), clamp8(p[2]))
}

func clamp8(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
