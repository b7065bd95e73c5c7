package colors

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultPivot is the Lab distance treated as "very different colors". The
// alignment curve decays through a mid band up to the pivot and bottoms out
// past it.
const DefaultPivot = 120.0

// Distance returns the CIE L*a*b* distance between two #RRGGBB colors on the
// classic 0..100 lightness scale.
func Distance(hexA, hexB string) (float64, error) {
	a, err := colorful.Hex(hexA)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", hexA, err)
	}
	b, err := colorful.Hex(hexB)
	if err != nil {
		return 0, fmt.Errorf("parse color %q: %w", hexB, err)
	}
	// colorful keeps L in [0,1]; scale back to the classic Lab range the
	// alignment bands are defined on.
	return a.DistanceLab(b) * 100, nil
}

// Alignment scores how well palette a matches palette b in [0,1]. Each color
// in a is matched to its nearest color in b, the distance is mapped through a
// piecewise decay curve, and the per-color scores are averaged. Either
// palette being empty scores 0. Unparseable colors are skipped.
func Alignment(a, b []string, pivot float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if pivot <= 20 {
		pivot = DefaultPivot
	}

	var total float64
	var scored int
	for _, ca := range a {
		nearest := math.MaxFloat64
		for _, cb := range b {
			d, err := Distance(ca, cb)
			if err != nil {
				continue
			}
			if d < nearest {
				nearest = d
			}
		}
		if nearest == math.MaxFloat64 {
			continue
		}
		total += alignmentScore(nearest, pivot)
		scored++
	}
	if scored == 0 {
		return 0
	}
	return total / float64(scored)
}

// alignmentScore maps a Lab distance to [0,1]. Close matches score near 1,
// the mid band decays sub-linearly, and distances past the pivot floor out
// at 0.1.
func alignmentScore(d, pivot float64) float64 {
	switch {
	case d < 20:
		return 1 - d/40
	case d < pivot:
		return 0.8 * (1 - math.Pow((d-20)/(pivot-20), 0.7))
	default:
		return math.Max(0.1, 0.3-(d-pivot)/(2*pivot))
	}
}
