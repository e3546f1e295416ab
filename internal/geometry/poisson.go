// Package geometry provides the spatial primitives behind central-location
// assignment: Poisson point sampling, bounded Voronoi tessellation, and point
// location.
package geometry

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
)

// knuthLimit is the largest mean sampled by multiplication; larger means use a
// normal approximation.
const knuthLimit = 500

// PoissonCount draws a Poisson-distributed count with the given mean.
func PoissonCount(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	if mean > knuthLimit {
		n := math.Round(mean + math.Sqrt(mean)*rng.NormFloat64())
		if n < 0 {
			return 0
		}
		return int(n)
	}

	limit := math.Exp(-mean)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}

// PoissonPoints samples a homogeneous spatial Poisson process with the given
// intensity (points per unit area) over bound.
func PoissonPoints(rng *rand.Rand, bound orb.Bound, intensity float64) []orb.Point {
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]
	n := PoissonCount(rng, intensity*w*h)

	points := make([]orb.Point, n)
	for i := range points {
		points[i] = orb.Point{
			bound.Min[0] + w*rng.Float64(),
			bound.Min[1] + h*rng.Float64(),
		}
	}
	return points
}

// UniformPoint draws one point uniformly from bound.
func UniformPoint(rng *rand.Rand, bound orb.Bound) orb.Point {
	return orb.Point{
		bound.Min[0] + (bound.Max[0]-bound.Min[0])*rng.Float64(),
		bound.Min[1] + (bound.Max[1]-bound.Min[1])*rng.Float64(),
	}
}

// Rect returns the bound [0,width] × [0,height].
func Rect(width, height float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{width, height}}
}
