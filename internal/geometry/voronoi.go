package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerate means a tessellation cannot be built from the given seeds:
// too few points, all points collinear, or no usable cell.
var ErrDegenerate = errors.New("geometric degeneracy")

const eps = 1e-12

// minRingPoints is the smallest closed ring kept as a cell (a triangle plus
// its closing point).
const minRingPoints = 4

// Cell is one bounded Voronoi region.
type Cell struct {
	Site    int       // Index of the seed in the input slice
	Seed    orb.Point // Seed coordinates
	Polygon orb.Polygon
}

// Contains reports whether p lies in the cell (boundary included).
func (c Cell) Contains(p orb.Point) bool {
	return planar.PolygonContains(c.Polygon, p)
}

// Tessellation is a Voronoi diagram clipped to a rectangle.
type Tessellation struct {
	Bound orb.Bound
	Seeds []orb.Point
	Cells []Cell
}

// Tessellate builds the Voronoi diagram of seeds clipped to bound. Each cell
// is the bound intersected with the half-planes closer to its seed than to
// every other seed. Cells with fewer than three distinct vertices are dropped.
func Tessellate(seeds []orb.Point, bound orb.Bound) (*Tessellation, error) {
	if len(seeds) < 3 {
		return nil, fmt.Errorf("%w: %d seed points, need at least 3", ErrDegenerate, len(seeds))
	}
	if collinear(seeds) {
		return nil, fmt.Errorf("%w: %d seed points are collinear", ErrDegenerate, len(seeds))
	}

	t := &Tessellation{Bound: bound, Seeds: seeds}
	for i, s := range seeds {
		ring := boundRing(bound)
		for j, o := range seeds {
			if i == j || s.Equal(o) {
				continue
			}
			ring = clipHalfPlane(ring, s, o)
			if len(ring) == 0 {
				break
			}
		}
		if len(ring) < minRingPoints-1 {
			continue
		}
		ring = append(ring, ring[0])
		t.Cells = append(t.Cells, Cell{Site: i, Seed: s, Polygon: orb.Polygon{ring}})
	}

	if len(t.Cells) == 0 {
		return nil, fmt.Errorf("%w: no bounded cells", ErrDegenerate)
	}
	return t, nil
}

// Locate returns the first cell containing p.
func (t *Tessellation) Locate(p orb.Point) (Cell, bool) {
	for _, c := range t.Cells {
		if c.Contains(p) {
			return c, true
		}
	}
	return Cell{}, false
}

// boundRing returns the open counter-clockwise ring of a bound.
func boundRing(b orb.Bound) orb.Ring {
	return orb.Ring{
		{b.Min[0], b.Min[1]},
		{b.Max[0], b.Min[1]},
		{b.Max[0], b.Max[1]},
		{b.Min[0], b.Max[1]},
	}
}

// clipHalfPlane keeps the part of the open convex ring that is at least as
// close to s as to o (Sutherland–Hodgman against the perpendicular bisector).
func clipHalfPlane(ring orb.Ring, s, o orb.Point) orb.Ring {
	nx, ny := o[0]-s[0], o[1]-s[1]
	mx, my := (o[0]+s[0])/2, (o[1]+s[1])/2
	side := func(p orb.Point) float64 {
		return (p[0]-mx)*nx + (p[1]-my)*ny
	}

	out := make(orb.Ring, 0, len(ring)+1)
	for k := range ring {
		cur := ring[k]
		next := ring[(k+1)%len(ring)]
		dc, dn := side(cur), side(next)

		if dc <= eps {
			out = append(out, cur)
		}
		if (dc < -eps && dn > eps) || (dc > eps && dn < -eps) {
			f := dc / (dc - dn)
			out = append(out, orb.Point{
				cur[0] + f*(next[0]-cur[0]),
				cur[1] + f*(next[1]-cur[1]),
			})
		}
	}
	return dedupe(out)
}

func dedupe(r orb.Ring) orb.Ring {
	if len(r) < 2 {
		return r
	}
	out := r[:1]
	for _, p := range r[1:] {
		if !near(p, out[len(out)-1]) {
			out = append(out, p)
		}
	}
	for len(out) > 1 && near(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func near(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
}

func collinear(pts []orb.Point) bool {
	a := pts[0]
	var b orb.Point
	found := false
	for _, p := range pts[1:] {
		if !near(p, a) {
			b, found = p, true
			break
		}
	}
	if !found {
		return true
	}
	for _, p := range pts {
		cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
		if math.Abs(cross) > 1e-9 {
			return false
		}
	}
	return true
}
