package geometry

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoissonCount_MeanMatches(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, mean := range []float64{0.5, 4, 40, 800} {
		total := 0
		const trials = 4000
		for i := 0; i < trials; i++ {
			total += PoissonCount(rng, mean)
		}
		got := float64(total) / trials
		assert.InDelta(t, mean, got, 5*math.Sqrt(mean/trials)+0.01, "mean %v", mean)
	}
	assert.Zero(t, PoissonCount(rng, 0))
}

func TestPoissonPoints_InsideBound(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := Rect(20, 10)
	for _, p := range PoissonPoints(rng, b, 0.5) {
		assert.True(t, b.Contains(p))
	}
}

func TestTessellate_Degenerate(t *testing.T) {
	b := Rect(10, 10)

	_, err := Tessellate([]orb.Point{{5, 5}}, b)
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = Tessellate(nil, b)
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = Tessellate([]orb.Point{{1, 1}, {2, 2}, {3, 3}, {4, 4}}, b)
	assert.True(t, errors.Is(err, ErrDegenerate))

	_, err = Tessellate([]orb.Point{{1, 1}, {1, 1}, {1, 1}}, b)
	assert.True(t, errors.Is(err, ErrDegenerate))
}

func TestTessellate_CellsPartitionBound(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	b := Rect(10, 10)
	seeds := make([]orb.Point, 12)
	for i := range seeds {
		seeds[i] = UniformPoint(rng, b)
	}

	tess, err := Tessellate(seeds, b)
	require.NoError(t, err)
	require.Len(t, tess.Cells, len(seeds))

	area := 0.0
	for _, c := range tess.Cells {
		assert.True(t, c.Contains(c.Seed), "cell %d misses its seed", c.Site)
		assert.Equal(t, seeds[c.Site], c.Seed)
		area += planar.Area(c.Polygon)
	}
	assert.InDelta(t, 100, area, 1e-6)
}

func TestLocate_FindsNearestSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	b := Rect(10, 10)
	seeds := []orb.Point{{2, 2}, {8, 2}, {5, 8}, {2, 8}}
	tess, err := Tessellate(seeds, b)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		p := UniformPoint(rng, b)
		cell, ok := tess.Locate(p)
		require.True(t, ok)

		nearest := 0
		for j, s := range seeds {
			if planar.Distance(p, s) < planar.Distance(p, seeds[nearest]) {
				nearest = j
			}
		}
		assert.InDelta(t, planar.Distance(p, seeds[nearest]), planar.Distance(p, cell.Seed), 1e-9)
	}
}

// A seed close to a corner owns a triangular cell once the bound is clipped.
// Such a cell has three vertices and is kept.
func TestTessellate_KeepsTriangularCornerCells(t *testing.T) {
	seeds := []orb.Point{{0.5, 0.5}, {5, 5}, {9, 6}}
	tess, err := Tessellate(seeds, Rect(10, 10))
	require.NoError(t, err)
	require.Len(t, tess.Cells, 3)

	corner := tess.Cells[0]
	require.Equal(t, 0, corner.Site)
	ring := corner.Polygon[0]
	assert.Len(t, ring, 4)
	assert.True(t, ring.Closed())
	assert.InDelta(t, 5.5*5.5/2, math.Abs(planar.Area(corner.Polygon)), 1e-9)
	assert.True(t, corner.Contains(orb.Point{1, 1}))
}
