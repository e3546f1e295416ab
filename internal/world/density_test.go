package world

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDensityField_RangeAndDeterminism(t *testing.T) {
	a := NewDensityField(99, DefaultDensityConfig())
	b := NewDensityField(99, DefaultDensityConfig())

	for x := 0.0; x < 200; x += 7.3 {
		for y := 0.0; y < 200; y += 11.1 {
			v := a.At(x, y)
			assert.GreaterOrEqual(t, v, DefaultDensityConfig().Floor)
			assert.LessOrEqual(t, v, 1.0)
			assert.Equal(t, v, b.At(x, y))
		}
	}
}

func TestDensityField_SampleInsideBound(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	f := NewDensityField(5, DefaultDensityConfig())
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{50, 30}}

	for i := 0; i < 500; i++ {
		assert.True(t, bound.Contains(f.Sample(rng, bound)))
	}
}
