// Central-location assignment. Each mode gets Poisson-sampled seed points and
// a Voronoi tessellation; every agent's destination for that mode is the seed
// of the cell it lives in.
package city

import (
	"github.com/paulmach/orb"

	"github.com/talgya/epicity/internal/agents"
	"github.com/talgya/epicity/internal/geometry"
	"github.com/talgya/epicity/internal/policy"
)

// categoryOrder is the order categories are sampled and assigned in.
var categoryOrder = [policy.NumModes]policy.Mode{
	policy.ModeMarket,
	policy.ModeTransit,
	policy.ModeWork,
	policy.ModeHome,
}

// category tracks assignment state for one mode.
type category struct {
	mode       policy.Mode
	points     []orb.Point
	cells      []geometry.Cell // Regions still accepting agents
	usage      map[int]int     // Site index → agents assigned
	capacity   int
	degenerate bool
	cursor     int
}

func (c *City) setupCentralLocations(cfg Config) {
	c.log.Info("setting up fixed locations")

	bound := geometry.Rect(c.Width, c.Height)
	area := c.Width * c.Height
	c.Locations = make(map[policy.Mode][]orb.Point, policy.NumModes)

	cats := make([]*category, 0, policy.NumModes)
	for _, mode := range categoryOrder {
		capacity := cfg.Densities[mode]

		points := cfg.FixedLocations[mode]
		if len(points) == 0 {
			intensity := (float64(c.N) / area) / float64(capacity)
			points = geometry.PoissonPoints(c.rng, bound, intensity)
		}
		if len(points) == 0 {
			points = []orb.Point{geometry.UniformPoint(c.rng, bound)}
		}
		c.Locations[mode] = points

		cat := &category{
			mode:     mode,
			points:   points,
			usage:    make(map[int]int),
			capacity: capacity,
		}

		tess, err := geometry.Tessellate(points, bound)
		if err != nil {
			c.log.Warn("tessellation failed, assigning destinations uniformly",
				"mode", mode.String(),
				"points", len(points),
				"error", err,
			)
			cat.degenerate = true
		} else {
			cat.cells = append(cat.cells, tess.Cells...)
		}
		cats = append(cats, cat)
	}

	for _, a := range c.Agents {
		for _, cat := range cats {
			site := c.assign(cat, a)
			a.SetDestination(cat.mode, cat.points[site])
			cat.usage[site]++
			if !cat.degenerate && cat.capacity > 0 && cat.usage[site] > cat.capacity {
				cat.retire(site)
			}
		}
	}

	for _, cat := range cats {
		c.log.Debug("locations assigned",
			"mode", cat.mode.String(),
			"points", len(cat.points),
			"regions_open", len(cat.cells),
			"degenerate", cat.degenerate,
		)
	}
}

// assign picks a seed index for agent a within one category.
func (c *City) assign(cat *category, a *agents.Agent) int {
	if cat.degenerate {
		return c.rng.Intn(len(cat.points))
	}
	for _, cell := range cat.cells {
		if cell.Contains(a.Position) {
			return cell.Site
		}
	}
	return cat.next()
}

// next hands out sites round-robin: over the regions still open, or over all
// points once every region has been retired.
func (cat *category) next() int {
	var site int
	if len(cat.cells) > 0 {
		site = cat.cells[cat.cursor%len(cat.cells)].Site
	} else {
		site = cat.cursor % len(cat.points)
	}
	cat.cursor++
	return site
}

// retire removes an over-capacity region from further consideration.
func (cat *category) retire(site int) {
	for i, cell := range cat.cells {
		if cell.Site == site {
			cat.cells = append(cat.cells[:i], cat.cells[i+1:]...)
			return
		}
	}
}
