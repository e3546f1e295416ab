package city

import (
	"slices"

	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/talgya/epicity/internal/agents"
	"github.com/talgya/epicity/internal/policy"
)

// connect adds an edge for every unordered pair of agents within the contact
// radius, and arms the social-distancing bounce for agents with someone inside
// their policy distance. Quarantined agents stay isolated nodes. O(n²).
func (c *City) connect() {
	for i := 0; i < len(c.Agents); i++ {
		a := c.Agents[i]
		if a.Quarantined {
			continue
		}
		pa := c.PolicyFor(a.ID)
		for j := i + 1; j < len(c.Agents); j++ {
			b := c.Agents[j]
			if b.Quarantined {
				continue
			}
			d := planar.Distance(a.Position, b.Position)

			if d <= c.Proximity {
				c.Network.SetEdge(c.Network.NewEdge(simple.Node(a.ID), simple.Node(b.ID)))
			}

			if pa.Health == policy.HealthSocialDistancing && d <= pa.Distance {
				a.ActivateHealthPolicy()
			}
			if pb := c.PolicyFor(b.ID); pb.Health == policy.HealthSocialDistancing && d <= pb.Distance {
				b.ActivateHealthPolicy()
			}
		}
	}
}

// Neighbors returns the agents adjacent to id in the current contact graph,
// ordered by id.
func (c *City) Neighbors(id agents.AgentID) []*agents.Agent {
	if c.Network == nil {
		return nil
	}

	var ids []int
	it := c.Network.From(int64(id))
	for it.Next() {
		ids = append(ids, int(it.Node().ID()))
	}
	slices.Sort(ids)

	out := make([]*agents.Agent, len(ids))
	for k, n := range ids {
		out[k] = c.Agents[n]
	}
	return out
}

// Degree returns the number of contacts of id in the current contact graph.
func (c *City) Degree(id agents.AgentID) int {
	if c.Network == nil {
		return 0
	}
	return c.Network.From(int64(id)).Len()
}
