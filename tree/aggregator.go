package tree

import (
	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Aggregator is K-Aggregator: deposits particles into octree level-0
// moments. Positions with m<=0 are culled. Each particle contributes to the
// single voxel containing it. Unlike K-Deposit's CIC spread, the tree
// level-0 moments are defined per-voxel, not interpolated, so aggregation is
// always nearest-voxel.
type Aggregator struct {
	N         int
	SlicesRow int
	Bounds    bounds.Box

	// Quadrupole enables the A1/A2 second-moment outputs and the occupancy
	// mask; when false only A0 is computed.
	Quadrupole bool

	A0, A1, A2 *layout.Texture
	Occupancy  *OccupancyMask
}

// Run accumulates p's active particles into A0 (and A1/A2, Occupancy when
// Quadrupole is set), allocating any nil outputs.
func (a *Aggregator) Run(p *particles.Set) error {
	if p == nil {
		return kernel.ErrInvalidState("K-Aggregator", "missing particle input")
	}
	pl := layout.Cube(a.N, a.SlicesRow)
	a0 := kernel.EnsureTexture(a.A0, pl, 4)
	a0.Clear()
	a.A0 = a0

	var a1, a2 *layout.Texture
	if a.Quadrupole {
		a1 = kernel.EnsureTexture(a.A1, pl, 4)
		a1.Clear()
		a2 = kernel.EnsureTexture(a.A2, pl, 4)
		a2.Clear()
		a.A1, a.A2 = a1, a2
		if a.Occupancy == nil || a.Occupancy.N != a.N {
			a.Occupancy = NewOccupancyMask(a.N)
		} else {
			a.Occupancy.Clear()
		}
	}

	for i := 0; i < p.Count; i++ {
		if !p.Active(i) {
			continue
		}
		pos := p.Position(i)
		m := p.Mass(i)
		g := a.Bounds.GridCoord(pos, a.N)
		vx, vy, vz := pl.Clamp(int(g[0]), int(g[1]), int(g[2]))

		a0.Add(vx, vy, vz, []float32{m * pos[0], m * pos[1], m * pos[2], m})
		if a.Quadrupole {
			a1.Add(vx, vy, vz, []float32{
				m * pos[0] * pos[0], m * pos[1] * pos[1], m * pos[2] * pos[2], m * pos[0] * pos[1],
			})
			a2.Add(vx, vy, vz, []float32{m * pos[0] * pos[2], m * pos[1] * pos[2], 0, 0})
			a.Occupancy.Set(vx, vy, vz)
		}
	}
	return nil
}

// Dispose frees any owned output textures.
func (a *Aggregator) Dispose() {
	for _, t := range []*layout.Texture{a.A0, a.A1, a.A2} {
		if t != nil {
			t.Dispose()
		}
	}
}
