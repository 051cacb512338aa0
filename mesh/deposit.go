package mesh

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Deposit is K-Deposit: aggregates particle mass onto a scalar
// packed grid, one draw per deposition offset (one for NGP, eight for
// CIC), additively blended.
type Deposit struct {
	Grid       int
	SlicesRow  int
	Bounds     bounds.Box
	Assignment Assignment

	// Output is the mass grid. If nil, Run allocates an owned one.
	Output *layout.Texture
}

// Run deposits every active particle in p onto Output, which it allocates
// if not already set. Padding slots (mass 0) contribute nothing.
func (d *Deposit) Run(p *particles.Set) error {
	if p == nil {
		return kernel.ErrInvalidState("K-Deposit", "missing particle input texture")
	}
	if p.Count > p.Slots() {
		return kernel.ErrCapacityExceeded("K-Deposit", "particle count %d exceeds texture capacity %d", p.Count, p.Slots())
	}

	pl := layout.Cube(d.Grid, d.SlicesRow)
	out := kernel.EnsureTexture(d.Output, pl, 1)
	d.Output = out
	out.Clear()

	offsets := []([3]int){{0, 0, 0}}
	if d.Assignment == CIC {
		offsets = cicOffsets[:]
	}

	scratch := make([]float32, 1)
	for i := 0; i < p.Count; i++ {
		m := p.Mass(i)
		if m <= 0 {
			continue
		}
		pos := p.Position(i)
		g := d.Bounds.GridCoord(pos, d.Grid)
		bx := int(math.Floor(float64(g[0])))
		by := int(math.Floor(float64(g[1])))
		bz := int(math.Floor(float64(g[2])))
		f := [3]float32{g[0] - float32(bx), g[1] - float32(by), g[2] - float32(bz)}

		for _, off := range offsets {
			var w float32 = 1
			if d.Assignment == CIC {
				w = cicWeight(off, f)
			}
			vx, vy, vz := pl.Clamp(bx+off[0], by+off[1], bz+off[2])
			scratch[0] = w * m
			out.Add(vx, vy, vz, scratch)
		}
	}
	return nil
}

// Dispose frees Output if this kernel owns it.
func (d *Deposit) Dispose() {
	if d.Output != nil {
		d.Output.Dispose()
	}
}
