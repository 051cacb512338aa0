package mesh

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// ForceSample is K-ForceSample: trilinearly samples the three
// real-space force grids at each particle position and writes
// (Fx,Fy,Fz,·) into the per-particle force texture.
type ForceSample struct {
	N         int
	SlicesRow int
	Bounds    bounds.Box

	ForceX, ForceY, ForceZ *layout.Texture

	// Accumulate adds into the existing Output texels instead of
	// overwriting, used to layer near-field on top of mesh far-field.
	Accumulate bool
}

// Run samples ForceX/Y/Z at each active particle of p and writes into out.
func (fs *ForceSample) Run(p *particles.Set, out *particles.Force) error {
	if fs.ForceX == nil || fs.ForceY == nil || fs.ForceZ == nil {
		return kernel.ErrInvalidState("K-ForceSample", "missing one or more force grid inputs")
	}
	if p == nil || out == nil {
		return kernel.ErrInvalidState("K-ForceSample", "missing particle or output texture")
	}
	if !fs.Accumulate {
		out.Clear()
	}
	for i := 0; i < p.Count; i++ {
		if !p.Active(i) {
			continue
		}
		pos := p.Position(i)
		g := fs.Bounds.GridCoord(pos, fs.N)
		fx := trilinearSample(fs.ForceX, g, fs.N)
		fy := trilinearSample(fs.ForceY, g, fs.N)
		fz := trilinearSample(fs.ForceZ, g, fs.N)
		if fs.Accumulate {
			out.Add(i, fx, fy, fz)
		} else {
			out.Set(i, fx, fy, fz)
		}
	}
	return nil
}

// Dispose is a no-op: ForceSample owns no textures of its own, only reads
// externally-supplied force grids and writes into a caller-owned Force.
func (fs *ForceSample) Dispose() {}

// trilinearSample interpolates a scalar packed grid at continuous grid
// coordinate g, clamping sample points to the grid edge.
func trilinearSample(grid *layout.Texture, g [3]float32, n int) float32 {
	bx := int(math.Floor(float64(g[0])))
	by := int(math.Floor(float64(g[1])))
	bz := int(math.Floor(float64(g[2])))
	fx := g[0] - float32(bx)
	fy := g[1] - float32(by)
	fz := g[2] - float32(bz)

	var acc float32
	var v [1]float32
	for _, off := range cicOffsets {
		w := cicWeight(off, [3]float32{fx, fy, fz})
		if w == 0 {
			continue
		}
		vx := clampIdx(bx+off[0], n)
		vy := clampIdx(by+off[1], n)
		vz := clampIdx(bz+off[2], n)
		grid.At(vx, vy, vz, v[:])
		acc += w * v[0]
	}
	return acc
}

func clampIdx(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
