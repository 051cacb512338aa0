package mesh

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
)

// MaxNearFieldRadius is the hard cap on NearField.Radius.
const MaxNearFieldRadius = 4

// NearField is K-NearField: the real-space short-range force
// correction for the PM pipeline. One fragment per voxel; on real
// hardware this is three draws (one per u_component), each writing one
// scalar force grid. Here Run computes all three components together,
// the CPU-equivalent of the same math, see DESIGN.md.
type NearField struct {
	N         int
	SlicesRow int
	Bounds    bounds.Box
	G         float32
	Softening float32
	Radius    int // clamped to [1,MaxNearFieldRadius] at construction

	// Moments is the level-0 monopole moment grid (Σmx,Σmy,Σmz,Σm per
	// voxel, 4 channels), the same aggregation K-Aggregator produces for
	// the tree pipeline, reused here so both pipelines share one
	// "deposit moments" code path.
	Moments *layout.Texture

	OutputX, OutputY, OutputZ *layout.Texture
}

// NewNearField clamps radius into [1,MaxNearFieldRadius].
func NewNearField(n, slicesRow int, b bounds.Box, g, softening float32, radius int) *NearField {
	if radius < 1 {
		radius = 1
	}
	if radius > MaxNearFieldRadius {
		radius = MaxNearFieldRadius
	}
	if softening < 1e-6 {
		softening = 1e-6
	}
	return &NearField{N: n, SlicesRow: slicesRow, Bounds: b, G: g, Softening: softening, Radius: radius}
}

// Run computes the near-field correction into OutputX/Y/Z, allocating them
// if nil.
func (nf *NearField) Run() error {
	if nf.Moments == nil {
		return kernel.ErrInvalidState("K-NearField", "missing level-0 moment grid input")
	}
	pl := layout.Cube(nf.N, nf.SlicesRow)
	ox := kernel.EnsureTexture(nf.OutputX, pl, 1)
	oy := kernel.EnsureTexture(nf.OutputY, pl, 1)
	oz := kernel.EnsureTexture(nf.OutputZ, pl, 1)
	nf.OutputX, nf.OutputY, nf.OutputZ = ox, oy, oz

	eps2 := nf.Softening * nf.Softening
	size := nf.Bounds.Size()
	cell := [3]float32{size[0] / float32(nf.N), size[1] / float32(nf.N), size[2] / float32(nf.N)}

	var a0 [4]float32
	var nbr [4]float32
	for vz := 0; vz < nf.N; vz++ {
		for vy := 0; vy < nf.N; vy++ {
			for vx := 0; vx < nf.N; vx++ {
				nf.Moments.At(vx, vy, vz, a0[:])
				com, ok := centerOfMass(a0, nf.Bounds, vx, vy, vz, cell)
				if !ok {
					continue
				}

				var ax, ay, az float64
				for dz := -nf.Radius; dz <= nf.Radius; dz++ {
					for dy := -nf.Radius; dy <= nf.Radius; dy++ {
						for dx := -nf.Radius; dx <= nf.Radius; dx++ {
							if dx == 0 && dy == 0 && dz == 0 {
								continue
							}
							nvx, nvy, nvz := vx+dx, vy+dy, vz+dz
							if !pl.InBounds(nvx, nvy, nvz) {
								nvx, nvy, nvz = pl.Clamp(nvx, nvy, nvz)
							}
							nf.Moments.At(nvx, nvy, nvz, nbr[:])
							if nbr[3] <= 0 {
								continue
							}
							ncom, _ := centerOfMass(nbr, nf.Bounds, nvx, nvy, nvz, cell)

							delta := [3]float32{com[0] - ncom[0], com[1] - ncom[1], com[2] - ncom[2]}
							delta = bounds.MinimumImage(delta, size)

							d2 := float64(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
							denom := math.Pow(d2+float64(eps2), 1.5)
							if denom < 1e-12 {
								denom = 1e-12
							}
							scale := -float64(nf.G) * float64(nbr[3]) / denom
							ax += scale * float64(delta[0])
							ay += scale * float64(delta[1])
							az += scale * float64(delta[2])
						}
					}
				}
				ox.Set(vx, vy, vz, []float32{float32(ax)})
				oy.Set(vx, vy, vz, []float32{float32(ay)})
				oz.Set(vx, vy, vz, []float32{float32(az)})
			}
		}
	}
	return nil
}

// centerOfMass returns A0.xyz/A0.w, or the cell center if the voxel is
// empty, and whether the voxel should contribute at all (empty
// voxels contribute nothing).
func centerOfMass(a0 [4]float32, b bounds.Box, vx, vy, vz int, cell [3]float32) ([3]float32, bool) {
	if a0[3] <= 0 {
		center := [3]float32{
			b.Min[0] + (float32(vx)+0.5)*cell[0],
			b.Min[1] + (float32(vy)+0.5)*cell[1],
			b.Min[2] + (float32(vz)+0.5)*cell[2],
		}
		return center, false
	}
	return [3]float32{a0[0] / a0[3], a0[1] / a0[3], a0[2] / a0[3]}, true
}

// Dispose frees any owned output textures.
func (nf *NearField) Dispose() {
	for _, t := range []*layout.Texture{nf.OutputX, nf.OutputY, nf.OutputZ} {
		if t != nil {
			t.Dispose()
		}
	}
}
