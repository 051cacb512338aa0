package tree

import (
	"math"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
	"github.com/oyin-bo/three-g-sub003/particles"
)

// Level is one octree level's moment grids, finest (0) to coarsest.
type Level struct {
	N         int
	SlicesRow int
	A0        *layout.Texture
	A1, A2    *layout.Texture // nil unless the quadrupole variant is used
	Occupancy *OccupancyMask  // nil unless the quadrupole fast path is enabled
}

// Traversal is K-Traversal: computes the gravitational force on
// every particle by walking the octree from the coarsest level down,
// applying the improved multipole-acceptance criterion d > s/theta + delta
// at each level, with a near-field direct sum at level 0.
//
// World bounds are treated as a cube for the purposes of cell-side length s,
// the same assumption K-PyramidBuild's 2x2x2 reduction already makes.
type Traversal struct {
	Bounds bounds.Box
	Levels []Level // index 0 = finest, last = coarsest

	Theta           float32
	Softening       float32
	G               float32
	Quadrupole      bool
	NearFieldRadius int // voxel radius for the level-0 direct sum, clamped >=1

	Output *particles.Force
}

// NewTraversal clamps Softening and NearFieldRadius to their valid ranges.
func NewTraversal(b bounds.Box, levels []Level, theta, softening, g float32, quadrupole bool, nearFieldRadius int) *Traversal {
	if softening < 1e-6 {
		softening = 1e-6
	}
	if nearFieldRadius < 1 {
		nearFieldRadius = 1
	}
	return &Traversal{
		Bounds: b, Levels: levels, Theta: theta, Softening: softening, G: g,
		Quadrupole: quadrupole, NearFieldRadius: nearFieldRadius,
	}
}

type cellMoments struct {
	a0, a1, a2 [4]float32
}

type levelCell struct {
	vx, vy, vz int
	a0, a1, a2 [4]float32
}

// Run computes the force on every active particle in p, writing into
// Output (allocated from p's shape if nil). Padding slots get zero force.
func (tr *Traversal) Run(p *particles.Set) error {
	if p == nil {
		return kernel.ErrInvalidState("K-Traversal", "missing particle input")
	}
	if len(tr.Levels) == 0 {
		return kernel.ErrInvalidState("K-Traversal", "missing octree levels")
	}
	if tr.Output == nil {
		tr.Output = particles.NewForce(p.W, p.H)
	}
	out := tr.Output

	for i := 0; i < p.Count; i++ {
		if !p.Active(i) {
			out.Set(i, 0, 0, 0)
			continue
		}
		ax, ay, az := tr.accumulate(p.Position(i))
		out.Set(i, float32(ax), float32(ay), float32(az))
	}
	return nil
}

func (tr *Traversal) cellSizes(level int) [3]float32 {
	lvl := tr.Levels[level]
	sz := tr.Bounds.Size()
	return [3]float32{sz[0] / float32(lvl.N), sz[1] / float32(lvl.N), sz[2] / float32(lvl.N)}
}

func (tr *Traversal) scalarCellSize(level int) float32 {
	c := tr.cellSizes(level)
	return (c[0] + c[1] + c[2]) / 3
}

func (tr *Traversal) voxelCenter(level, vx, vy, vz int) [3]float32 {
	c := tr.cellSizes(level)
	return [3]float32{
		tr.Bounds.Min[0] + (float32(vx)+0.5)*c[0],
		tr.Bounds.Min[1] + (float32(vy)+0.5)*c[1],
		tr.Bounds.Min[2] + (float32(vz)+0.5)*c[2],
	}
}

func (tr *Traversal) particleVoxel(level int, pos [3]float32) (int, int, int) {
	lvl := tr.Levels[level]
	pl := layout.Cube(lvl.N, lvl.SlicesRow)
	g := tr.Bounds.GridCoord(pos, lvl.N)
	return pl.Clamp(int(g[0]), int(g[1]), int(g[2]))
}

// macAccept implements the improved MAC: accept if d > s/theta + delta,
// where delta is the offset between a cell's center of mass and its
// geometric center.
func macAccept(com, cellCenter, particlePos [3]float32, s, theta float32) (accept bool, d float32) {
	d = bounds.Dist(com, particlePos)
	delta := bounds.Dist(com, cellCenter)
	t := theta
	if t <= 0 {
		t = 1e-6 // theta<=0 degenerates toward direct summation
	}
	threshold := s/t + delta
	return d > threshold, d
}

// accelFromMoments returns the monopole (and, if enabled, quadrupole)
// acceleration contribution of a cell with center-of-mass com and raw
// moments cm, evaluated at particlePos.
func (tr *Traversal) accelFromMoments(com [3]float32, mass float32, cm cellMoments, particlePos [3]float32) (float64, float64, float64) {
	eps2 := float64(tr.Softening * tr.Softening)
	rx := float64(com[0] - particlePos[0])
	ry := float64(com[1] - particlePos[1])
	rz := float64(com[2] - particlePos[2])
	d2 := rx*rx + ry*ry + rz*rz
	denom := math.Max(math.Pow(d2+eps2, 1.5), 1e-12)
	scale := float64(tr.G) * float64(mass) / denom
	ax, ay, az := scale*rx, scale*ry, scale*rz

	if tr.Quadrupole {
		d := math.Sqrt(d2)
		if d > 1e-6 {
			if q, ok := quadrupoleTensor(cm.a0, cm.a1, cm.a2); ok {
				qax, qay, qaz := quadrupoleAccel(q, [3]float64{rx, ry, rz}, d, float64(tr.G))
				ax += qax
				ay += qay
				az += qaz
			}
		}
	}
	return ax, ay, az
}

// accumulate walks the octree for one particle position and returns the
// total acceleration.
func (tr *Traversal) accumulate(particlePos [3]float32) (float64, float64, float64) {
	var ax, ay, az float64
	coarsestIdx := len(tr.Levels) - 1
	coarsest := tr.Levels[coarsestIdx]

	if coarsest.N == 1 {
		var a0, a1, a2 [4]float32
		coarsest.A0.At(0, 0, 0, a0[:])
		if a0[3] > 0 {
			com := [3]float32{a0[0] / a0[3], a0[1] / a0[3], a0[2] / a0[3]}
			center := tr.voxelCenter(coarsestIdx, 0, 0, 0)
			s := tr.scalarCellSize(coarsestIdx)
			if accept, _ := macAccept(com, center, particlePos, s, tr.Theta); accept {
				if tr.Quadrupole && coarsest.A1 != nil {
					coarsest.A1.At(0, 0, 0, a1[:])
					coarsest.A2.At(0, 0, 0, a2[:])
				}
				dax, day, daz := tr.accelFromMoments(com, a0[3], cellMoments{a0, a1, a2}, particlePos)
				return dax, day, daz
			}
		}
		// root rejected (or empty): if no finer level exists, fall back to a
		// direct near-field pass over this single level; otherwise descend.
		if coarsestIdx == 0 {
			vx, vy, vz := tr.particleVoxel(coarsestIdx, particlePos)
			return tr.nearField(coarsestIdx, vx, vy, vz, particlePos)
		}
	}

	var pending []levelCell
	for level := coarsestIdx; level >= 1; level-- {
		lvl := tr.Levels[level]
		pl := layout.Cube(lvl.N, lvl.SlicesRow)
		vx, vy, vz := tr.particleVoxel(level, particlePos)
		s := tr.scalarCellSize(level)

		accepted := make(map[[3]int]cellMoments)
		var rejected []levelCell

		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					nx, ny, nz := vx+dx, vy+dy, vz+dz
					if !pl.InBounds(nx, ny, nz) {
						continue
					}
					if lvl.Occupancy != nil && !lvl.Occupancy.Get(nx, ny, nz) {
						continue
					}
					var a0 [4]float32
					lvl.A0.At(nx, ny, nz, a0[:])
					if a0[3] <= 0 {
						continue
					}
					var a1, a2 [4]float32
					if tr.Quadrupole && lvl.A1 != nil {
						lvl.A1.At(nx, ny, nz, a1[:])
						lvl.A2.At(nx, ny, nz, a2[:])
					}
					com := [3]float32{a0[0] / a0[3], a0[1] / a0[3], a0[2] / a0[3]}
					center := tr.voxelCenter(level, nx, ny, nz)
					cm := cellMoments{a0, a1, a2}
					if accept, _ := macAccept(com, center, particlePos, s, tr.Theta); accept {
						dax, day, daz := tr.accelFromMoments(com, a0[3], cm, particlePos)
						ax += dax
						ay += day
						az += daz
						accepted[[3]int{nx, ny, nz}] = cm
					} else {
						rejected = append(rejected, levelCell{vx: nx, vy: ny, vz: nz, a0: a0, a1: a1, a2: a2})
					}
				}
			}
		}

		// Resolve residuals from cells rejected at the coarser level above:
		// parent_moments - accepted_sibling_moments.
		for _, pc := range pending {
			var sum0, sum1, sum2 [4]float32
			for cdz := 0; cdz < 2; cdz++ {
				for cdy := 0; cdy < 2; cdy++ {
					for cdx := 0; cdx < 2; cdx++ {
						childKey := [3]int{2*pc.vx + cdx, 2*pc.vy + cdy, 2*pc.vz + cdz}
						if cm, ok := accepted[childKey]; ok {
							for c := 0; c < 4; c++ {
								sum0[c] += cm.a0[c]
								sum1[c] += cm.a1[c]
								sum2[c] += cm.a2[c]
							}
						}
					}
				}
			}
			var res0, res1, res2 [4]float32
			for c := 0; c < 4; c++ {
				res0[c] = pc.a0[c] - sum0[c]
				res1[c] = pc.a1[c] - sum1[c]
				res2[c] = pc.a2[c] - sum2[c]
			}
			if res0[3] <= 1e-9 {
				continue
			}
			com := [3]float32{res0[0] / res0[3], res0[1] / res0[3], res0[2] / res0[3]}
			center := tr.voxelCenter(level+1, pc.vx, pc.vy, pc.vz)
			parentS := tr.scalarCellSize(level + 1)
			if accept, _ := macAccept(com, center, particlePos, parentS, tr.Theta); accept {
				dax, day, daz := tr.accelFromMoments(com, res0[3], cellMoments{res0, res1, res2}, particlePos)
				ax += dax
				ay += day
				az += daz
			}
		}

		pending = rejected
	}

	// Level 0: direct near-field sum plus terminal resolution
	// of whatever level-1 cells never matched the MAC. There is no finer
	// level to descend into, so any remaining mass is added directly.
	vx, vy, vz := tr.particleVoxel(0, particlePos)
	nfax, nfay, nfaz := tr.nearField(0, vx, vy, vz, particlePos)
	ax += nfax
	ay += nfay
	az += nfaz

	for _, pc := range pending {
		var sum0 [4]float32
		for cdz := 0; cdz < 2; cdz++ {
			for cdy := 0; cdy < 2; cdy++ {
				for cdx := 0; cdx < 2; cdx++ {
					cx, cy, cz := 2*pc.vx+cdx, 2*pc.vy+cdy, 2*pc.vz+cdz
					if abs(cx-vx) <= tr.NearFieldRadius && abs(cy-vy) <= tr.NearFieldRadius && abs(cz-vz) <= tr.NearFieldRadius {
						// already folded into the direct near-field sum above
						var child [4]float32
						tr.Levels[0].A0.At(cx, cy, cz, child[:])
						for c := 0; c < 4; c++ {
							sum0[c] += child[c]
						}
					}
				}
			}
		}
		var res0 [4]float32
		for c := 0; c < 4; c++ {
			res0[c] = pc.a0[c] - sum0[c]
		}
		if res0[3] <= 1e-9 {
			continue
		}
		com := [3]float32{res0[0] / res0[3], res0[1] / res0[3], res0[2] / res0[3]}
		dax, day, daz := tr.accelFromMoments(com, res0[3], cellMoments{a0: res0}, particlePos)
		ax += dax
		ay += day
		az += daz
	}

	return ax, ay, az
}

// nearField sums the direct monopole contribution of level-0 voxels within
// NearFieldRadius of (vx,vy,vz), excluding self, with minimum-image wrap.
// This is the CPU equivalent of the mesh pipeline's K-NearField, reused
// here for the traversal's own level-0 direct sum.
func (tr *Traversal) nearField(level, vx, vy, vz int, particlePos [3]float32) (float64, float64, float64) {
	lvl := tr.Levels[level]
	pl := layout.Cube(lvl.N, lvl.SlicesRow)
	size := tr.Bounds.Size()
	eps2 := tr.Softening * tr.Softening
	r := tr.NearFieldRadius

	var ax, ay, az float64
	var a0 [4]float32
	for dz := -r; dz <= r; dz++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				nx, ny, nz := vx+dx, vy+dy, vz+dz
				if !pl.InBounds(nx, ny, nz) {
					nx, ny, nz = pl.Clamp(nx, ny, nz)
				}
				lvl.A0.At(nx, ny, nz, a0[:])
				if a0[3] <= 0 {
					continue
				}
				com := [3]float32{a0[0] / a0[3], a0[1] / a0[3], a0[2] / a0[3]}
				delta := bounds.MinimumImage([3]float32{com[0] - particlePos[0], com[1] - particlePos[1], com[2] - particlePos[2]}, size)
				d2 := float64(delta[0]*delta[0] + delta[1]*delta[1] + delta[2]*delta[2])
				denom := math.Max(math.Pow(d2+float64(eps2), 1.5), 1e-12)
				scale := float64(tr.G) * float64(a0[3]) / denom
				ax += scale * float64(delta[0])
				ay += scale * float64(delta[1])
				az += scale * float64(delta[2])
			}
		}
	}
	return ax, ay, az
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dispose is a no-op: Traversal consumes externally-owned level moments and
// writes into a caller-supplied Output, owning nothing itself.
func (tr *Traversal) Dispose() {}
