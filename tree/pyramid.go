package tree

import (
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/layout"
)

// PyramidBuild is K-PyramidBuild: builds octree level i+1 from level
// i by summing each 2×2×2 group of children into one parent voxel, straight
// write (no blending).
type PyramidBuild struct {
	ChildN, ChildSlicesRow   int
	ParentN, ParentSlicesRow int

	ChildA0, ChildA1, ChildA2    *layout.Texture
	ParentA0, ParentA1, ParentA2 *layout.Texture

	Quadrupole bool
}

// Run sums each 2x2x2 child octant into its parent voxel.
func (pb *PyramidBuild) Run() error {
	if pb.ChildA0 == nil {
		return kernel.ErrInvalidState("K-PyramidBuild", "missing child A0 input")
	}
	if pb.ChildN != 2*pb.ParentN {
		return kernel.ErrInvalidConfig("K-PyramidBuild", "child level N=%d must be 2x parent N=%d", pb.ChildN, pb.ParentN)
	}
	parentLayout := layout.Cube(pb.ParentN, pb.ParentSlicesRow)
	pa0 := kernel.EnsureTexture(pb.ParentA0, parentLayout, 4)
	pa0.Clear()
	pb.ParentA0 = pa0

	var pa1, pa2 *layout.Texture
	if pb.Quadrupole {
		pa1 = kernel.EnsureTexture(pb.ParentA1, parentLayout, 4)
		pa1.Clear()
		pa2 = kernel.EnsureTexture(pb.ParentA2, parentLayout, 4)
		pa2.Clear()
		pb.ParentA1, pb.ParentA2 = pa1, pa2
	}

	var child [4]float32
	for pz := 0; pz < pb.ParentN; pz++ {
		for py := 0; py < pb.ParentN; py++ {
			for px := 0; px < pb.ParentN; px++ {
				var sum0, sum1, sum2 [4]float32
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							cx, cy, cz := 2*px+dx, 2*py+dy, 2*pz+dz
							pb.ChildA0.At(cx, cy, cz, child[:])
							for c := 0; c < 4; c++ {
								sum0[c] += child[c]
							}
							if pb.Quadrupole {
								pb.ChildA1.At(cx, cy, cz, child[:])
								for c := 0; c < 4; c++ {
									sum1[c] += child[c]
								}
								pb.ChildA2.At(cx, cy, cz, child[:])
								for c := 0; c < 4; c++ {
									sum2[c] += child[c]
								}
							}
						}
					}
				}
				pa0.Set(px, py, pz, sum0[:])
				if pb.Quadrupole {
					pa1.Set(px, py, pz, sum1[:])
					pa2.Set(px, py, pz, sum2[:])
				}
			}
		}
	}
	return nil
}

// Dispose frees any owned parent-level textures.
func (pb *PyramidBuild) Dispose() {
	for _, t := range []*layout.Texture{pb.ParentA0, pb.ParentA1, pb.ParentA2} {
		if t != nil {
			t.Dispose()
		}
	}
}
