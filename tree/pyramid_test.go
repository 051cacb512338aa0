package tree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/oyin-bo/three-g-sub003/layout"
)

// TestPyramidBuildSumsChildren checks each parent voxel equals the sum of
// its 8 children.
func TestPyramidBuildSumsChildren(t *testing.T) {
	childN, parentN := 8, 4
	childLayout := layout.Cube(childN, 2)
	childA0 := layout.NewTexture(childLayout, 4)

	rng := rand.New(rand.NewSource(7))
	for vz := 0; vz < childN; vz++ {
		for vy := 0; vy < childN; vy++ {
			for vx := 0; vx < childN; vx++ {
				childA0.Set(vx, vy, vz, []float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()})
			}
		}
	}

	pb := &PyramidBuild{
		ChildN: childN, ChildSlicesRow: 2,
		ParentN: parentN, ParentSlicesRow: 1,
		ChildA0: childA0,
	}
	if err := pb.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	var expected, got [4]float32
	var child [4]float32
	for pz := 0; pz < parentN; pz++ {
		for py := 0; py < parentN; py++ {
			for px := 0; px < parentN; px++ {
				expected = [4]float32{}
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							childA0.At(2*px+dx, 2*py+dy, 2*pz+dz, child[:])
							for c := 0; c < 4; c++ {
								expected[c] += child[c]
							}
						}
					}
				}
				pb.ParentA0.At(px, py, pz, got[:])
				for c := 0; c < 4; c++ {
					if math.Abs(float64(got[c]-expected[c])) > 1e-5 {
						t.Fatalf("parent (%d,%d,%d) channel %d: got %v want %v", px, py, pz, c, got[c], expected[c])
					}
				}
			}
		}
	}
}

func TestPyramidBuildRejectsMismatchedLevels(t *testing.T) {
	childLayout := layout.Cube(8, 1)
	pb := &PyramidBuild{
		ChildN: 8, ParentN: 8, // not half
		ChildA0: layout.NewTexture(childLayout, 4),
	}
	if err := pb.Run(); err == nil {
		t.Fatal("expected InvalidConfig for mismatched child/parent N")
	}
}
