package mesh

// Assignment selects the mass-assignment scheme used by K-Deposit, and
// the deconvolution order K-Poisson uses to undo it.
type Assignment int

const (
	// NGP assigns all of a particle's mass to its containing voxel.
	NGP Assignment = iota
	// CIC (cloud-in-cell) trilinearly distributes mass across the 8
	// voxels surrounding the particle.
	CIC
)

func (a Assignment) String() string {
	if a == CIC {
		return "CIC"
	}
	return "NGP"
}

// DeconvolveOrder returns the assignment-scheme filter order K-Poisson must
// undo: 1 for NGP, 2 for CIC.
func (a Assignment) DeconvolveOrder() int {
	if a == CIC {
		return 2
	}
	return 1
}

// cicOffsets is the 8-corner child cube used by CIC deposition.
var cicOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
}

// cicWeight computes the trilinear weight for a corner offset given the
// fractional position f within the base voxel.
func cicWeight(offset [3]int, f [3]float32) float32 {
	w := float32(1)
	for a := 0; a < 3; a++ {
		if offset[a] == 1 {
			w *= f[a]
		} else {
			w *= 1 - f[a]
		}
	}
	return w
}
