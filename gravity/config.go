// Package gravity implements the two orchestrators that sequence
// the mesh and tree kernels, own the particle ping-pong state, and expose
// the step()/dispose() contract external callers drive.
package gravity

import (
	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/kernel"
	"github.com/oyin-bo/three-g-sub003/mesh"
)

// Integrator selects the orchestrator-level time integration scheme.
type Integrator int

const (
	// EulerIntegrator applies kick(dt); drift(dt) each step.
	EulerIntegrator Integrator = iota
	// KDKIntegrator applies the symplectic kick-drift-kick scheme.
	KDKIntegrator
)

// Config is the orchestrator constructor configuration. Both Mesh and
// Tree read from the same struct; fields only one pipeline uses are
// ignored by the other.
type Config struct {
	// Initial particle state. Positions is x,y,z,m interleaved; Velocities
	// is vx,vy,vz,· interleaved or nil (zeros).
	Positions     []float32
	Velocities    []float32
	ParticleCount int // defaults to TexWidth*TexHeight
	TexWidth      int
	TexHeight     int

	WorldBounds bounds.Box

	Dt              float32
	GravityStrength float32
	Softening       float32
	Damping         float32
	MaxSpeed        float32
	MaxAccel        float32

	Integrator Integrator

	// Tree-only.
	Theta              float32
	TreeNumLevels      int // depth; TreeGridSize must equal 2^(TreeNumLevels-1)
	TreeGridSize       int
	TreeSlicesPerRow   int
	// TreeUseOccupancy selects the quadrupole aggregator/traversal variant,
	// whose occupancy-mask fast path is this implementation's only use of
	// the monopole/quadrupole distinction as a separately gated option.
	TreeUseOccupancy bool
	BoundsUpdatePeriod int // steps between K-BoundsReduce runs; <=1 means every step
	NearFieldRadius    int // shared meaning: tree level-0 radius, mesh near-field radius

	// Mesh-only.
	MeshAssignment   mesh.Assignment
	MeshGridSize     int
	MeshSlicesPerRow int
	MeshKCut         float32
	MeshSplitSigma   float32
	MeshSplit        mesh.SplitMode
}

// Validate checks cross-field constraints raised at construction,
// returning InvalidConfig or CapacityExceeded.
func (c *Config) Validate() error {
	if c.TexWidth <= 0 || c.TexHeight <= 0 {
		return kernel.ErrInvalidConfig("gravity.Config", "texture_width/height must be positive, got %dx%d", c.TexWidth, c.TexHeight)
	}
	n := c.ParticleCount
	if n == 0 {
		n = c.TexWidth * c.TexHeight
	}
	if c.TexWidth*c.TexHeight < n {
		return kernel.ErrCapacityExceeded("gravity.Config", "texture %dx%d cannot hold %d particles", c.TexWidth, c.TexHeight, n)
	}
	if c.Dt <= 0 {
		return kernel.ErrInvalidConfig("gravity.Config", "dt must be positive, got %g", c.Dt)
	}
	if c.NearFieldRadius > mesh.MaxNearFieldRadius {
		return kernel.ErrCapacityExceeded("gravity.Config", "near_field_radius %d exceeds max %d", c.NearFieldRadius, mesh.MaxNearFieldRadius)
	}
	if c.TreeNumLevels > 0 {
		want := 1 << uint(c.TreeNumLevels-1)
		if c.TreeGridSize != want {
			return kernel.ErrInvalidConfig("gravity.Config", "tree.num_levels=%d requires grid_size=%d, got %d", c.TreeNumLevels, want, c.TreeGridSize)
		}
	}
	return nil
}

// particleCount resolves the effective particle count.
func (c *Config) particleCount() int {
	if c.ParticleCount > 0 {
		return c.ParticleCount
	}
	return c.TexWidth * c.TexHeight
}
