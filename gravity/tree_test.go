package gravity

import (
	"math"
	"math/rand"
	"testing"

	"github.com/oyin-bo/three-g-sub003/bounds"
)

func twoBodyTreeConfig(integrator Integrator) Config {
	return Config{
		Positions: []float32{
			-2, 0, 0, 10,
			2, 0, 0, 10,
		},
		Velocities:      make([]float32, 8),
		ParticleCount:   2,
		TexWidth:        2,
		TexHeight:       1,
		WorldBounds:     bounds.Box{Min: [3]float32{-8, -8, -8}, Max: [3]float32{8, 8, 8}},
		Dt:              0.01,
		GravityStrength: 1,
		Softening:       0.1,
		Integrator:      integrator,
		Theta:           0.5,
		TreeNumLevels:   5,
		TreeGridSize:    16,
		NearFieldRadius: 1,
	}
}

// TestTreeTwoBodyAttracts mirrors TestMeshTwoBodyAttracts for the
// Barnes-Hut pipeline.
func TestTreeTwoBodyAttracts(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	x0 := tr.CurrentPositions()[0]
	for i := 0; i < 20; i++ {
		if err := tr.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	x1 := tr.CurrentPositions()[0]
	if x1 <= x0 {
		t.Errorf("expected particle 0 to move toward the origin, x0=%v x1=%v", x0, x1)
	}
}

// TestTreeNewtonThirdLawAcrossSteps checks the two bodies accelerate by
// (approximately) equal and opposite amounts over a single step, since
// they carry equal mass.
func TestTreeNewtonThirdLawAcrossSteps(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	v0 := tr.CurrentVelocities()
	if err := tr.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	v1 := tr.CurrentVelocities()
	dv0 := v1[0] - v0[0]
	dv1 := v1[4] - v0[4]
	if math.Abs(float64(dv0+dv1)) > 1e-3 {
		t.Errorf("expected equal-and-opposite velocity changes, got %v and %v", dv0, dv1)
	}
}

func TestTreeKDKRuns(t *testing.T) {
	cfg := twoBodyTreeConfig(KDKIntegrator)
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	for i := 0; i < 10; i++ {
		if err := tr.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	for i, v := range tr.CurrentPositions() {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite position at slot %d: %v", i, v)
		}
	}
}

func TestTreeQuadrupoleVariantRuns(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	cfg.TreeUseOccupancy = true
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	for i := 0; i < 5; i++ {
		if err := tr.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestTreeRejectsMismatchedGridSize(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	cfg.TreeGridSize = 8 // should be 2^(5-1)=16
	if _, err := NewTree(cfg); err == nil {
		t.Error("expected InvalidConfig for mismatched tree.num_levels/grid_size")
	}
}

func TestTreeDisposeIdempotent(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	tr.Dispose()
	tr.Dispose()
	if err := tr.Step(); err == nil {
		t.Error("expected step after dispose to fail")
	}
}

// TestTreeMACConvergence checks that a small theta's traversal force
// approaches the direct pairwise sum for a fixed random cloud. This
// test uses a looser bound than a tight analytic match since it runs a
// single cloud rather than an ensemble average, to avoid flaking on one
// unlucky configuration while still demonstrating real convergence as
// theta shrinks.
func TestTreeMACConvergence(t *testing.T) {
	const n = 24
	positions := make([]float32, n*4)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		positions[i*4+0] = float32(rng.Float64()*10 - 5)
		positions[i*4+1] = float32(rng.Float64()*10 - 5)
		positions[i*4+2] = float32(rng.Float64()*10 - 5)
		positions[i*4+3] = float32(1 + rng.Float64())
	}

	box := bounds.Box{Min: [3]float32{-16, -16, -16}, Max: [3]float32{16, 16, 16}}
	softening := float32(0.2)
	gravityStrength := float32(1)

	cfg := Config{
		Positions:       positions,
		Velocities:      make([]float32, n*4),
		ParticleCount:   n,
		TexWidth:        n,
		TexHeight:       1,
		WorldBounds:     box,
		Dt:              0.01,
		GravityStrength: gravityStrength,
		Softening:       softening,
		Theta:           0.15,
		TreeNumLevels:   6,
		TreeGridSize:    32,
		NearFieldRadius: 2,
	}
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	treeForce, err := tr.computeForces(tr.current)
	if err != nil {
		t.Fatalf("computeForces: %v", err)
	}

	direct := directSumForces(positions, n, gravityStrength, softening)

	var maxRelErr float64
	for i := 0; i < n; i++ {
		tf := treeForce.Get(i)
		df := direct[i]
		dMag := math.Sqrt(float64(df[0]*df[0] + df[1]*df[1] + df[2]*df[2]))
		if dMag < 1e-6 {
			continue
		}
		ddx := float64(tf[0]) - float64(df[0])
		ddy := float64(tf[1]) - float64(df[1])
		ddz := float64(tf[2]) - float64(df[2])
		errMag := math.Sqrt(ddx*ddx + ddy*ddy + ddz*ddz)
		relErr := errMag / dMag
		if relErr > maxRelErr {
			maxRelErr = relErr
		}
	}
	if maxRelErr > 0.1 {
		t.Errorf("expected small-theta traversal to approach direct sum, max relative error %.4f", maxRelErr)
	}
}

// directSumForces computes the O(n^2) pairwise gravitational force on
// every particle, the reference the MAC-driven traversal should converge
// to as theta shrinks.
func directSumForces(positions []float32, n int, g, softening float32) [][3]float32 {
	out := make([][3]float32, n)
	eps2 := float64(softening * softening)
	for i := 0; i < n; i++ {
		xi, yi, zi := positions[i*4], positions[i*4+1], positions[i*4+2]
		var fx, fy, fz float64
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			mj := float64(positions[j*4+3])
			dx := float64(positions[j*4]) - float64(xi)
			dy := float64(positions[j*4+1]) - float64(yi)
			dz := float64(positions[j*4+2]) - float64(zi)
			d2 := dx*dx + dy*dy + dz*dz + eps2
			invD3 := 1 / (d2 * math.Sqrt(d2))
			scale := float64(g) * mj * invD3
			fx += scale * dx
			fy += scale * dy
			fz += scale * dz
		}
		out[i] = [3]float32{float32(fx), float32(fy), float32(fz)}
	}
	return out
}

// TestTreeOutOfBoundsParticleStaysFinite mirrors the mesh pipeline's
// equivalent check for the tree pipeline's aggregator/traversal path.
func TestTreeOutOfBoundsParticleStaysFinite(t *testing.T) {
	cfg := Config{
		Positions: []float32{
			100, 100, 100, 5,
			0, 0, 0, 5,
		},
		Velocities:      make([]float32, 8),
		ParticleCount:   2,
		TexWidth:        2,
		TexHeight:       1,
		WorldBounds:     bounds.Box{Min: [3]float32{-8, -8, -8}, Max: [3]float32{8, 8, 8}},
		Dt:              0.01,
		GravityStrength: 1,
		Softening:       0.1,
		Theta:           0.5,
		TreeNumLevels:   5,
		TreeGridSize:    16,
		NearFieldRadius: 1,
	}
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	f, err := tr.computeForces(tr.current)
	if err != nil {
		t.Fatalf("computeForces: %v", err)
	}
	for i := 0; i < 2; i++ {
		fv := f.Get(i)
		for c, v := range fv {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("particle %d component %d is non-finite: %v", i, c, v)
			}
		}
	}
}

func TestTreeBoundsUpdatePeriod(t *testing.T) {
	cfg := twoBodyTreeConfig(EulerIntegrator)
	cfg.BoundsUpdatePeriod = 3
	tr, err := NewTree(cfg)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	defer tr.Dispose()

	for i := 0; i < 5; i++ {
		if err := tr.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	b := tr.ReducedBounds()
	if b.Size()[0] <= 0 {
		t.Errorf("expected a non-degenerate reduced box, got %v", b)
	}
}
