package gravity

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/mesh"
)

func twoBodyConfig(integrator Integrator) Config {
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
		MeshAssignment:  mesh.CIC,
		MeshGridSize:    16,
		MeshSplit:       mesh.Gaussian,
		MeshSplitSigma:  1.0,
		NearFieldRadius: 2,
	}
}

// TestMeshTwoBodyAttracts checks that two particles placed symmetrically
// about the origin accelerate toward each other.
func TestMeshTwoBodyAttracts(t *testing.T) {
	cfg := twoBodyConfig(EulerIntegrator)
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	defer m.Dispose()

	x0 := m.CurrentPositions()[0]
	for i := 0; i < 20; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	x1 := m.CurrentPositions()[0]
	if x1 <= x0 {
		t.Errorf("expected particle 0 (x=-2) to move toward the origin, x0=%v x1=%v", x0, x1)
	}
}

// TestMeshKDKRuns exercises the KDK integrator path end to end.
func TestMeshKDKRuns(t *testing.T) {
	cfg := twoBodyConfig(KDKIntegrator)
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	defer m.Dispose()

	for i := 0; i < 10; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	pos := m.CurrentPositions()
	for i, v := range pos {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite position at slot %d: %v", i, v)
		}
	}
}

// TestMeshUniformGridZeroNetForce checks that a symmetric grid of equal
// masses produces near-zero net force on the central particle.
func TestMeshUniformGridZeroNetForce(t *testing.T) {
	var positions []float32
	for _, dx := range []float32{-2, 0, 2} {
		for _, dy := range []float32{-2, 0, 2} {
			for _, dz := range []float32{-2, 0, 2} {
				positions = append(positions, dx, dy, dz, 1)
			}
		}
	}
	cfg := Config{
		Positions:       positions,
		ParticleCount:   27,
		TexWidth:        27,
		TexHeight:       1,
		WorldBounds:     bounds.Box{Min: [3]float32{-8, -8, -8}, Max: [3]float32{8, 8, 8}},
		Dt:              0.01,
		GravityStrength: 1,
		Softening:       0.2,
		MeshAssignment:  mesh.CIC,
		MeshGridSize:    16,
		NearFieldRadius: 2,
	}
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	defer m.Dispose()

	f, err := m.computeForces(m.current)
	if err != nil {
		t.Fatalf("computeForces: %v", err)
	}
	// particle 13 is (0,0,0), the center of the symmetric arrangement.
	center := f.Get(13)
	mag := math.Sqrt(float64(center[0]*center[0] + center[1]*center[1] + center[2]*center[2]))
	if mag > 1.0 {
		t.Errorf("expected near-zero net force at the symmetric center, got magnitude %v", mag)
	}
}

// TestMeshForceIsotropic checks that the PM far-field force a light test
// particle feels from a single heavy source is the same magnitude
// regardless of which axis it sits on, and points back toward the
// source. The packed-layout FFT/Poisson/Gradient chain must not
// introduce a preferred grid axis.
func TestMeshForceIsotropic(t *testing.T) {
	const r = 3.0
	positions := []float32{
		0, 0, 0, 1e4, // heavy source at the center
		r, 0, 0, 1e-3, // light probes on each axis
		0, r, 0, 1e-3,
		0, 0, r, 1e-3,
	}
	cfg := Config{
		Positions:       positions,
		Velocities:      make([]float32, 16),
		ParticleCount:   4,
		TexWidth:        4,
		TexHeight:       1,
		WorldBounds:     bounds.Box{Min: [3]float32{-16, -16, -16}, Max: [3]float32{16, 16, 16}},
		Dt:              0.01,
		GravityStrength: 1,
		Softening:       0.1,
		MeshAssignment:  mesh.CIC,
		MeshGridSize:    32,
		MeshSplit:       mesh.Gaussian,
		MeshSplitSigma:  1.0,
		NearFieldRadius: 2,
	}
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	defer m.Dispose()

	f, err := m.computeForces(m.current)
	if err != nil {
		t.Fatalf("computeForces: %v", err)
	}

	mags := make([]float64, 3)
	for i, slot := range []int{1, 2, 3} {
		fv := f.Get(slot)
		mags[i] = math.Sqrt(float64(fv[0]*fv[0] + fv[1]*fv[1] + fv[2]*fv[2]))
		pos := m.CurrentPositions()[slot*4 : slot*4+3]
		dot := float64(pos[0])*float64(fv[0]) + float64(pos[1])*float64(fv[1]) + float64(pos[2])*float64(fv[2])
		if dot >= 0 {
			t.Errorf("probe %d: expected force to point back toward the source, got pos=%v force=%v", slot, pos, fv)
		}
	}

	// A generous tolerance. This compares grid-axis to grid-axis directly
	// (x vs y vs z), which is a stricter ask than matching a continuum
	// formula, so some slack is kept for CIC/Gaussian-split discretization
	// error at grid size 32.
	maxMag, minMag := mags[0], mags[0]
	for _, v := range mags {
		if v > maxMag {
			maxMag = v
		}
		if v < minMag {
			minMag = v
		}
	}
	if minMag <= 0 || (maxMag-minMag)/minMag > 0.15 {
		t.Errorf("expected near-isotropic force magnitudes across axes, got %v", mags)
	}
}

// TestMeshOutOfBoundsParticleStaysFinite checks that a particle placed
// far outside world bounds still produces a finite force, clamped to the
// edge voxel rather than propagating NaN/Inf.
func TestMeshOutOfBoundsParticleStaysFinite(t *testing.T) {
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
		MeshAssignment:  mesh.CIC,
		MeshGridSize:    16,
		NearFieldRadius: 2,
	}
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	defer m.Dispose()

	f, err := m.computeForces(m.current)
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

// TestMeshDisposeIdempotent checks dispose can be called more than once
// and that Step fails with InvalidState afterward.
func TestMeshDisposeIdempotent(t *testing.T) {
	cfg := twoBodyConfig(EulerIntegrator)
	m, err := NewMesh(cfg)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	m.Dispose()
	m.Dispose()
	if err := m.Step(); err == nil {
		t.Error("expected step after dispose to fail")
	}
}
