package tree

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/bounds"
	"github.com/oyin-bo/three-g-sub003/particles"
)

func sumA0Mass(a *Aggregator) float64 {
	var total float64
	pl := a.A0.Layout
	var v [4]float32
	for vz := 0; vz < pl.Nz; vz++ {
		for vy := 0; vy < pl.Ny; vy++ {
			for vx := 0; vx < pl.Nx; vx++ {
				a.A0.At(vx, vy, vz, v[:])
				total += float64(v[3])
			}
		}
	}
	return total
}

func TestAggregatorMassConservation(t *testing.T) {
	box := bounds.Box{Min: [3]float32{0, 0, 0}, Max: [3]float32{16, 16, 16}}
	ps, err := particles.New(8, 8, 50)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		x := float32(i%16) + 0.5
		y := float32((i*3)%16) + 0.5
		z := float32((i*7)%16) + 0.5
		ps.SetPositionMass(i, x, y, z, 2.0)
	}

	agg := &Aggregator{N: 16, SlicesRow: 4, Bounds: box}
	if err := agg.Run(ps); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := sumA0Mass(agg)
	want := ps.TotalMass()
	if math.Abs(got-want) > 1e-3 {
		t.Errorf("mass conservation: got %v want %v", got, want)
	}
}

func TestAggregatorQuadrupoleOutputsAndOccupancy(t *testing.T) {
	box := bounds.Box{Min: [3]float32{0, 0, 0}, Max: [3]float32{8, 8, 8}}
	ps, err := particles.New(2, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, 3, 3, 3, 4.0)

	agg := &Aggregator{N: 8, SlicesRow: 2, Bounds: box, Quadrupole: true}
	if err := agg.Run(ps); err != nil {
		t.Fatalf("run: %v", err)
	}
	if agg.A1 == nil || agg.A2 == nil {
		t.Fatal("expected A1/A2 to be allocated in quadrupole mode")
	}
	if agg.Occupancy == nil {
		t.Fatal("expected occupancy mask to be allocated in quadrupole mode")
	}
	if !agg.Occupancy.Get(3, 3, 3) {
		t.Error("expected voxel (3,3,3) marked occupied")
	}
	if agg.Occupancy.Get(0, 0, 0) {
		t.Error("expected voxel (0,0,0) unoccupied")
	}

	var a1 [4]float32
	agg.A1.At(3, 3, 3, a1[:])
	wantXX := 4.0 * 3.0 * 3.0
	if math.Abs(float64(a1[0])-wantXX) > 1e-4 {
		t.Errorf("A1.x = %v, want %v", a1[0], wantXX)
	}
}

func TestAggregatorCullsZeroMassParticles(t *testing.T) {
	box := bounds.Box{Min: [3]float32{0, 0, 0}, Max: [3]float32{8, 8, 8}}
	ps, err := particles.New(2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, 1, 1, 1, 1.0)
	ps.SetPositionMass(1, 2, 2, 2, 0) // padding slot

	agg := &Aggregator{N: 8, SlicesRow: 2, Bounds: box}
	if err := agg.Run(ps); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := sumA0Mass(agg)
	if math.Abs(got-1.0) > 1e-6 {
		t.Errorf("expected zero-mass slot to be culled, total mass got %v want 1", got)
	}
}
