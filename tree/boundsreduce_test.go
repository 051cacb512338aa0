package tree

import (
	"testing"

	"github.com/oyin-bo/three-g-sub003/particles"
)

func TestBoundsReduceFindsMinMax(t *testing.T) {
	ps, err := particles.New(4, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, -5, 2, 0, 1)
	ps.SetPositionMass(1, 3, -8, 10, 1)
	ps.SetPositionMass(2, 0, 0, -1, 1)
	ps.SetPositionMass(3, 100, 100, 100, 0) // padding, must be excluded

	br := &BoundsReduce{}
	if err := br.Run(ps); err != nil {
		t.Fatalf("run: %v", err)
	}
	box := br.Box()
	wantMin := [3]float32{-5, -8, -1}
	wantMax := [3]float32{3, 2, 10}
	if box.Min != wantMin {
		t.Errorf("min = %v want %v", box.Min, wantMin)
	}
	if box.Max != wantMax {
		t.Errorf("max = %v want %v", box.Max, wantMax)
	}
}

func TestBoundsReduceNoActiveParticles(t *testing.T) {
	ps, err := particles.New(2, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	br := &BoundsReduce{}
	if err := br.Run(ps); err != nil {
		t.Fatalf("run: %v", err)
	}
	box := br.Box()
	if box.Min != ([3]float32{}) || box.Max != ([3]float32{}) {
		t.Errorf("expected zero box for no active particles, got min=%v max=%v", box.Min, box.Max)
	}
}
