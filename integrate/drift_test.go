package integrate

import (
	"math"
	"testing"

	"github.com/oyin-bo/three-g-sub003/particles"
)

// TestDriftFreeParticleExactIdentity checks that a Drift step alone
// reproduces x = x0 + v*dt and carries mass through unchanged.
func TestDriftFreeParticleExactIdentity(t *testing.T) {
	ps, err := particles.New(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, 1, 2, 3, 1)
	ps.SetVelocity(0, 0.5, -0.5, 2)

	d := &Drift{Dt: 2, Input: ps}
	if err := d.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	pos := d.Output.Position(0)
	want := [3]float32{1 + 0.5*2, 2 - 0.5*2, 3 + 2*2}
	for c := 0; c < 3; c++ {
		if math.Abs(float64(pos[c]-want[c])) > 1e-6 {
			t.Errorf("component %d: got %v want %v", c, pos[c], want[c])
		}
	}
	if d.Output.Mass(0) != 1 {
		t.Error("expected mass carried through unchanged")
	}
}

func TestEulerStepCombinesKickAndDrift(t *testing.T) {
	ps, err := particles.New(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	ps.SetPositionMass(0, 0, 0, 0, 1)
	ps.SetVelocity(0, 0, 0, 0)
	f := particles.NewForce(1, 1)
	f.Set(0, 1, 0, 0)

	e := &Euler{Dt: 1, Input: ps, Forces: f}
	if err := e.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	// kick: v=1; drift: x = 0 + 1*1 = 1
	pos := e.Output.Position(0)
	if math.Abs(float64(pos[0]-1)) > 1e-6 {
		t.Errorf("x = %v, want 1", pos[0])
	}
}
